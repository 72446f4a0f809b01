package match

// board 3x3 턴제 보드. 칸에는 차지한 playerID가 들어간다.
type board struct {
	cells [9]string
}

var boardLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // 가로
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // 세로
	{0, 4, 8}, {2, 4, 6}, // 대각
}

// place 칸 차지. 이미 차 있으면 false.
func (b *board) place(cell int, playerID string) bool {
	if cell < 0 || cell >= len(b.cells) {
		return false
	}
	if b.cells[cell] != "" {
		return false
	}
	b.cells[cell] = playerID
	return true
}

// winner 가로/세로/대각 전수 검사. 승자가 없으면 빈 문자열.
func (b *board) winner() string {
	for _, line := range boardLines {
		a := b.cells[line[0]]
		if a != "" && a == b.cells[line[1]] && a == b.cells[line[2]] {
			return a
		}
	}
	return ""
}

// full 보드가 가득 찼는지 (승자 없이 가득 = 무승부)
func (b *board) full() bool {
	for _, c := range b.cells {
		if c == "" {
			return false
		}
	}
	return true
}

func (b *board) snapshot() []string {
	out := make([]string, len(b.cells))
	copy(out, b.cells[:])
	return out
}
