package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoard_PlaceAndOccupied(t *testing.T) {
	b := &board{}

	assert.True(t, b.place(4, "a"))
	assert.False(t, b.place(4, "b")) // 이미 찬 칸
	assert.False(t, b.place(9, "b")) // 범위 밖
	assert.False(t, b.place(-1, "b"))
}

func TestBoard_RowWin(t *testing.T) {
	b := &board{}
	b.place(0, "a")
	b.place(1, "a")
	b.place(2, "a")
	assert.Equal(t, "a", b.winner())
}

func TestBoard_ColumnWin(t *testing.T) {
	b := &board{}
	b.place(1, "b")
	b.place(4, "b")
	b.place(7, "b")
	assert.Equal(t, "b", b.winner())
}

func TestBoard_DiagonalWin(t *testing.T) {
	b := &board{}
	b.place(2, "a")
	b.place(4, "a")
	b.place(6, "a")
	assert.Equal(t, "a", b.winner())
}

func TestBoard_Draw(t *testing.T) {
	// a b a
	// a b b
	// b a a
	b := &board{}
	moves := map[int]string{
		0: "a", 1: "b", 2: "a",
		3: "a", 4: "b", 5: "b",
		6: "b", 7: "a", 8: "a",
	}
	for cell, p := range moves {
		b.place(cell, p)
	}

	assert.Equal(t, "", b.winner())
	assert.True(t, b.full())
}
