package match

// Reason 클라이언트에 그대로 내려가는 구조화된 거부 사유
type Reason string

const (
	ReasonInvalidPlayerToken Reason = "invalid_player_token"
	ReasonNotLive            Reason = "not_live"
	ReasonMatchFull          Reason = "match_full"
	ReasonMatchFinished      Reason = "match_finished"
	ReasonNotYourTurn        Reason = "not_your_turn"
	ReasonNotAlive           Reason = "not_alive"
	ReasonNotHost            Reason = "not_host"
	ReasonInvalidInput       Reason = "invalid_input"
	ReasonCellOccupied       Reason = "cell_occupied"
	ReasonNotEnoughPlayers   Reason = "not_enough_players"
)

// Reject 게임 규칙 위반에 대한 타입 있는 거부.
// 매치는 계속 돌고, 위반한 호출만 이 에러를 돌려받는다.
type Reject struct {
	Code Reason
}

func (r *Reject) Error() string {
	return string(r.Code)
}

func reject(code Reason) error {
	return &Reject{Code: code}
}

// RejectReason err가 Reject면 사유를, 아니면 빈 문자열을 반환
func RejectReason(err error) Reason {
	if rej, ok := err.(*Reject); ok {
		return rej.Code
	}
	return ""
}
