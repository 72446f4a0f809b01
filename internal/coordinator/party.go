package coordinator

import (
	"github.com/skirmish-gg/skirmish-backend/internal/models"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// 헷갈리는 글자(0/O, 1/I/L)를 뺀 초대 코드 알파벳
const inviteAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
const inviteCodeLen = 6

// CreateParty 파티 매치 생성. 만든 플레이어가 호스트가 되고
// 다른 플레이어가 합류할 수 있는 초대 코드를 돌려받는다.
func (c *Coordinator) CreateParty(playerID string, class models.QueueClass) (*models.Assignment, string, error) {
	mode, ok := c.modes[class]
	if !ok {
		return nil, "", ErrUnknownClass
	}
	if mode.Pairing != models.PairingInvite {
		return nil, "", ErrUnknownClass
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.assignments[playerID]; ok {
		code := c.inviteByID[a.MatchID]
		cp := *a
		return &cp, code, nil
	}

	code, err := c.mintInviteCodeLocked()
	if err != nil {
		return nil, "", err
	}

	e := c.newEngineLocked(mode)
	if err := c.commitLocked(e, class, playerID, -1); err != nil {
		return nil, "", err
	}

	c.invites[code] = e.ID()
	c.inviteByID[e.ID()] = code

	cp := *c.assignments[playerID]
	return &cp, code, nil
}

// JoinParty 초대 코드로 합류. 코드가 살아 있고 자리가 있으면 좌석을 받는다.
func (c *Coordinator) JoinParty(playerID, code string) (*models.Assignment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.assignments[playerID]; ok {
		cp := *a
		return &cp, nil
	}

	matchID, ok := c.invites[code]
	if !ok {
		return nil, ErrInviteNotFound
	}
	e, ok := c.engines[matchID]
	if !ok {
		return nil, ErrInviteNotFound
	}

	class := c.engineClass[matchID]
	if err := c.commitLocked(e, class, playerID, -1); err != nil {
		return nil, err
	}

	cp := *c.assignments[playerID]
	return &cp, nil
}

// mintInviteCodeLocked 충돌 없는 초대 코드 발급
func (c *Coordinator) mintInviteCodeLocked() (string, error) {
	for i := 0; i < 5; i++ {
		code, err := gonanoid.Generate(inviteAlphabet, inviteCodeLen)
		if err != nil {
			return "", err
		}
		if _, taken := c.invites[code]; !taken {
			return code, nil
		}
	}
	// 31^6 공간에서 5연속 충돌은 사실상 불가능하지만, 만일을 위해 더 긴 코드로
	return gonanoid.Generate(inviteAlphabet, inviteCodeLen*2)
}
