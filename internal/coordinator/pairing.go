package coordinator

import (
	"sort"
	"time"

	"github.com/skirmish-gg/skirmish-backend/internal/match"
	"github.com/skirmish-gg/skirmish-backend/internal/models"
	"go.uber.org/zap"
)

// tryPairLocked 클래스별 페어링 전략 실행. c.mu를 쥔 채로 호출해야 한다.
func (c *Coordinator) tryPairLocked(class models.QueueClass) {
	mode, ok := c.modes[class]
	if !ok {
		return
	}

	switch mode.Pairing {
	case models.PairingFixedFill:
		c.pairFixedFillLocked(class, mode)
	case models.PairingRatingWindow:
		c.pairRatingWindowLocked(class, mode)
	case models.PairingFullestFirst:
		c.routeFullestFirstLocked(class, mode)
	}
}

// pairFixedFillLocked 정원이 차는 즉시 선두 Capacity명으로 매치 생성.
// 팀 모드는 i % teamCount 라운드로빈 배정.
func (c *Coordinator) pairFixedFillLocked(class models.QueueClass, mode models.ModeConfig) {
	for len(c.queues[class]) >= mode.Capacity {
		picked := c.queues[class][:mode.Capacity]
		e := c.newEngineLocked(mode)

		taken := make(map[string]bool, len(picked))
		for i, entry := range picked {
			teamID := -1
			if mode.TeamCount > 0 {
				teamID = i % mode.TeamCount
			}
			if err := c.commitLocked(e, class, entry.PlayerID, teamID); err != nil {
				// 막 만든 엔진에서 실패할 일은 없지만, 실패하면 그 플레이어만 큐에 남긴다
				if c.logger != nil {
					c.logger.Error("Seat commit failed",
						zap.String("playerId", entry.PlayerID), zap.Error(err))
				}
				continue
			}
			taken[entry.PlayerID] = true
		}

		c.removeFromQueueLocked(class, taken)
		e.Start()
	}
}

// ratingWindowFor 대기 시간에 따라 넓어지는 허용 창
func ratingWindowFor(mode models.ModeConfig, entry *models.QueueEntry, now time.Time) int {
	waited := now.Sub(entry.EnqueuedAt).Seconds()
	w := mode.RatingBaseWindow + int(float64(mode.RatingGrowthPerSec)*waited)
	if mode.RatingMaxWindow > 0 && w > mode.RatingMaxWindow {
		w = mode.RatingMaxWindow
	}
	return w
}

// pairRatingWindowLocked 레이팅 창 페어링 (2인 모드 전용).
// 가장 오래 기다린 항목부터, 상호 창 안에 있는 후보 중
// 레이팅 차가 가장 작은 쪽을 고른다. 동률이면 먼저 온 쪽.
func (c *Coordinator) pairRatingWindowLocked(class models.QueueClass, mode models.ModeConfig) {
	now := c.now()

	for {
		entries := c.queues[class]
		if len(entries) < 2 {
			return
		}

		paired := false
		for i := 0; i < len(entries) && !paired; i++ {
			anchor := entries[i]
			anchorWindow := ratingWindowFor(mode, anchor, now)

			var best *models.QueueEntry
			bestDiff := 0
			for j := 0; j < len(entries); j++ {
				if i == j {
					continue
				}
				cand := entries[j]
				diff := anchor.Rating - cand.Rating
				if diff < 0 {
					diff = -diff
				}
				// 상호 창: 양쪽 모두의 허용 범위 안이어야 한다
				if diff > anchorWindow || diff > ratingWindowFor(mode, cand, now) {
					continue
				}
				if best == nil || diff < bestDiff ||
					(diff == bestDiff && cand.EnqueuedAt.Before(best.EnqueuedAt)) {
					best = cand
					bestDiff = diff
				}
			}

			if best == nil {
				continue
			}

			e := c.newEngineLocked(mode)
			taken := make(map[string]bool, 2)
			for _, entry := range []*models.QueueEntry{anchor, best} {
				if err := c.commitLocked(e, class, entry.PlayerID, -1); err != nil {
					if c.logger != nil {
						c.logger.Error("Seat commit failed",
							zap.String("playerId", entry.PlayerID), zap.Error(err))
					}
					continue
				}
				taken[entry.PlayerID] = true
			}
			c.removeFromQueueLocked(class, taken)
			e.Start()
			paired = true
		}

		if !paired {
			return
		}
	}
}

// routeFullestFirstLocked 열린 로비 라우팅: 대기자를 즉시 가장 찬 매치로 보낸다.
// 점유 힌트는 eventually consistent — 정렬에만 쓰고, 커밋은 Reserve의
// 권위 검사를 통과해야 한다. 꽉 찼으면 다음 후보, 없으면 새 매치.
func (c *Coordinator) routeFullestFirstLocked(class models.QueueClass, mode models.ModeConfig) {
	for len(c.queues[class]) > 0 {
		entry := c.queues[class][0]

		candidates := c.openEnginesLocked(class, mode)
		var committed *match.Engine
		for _, e := range candidates {
			err := c.commitLocked(e, class, entry.PlayerID, -1)
			if err == nil {
				committed = e
				break
			}
			if err == ErrMatchFull {
				continue // 힌트가 낡았다. 다음 후보.
			}
			continue
		}

		if committed == nil {
			e := c.newEngineLocked(mode)
			if err := c.commitLocked(e, class, entry.PlayerID, -1); err != nil {
				if c.logger != nil {
					c.logger.Error("Seat commit failed on fresh match",
						zap.String("playerId", entry.PlayerID), zap.Error(err))
				}
				c.removeFromQueueLocked(class, map[string]bool{entry.PlayerID: true})
				continue
			}
			e.Start()
		}

		c.removeFromQueueLocked(class, map[string]bool{entry.PlayerID: true})
	}
}

// openEnginesLocked 합류 가능한 같은 클래스 엔진을 점유 내림차순으로 반환
func (c *Coordinator) openEnginesLocked(class models.QueueClass, mode models.ModeConfig) []*match.Engine {
	type scored struct {
		e        *match.Engine
		occupied int
	}

	c.occMu.Lock()
	hints := make(map[string]occupancyHint, len(c.occupancy))
	for id, h := range c.occupancy {
		hints[id] = h
	}
	c.occMu.Unlock()

	var open []scored
	for id, e := range c.engines {
		if c.engineClass[id] != class {
			continue
		}

		hint, ok := hints[id]
		if !ok {
			// 힌트가 아직 없으면 직접 물어본다
			hint.occupied, hint.phase = e.Occupancy()
		}

		if hint.occupied >= mode.Capacity {
			continue
		}
		if hint.phase == models.PhaseFinished {
			continue
		}
		if hint.phase == models.PhaseLive && !mode.JoinableWhileLive {
			continue
		}
		open = append(open, scored{e: e, occupied: hint.occupied})
	}

	sort.Slice(open, func(i, j int) bool {
		return open[i].occupied > open[j].occupied
	})

	out := make([]*match.Engine, len(open))
	for i, s := range open {
		out[i] = s.e
	}
	return out
}
