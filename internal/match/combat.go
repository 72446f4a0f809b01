package match

import (
	"math"

	"github.com/skirmish-gg/skirmish-backend/internal/models"
)

// hitCandidate 히트스캔 대상 후보
type hitCandidate struct {
	playerID string
	pos      models.Vec2
}

// resolveHitScan 히트스캔 판정.
// 사거리 안, 조준 방향과의 각도 오차 안에 있는 후보 중 가장 가까운 대상을 고른다.
// 처음 발견한 대상이 아니라 최근접 대상이어야 한다 (nearest-wins).
// aim은 정규화된 방향 벡터여야 한다.
func resolveHitScan(origin models.Vec2, aim models.Vec2, maxRange, angleTolerance float64, candidates []hitCandidate) *string {
	var bestID string
	bestDist := math.Inf(1)

	for _, c := range candidates {
		toTarget := vecSub(c.pos, origin)
		dist := vecLen(toTarget)
		if dist == 0 || dist > maxRange {
			continue
		}

		dir, ok := vecNormalize(toTarget)
		if !ok {
			continue
		}

		// acos(dot) ≤ tolerance. dot은 부동소수 오차로 [-1,1]을 살짝 벗어날 수 있다.
		dot := math.Max(-1, math.Min(1, vecDot(dir, aim)))
		if math.Acos(dot) > angleTolerance {
			continue
		}

		if dist < bestDist {
			bestDist = dist
			bestID = c.playerID
		}
	}

	if bestID == "" {
		return nil
	}
	return &bestID
}
