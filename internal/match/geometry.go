package match

import (
	"math"

	"github.com/skirmish-gg/skirmish-backend/internal/models"
)

func vecSub(a, b models.Vec2) models.Vec2 {
	return models.Vec2{X: a.X - b.X, Y: a.Y - b.Y}
}

func vecAdd(a, b models.Vec2) models.Vec2 {
	return models.Vec2{X: a.X + b.X, Y: a.Y + b.Y}
}

func vecScale(v models.Vec2, s float64) models.Vec2 {
	return models.Vec2{X: v.X * s, Y: v.Y * s}
}

func vecLen(v models.Vec2) float64 {
	return math.Hypot(v.X, v.Y)
}

func vecDot(a, b models.Vec2) float64 {
	return a.X*b.X + a.Y*b.Y
}

// vecNormalize 단위 벡터화. 영벡터는 (false)로 보고한다.
func vecNormalize(v models.Vec2) (models.Vec2, bool) {
	l := vecLen(v)
	if l == 0 {
		return models.Vec2{}, false
	}
	return models.Vec2{X: v.X / l, Y: v.Y / l}, true
}

// clampMovement 이동 검증 (anti-cheat).
// 클라이언트가 주장한 위치를 그대로 믿지 않는다: 마지막 승인 위치에서
// maxSpeed×elapsed 이상 이동했다면 주장한 방향으로 그 거리만큼만 인정한다.
// 거부가 아니라 클램프이므로 네트워크 지터는 흡수하고 스피드핵만 막는다.
func clampMovement(last, claimed models.Vec2, maxSpeed, elapsedSeconds float64) models.Vec2 {
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}

	delta := vecSub(claimed, last)
	dist := vecLen(delta)
	maxDist := maxSpeed * elapsedSeconds

	if dist <= maxDist {
		return claimed
	}

	dir, ok := vecNormalize(delta)
	if !ok {
		return last
	}
	return vecAdd(last, vecScale(dir, maxDist))
}

// clampToWorld 월드 경계 [0, size] 클램프
func clampToWorld(p models.Vec2, size float64) models.Vec2 {
	return models.Vec2{
		X: math.Max(0, math.Min(size, p.X)),
		Y: math.Max(0, math.Min(size, p.Y)),
	}
}
