package service

import "math"

// RatingService ELO 레이팅 계산 서비스
type RatingService struct {
	defaultKFactor float64 // Default K-factor for established players
}

// NewRatingService ELO 서비스 생성
func NewRatingService() *RatingService {
	return &RatingService{
		defaultKFactor: 32, // K-factor: 레이팅 변동 폭 (기본값)
	}
}

// GetKFactor returns the appropriate K-factor based on the number of matches played.
// - New players (< 10 matches): K=40 for faster convergence
// - Intermediate players (10-20 matches): K=32 for moderate adjustment
// - Established players (> 20 matches): K=24 for rating stability
func (s *RatingService) GetKFactor(matchCount int) float64 {
	if matchCount < 10 {
		return 40.0 // Provisional rating - faster convergence
	} else if matchCount < 20 {
		return 32.0 // Intermediate - moderate adjustment
	}
	return 24.0 // Established rating - stable
}

// CalculateNewRatings 매치 결과에 따른 새로운 ELO 레이팅 계산
// result: 1.0 (player1 승), 0.5 (무승부), 0.0 (player2 승)
func (s *RatingService) CalculateNewRatings(player1Rating, player2Rating int, result float64) (new1, new2, change1, change2 int) {
	return s.calculate(player1Rating, player2Rating, s.defaultKFactor, s.defaultKFactor, result)
}

// CalculateNewRatingsWithMatchCounts calculates new ratings using dynamic K-factors
// so provisional players converge faster than established ones.
func (s *RatingService) CalculateNewRatingsWithMatchCounts(
	player1Rating, player2Rating int,
	player1Matches, player2Matches int,
	result float64,
) (new1, new2, change1, change2 int) {
	return s.calculate(
		player1Rating, player2Rating,
		s.GetKFactor(player1Matches), s.GetKFactor(player2Matches),
		result,
	)
}

func (s *RatingService) calculate(r1, r2 int, k1, k2, result float64) (new1, new2, change1, change2 int) {
	// 기대 승률 계산
	expected1 := s.expectedScore(float64(r1), float64(r2))
	expected2 := 1.0 - expected1

	new1 = int(math.Round(float64(r1) + k1*(result-expected1)))
	new2 = int(math.Round(float64(r2) + k2*((1.0-result)-expected2)))

	change1 = new1 - r1
	change2 = new2 - r2
	return
}

// expectedScore ELO에 기반한 기대 승률 계산
func (s *RatingService) expectedScore(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (ratingB-ratingA)/400.0))
}
