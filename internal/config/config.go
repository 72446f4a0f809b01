package config

import (
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/skirmish-gg/skirmish-backend/internal/models"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DatabaseURL string

	// Redis (비어 있으면 단일 인스턴스 모드로 동작)
	RedisURL string

	// JWT
	JWTSecret     string
	JWTExpiration time.Duration

	// 내부 운영 API (빈 값이면 프로세스마다 랜덤 시크릿 = 사실상 잠김)
	InternalAPISecret string

	// CORS
	CORSAllowedOrigins []string

	// Storage
	StoragePath string

	// Matchmaking
	RescanInterval time.Duration // 주기적 페어링 재시도 간격

	// Rate limit (enqueue 엔드포인트)
	EnqueueLimit  int
	EnqueueWindow time.Duration
}

func Load() (*Config, error) {
	// .env 파일 로드 (있는 경우)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", "your-secret-key"),
		JWTExpiration:      parseDuration(getEnv("JWT_EXPIRATION", "24h"), 24*time.Hour),
		InternalAPISecret:  getEnv("INTERNAL_API_SECRET", ""),
		StoragePath:        getEnv("STORAGE_PATH", "./storage"),
		RescanInterval:     parseDuration(getEnv("RESCAN_INTERVAL", "2s"), 2*time.Second),
		EnqueueLimit:       parseInt(getEnv("ENQUEUE_LIMIT", "30"), 30),
		EnqueueWindow:      parseDuration(getEnv("ENQUEUE_WINDOW", "1m"), time.Minute),
		CORSAllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}

	return cfg, nil
}

// Modes 큐 클래스 레지스트리.
// 모든 모드는 같은 엔진을 쓰고 이 설정값만 다르다.
func Modes() map[models.QueueClass]models.ModeConfig {
	grace := 5 * time.Second

	return map[models.QueueClass]models.ModeConfig{
		models.ClassArena: {
			Class:        models.ClassArena,
			Capacity:     4,
			Pairing:      models.PairingFixedFill,
			TickRate:     10,
			ScoreLimit:   10,
			RespawnOnHit: true,
			MaxSpeed:     12,
			WorldSize:    100,
			WeaponRange:  40,
			WeaponAngle:  12 * math.Pi / 180,
			GraceWindow:  grace,
		},
		models.ClassDuel: {
			Class:              models.ClassDuel,
			Capacity:           2,
			Pairing:            models.PairingRatingWindow,
			TickRate:           15,
			ScoreLimit:         5,
			Rated:              true,
			RespawnOnHit:       true,
			MaxSpeed:           12,
			WorldSize:          60,
			WeaponRange:        35,
			WeaponAngle:        10 * math.Pi / 180,
			GraceWindow:        grace,
			RatingBaseWindow:   50,
			RatingGrowthPerSec: 10,
			RatingMaxWindow:    400,
		},
		models.ClassTeam: {
			Class:        models.ClassTeam,
			Capacity:     4,
			TeamCount:    2,
			Pairing:      models.PairingFixedFill,
			TickRate:     10,
			ScoreLimit:   15,
			TeamScore:    true,
			RespawnOnHit: true,
			MaxSpeed:     12,
			WorldSize:    120,
			WeaponRange:  40,
			WeaponAngle:  12 * math.Pi / 180,
			GraceWindow:  grace,
		},
		models.ClassRoyale: {
			Class:             models.ClassRoyale,
			Capacity:          8,
			MinPlayers:        2,
			Pairing:           models.PairingFullestFirst,
			TickRate:          10,
			LastStanding:      true,
			MaxHP:             100,
			MaxSpeed:          10,
			WorldSize:         200,
			WeaponRange:       45,
			WeaponAngle:       10 * math.Pi / 180,
			WeaponDamage:      25,
			GraceWindow:       grace,
			ReservationTTL:    15 * time.Second,
			JoinableWhileLive: true,
			Zone: &models.ZoneConfig{
				InitialRadius:   140,
				MinRadius:       15,
				ShrinkPerSecond: 1.5,
				DamagePerSecond: 5,
				Delay:           30 * time.Second,
			},
		},
		models.ClassParty: {
			Class:      models.ClassParty,
			Capacity:   8,
			MinPlayers: 2,
			Pairing:    models.PairingInvite,
			HostDriven: true,
			MaxSpeed:   12,
			WorldSize:  100,
			// 초대 코드를 사람이 전달하는 시간을 감안해 예약을 길게 잡는다.
			// 나머지 모드는 DefaultReservationTTL을 쓴다.
			ReservationTTL: 2 * time.Minute,
			GraceWindow:    grace,
		},
		models.ClassTicTacToe: {
			Class:              models.ClassTicTacToe,
			Capacity:           2,
			Pairing:            models.PairingRatingWindow,
			TurnBased:          true,
			Rated:              true,
			GraceWindow:        grace,
			RatingBaseWindow:   100,
			RatingGrowthPerSec: 25,
			RatingMaxWindow:    600,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
