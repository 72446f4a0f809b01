package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/skirmish-gg/skirmish-backend/pkg/logger"
)

type DB struct {
	*sql.DB
}

// Connect 데이터베이스 연결
func Connect(databaseURL string) (*DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 연결 풀 설정. 정산/히스토리 기록이 매치 종료 시점에 몰리므로
	// idle을 조금 여유 있게 잡는다.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 연결 테스트 (부팅이 무한정 걸리지 않게 타임아웃)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connected successfully")

	return &DB{db}, nil
}

// Close 데이터베이스 연결 종료
func (db *DB) Close() error {
	return db.DB.Close()
}
