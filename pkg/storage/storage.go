package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Storage 종료된 매치 결과를 디스크에 보관하는 아카이브.
// 클라이언트 리플레이 조회용 최종 스냅샷을 JSON 파일로 남긴다.
type Storage struct {
	basePath string
}

// NewStorage 스토리지 생성
func NewStorage(basePath string) *Storage {
	return &Storage{
		basePath: basePath,
	}
}

// ArchiveMatch 매치 최종 결과 저장
func (s *Storage) ArchiveMatch(matchID string, result interface{}) (string, error) {
	filename := fmt.Sprintf("%s_%d.json", matchID, time.Now().Unix())
	savePath := filepath.Join(s.basePath, "matches", filename)

	// 디렉토리 생성
	if err := os.MkdirAll(filepath.Dir(savePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal match result: %w", err)
	}

	if err := os.WriteFile(savePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write match result: %w", err)
	}

	return savePath, nil
}

// LoadMatch 보관된 매치 결과 읽기
func (s *Storage) LoadMatch(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read match result: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal match result: %w", err)
	}

	return nil
}

// Delete 보관 파일 삭제
func (s *Storage) Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
