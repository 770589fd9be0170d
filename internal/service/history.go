package service

import (
	"context"
	"fmt"

	"github.com/BrandonCHaha/DriveTimeAnalysis/internal/database"
	"github.com/BrandonCHaha/DriveTimeAnalysis/internal/model"
)

// HistoryService 分析记录服务
// 只记录已结束的分析（终态与多边形数量），阈值设置本身不持久化
type HistoryService struct {
	db *database.DB
}

// NewHistoryService 创建分析记录服务
func NewHistoryService(db *database.DB) *HistoryService {
	return &HistoryService{db: db}
}

// Enabled 是否可用（未配置数据库时整体禁用）
func (s *HistoryService) Enabled() bool {
	return s != nil && s.db != nil
}

// Record 写入一条分析记录
func (s *HistoryService) Record(ctx context.Context, run *model.AnalysisRun) error {
	if !s.Enabled() {
		return nil
	}

	query := `
		INSERT INTO analysis_run
			(lng, lat, breakpoints, phase, polygon_count, error_text, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`

	err := s.db.Exec(ctx, query,
		run.Point.Lng(),
		run.Point.Lat(),
		run.Breakpoints,
		string(run.Phase),
		run.PolygonCount,
		run.ErrorText(),
		run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Recent 查询最近的分析记录
func (s *HistoryService) Recent(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if !s.Enabled() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, lng, lat, breakpoints, phase, polygon_count, error_text, duration_ms, created_at
		FROM analysis_run
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	records := make([]model.RunRecord, 0, limit)
	for rows.Next() {
		var r model.RunRecord
		if err := rows.Scan(
			&r.ID,
			&r.Lng,
			&r.Lat,
			&r.Breakpoints,
			&r.Phase,
			&r.PolygonCount,
			&r.ErrorText,
			&r.DurationMs,
			&r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}
