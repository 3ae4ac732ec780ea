package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"DanmakuAnalysis/internal/interfaces"
	"DanmakuAnalysis/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type analysisRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAnalysisRepository 分析结果缓存表，updated_at 由 now 决定
func NewAnalysisRepository(db *gorm.DB, now func() time.Time) interfaces.ResultStore {
	if now == nil {
		now = time.Now
	}
	return &analysisRepository{db: db, now: now}
}

func (r *analysisRepository) Get(ctx context.Context, bvid string, kind model.AnalysisKind) (*model.AnalysisResult, error) {
	var row model.DanmakuAnalysis
	err := r.db.WithContext(ctx).
		Where("video_bvid = ? AND analysis_type = ?", bvid, string(kind)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询分析结果失败: %w", err)
	}
	return toResult(&row), nil
}

// Put 按 (video_bvid, analysis_type) 覆盖写，返回库中回读的记录。
// timestamp 列不带时区，统一写 UTC，回读时 pgx 按 UTC 解释
func (r *analysisRepository) Put(ctx context.Context, bvid string, kind model.AnalysisKind, payload []byte) (*model.AnalysisResult, error) {
	now := r.now().UTC()
	row := &model.DanmakuAnalysis{
		VideoBVID:    bvid,
		AnalysisType: string(kind),
		ResultJSON:   datatypes.JSON(payload),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "video_bvid"}, {Name: "analysis_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"result_json", "updated_at"}),
	}).Create(row).Error; err != nil {
		return nil, fmt.Errorf("保存分析结果失败: %w, bvid: %s, type: %s", err, bvid, kind)
	}
	return r.Get(ctx, bvid, kind)
}

// Delete 删除视频的全部分析结果
func (r *analysisRepository) Delete(ctx context.Context, bvid string) (int64, error) {
	res := r.db.WithContext(ctx).Where("video_bvid = ?", bvid).Delete(&model.DanmakuAnalysis{})
	if res.Error != nil {
		return 0, fmt.Errorf("删除分析结果失败: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// List 按条件列出，bvid / kind 为空表示不过滤
func (r *analysisRepository) List(ctx context.Context, bvid string, kind model.AnalysisKind) ([]*model.AnalysisResult, error) {
	q := r.db.WithContext(ctx).Model(&model.DanmakuAnalysis{})
	if bvid != "" {
		q = q.Where("video_bvid = ?", bvid)
	}
	if kind != "" {
		q = q.Where("analysis_type = ?", string(kind))
	}
	var rows []model.DanmakuAnalysis
	if err := q.Order("updated_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("查询分析结果列表失败: %w", err)
	}
	out := make([]*model.AnalysisResult, len(rows))
	for i := range rows {
		out[i] = toResult(&rows[i])
	}
	return out, nil
}

func toResult(row *model.DanmakuAnalysis) *model.AnalysisResult {
	return &model.AnalysisResult{
		VideoBVID: row.VideoBVID,
		Kind:      model.AnalysisKind(row.AnalysisType),
		Payload:   []byte(row.ResultJSON),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
