package repository

import (
	"context"
	"errors"
	"fmt"

	"DanmakuAnalysis/internal/interfaces"
	"DanmakuAnalysis/internal/model"

	"gorm.io/gorm"
)

type danmakuRepository struct {
	db *gorm.DB
}

// NewDanmakuRepository 基于 videos / danmakus 表的上游数据源（只读）
func NewDanmakuRepository(db *gorm.DB) interfaces.DanmakuSource {
	return &danmakuRepository{db: db}
}

func (r *danmakuRepository) GetVideo(ctx context.Context, bvid string) (*model.Video, error) {
	var v model.Video
	if err := r.db.WithContext(ctx).Where("bvid = ?", bvid).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", model.ErrVideoNotFound, bvid)
		}
		return nil, fmt.Errorf("查询视频失败: %w", err)
	}
	return &v, nil
}

// byVideo danmakus 关联 videos 后按 bvid 过滤
func (r *danmakuRepository) byVideo(ctx context.Context, bvid string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Danmaku{}).
		Joins("JOIN videos ON videos.id = danmakus.video_id").
		Where("videos.bvid = ?", bvid)
}

// ensureVideo 结果为空时区分“视频不存在”和“没有数据”
func (r *danmakuRepository) ensureVideo(ctx context.Context, bvid string) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Video{}).Where("bvid = ?", bvid).Count(&n).Error; err != nil {
		return fmt.Errorf("查询视频失败: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", model.ErrVideoNotFound, bvid)
	}
	return nil
}

// ListEvents 按分P、进度排序的全部弹幕；视频不存在返回 ErrVideoNotFound
func (r *danmakuRepository) ListEvents(ctx context.Context, bvid string) ([]model.DanmakuEvent, error) {
	var rows []model.Danmaku
	if err := r.byVideo(ctx, bvid).
		Select("danmakus.*").
		Order("danmakus.page_id ASC").Order("danmakus.progress ASC").Order("danmakus.id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("查询弹幕失败: %w", err)
	}
	if len(rows) == 0 {
		if err := r.ensureVideo(ctx, bvid); err != nil {
			return nil, err
		}
	}

	events := make([]model.DanmakuEvent, len(rows))
	for i := range rows {
		events[i] = model.DanmakuEvent{
			Content:    rows[i].Content,
			ProgressMs: rows[i].Progress,
			PageID:     rows[i].PageID,
			UserHash:   rows[i].UserHash,
			SendTime:   rows[i].SendTime,
		}
	}
	return events, nil
}

type pageRow struct {
	PageID   int
	Duration int
}

// ListPages 从弹幕聚合分P信息：每个 page_id 取最大的 page_duration
func (r *danmakuRepository) ListPages(ctx context.Context, bvid string) ([]model.PageInfo, error) {
	var rows []pageRow
	if err := r.byVideo(ctx, bvid).
		Select("danmakus.page_id AS page_id, MAX(danmakus.page_duration) AS duration").
		Where("danmakus.page_id IS NOT NULL").
		Group("danmakus.page_id").
		Order("danmakus.page_id ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("查询分P信息失败: %w", err)
	}
	if len(rows) == 0 {
		if err := r.ensureVideo(ctx, bvid); err != nil {
			return nil, err
		}
	}

	pages := make([]model.PageInfo, len(rows))
	for i, row := range rows {
		pages[i] = model.PageInfo{PageID: row.PageID, DurationSec: row.Duration}
	}
	return pages, nil
}

func (r *danmakuRepository) VideoDuration(ctx context.Context, bvid string) (int, error) {
	var duration int
	res := r.db.WithContext(ctx).Model(&model.Video{}).Where("bvid = ?", bvid).Limit(1).Pluck("duration", &duration)
	if res.Error != nil {
		return 0, fmt.Errorf("查询视频时长失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("%w: %s", model.ErrVideoNotFound, bvid)
	}
	return max(duration, 0), nil
}
