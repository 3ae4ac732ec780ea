package interfaces

import (
	"context"

	"DanmakuAnalysis/internal/model"
)

// DanmakuSource 上游弹幕数据（由爬虫写入），分析引擎只读。
// 视频不存在返回 model.ErrVideoNotFound；视频存在但无弹幕返回空切片，不是错误
type DanmakuSource interface {
	GetVideo(ctx context.Context, bvid string) (*model.Video, error)           // 视频元数据
	ListEvents(ctx context.Context, bvid string) ([]model.DanmakuEvent, error) // 按进度排序的弹幕
	ListPages(ctx context.Context, bvid string) ([]model.PageInfo, error)      // 按 page_id 排序的分P
	VideoDuration(ctx context.Context, bvid string) (int, error)               // 视频总时长（秒），未知为0
}

// ResultStore 分析结果缓存，(bvid, kind) 唯一，覆盖写
type ResultStore interface {
	Get(ctx context.Context, bvid string, kind model.AnalysisKind) (*model.AnalysisResult, error) // 不存在返回 nil, nil
	Put(ctx context.Context, bvid string, kind model.AnalysisKind, payload []byte) (*model.AnalysisResult, error)
	Delete(ctx context.Context, bvid string) (int64, error)
	List(ctx context.Context, bvid string, kind model.AnalysisKind) ([]*model.AnalysisResult, error)
}
