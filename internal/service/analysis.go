package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"DanmakuAnalysis/internal/config"
	"DanmakuAnalysis/internal/interfaces"
	"DanmakuAnalysis/internal/keyword"
	"DanmakuAnalysis/internal/model"
	"DanmakuAnalysis/internal/segment"
	"DanmakuAnalysis/internal/sentiment"
	"DanmakuAnalysis/internal/timeline"
	"DanmakuAnalysis/internal/useractivity"

	"github.com/sirupsen/logrus"
)

// AnalysisService 分析入口：读缓存、跑各分析组件、落库
type AnalysisService struct {
	source    interfaces.DanmakuSource
	store     interfaces.ResultStore
	pipeline  *sentiment.Pipeline
	builder   *timeline.Builder
	extractor *keyword.Extractor
	cfg       *config.Config
	logger    *logrus.Logger
	now       func() time.Time
}

// NewAnalysisService 创建 AnalysisService
func NewAnalysisService(
	source interfaces.DanmakuSource,
	store interfaces.ResultStore,
	pipeline *sentiment.Pipeline,
	builder *timeline.Builder,
	extractor *keyword.Extractor,
	cfg *config.Config,
	logger *logrus.Logger,
) *AnalysisService {
	return &AnalysisService{
		source:    source,
		store:     store,
		pipeline:  pipeline,
		builder:   builder,
		extractor: extractor,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// DefaultOptions 由配置得到的默认分析参数
func (s *AnalysisService) DefaultOptions() model.AnalysisOptions {
	return model.AnalysisOptions{
		UseModel:          s.cfg.Sentiment.UseModel,
		MaxTextLength:     s.cfg.Sentiment.MaxTextLength,
		MaxProcessingTime: s.cfg.Sentiment.MaxProcessingDuration(),
	}
}

// dataset 一次分析读取的弹幕和分P边界
type dataset struct {
	video      *model.Video
	events     []model.DanmakuEvent
	boundaries []model.EpisodeBoundary
}

// Analyze 执行一种分析（或 all），返回 JSON 结果。
// 单项分析先查缓存：未过期且不早于最近一次爬取时直接原样返回。
// all 失败时返回 AnalysisError 结果体和 ErrAnalysisFailed。
func (s *AnalysisService) Analyze(ctx context.Context, bvid string, kind model.AnalysisKind, opts model.AnalysisOptions) (json.RawMessage, error) {
	video, err := s.source.GetVideo(ctx, bvid)
	if err != nil {
		return nil, err
	}
	log := s.logger.WithFields(logrus.Fields{"bvid": bvid, "type": kind})

	if kind == model.KindAll {
		return s.analyzeAll(ctx, video, opts)
	}

	if !opts.ForceRefresh {
		cached, err := s.store.Get(ctx, bvid, kind)
		if err != nil {
			log.WithError(err).Warn("检查缓存时出错，重新分析")
		} else if cached != nil {
			if s.cacheValid(cached, video) {
				log.WithField("age", s.now().Sub(cached.UpdatedAt).Round(time.Second)).Info("使用缓存的分析结果")
				return cached.Payload, nil
			}
			log.Info("缓存已过期，重新分析")
		}
	}

	data, err := s.load(ctx, video)
	if err != nil {
		return nil, err
	}
	report, err := s.run(ctx, data, kind, opts)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, data, kind, report)
}

// cacheValid now-updated_at < ttl，且结果不早于视频最近一次爬取
func (s *AnalysisService) cacheValid(r *model.AnalysisResult, video *model.Video) bool {
	if s.now().Sub(r.UpdatedAt) >= s.cfg.Cache.TTL {
		return false
	}
	if video.LastCrawled != nil && r.UpdatedAt.Before(*video.LastCrawled) {
		return false
	}
	return true
}

func (s *AnalysisService) load(ctx context.Context, video *model.Video) (*dataset, error) {
	events, err := s.source.ListEvents(ctx, video.BVID)
	if err != nil {
		return nil, fmt.Errorf("读取弹幕失败: %w", err)
	}
	pages, err := s.source.ListPages(ctx, video.BVID)
	if err != nil {
		return nil, fmt.Errorf("读取分P信息失败: %w", err)
	}
	duration := 0
	if len(pages) == 0 {
		if duration, err = s.source.VideoDuration(ctx, video.BVID); err != nil {
			return nil, fmt.Errorf("读取视频时长失败: %w", err)
		}
	}
	if len(events) == 0 {
		s.logger.WithField("bvid", video.BVID).Warn(model.ErrNoDanmaku.Error())
	}
	return &dataset{
		video:      video,
		events:     events,
		boundaries: s.builder.BuildBoundaries(pages, duration),
	}, nil
}

// run 执行单项分析，返回可序列化的报告
func (s *AnalysisService) run(ctx context.Context, data *dataset, kind model.AnalysisKind, opts model.AnalysisOptions) (any, error) {
	switch kind {
	case model.KindKeyword:
		return s.keywords(data), nil
	case model.KindSentiment:
		return s.sentiment(ctx, data, opts), nil
	case model.KindTimeline:
		return s.builder.Build(data.events, data.boundaries), nil
	case model.KindUser:
		return useractivity.Aggregate(data.events, s.cfg.UserActivity.TopUsers), nil
	}
	return nil, fmt.Errorf("%w: %s", model.ErrUnknownKind, kind)
}

// persist 序列化并覆盖写缓存；无弹幕时的空结果不落库，写库失败只记录日志。
// 写库成功时返回库中回读的 payload，与之后命中缓存的字节一致
func (s *AnalysisService) persist(ctx context.Context, data *dataset, kind model.AnalysisKind, report any) (json.RawMessage, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("序列化%s分析结果失败: %w", kind, err)
	}
	if len(data.events) == 0 {
		return payload, nil
	}
	stored, err := s.store.Put(ctx, data.video.BVID, kind, payload)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{"bvid": data.video.BVID, "type": kind}).Error("保存分析结果失败")
		return payload, nil
	}
	if stored != nil && len(stored.Payload) > 0 {
		return stored.Payload, nil
	}
	return payload, nil
}

func (s *AnalysisService) keywords(data *dataset) []model.KeywordItem {
	texts := make([]string, len(data.events))
	for i, ev := range data.events {
		texts[i] = ev.Content
	}
	return s.extractor.Extract(texts, s.cfg.Keyword.TopN)
}

// sentiment 情感分析，并把逐条结果按时间轴分段
func (s *AnalysisService) sentiment(ctx context.Context, data *dataset, opts model.AnalysisOptions) model.SentimentReport {
	texts := make([]string, len(data.events))
	for i, ev := range data.events {
		texts[i] = ev.Content
	}
	res := s.pipeline.Analyze(ctx, texts, opts)

	inputs := make([]segment.Input, len(res.Items))
	for i, it := range res.Items {
		inputs[i] = segment.Input{Event: data.events[it.Index], Label: it.Label, Score: it.Score}
	}
	segments, skipped := segment.Aggregate(inputs, data.boundaries, s.cfg.Sentiment.SegmentWidthMs())
	if skipped > 0 {
		s.logger.WithFields(logrus.Fields{"bvid": data.video.BVID, "skipped": skipped}).Warn("部分弹幕缺少分P或进度，未计入情感分段")
	}
	res.Report.Segments = segments
	return res.Report
}

// analyzeAll 依次执行全部分析并组装总报告，任一步失败（含 panic）返回结构化错误结果
func (s *AnalysisService) analyzeAll(ctx context.Context, video *model.Video, opts model.AnalysisOptions) (payload json.RawMessage, err error) {
	start := s.now()
	log := s.logger.WithField("bvid", video.BVID)
	log.Infof("开始对视频 %s 进行全面分析", video.Title)

	defer func() {
		if r := recover(); r != nil {
			payload, err = s.failure(video, fmt.Errorf("panic: %v", r), debug.Stack())
		}
	}()

	data, err := s.load(ctx, video)
	if err != nil {
		return s.failure(video, err, debug.Stack())
	}

	log.Info("开始关键词分析")
	keywords := s.keywords(data)
	log.Info("开始情感分析")
	sent := s.sentiment(ctx, data, opts)
	log.Info("开始时间线分析")
	tl := s.builder.Build(data.events, data.boundaries)
	log.Info("开始用户活跃度分析")
	users := useractivity.Aggregate(data.events, s.cfg.UserActivity.TopUsers)

	for kind, report := range map[model.AnalysisKind]any{
		model.KindKeyword:   keywords,
		model.KindSentiment: sent,
		model.KindTimeline:  tl,
		model.KindUser:      users,
	} {
		if _, err := s.persist(ctx, data, kind, report); err != nil {
			return s.failure(video, err, debug.Stack())
		}
	}

	elapsed := s.now().Sub(start)
	combined := model.CombinedReport{
		Message: fmt.Sprintf("分析完成: %s", video.Title),
		Video: model.VideoSummary{
			BVID:         video.BVID,
			Title:        video.Title,
			Author:       video.Owner,
			Duration:     video.Duration,
			DanmakuCount: len(data.events),
		},
		Keywords:         keywords,
		Sentiment:        sent,
		Timeline:         tl,
		UserActivity:     users,
		ProcessingTimeMs: elapsed.Milliseconds(),
	}
	out, err := json.Marshal(combined)
	if err != nil {
		return s.failure(video, err, debug.Stack())
	}
	log.Infof("全面分析完成，耗时: %.2f秒", elapsed.Seconds())
	return out, nil
}

func (s *AnalysisService) failure(video *model.Video, cause error, stack []byte) (json.RawMessage, error) {
	s.logger.WithError(cause).WithField("bvid", video.BVID).Errorf("分析过程发生错误\n%s", stack)
	body, err := json.Marshal(model.AnalysisError{
		Error:   fmt.Sprintf("分析过程发生错误: %v", cause),
		Message: "分析失败",
		Video:   model.VideoSummary{BVID: video.BVID, Title: video.Title},
	})
	if err != nil {
		return nil, errors.Join(model.ErrAnalysisFailed, cause, err)
	}
	return body, fmt.Errorf("%w: %w", model.ErrAnalysisFailed, cause)
}

// Invalidate 删除视频全部缓存的分析结果
func (s *AnalysisService) Invalidate(ctx context.Context, bvid string) (int64, error) {
	n, err := s.store.Delete(ctx, bvid)
	if err != nil {
		return 0, err
	}
	s.logger.WithFields(logrus.Fields{"bvid": bvid, "deleted": n}).Info("已清除分析缓存")
	return n, nil
}

// List 查询已缓存的分析结果，kind 为空或 all 不过滤类型
func (s *AnalysisService) List(ctx context.Context, bvid string, kind model.AnalysisKind) ([]*model.AnalysisResult, error) {
	if kind == model.KindAll {
		kind = ""
	}
	return s.store.List(ctx, bvid, kind)
}
