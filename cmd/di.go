package main

import (
	"DanmakuAnalysis/internal/adapter"
	"DanmakuAnalysis/internal/api"
	"DanmakuAnalysis/internal/config"
	"DanmakuAnalysis/internal/inference"
	"DanmakuAnalysis/internal/interfaces"
	"DanmakuAnalysis/internal/keyword"
	"DanmakuAnalysis/internal/lexicon"
	"DanmakuAnalysis/internal/repository"
	"DanmakuAnalysis/internal/sentiment"
	"DanmakuAnalysis/internal/service"
	"DanmakuAnalysis/internal/timeline"

	"github.com/samber/do/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// registerDI 注册全部组件。调用前须已 ProvideValue 配置、日志和 *gorm.DB
func registerDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (interfaces.DanmakuSource, error) {
		return repository.NewDanmakuRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (interfaces.ResultStore, error) {
		return repository.NewAnalysisRepository(do.MustInvoke[*gorm.DB](i), nil), nil
	})

	do.Provide(injector, func(i do.Injector) (*lexicon.Pool, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return lexicon.NewPool(lexicon.NewDefaultScorer(), cfg.Sentiment, do.MustInvoke[*logrus.Logger](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*inference.Provider, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger := do.MustInvoke[*logrus.Logger](i)
		backend, err := adapter.NewBackend(&cfg.Inference, logger)
		if err != nil {
			return nil, err
		}
		return inference.NewProvider(backend, do.MustInvoke[*lexicon.Pool](i), cfg.Inference, logger), nil
	})
	do.Provide(injector, func(i do.Injector) (*sentiment.Pipeline, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return sentiment.NewPipeline(
			do.MustInvoke[*inference.Provider](i),
			do.MustInvoke[*lexicon.Pool](i),
			cfg.Sentiment,
			do.MustInvoke[*logrus.Logger](i),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*timeline.Builder, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return timeline.NewBuilder(cfg.Timeline, do.MustInvoke[*logrus.Logger](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (interfaces.Segmenter, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return keyword.NewGseSegmenter(cfg.Keyword.DictFiles...)
	})
	do.Provide(injector, func(i do.Injector) (*keyword.Extractor, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return keyword.NewExtractor(do.MustInvoke[interfaces.Segmenter](i), cfg.Keyword, do.MustInvoke[*logrus.Logger](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*service.AnalysisService, error) {
		return service.NewAnalysisService(
			do.MustInvoke[interfaces.DanmakuSource](i),
			do.MustInvoke[interfaces.ResultStore](i),
			do.MustInvoke[*sentiment.Pipeline](i),
			do.MustInvoke[*timeline.Builder](i),
			do.MustInvoke[*keyword.Extractor](i),
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*logrus.Logger](i),
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*service.TaskManager, error) {
		svc := do.MustInvoke[*service.AnalysisService](i)
		return service.NewTaskManager(svc.Analyze, do.MustInvoke[*logrus.Logger](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*api.AnalysisHandler, error) {
		return api.NewAnalysisHandler(
			do.MustInvoke[*service.AnalysisService](i),
			do.MustInvoke[*service.TaskManager](i),
			do.MustInvoke[*inference.Provider](i),
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*logrus.Logger](i),
		), nil
	})
}
