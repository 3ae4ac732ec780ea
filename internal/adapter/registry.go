package adapter

import (
	"fmt"

	"DanmakuAnalysis/internal/config"
	"DanmakuAnalysis/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// NewBackend 按配置的 provider 从工厂注册表创建推理后端。
// provider 为空或 none 时返回 nil, nil，表示只使用词表
func NewBackend(cfg *config.InferenceConfig, logger *logrus.Logger) (interfaces.ModelBackend, error) {
	if cfg.Provider == "" || cfg.Provider == "none" {
		logger.Info("未配置推理后端，情感分析仅使用词表")
		return nil, nil
	}

	logger.WithField("factory_providers", ListFactories()).Debug("已注册的推理后端工厂函数")

	factory, ok := GetFactory(cfg.Provider)
	if !ok {
		return nil, fmt.Errorf("未找到推理后端%s的工厂函数（已注册：%v）", cfg.Provider, ListFactories())
	}

	backend := factory(cfg, logger)
	if backend == nil {
		return nil, fmt.Errorf("推理后端%s的工厂函数返回nil实例", cfg.Provider)
	}
	if backend.Name() != cfg.Provider {
		logger.WithFields(logrus.Fields{
			"config_provider":  cfg.Provider,
			"backend_provider": backend.Name(),
		}).Warn("推理后端名称与配置不一致")
	}

	logger.WithFields(logrus.Fields{
		"provider": cfg.Provider,
		"device":   backend.Device(),
	}).Info("推理后端初始化成功")
	return backend, nil
}
