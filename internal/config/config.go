package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`        // 服务器配置
	Database     DatabaseConfig     `mapstructure:"database"`      // PostgreSQL配置
	Inference    InferenceConfig    `mapstructure:"inference"`     // 推理服务配置
	Sentiment    SentimentConfig    `mapstructure:"sentiment"`     // 情感分析配置
	Keyword      KeywordConfig      `mapstructure:"keyword"`       // 关键词分析配置
	Timeline     TimelineConfig     `mapstructure:"timeline"`      // 时间线/峰值配置
	UserActivity UserActivityConfig `mapstructure:"user_activity"` // 用户活跃度配置
	Cache        CacheConfig        `mapstructure:"cache"`         // 结果缓存与异步任务
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// DatabaseConfig PostgreSQL数据库配置
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN（URL形式）
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	LogLevel        string        `mapstructure:"log_level"`         // GORM日志级别：silent/error/warn/info
}

// InferenceConfig 外部情感模型推理服务配置
type InferenceConfig struct {
	Provider       string   `mapstructure:"provider"`        // http / openai，空表示不启用模型
	BaseURL        string   `mapstructure:"base_url"`        // 推理服务地址
	APIKey         string   `mapstructure:"api_key"`         // 认证Key（env 覆盖）
	Model          string   `mapstructure:"model"`           // openai 兼容接口的模型名
	Proxy          string   `mapstructure:"proxy"`           // 代理地址
	Timeout        int      `mapstructure:"timeout"`         // 单次请求超时（秒）
	Device         string   `mapstructure:"device"`          // cpu / gpu，http 后端未上报时使用
	CacheEnabled   bool     `mapstructure:"cache_enabled"`   // 启用文本→标签缓存
	CacheSize      int      `mapstructure:"cache_size"`      // 缓存容量
	EvictionPolicy string   `mapstructure:"eviction_policy"` // fifo / random
	EvictRatio     float64  `mapstructure:"evict_ratio"`     // 溢出时淘汰比例
	GPUBatchTiers  []int    `mapstructure:"gpu_batch_tiers"` // 按数量从大到小四档
	CPUBatchTiers  []int    `mapstructure:"cpu_batch_tiers"`
	VolumeTiers    []int    `mapstructure:"volume_tiers"`    // 档位分界：>10000 / >5000 / >1000
	MinBudget      int      `mapstructure:"min_budget"`      // 预算下限（秒）
	MaxBudget      int      `mapstructure:"max_budget"`      // 预算上限（秒）
	WarmupTexts    []string `mapstructure:"warmup_texts"`    // 加载成功后的预热文本
}

// SentimentConfig 情感分析配置
type SentimentConfig struct {
	UseModel               bool  `mapstructure:"use_model" json:"use_model"`                               // 默认是否使用模型
	MaxSampleSize          int   `mapstructure:"max_sample_size" json:"max_sample_size"`                   // 超过则随机采样
	SampleSeed             int64 `mapstructure:"sample_seed" json:"sample_seed"`                           // 采样种子
	AutoDowngradeThreshold int   `mapstructure:"auto_downgrade_threshold" json:"auto_downgrade_threshold"` // 超过则强制词表
	MaxTextLength          int   `mapstructure:"max_text_length" json:"max_text_length"`                   // 单条截断长度
	MaxProcessingTime      int   `mapstructure:"max_processing_time" json:"max_processing_time"`           // 推理预算（秒）
	SegmentWidth           int   `mapstructure:"segment_width" json:"segment_width"`                       // 情感分段宽度（秒）
	ParallelThreshold      int   `mapstructure:"parallel_threshold" json:"parallel_threshold"`             // 词表并行阈值
	ChunkSize              int   `mapstructure:"chunk_size" json:"chunk_size"`                             // 词表并行分块大小
	MaxWorkers             int   `mapstructure:"max_workers" json:"max_workers"`                           // 词表并行最大协程数
}

// KeywordConfig 关键词分析配置
type KeywordConfig struct {
	TopN          int      `mapstructure:"top_n"`           // 返回前N个关键词
	MaxSampleSize int      `mapstructure:"max_sample_size"` // 超过则随机采样
	DictFiles     []string `mapstructure:"dict_files"`      // gse 词典，空则用内置词典
}

// TimelineConfig 峰值检测配置
type TimelineConfig struct {
	PeakStdThreshold  float64 `mapstructure:"peak_std_threshold" json:"peak_std_threshold"`     // k
	MinPeakCountAbs   int     `mapstructure:"min_peak_count_abs" json:"min_peak_count_abs"`     // 绝对最小峰值
	MinPeakCountRatio float64 `mapstructure:"min_peak_count_ratio" json:"min_peak_count_ratio"` // 相对均值的最小比例
	TopNPeaks         int     `mapstructure:"top_n_peaks" json:"top_n_peaks"`                   // 全局保留峰值数
}

// UserActivityConfig 用户活跃度配置
type UserActivityConfig struct {
	TopUsers int `mapstructure:"top_users" json:"top_users"` // 返回前N个活跃用户
}

// CacheConfig 分析结果缓存配置
type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`            // 结果有效期
	TaskRetention time.Duration `mapstructure:"task_retention"` // 异步任务保留时长
}

var defaultWarmupTexts = []string{
	"这个视频很棒",
	"这个视频很差",
	"这个视频一般般",
	"我非常喜欢这个UP主",
	"这弹幕真搞笑",
	"笑死我了",
	"太感人了",
	"泪目",
	"主播真厉害",
	"不喜欢这个剧情",
}

// setDefaults 所有阈值的默认值，config.yaml 可不存在
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("inference.timeout", 30)
	v.SetDefault("inference.device", "cpu")
	v.SetDefault("inference.cache_enabled", true)
	v.SetDefault("inference.cache_size", 20000)
	v.SetDefault("inference.eviction_policy", "fifo")
	v.SetDefault("inference.evict_ratio", 0.1)
	v.SetDefault("inference.gpu_batch_tiers", []int{256, 192, 128, 64})
	v.SetDefault("inference.cpu_batch_tiers", []int{64, 48, 32, 16})
	v.SetDefault("inference.volume_tiers", []int{10000, 5000, 1000})
	v.SetDefault("inference.min_budget", 10)
	v.SetDefault("inference.max_budget", 600)
	v.SetDefault("inference.warmup_texts", defaultWarmupTexts)

	v.SetDefault("sentiment.use_model", true)
	v.SetDefault("sentiment.max_sample_size", 15000)
	v.SetDefault("sentiment.sample_seed", 42)
	v.SetDefault("sentiment.auto_downgrade_threshold", 100000)
	v.SetDefault("sentiment.max_text_length", 128)
	v.SetDefault("sentiment.max_processing_time", 300)
	v.SetDefault("sentiment.segment_width", 30)
	v.SetDefault("sentiment.parallel_threshold", 5000)
	v.SetDefault("sentiment.chunk_size", 500)
	v.SetDefault("sentiment.max_workers", 32)

	v.SetDefault("keyword.top_n", 50)
	v.SetDefault("keyword.max_sample_size", 30000)

	v.SetDefault("timeline.peak_std_threshold", 1.5)
	v.SetDefault("timeline.min_peak_count_abs", 5)
	v.SetDefault("timeline.min_peak_count_ratio", 0.05)
	v.SetDefault("timeline.top_n_peaks", 20)

	v.SetDefault("user_activity.top_users", 20)

	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.task_retention", time.Hour)
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	// 2. 读取 config.yaml，不存在时全部走默认值
	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(cfg)
	return cfg, nil
}

// Default 仅含默认值的配置，测试与工具使用
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := unmarshal(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

func unmarshal(v *viper.Viper) (*Config, error) {
	v.SetTypeByDefaultValue(true)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	return &cfg, nil
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("INFERENCE_API_KEY"); v != "" {
		cfg.Inference.APIKey = v
	}
	if v := os.Getenv("INFERENCE_BASE_URL"); v != "" {
		cfg.Inference.BaseURL = v
	}
	if v := os.Getenv("INFERENCE_PROXY"); v != "" {
		cfg.Inference.Proxy = v
	}
}

// MaxProcessingDuration 推理预算
func (s SentimentConfig) MaxProcessingDuration() time.Duration {
	return time.Duration(s.MaxProcessingTime) * time.Second
}

// SegmentWidthMs 情感分段宽度（毫秒）
func (s SentimentConfig) SegmentWidthMs() int64 {
	return int64(s.SegmentWidth) * 1000
}

// GetGORMConfig 获取GORM配置（日志级别来自配置）
func (d *DatabaseConfig) GetGORMConfig() *gorm.Config {
	level := logger.Warn
	switch strings.ToLower(d.LogLevel) {
	case "silent":
		level = logger.Silent
	case "error":
		level = logger.Error
	case "info":
		level = logger.Info
	}
	return &gorm.Config{Logger: logger.Default.LogMode(level)}
}
