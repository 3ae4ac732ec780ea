package model

import (
	"time"

	"gorm.io/datatypes"
)

// Video 视频信息表（由爬虫写入，分析引擎只读）
type Video struct {
	ID           uint64     `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	BVID         string     `gorm:"column:bvid;type:varchar(20);uniqueIndex;not null;comment:BV号"`
	Title        string     `gorm:"column:title;type:varchar(200);not null;comment:视频标题"`
	Owner        string     `gorm:"column:owner;type:varchar(100);comment:UP主"`
	Duration     int        `gorm:"column:duration;type:int;default:0;comment:视频总时长(秒)"`
	DanmakuCount int        `gorm:"column:danmaku_count;type:int;default:0;comment:已爬取弹幕数"`
	LastCrawled  *time.Time `gorm:"column:last_crawled;type:timestamp;comment:上次爬取时间"`
	CreatedAt    time.Time  `gorm:"column:created_at;type:timestamp;autoCreateTime;comment:创建时间"`
}

// Danmaku 弹幕表。page_id / progress 允许为空：爬虫偶尔拿不到分P或进度
type Danmaku struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	VideoID      uint64    `gorm:"column:video_id;type:bigint;index:idx_danmaku_video_progress,priority:1;not null;comment:关联视频ID"`
	PageID       *int      `gorm:"column:page_id;type:int;index;comment:分P编号"`
	PageDuration int       `gorm:"column:page_duration;type:int;default:0;comment:分P时长(秒)"`
	DMID         int64     `gorm:"column:dmid;type:bigint;uniqueIndex;not null;comment:弹幕ID"`
	Content      string    `gorm:"column:content;type:text;not null;comment:弹幕内容"`
	SendTime     time.Time `gorm:"column:send_time;type:timestamp;index;comment:发送时间"`
	Progress     *float64  `gorm:"column:progress;type:double precision;index:idx_danmaku_video_progress,priority:2;comment:分P内进度(毫秒)"`
	UserHash     string    `gorm:"column:user_hash;type:varchar(32);comment:用户哈希"`
	CreatedAt    time.Time `gorm:"column:created_at;type:timestamp;autoCreateTime;comment:记录时间"`
}

// DanmakuAnalysis 分析结果缓存表：(bvid, analysis_type) 唯一，覆盖写
type DanmakuAnalysis struct {
	ID           uint64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	VideoBVID    string         `gorm:"column:video_bvid;type:varchar(20);not null;uniqueIndex:uk_video_analysis_type,priority:1;comment:视频BV号"`
	AnalysisType string         `gorm:"column:analysis_type;type:varchar(20);not null;uniqueIndex:uk_video_analysis_type,priority:2;comment:分析类型"`
	ResultJSON   datatypes.JSON `gorm:"column:result_json;type:jsonb;not null;comment:分析结果JSON"`
	CreatedAt    time.Time      `gorm:"column:created_at;type:timestamp;comment:创建时间"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;type:timestamp;comment:更新时间"`
}

func (Video) TableName() string           { return "videos" }
func (Danmaku) TableName() string         { return "danmakus" }
func (DanmakuAnalysis) TableName() string { return "danmaku_analyses" }
