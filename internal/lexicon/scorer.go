package lexicon

import (
	"strings"

	"DanmakuAnalysis/internal/model"
)

// DefaultPositiveWords 正面词表
var DefaultPositiveWords = []string{
	"好", "赞", "妙", "棒", "厉害", "强", "爱", "喜欢", "感动", "笑", "哈哈", "哈哈哈",
	"开心", "好看", "美", "漂亮", "帅", "酷", "牛", "牛逼", "牛批", "牛掰", "厉害了",
	"泪目", "威武", "666", "6", "真香", "支持", "可爱", "萌", "太强了", "优秀", "高端",
	"专业", "精彩", "感谢", "膜拜", "太好了", "感恩", "点赞", "搞笑", "逗死我了",
	"惊艳", "震撼", "精品", "完美", "赞赞赞", "期待", "回味", "精致", "鬼斧神工",
}

// DefaultNegativeWords 负面词表
var DefaultNegativeWords = []string{
	"差", "烂", "坏", "弱", "难过", "悲伤", "哭", "讨厌", "恨", "垃圾", "无聊", "尴尬",
	"尬", "难受", "倒胃口", "欺骗", "敷衍", "失望", "可惜", "不好", "差评", "恶心",
	"难看", "劣质", "虚假", "受不了", "坑", "踩", "毁", "辣眼睛", "毒瘤", "忍不了",
	"吐了", "崩溃", "智障", "废物", "糟糕", "墨迹", "拖沓", "浪费", "愚蠢", "看不下去",
	"恼火", "缺德", "滥竽充数", "浮夸", "难听", "难吃", "难用", "难学", "欠揍",
}

// Scorer 基于词表的情感判断：统计文本中出现的正/负面词个数，多者胜，相等为中性。
// 只读，可并发使用
type Scorer struct {
	positive []string
	negative []string
}

// NewScorer 用给定词表创建 Scorer，重复词只计一次
func NewScorer(positive, negative []string) *Scorer {
	return &Scorer{
		positive: dedupe(positive),
		negative: dedupe(negative),
	}
}

// NewDefaultScorer 使用内置词表
func NewDefaultScorer() *Scorer {
	return NewScorer(DefaultPositiveWords, DefaultNegativeWords)
}

// Classify 判断单条文本的情感
func (s *Scorer) Classify(text string) model.SentimentLabel {
	if text == "" {
		return model.LabelNeutral
	}
	pos := countContained(text, s.positive)
	neg := countContained(text, s.negative)
	switch {
	case pos > neg:
		return model.LabelPositive
	case neg > pos:
		return model.LabelNegative
	default:
		return model.LabelNeutral
	}
}

// ClassifyAll 顺序判断，结果与输入同序
func (s *Scorer) ClassifyAll(texts []string) []model.SentimentLabel {
	labels := make([]model.SentimentLabel, len(texts))
	for i, t := range texts {
		labels[i] = s.Classify(t)
	}
	return labels
}

// countContained 词表中有多少个词是 text 的子串
func countContained(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

func dedupe(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
