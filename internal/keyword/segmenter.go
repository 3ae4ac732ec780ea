package keyword

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-ego/gse"
)

// StopWords 弹幕常见虚词与语气词
var StopWords = []string{
	"的", "了", "和", "是", "就", "都", "而", "及", "与", "这", "那", "你", "我", "他", "她",
	"它", "们", "啊", "呀", "哈", "哦", "呢", "吧", "吗", "啦", "呵", "阿", "呜", "哇", "哟",
	"嗯", "嘿", "哼", "咯", "噢", "喔", "唉", "嘛", "额", "诶",
}

// GseSegmenter 基于 gse 的中文分词
type GseSegmenter struct {
	seg  gse.Segmenter
	stop map[string]struct{}
}

// NewGseSegmenter 加载词典，dictFiles 为空时使用 gse 内置词典
func NewGseSegmenter(dictFiles ...string) (*GseSegmenter, error) {
	seg, err := gse.New(dictFiles...)
	if err != nil {
		return nil, fmt.Errorf("加载分词词典失败: %w", err)
	}
	stop := make(map[string]struct{}, len(StopWords))
	for _, w := range StopWords {
		stop[w] = struct{}{}
	}
	return &GseSegmenter{seg: seg, stop: stop}, nil
}

// Tokenize 精确模式分词（启用 HMM 识别未登录词）
func (g *GseSegmenter) Tokenize(text string) []string {
	return g.seg.Cut(text, true)
}

// IsStop 停用词、纯空白或纯标点
func (g *GseSegmenter) IsStop(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return true
	}
	if _, ok := g.stop[token]; ok {
		return true
	}
	return strings.IndexFunc(token, func(r rune) bool {
		return !unicode.IsPunct(r) && !unicode.IsSymbol(r) && !unicode.IsSpace(r)
	}) < 0
}
