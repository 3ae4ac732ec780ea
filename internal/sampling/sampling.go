// Package sampling 在重计算前限制工作集大小：固定种子的均匀随机采样与文本截断。
package sampling

import (
	"math/rand/v2"
	"slices"
	"strings"
	"unicode/utf8"
)

// SampleIndices 从 [0, n) 中无放回地均匀抽取 limit 个下标，升序返回。
// n <= limit（或 limit <= 0）时返回全部下标且 sampled=false。相同 n、limit、seed 结果相同
func SampleIndices(n, limit int, seed int64) (indices []int, sampled bool) {
	if n <= 0 {
		return []int{}, false
	}
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	if limit <= 0 || n <= limit {
		return all, false
	}

	// 部分 Fisher-Yates：只洗前 limit 个位置
	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	for i := 0; i < limit; i++ {
		j := i + r.IntN(n-i)
		all[i], all[j] = all[j], all[i]
	}
	picked := all[:limit:limit]
	slices.Sort(picked)
	return picked, true
}

// Pick 按下标取出元素
func Pick[T any](items []T, indices []int) []T {
	out := make([]T, len(indices))
	for i, idx := range indices {
		out[i] = items[idx]
	}
	return out
}

// Truncate 去除首尾空白并按字符数截断，maxLen <= 0 不截断
func Truncate(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	if maxLen <= 0 || utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	n := 0
	for i := range text {
		if n == maxLen {
			return text[:i]
		}
		n++
	}
	return text
}

// Preprocess 对每条文本执行 Truncate，无效 UTF-8 视为空串
func Preprocess(texts []string, maxLen int) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		if !utf8.ValidString(t) {
			continue
		}
		out[i] = Truncate(t, maxLen)
	}
	return out
}
