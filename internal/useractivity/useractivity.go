// Package useractivity 统计每个用户的弹幕数量与分布。
package useractivity

import (
	"sort"

	"DanmakuAnalysis/internal/model"
)

// DefaultTopK 默认返回的活跃用户数
const DefaultTopK = 20

type bucketDef struct {
	name     string
	min, max int // max=0 无上限
}

var buckets = []bucketDef{
	{"1条", 1, 1},
	{"2-5条", 2, 5},
	{"6-10条", 6, 10},
	{"11-20条", 11, 20},
	{"20条以上", 21, 0},
}

// Aggregate 按 user_hash 计数，降序取前 topK（同数量按首次出现顺序），并给出分布直方图
func Aggregate(events []model.DanmakuEvent, topK int) model.UserActivityReport {
	if topK <= 0 {
		topK = DefaultTopK
	}

	order := make([]string, 0)
	counts := make(map[string]int)
	for _, ev := range events {
		if _, ok := counts[ev.UserHash]; !ok {
			order = append(order, ev.UserHash)
		}
		counts[ev.UserHash]++
	}

	users := make([]model.UserCount, len(order))
	for i, u := range order {
		users[i] = model.UserCount{UserHash: u, Count: counts[u]}
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].Count > users[j].Count })

	dist := make([]model.DistributionBucket, len(buckets))
	for i, b := range buckets {
		dist[i] = model.DistributionBucket{Name: b.name, Min: b.min, Max: b.max}
	}
	for _, u := range users {
		for i, b := range buckets {
			if u.Count >= b.min && (b.max == 0 || u.Count <= b.max) {
				dist[i].Users++
				break
			}
		}
	}

	report := model.UserActivityReport{
		TopUsers:         users[:min(topK, len(users))],
		TotalUsers:       len(users),
		UserDistribution: dist,
	}
	if len(users) > 0 {
		report.AvgPerUser = float64(len(events)) / float64(len(users))
	}
	return report
}
