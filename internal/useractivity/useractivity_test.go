package useractivity

import (
	"fmt"
	"testing"

	"DanmakuAnalysis/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventsFor(counts map[string]int, order []string) []model.DanmakuEvent {
	var out []model.DanmakuEvent
	for _, u := range order {
		for range counts[u] {
			out = append(out, model.DanmakuEvent{UserHash: u, Content: "x"})
		}
	}
	return out
}

func TestAggregate(t *testing.T) {
	order := []string{"a", "b", "c", "d", "e"}
	counts := map[string]int{"a": 1, "b": 3, "c": 7, "d": 15, "e": 30}
	r := Aggregate(eventsFor(counts, order), 3)

	assert.Equal(t, 5, r.TotalUsers)
	assert.InDelta(t, 56.0/5, r.AvgPerUser, 1e-9)
	assert.Equal(t, []model.UserCount{{UserHash: "e", Count: 30}, {UserHash: "d", Count: 15}, {UserHash: "c", Count: 7}}, r.TopUsers)

	require.Len(t, r.UserDistribution, 5)
	for _, b := range r.UserDistribution {
		assert.Equal(t, 1, b.Users, b.Name)
	}
	assert.Equal(t, 21, r.UserDistribution[4].Min)
	assert.Zero(t, r.UserDistribution[4].Max)
}

func TestAggregateTieKeepsFirstAppearance(t *testing.T) {
	events := []model.DanmakuEvent{{UserHash: "x"}, {UserHash: "y"}, {UserHash: "y"}, {UserHash: "x"}, {UserHash: "z"}}
	r := Aggregate(events, 0)
	assert.Equal(t, []model.UserCount{{UserHash: "x", Count: 2}, {UserHash: "y", Count: 2}, {UserHash: "z", Count: 1}}, r.TopUsers)
}

func TestAggregateDefaultTopK(t *testing.T) {
	var events []model.DanmakuEvent
	for i := 0; i < 30; i++ {
		events = append(events, model.DanmakuEvent{UserHash: fmt.Sprintf("u%02d", i)})
	}
	r := Aggregate(events, 0)
	assert.Len(t, r.TopUsers, DefaultTopK)
	assert.Equal(t, 30, r.UserDistribution[0].Users)
	assert.Equal(t, 1.0, r.AvgPerUser)
}

func TestAggregateEmpty(t *testing.T) {
	r := Aggregate(nil, 20)
	assert.NotNil(t, r.TopUsers)
	assert.Empty(t, r.TopUsers)
	assert.Zero(t, r.TotalUsers)
	assert.Zero(t, r.AvgPerUser)
	assert.Len(t, r.UserDistribution, 5)
}
