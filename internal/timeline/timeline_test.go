package timeline

import (
	"io"
	"testing"

	"DanmakuAnalysis/internal/config"
	"DanmakuAnalysis/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder() *Builder {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewBuilder(config.Default().Timeline, l)
}

func event(page int, progressMs float64) model.DanmakuEvent {
	return model.DanmakuEvent{PageID: &page, ProgressMs: &progressMs, Content: "x", UserHash: "u"}
}

func TestBuildBoundariesZeroDurationPage(t *testing.T) {
	b := newTestBuilder()
	got := b.BuildBoundaries([]model.PageInfo{
		{PageID: 2, DurationSec: 300},
		{PageID: 0, DurationSec: 120},
		{PageID: 1, DurationSec: 0},
	}, 0)

	assert.Equal(t, []model.EpisodeBoundary{
		{PageID: 0, StartTimeSec: 0, EndTimeSec: 120, DurationSec: 120},
		{PageID: 1, StartTimeSec: 120, EndTimeSec: 120, DurationSec: 0},
		{PageID: 2, StartTimeSec: 120, EndTimeSec: 420, DurationSec: 300},
	}, got)
	for i := 1; i < len(got); i++ {
		assert.Equal(t, got[i-1].EndTimeSec, got[i].StartTimeSec)
	}
}

func TestBuildBoundariesNegativeDuration(t *testing.T) {
	got := newTestBuilder().BuildBoundaries([]model.PageInfo{{PageID: 1, DurationSec: -5}, {PageID: 2, DurationSec: 10}}, 0)
	assert.Equal(t, 0, got[0].DurationSec)
	assert.Equal(t, 0, got[1].StartTimeSec)
	assert.Equal(t, 10, got[1].EndTimeSec)
}

func TestBuildBoundariesSynthesizedPage(t *testing.T) {
	b := newTestBuilder()
	assert.Equal(t, []model.EpisodeBoundary{{PageID: 1, EndTimeSec: 600, DurationSec: 600}}, b.BuildBoundaries(nil, 600))
	assert.Equal(t, []model.EpisodeBoundary{{PageID: 1}}, b.BuildBoundaries(nil, -1))
}

func TestPageForTime(t *testing.T) {
	bs := []model.EpisodeBoundary{
		{PageID: 1, StartTimeSec: 0, EndTimeSec: 120},
		{PageID: 2, StartTimeSec: 120, EndTimeSec: 120},
		{PageID: 3, StartTimeSec: 120, EndTimeSec: 420},
	}
	cases := []struct {
		sec     int
		page    int
		matched bool
	}{
		{0, 1, true},
		{119, 1, true},
		{120, 3, true},
		{420, 3, true},
		{500, 3, false},
	}
	for _, c := range cases {
		page, matched := PageForTime(bs, c.sec)
		assert.Equal(t, c.page, page, "sec=%d", c.sec)
		assert.Equal(t, c.matched, matched, "sec=%d", c.sec)
	}

	page, matched := PageForTime(nil, 10)
	assert.Equal(t, 1, page)
	assert.False(t, matched)
}

func TestBuildAbsoluteSeconds(t *testing.T) {
	b := newTestBuilder()
	bs := b.BuildBoundaries([]model.PageInfo{{PageID: 1, DurationSec: 100}, {PageID: 2, DurationSec: 100}}, 0)

	missingPage := model.DanmakuEvent{Content: "no page"}
	events := []model.DanmakuEvent{
		event(1, 1500), // 1s
		event(1, 1999), // 1s
		event(2, 500),  // 100s
		event(3, 1000), // 未知分P
		missingPage,
	}
	r := b.Build(events, bs)

	assert.Equal(t, 5, r.TotalCount)
	assert.Equal(t, []model.TimelinePoint{
		{Time: 1, Count: 2, PageID: 1},
		{Time: 100, Count: 1, PageID: 2},
	}, r.Timeline)
	assert.Equal(t, bs, r.EpisodeBoundaries)
}

func TestBuildZeroEvents(t *testing.T) {
	b := newTestBuilder()
	bs := b.BuildBoundaries([]model.PageInfo{{PageID: 1, DurationSec: 60}}, 0)
	r := b.Build(nil, bs)

	assert.Zero(t, r.TotalCount)
	assert.NotNil(t, r.Timeline)
	assert.Empty(t, r.Timeline)
	assert.NotNil(t, r.Peaks)
	assert.Empty(t, r.Peaks)
	assert.Len(t, r.EpisodeBoundaries, 1)
}

func TestBuildNoResolvableEvents(t *testing.T) {
	b := newTestBuilder()
	r := b.Build([]model.DanmakuEvent{{Content: "a"}, {Content: "b"}}, nil)
	assert.Equal(t, 2, r.TotalCount)
	assert.Empty(t, r.Timeline)
	assert.NotNil(t, r.EpisodeBoundaries)
}

func TestDetectPeaksFlatSeries(t *testing.T) {
	points := make([]model.TimelinePoint, 30)
	for i := range points {
		points[i] = model.TimelinePoint{Time: i, Count: 10, PageID: 1}
	}
	peaks := DetectPeaks(points, PeakOptions{K: 1.5, MinAbs: 1, MinRatio: 0.05, TopN: 20})
	assert.NotNil(t, peaks)
	assert.Empty(t, peaks)
}

func TestDetectPeaksSinglePoint(t *testing.T) {
	peaks := DetectPeaks([]model.TimelinePoint{{Time: 3, Count: 100}}, PeakOptions{K: 1.5, MinAbs: 5})
	assert.Empty(t, peaks)
}

func TestDetectPeaksSpikes(t *testing.T) {
	var points []model.TimelinePoint
	for i := 0; i < 40; i++ {
		points = append(points, model.TimelinePoint{Time: i, Count: 2, PageID: 1})
	}
	points[10].Count = 50
	points[30].Count = 60
	points[20].Count = 50

	peaks := DetectPeaks(points, PeakOptions{K: 1.5, MinAbs: 5, MinRatio: 0.05, TopN: 2})
	require.Len(t, peaks, 2)
	assert.Equal(t, 30, peaks[0].Time)
	assert.Equal(t, 10, peaks[1].Time, "同计数按时间升序")
}

func TestDetectPeaksMinAbsoluteCount(t *testing.T) {
	var points []model.TimelinePoint
	for i := 0; i < 20; i++ {
		points = append(points, model.TimelinePoint{Time: i, Count: 1})
	}
	points[5].Count = 4 // 超过统计阈值但低于 min_abs=5
	assert.Empty(t, DetectPeaks(points, PeakOptions{K: 1.5, MinAbs: 5, MinRatio: 0.05, TopN: 20}))

	points[5].Count = 5
	peaks := DetectPeaks(points, PeakOptions{K: 1.5, MinAbs: 5, MinRatio: 0.05, TopN: 20})
	require.Len(t, peaks, 1)
	assert.Equal(t, 5, peaks[0].Time)
}

func TestBuildCarriesPageOnPeaks(t *testing.T) {
	b := newTestBuilder()
	bs := b.BuildBoundaries([]model.PageInfo{{PageID: 1, DurationSec: 30}, {PageID: 2, DurationSec: 30}}, 0)
	var events []model.DanmakuEvent
	for s := 0; s < 30; s++ {
		events = append(events, event(1, float64(s*1000)))
		events = append(events, event(2, float64(s*1000)))
	}
	for i := 0; i < 20; i++ {
		events = append(events, event(2, 10_000))
	}

	r := b.Build(events, bs)
	require.Len(t, r.Peaks, 1)
	assert.Equal(t, model.TimelinePoint{Time: 40, Count: 21, PageID: 2}, r.Peaks[0])
}
