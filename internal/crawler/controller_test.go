package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePage struct {
	heights []int64
	calls   int
}

func (f *fakePage) Navigate(ctx context.Context, url string) error { return nil }
func (f *fakePage) Evaluate(ctx context.Context, script string, out any) error {
	return nil
}
func (f *fakePage) ScrollToBottom(ctx context.Context) error { return nil }
func (f *fakePage) ScrollHeight(ctx context.Context) (int64, error) {
	if f.calls < len(f.heights) {
		h := f.heights[f.calls]
		f.calls++
		return h, nil
	}
	f.calls++
	return int64(1000 * f.calls), nil
}
func (f *fakePage) WaitForIdle(ctx context.Context, timeout time.Duration) error { return nil }

// queueStrategy returns one pre-canned batch per extraction call.
type queueStrategy struct {
	batches [][]RawEntry
	next    int
}

func (q *queueStrategy) Name() string { return "queue" }
func (q *queueStrategy) Extract(ctx context.Context, page SnapshotProvider) ([]RawEntry, error) {
	if q.next >= len(q.batches) {
		return nil, nil
	}
	b := q.batches[q.next]
	q.next++
	return b, nil
}

type memStore struct {
	channels map[string]bool
	videos   map[string]Entry
	failOn   map[string]error
	pruned   int64
}

func newMemStore(channels ...string) *memStore {
	s := &memStore{
		channels: make(map[string]bool),
		videos:   make(map[string]Entry),
		failOn:   make(map[string]error),
	}
	for _, c := range channels {
		s.channels[c] = true
	}
	return s
}

func (s *memStore) PruneVideosBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.pruned, nil
}

func (s *memStore) ChannelExists(ctx context.Context, id string) (bool, error) {
	return s.channels[id], nil
}

func (s *memStore) UpsertVideo(ctx context.Context, entry Entry) (UpsertResult, error) {
	if err := s.failOn[entry.ID]; err != nil {
		return 0, err
	}
	if _, ok := s.videos[entry.ID]; ok {
		s.videos[entry.ID] = entry
		return UpsertUpdated, nil
	}
	s.videos[entry.ID] = entry
	return UpsertInserted, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type mapResolver struct{ byVideo map[string]Resolution }

func (r mapResolver) Resolve(ctx context.Context, videoID string) (Resolution, error) {
	res, ok := r.byVideo[videoID]
	if !ok {
		return Resolution{}, errors.New("not found")
	}
	return res, nil
}

func rawVideo(id, channel, published string) RawEntry {
	return RawEntry{
		Title:         "video " + id,
		URL:           "https://www.youtube.com/watch?v=" + id,
		ChannelID:     channel,
		ViewsText:     "1.2K views",
		PublishedText: published,
		DurationText:  "10:00",
	}
}

func newTestController(t *testing.T, strat Strategy, store Store, resolver ChannelResolver, page SnapshotProvider) *Controller {
	t.Helper()
	cfg := DefaultConfig("https://www.youtube.com/feed/subscriptions")
	cfg.IdleTimeout = 0
	policy := BackoffPolicy{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	clock := fixedClock{t: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	return New(cfg, page, NewChain(zap.NewNop(), strat), store, resolver, clock, policy, zap.NewNop())
}

func TestRunStopsAfterThreeEmptyExtractions(t *testing.T) {
	strat := &queueStrategy{} // never returns entries
	store := newMemStore()
	ctrl := newTestController(t, strat, store, nil, &fakePage{})

	sum, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopReasonNoContent, sum.StopReason)
	assert.Equal(t, 3, sum.Iterations)
	assert.Zero(t, sum.Inserted)
}

func TestRunIngestsAndDeduplicates(t *testing.T) {
	strat := &queueStrategy{batches: [][]RawEntry{
		{rawVideo("aaa111", "UC1", "2 hours ago"), rawVideo("bbb222", "UC1", "1 day ago")},
		// Second scroll repeats the first tile and adds a new one.
		{rawVideo("aaa111", "UC1", "2 hours ago"), rawVideo("ccc333", "UC2", "3 days ago")},
	}}
	store := newMemStore("UC1", "UC2")
	ctrl := newTestController(t, strat, store, nil, &fakePage{})

	sum, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Inserted)
	assert.Zero(t, sum.Updated)
	assert.Len(t, store.videos, 3)

	v := store.videos["aaa111"]
	assert.Equal(t, int64(1200), v.Views)
	require.NotNil(t, v.Duration)
	assert.Equal(t, int64(600), *v.Duration)
}

func TestRunStopsOnThreeOutOfWindowEntries(t *testing.T) {
	strat := &queueStrategy{batches: [][]RawEntry{
		{
			rawVideo("fresh1", "UC1", "2 hours ago"),
			rawVideo("old1", "UC1", "2 months ago"),
			rawVideo("old2", "UC1", "1 year ago"),
			rawVideo("old3", "UC1", "3 months ago"),
			// Never reached: the third old entry ends the session.
			rawVideo("fresh2", "UC1", "1 hour ago"),
		},
	}}
	store := newMemStore("UC1")
	ctrl := newTestController(t, strat, store, nil, &fakePage{})

	sum, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopReasonOutOfWindow, sum.StopReason)
	assert.Equal(t, 1, sum.Inserted)
	assert.Equal(t, 3, sum.OutOfWindow)
	assert.NotContains(t, store.videos, "fresh2")
}

func TestRunSuccessfulUpsertResetsOldEntryCounter(t *testing.T) {
	strat := &queueStrategy{batches: [][]RawEntry{
		{
			rawVideo("old1", "UC1", "2 months ago"),
			rawVideo("old2", "UC1", "2 months ago"),
			rawVideo("fresh1", "UC1", "2 hours ago"),
			rawVideo("old3", "UC1", "1 year ago"),
			rawVideo("old4", "UC1", "1 year ago"),
			rawVideo("fresh2", "UC1", "1 hour ago"),
		},
	}}
	store := newMemStore("UC1")
	ctrl := newTestController(t, strat, store, nil, &fakePage{})

	sum, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, StopReasonOutOfWindow, sum.StopReason)
	assert.Equal(t, 2, sum.Inserted)
	assert.Equal(t, 4, sum.OutOfWindow)
}

func TestRunRejectsEntriesWithoutKnownChannel(t *testing.T) {
	noChannel := rawVideo("xxx999", "", "1 hour ago")
	strat := &queueStrategy{batches: [][]RawEntry{
		{noChannel, rawVideo("yyy888", "UCunknown", "1 hour ago")},
	}}
	store := newMemStore("UC1")
	ctrl := newTestController(t, strat, store, nil, &fakePage{})

	sum, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Rejected)
	assert.Empty(t, store.videos)
}

func TestRunResolvesMissingChannel(t *testing.T) {
	strat := &queueStrategy{batches: [][]RawEntry{
		{rawVideo("xxx999", "", "1 hour ago")},
	}}
	store := newMemStore("UCresolved")
	resolver := mapResolver{byVideo: map[string]Resolution{
		"xxx999": {ChannelID: "UCresolved", ChannelName: "Resolved"},
	}}
	ctrl := newTestController(t, strat, store, resolver, &fakePage{})

	sum, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Inserted)
	assert.Equal(t, "UCresolved", store.videos["xxx999"].ChannelID)
}

func TestRunSkipsUnparseableViews(t *testing.T) {
	bad := rawVideo("zzz777", "UC1", "1 hour ago")
	bad.ViewsText = "@somehandle"
	strat := &queueStrategy{batches: [][]RawEntry{{bad}}}
	store := newMemStore("UC1")
	ctrl := newTestController(t, strat, store, nil, &fakePage{})

	sum, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Empty(t, store.videos)
}

func TestRunStopsWhenNothingChanges(t *testing.T) {
	same := []RawEntry{rawVideo("aaa111", "UC1", "2 hours ago")}
	strat := &queueStrategy{batches: [][]RawEntry{same, same, same, same, same, same}}
	store := newMemStore("UC1")
	ctrl := newTestController(t, strat, store, nil, &fakePage{})

	sum, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopReasonNoNetChange, sum.StopReason)
	assert.Equal(t, 1, sum.Inserted)
	assert.Equal(t, 4, sum.Iterations)
}

func TestRunStopsWhenFeedStopsGrowing(t *testing.T) {
	var batches [][]RawEntry
	for i := 0; i < 20; i++ {
		id := string(rune('a'+i)) + "aa000"
		batches = append(batches, []RawEntry{rawVideo(id, "UC1", "1 hour ago")})
	}
	strat := &queueStrategy{batches: batches}
	store := newMemStore("UC1")
	page := &fakePage{heights: []int64{1000, 2000, 2000, 2000, 2000}}
	ctrl := newTestController(t, strat, store, nil, page)

	sum, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopReasonNoGrowth, sum.StopReason)
	assert.Equal(t, 5, sum.Iterations)
}

func TestRunStoreFailureDoesNotAbortSession(t *testing.T) {
	strat := &queueStrategy{batches: [][]RawEntry{
		{rawVideo("aaa111", "UC1", "1 hour ago"), rawVideo("bbb222", "UC1", "2 hours ago")},
	}}
	store := newMemStore("UC1")
	store.failOn["aaa111"] = errors.New("connection reset")
	ctrl := newTestController(t, strat, store, nil, &fakePage{})

	sum, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Inserted)
	assert.Equal(t, 1, sum.Rejected)
	assert.Contains(t, store.videos, "bbb222")
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	strat := &queueStrategy{}
	ctrl := newTestController(t, strat, newMemStore(), nil, &fakePage{})

	sum, err := ctrl.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StopReasonCanceled, sum.StopReason)
}
