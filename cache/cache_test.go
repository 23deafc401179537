package cache

import (
	"context"
	"errors"
	"modhelper/model"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type releaseRecorder struct {
	mu    sync.Mutex
	files map[string]int
}

func newReleaseRecorder() *releaseRecorder {
	return &releaseRecorder{files: make(map[string]int)}
}

func (r *releaseRecorder) release(files []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range files {
		r.files[f]++
	}
}

func (r *releaseRecorder) count(file string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.files[file]
}

func fixedCapacity(n int) CapacityFunc {
	return func(string) int { return n }
}

func msg(author, channel string, ts int64, files ...string) *model.CachedMessage {
	return &model.CachedMessage{ChannelID: channel, AuthorID: author, Time: ts, Files: files}
}

func times(entries []*model.CachedMessage) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Time)
	}
	return out
}

func TestInsertEvictsOldest(t *testing.T) {
	rec := newReleaseRecorder()
	c := New(fixedCapacity(3), rec.release)

	for _, ts := range []int64{10, 20, 30} {
		assert.True(t, c.Insert("g", msg("a", "c", ts)))
	}
	assert.True(t, c.Insert("g", msg("a", "c", 40, "f40")))

	assert.Equal(t, []int64{40, 30, 20}, times(c.List("g")))
}

func TestInsertReleasesEvictedFilesOnce(t *testing.T) {
	rec := newReleaseRecorder()
	c := New(fixedCapacity(2), rec.release)

	c.Insert("g", msg("a", "c", 10, "old.png"))
	c.Insert("g", msg("a", "c", 20, "mid.png"))
	c.Insert("g", msg("a", "c", 30, "new.png"))

	assert.Equal(t, 1, rec.count("old.png"))
	assert.Equal(t, 0, rec.count("mid.png"))
	assert.Equal(t, 0, rec.count("new.png"))
}

func TestInsertRejectsOlderThanTailWhenFull(t *testing.T) {
	rec := newReleaseRecorder()
	c := New(fixedCapacity(2), rec.release)

	c.Insert("g", msg("a", "c", 20))
	c.Insert("g", msg("a", "c", 30))

	assert.False(t, c.Insert("g", msg("a", "c", 5, "late.png")))
	assert.Equal(t, 1, rec.count("late.png"))
	assert.Equal(t, []int64{30, 20}, times(c.List("g")))

	// equal to the tail is not newer
	assert.False(t, c.Insert("g", msg("a", "c", 20)))
}

func TestInsertOutOfOrderKeepsDescending(t *testing.T) {
	c := New(fixedCapacity(5), nil)
	for _, ts := range []int64{30, 10, 50, 20, 40} {
		c.Insert("g", msg("a", "c", ts))
	}
	assert.Equal(t, []int64{50, 40, 30, 20, 10}, times(c.List("g")))
}

func TestInsertTiesKeepInsertionOrder(t *testing.T) {
	c := New(fixedCapacity(5), nil)
	first := msg("first", "c", 10)
	second := msg("second", "c", 10)
	c.Insert("g", first)
	c.Insert("g", second)

	got := c.List("g")
	require.Len(t, got, 2)
	assert.Same(t, first, got[0])
	assert.Same(t, second, got[1])
}

func TestCapacityZeroDisablesCaching(t *testing.T) {
	rec := newReleaseRecorder()
	c := New(fixedCapacity(0), rec.release)

	assert.False(t, c.Accepts("g", 100))
	assert.False(t, c.Insert("g", msg("a", "c", 100, "x.png")))
	assert.Empty(t, c.List("g"))
	assert.Equal(t, 1, rec.count("x.png"))
}

func TestGuildsAreIndependent(t *testing.T) {
	c := New(fixedCapacity(1), nil)
	c.Insert("g1", msg("a", "c", 10))
	c.Insert("g2", msg("a", "c", 5))

	assert.Equal(t, []int64{10}, times(c.List("g1")))
	assert.Equal(t, []int64{5}, times(c.List("g2")))
}

func TestEvictIfOverCapacityAfterLowering(t *testing.T) {
	rec := newReleaseRecorder()
	capacity := 4
	c := New(CapacityFunc(func(string) int { return capacity }), rec.release)

	for i, ts := range []int64{10, 20, 30, 40} {
		c.Insert("g", msg("a", "c", ts, string(rune('a'+i))))
	}
	capacity = 2

	assert.Equal(t, 2, c.EvictIfOverCapacity("g"))
	assert.Equal(t, []int64{40, 30}, times(c.List("g")))
	assert.Equal(t, 1, rec.count("a"))
	assert.Equal(t, 1, rec.count("b"))
	assert.Equal(t, 0, c.EvictIfOverCapacity("g"))
}

func TestSelectSkipTake(t *testing.T) {
	c := New(fixedCapacity(10), nil)
	c.Insert("g", msg("alice", "c1", 10))
	c.Insert("g", msg("bob", "c1", 20))
	c.Insert("g", msg("alice", "c2", 30))
	c.Insert("g", msg("alice", "c1", 40))

	got := c.Select("g", Filter{Authors: []string{"alice"}}, 1, 2)
	assert.Equal(t, []int64{30, 10}, times(got))

	got = c.Select("g", Filter{Channels: []string{"c1"}}, 0, 10)
	assert.Equal(t, []int64{40, 20, 10}, times(got))

	got = c.Select("g", Filter{Authors: []string{"alice"}, Channels: []string{"c1"}}, 0, 1)
	assert.Equal(t, []int64{40}, times(got))

	assert.Empty(t, c.Select("g", Filter{}, 10, 1))
	assert.Empty(t, c.Select("empty", Filter{}, 0, 5))
}

func TestRestoreSecondNewestOfAuthor(t *testing.T) {
	rec := newReleaseRecorder()
	c := New(fixedCapacity(10), rec.release)
	c.Insert("g", msg("alice", "c", 10, "10.png"))
	c.Insert("g", msg("alice", "c", 20, "20.png"))
	c.Insert("g", msg("alice", "c", 30, "30.png"))

	picked := c.Select("g", Filter{Authors: []string{"alice"}}, 1, 1)
	require.Len(t, picked, 1)

	var replayed []int64
	err := c.Restore(context.Background(), "g", picked[0], func(_ context.Context, m *model.CachedMessage) error {
		replayed = append(replayed, m.Time)
		assert.Equal(t, 0, rec.count("20.png"), "files must stay until replay finished")
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{20}, replayed)
	assert.Equal(t, []int64{30, 10}, times(c.List("g")))
	assert.Equal(t, 1, rec.count("20.png"))
}

func TestRestoreFailureKeepsEntry(t *testing.T) {
	rec := newReleaseRecorder()
	c := New(fixedCapacity(10), rec.release)
	entry := msg("alice", "c", 10, "keep.png")
	c.Insert("g", entry)

	boom := errors.New("boom")
	err := c.Restore(context.Background(), "g", entry, func(context.Context, *model.CachedMessage) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, c.Len("g"))
	assert.Equal(t, 0, rec.count("keep.png"))
}

func TestRestoreMissingEntry(t *testing.T) {
	c := New(fixedCapacity(10), nil)
	called := false
	err := c.Restore(context.Background(), "g", msg("a", "c", 1), func(context.Context, *model.CachedMessage) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, called)
}

func TestSnapshotLoadRoundTrip(t *testing.T) {
	c := New(fixedCapacity(10), nil)
	c.Insert("g1", msg("a", "c", 10, "x"))
	c.Insert("g1", msg("b", "c", 20))
	c.Insert("g2", msg("a", "d", 5))

	restored := New(fixedCapacity(10), nil)
	restored.Load(c.Snapshot())

	assert.Equal(t, []int64{20, 10}, times(restored.List("g1")))
	assert.Equal(t, []int64{5}, times(restored.List("g2")))
	assert.ElementsMatch(t, []string{"x"}, restored.Files())
}

func TestConcurrentInsertStaysBounded(t *testing.T) {
	rec := newReleaseRecorder()
	c := New(fixedCapacity(5), rec.release)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(ts int64) {
			defer wg.Done()
			c.Insert("g", msg("a", "c", ts))
		}(int64(i))
	}
	wg.Wait()

	got := times(c.List("g"))
	assert.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1], got[i])
	}
}

func TestConcurrentRestoreReplaysOnce(t *testing.T) {
	rec := newReleaseRecorder()
	c := New(fixedCapacity(10), rec.release)
	entry := msg("alice", "c", 10, "once.png")
	c.Insert("g", entry)

	entered := make(chan struct{})
	unblock := make(chan struct{})
	var replays atomic.Int32
	replay := func(context.Context, *model.CachedMessage) error {
		if replays.Add(1) == 1 {
			close(entered)
		}
		<-unblock
		return nil
	}

	firstErr := make(chan error, 1)
	go func() { firstErr <- c.Restore(context.Background(), "g", entry, replay) }()
	<-entered

	// the entry is claimed but its files are still owned by the cache
	assert.Equal(t, 0, c.Len("g"))
	assert.Contains(t, c.Files(), "once.png")
	assert.ErrorIs(t, c.Restore(context.Background(), "g", entry, replay), ErrNotFound)

	close(unblock)
	require.NoError(t, <-firstErr)
	assert.Equal(t, int32(1), replays.Load())
	assert.Equal(t, 1, rec.count("once.png"))
	assert.Empty(t, c.Files())
}

func TestParallelRestoresOfOneEntry(t *testing.T) {
	for i := 0; i < 50; i++ {
		rec := newReleaseRecorder()
		c := New(fixedCapacity(10), rec.release)
		entry := msg("alice", "c", 10, "f.png")
		c.Insert("g", entry)

		var replays, succeeded atomic.Int32
		start := make(chan struct{})
		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				err := c.Restore(context.Background(), "g", entry, func(context.Context, *model.CachedMessage) error {
					replays.Add(1)
					return nil
				})
				if err == nil {
					succeeded.Add(1)
				} else {
					assert.ErrorIs(t, err, ErrNotFound)
				}
			}()
		}
		close(start)
		wg.Wait()

		require.Equal(t, int32(1), replays.Load())
		require.Equal(t, int32(1), succeeded.Load())
		require.Equal(t, 1, rec.count("f.png"))
	}
}

func TestRestoreFailureAfterConcurrentInsertsStaysSorted(t *testing.T) {
	c := New(fixedCapacity(10), nil)
	entry := msg("alice", "c", 20)
	c.Insert("g", entry)

	err := c.Restore(context.Background(), "g", entry, func(context.Context, *model.CachedMessage) error {
		c.Insert("g", msg("bob", "c", 30))
		c.Insert("g", msg("bob", "c", 10))
		return errors.New("channel gone")
	})
	assert.Error(t, err)
	assert.Equal(t, []int64{30, 20, 10}, times(c.List("g")))
}

func TestLoadTrimsToCapacity(t *testing.T) {
	rec := newReleaseRecorder()
	c := New(fixedCapacity(2), rec.release)
	c.Load(map[string][]model.CachedMessage{
		"g": {
			{AuthorID: "a", Time: 10, Files: []string{"10.png"}},
			{AuthorID: "a", Time: 40, Files: []string{"40.png"}},
			{AuthorID: "a", Time: 20, Files: []string{"20.png"}},
			{AuthorID: "a", Time: 30, Files: []string{"30.png"}},
		},
	})

	assert.Equal(t, 2, c.Len("g"))
	assert.Equal(t, []int64{40, 30}, times(c.List("g")))
	assert.Equal(t, 1, rec.count("10.png"))
	assert.Equal(t, 1, rec.count("20.png"))
	assert.Equal(t, 0, rec.count("40.png"))
}
