package transfer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mizuha/uploadq-go/queue"
	"github.com/mizuha/uploadq-go/types"
)

// fakeTransport scripts transport behavior: it replays ticks, optionally
// blocks until released or cancelled, then returns err.
type fakeTransport struct {
	ticks []Tick
	block <-chan struct{}
	err   error
}

func (f *fakeTransport) Send(ctx context.Context, req *Request) error {
	for _, tick := range f.ticks {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if req.OnProgress != nil {
			req.OnProgress(tick)
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return f.err
}

func newTestEntry(t *testing.T, r *queue.Registry, size int) types.FileEntry {
	t.Helper()
	entries := r.Enqueue([]types.RawFile{
		types.NewRawFileFromBytes("a.txt", "text/plain", time.Now(), make([]byte, size)),
	})
	require.Len(t, entries, 1)
	return entries[0]
}

func collect(t *testing.T, ch <-chan types.OutputEvent) []types.OutputEvent {
	t.Helper()
	var out []types.OutputEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out waiting for executor stream to close")
		}
	}
}

func TestRunEmitsProgressThenDone(t *testing.T) {
	r := queue.New()
	entry := newTestEntry(t, r, 100)
	transport := &fakeTransport{ticks: []Tick{
		{BytesLoaded: 50, BytesTotal: 100, TotalKnown: true},
		{BytesLoaded: 100, BytesTotal: 100, TotalKnown: true},
	}}
	exec := NewExecutor(transport, r)

	events := collect(t, exec.Run(context.Background(), entry.ID, "http://example.test/upload", ""))
	require.Len(t, events, 3)

	assert.Equal(t, types.EventUploading, events[0].Type)
	assert.Equal(t, 50, events[0].File.Progress.Percentage)
	assert.Equal(t, types.StatusUploading, events[0].File.Progress.Status)

	assert.Equal(t, types.EventUploading, events[1].Type)
	assert.Equal(t, 100, events[1].File.Progress.Percentage)

	assert.Equal(t, types.EventDone, events[2].Type)
	assert.Equal(t, types.StatusDone, events[2].File.Progress.Status)
	assert.Equal(t, 100, events[2].File.Progress.Percentage)
	assert.Zero(t, events[2].File.Progress.Speed)
	assert.Empty(t, events[2].File.Progress.SpeedHuman)

	snap, ok := r.Get(entry.ID)
	require.True(t, ok)
	assert.Equal(t, types.StatusDone, snap.Progress.Status)
}

func TestRunRoundsPercentage(t *testing.T) {
	r := queue.New()
	entry := newTestEntry(t, r, 3)
	transport := &fakeTransport{ticks: []Tick{
		{BytesLoaded: 1, BytesTotal: 3, TotalKnown: true},
		{BytesLoaded: 2, BytesTotal: 3, TotalKnown: true},
	}}
	exec := NewExecutor(transport, r)

	events := collect(t, exec.Run(context.Background(), entry.ID, "http://example.test/upload", ""))
	require.Len(t, events, 3)
	assert.Equal(t, 33, events[0].File.Progress.Percentage)
	assert.Equal(t, 67, events[1].File.Progress.Percentage)
}

func TestRunSkipsTicksWithUnknownTotal(t *testing.T) {
	r := queue.New()
	entry := newTestEntry(t, r, 100)
	transport := &fakeTransport{ticks: []Tick{
		{BytesLoaded: 10, TotalKnown: false},
		{BytesLoaded: 20, TotalKnown: false},
	}}
	exec := NewExecutor(transport, r)

	events := collect(t, exec.Run(context.Background(), entry.ID, "http://example.test/upload", ""))
	require.Len(t, events, 1)
	assert.Equal(t, types.EventDone, events[0].Type)
}

func TestRunTransportFailureEmitsError(t *testing.T) {
	r := queue.New()
	entry := newTestEntry(t, r, 100)
	transport := &fakeTransport{
		ticks: []Tick{{BytesLoaded: 50, BytesTotal: 100, TotalKnown: true}},
		err:   errors.New("upload request failed: 500 Internal Server Error"),
	}
	exec := NewExecutor(transport, r)

	events := collect(t, exec.Run(context.Background(), entry.ID, "http://example.test/upload", ""))
	require.Len(t, events, 2)
	assert.Equal(t, types.EventUploading, events[0].Type)

	assert.Equal(t, types.EventError, events[1].Type)
	assert.Contains(t, events[1].Error, "500")
	assert.Equal(t, types.StatusError, events[1].File.Progress.Status)
	// the reached percentage survives the failure
	assert.Equal(t, 50, events[1].File.Progress.Percentage)

	snap, _ := r.Get(entry.ID)
	assert.Equal(t, types.StatusError, snap.Progress.Status)
}

func TestRunCancelledStaysSilent(t *testing.T) {
	r := queue.New()
	entry := newTestEntry(t, r, 100)
	transport := &fakeTransport{block: make(chan struct{})}
	exec := NewExecutor(transport, r)

	ctx, cancel := context.WithCancel(context.Background())
	ch := exec.Run(ctx, entry.ID, "http://example.test/upload", "")
	cancel()

	events := collect(t, ch)
	assert.Empty(t, events, "no emissions after abort")
}

func TestRunUnknownEntryClosesSilently(t *testing.T) {
	r := queue.New()
	exec := NewExecutor(&fakeTransport{}, r)
	events := collect(t, exec.Run(context.Background(), "missing", "http://example.test/upload", ""))
	assert.Empty(t, events)
}

func TestRunComputesInstantaneousSpeed(t *testing.T) {
	r := queue.New()
	entry := newTestEntry(t, r, 100)
	transport := &fakeTransport{ticks: []Tick{
		{BytesLoaded: 50, BytesTotal: 100, TotalKnown: true},
		{BytesLoaded: 100, BytesTotal: 100, TotalKnown: true},
	}}
	exec := NewExecutor(transport, r)

	events := collect(t, exec.Run(context.Background(), entry.ID, "http://example.test/upload", ""))
	require.Len(t, events, 3)
	for _, ev := range events[:2] {
		assert.GreaterOrEqual(t, ev.File.Progress.Speed, int64(0))
		if ev.File.Progress.Speed > 0 {
			assert.NotEmpty(t, ev.File.Progress.SpeedHuman)
			assert.Contains(t, ev.File.Progress.SpeedHuman, "/s")
		}
	}
}
