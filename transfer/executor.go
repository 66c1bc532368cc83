package transfer

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/mizuha/uploadq-go/queue"
	"github.com/mizuha/uploadq-go/tool"
	"github.com/mizuha/uploadq-go/types"
)

// Executor drives one network upload per Run call, translating transport
// ticks into normalized progress samples and a terminal done/error signal.
type Executor struct {
	transport Transport
	registry  *queue.Registry
}

func NewExecutor(transport Transport, registry *queue.Registry) *Executor {
	return &Executor{
		transport: transport,
		registry:  registry,
	}
}

// Run starts a single upload attempt for the entry with the given id and
// returns its event stream: zero or more uploading events followed by done
// or error, then the channel closes. Cancelling ctx aborts the transport;
// after that nothing more is emitted and the stream just closes. Events from
// one run are strictly ordered.
func (e *Executor) Run(ctx context.Context, entryID, url, method string) <-chan types.OutputEvent {
	out := make(chan types.OutputEvent, 16)
	go func() {
		defer close(out)
		e.run(ctx, entryID, url, method, out)
	}()
	return out
}

func (e *Executor) run(ctx context.Context, entryID, url, method string, out chan<- types.OutputEvent) {
	entry, src, ok := e.registry.Source(entryID)
	if !ok {
		tool.DefaultLogger.Warnf("[Executor] Entry %s vanished before upload start", entryID)
		return
	}

	body, err := src.Open()
	if err != nil {
		e.fail(ctx, entryID, out, "failed to open raw source: "+err.Error())
		return
	}
	defer func() {
		if err := body.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close raw source: %v", err)
		}
	}()

	if method == "" {
		method = http.MethodPost
	}

	// Rolling state for instantaneous speed: rate over the interval since
	// the previous tick, not since the start of the upload.
	lastTick := time.Now()
	var lastLoaded int64

	onProgress := func(tick Tick) {
		if ctx.Err() != nil {
			return
		}
		if !tick.TotalKnown || tick.BytesTotal <= 0 {
			return
		}
		now := time.Now()
		percentage := int(math.Round(float64(tick.BytesLoaded) * 100 / float64(tick.BytesTotal)))

		var speed int64
		if elapsed := now.Sub(lastTick).Milliseconds(); elapsed > 0 {
			speed = (tick.BytesLoaded - lastLoaded) * 1000 / elapsed
		}
		lastTick = now
		lastLoaded = tick.BytesLoaded

		progress := types.Progress{
			Status:     types.StatusUploading,
			Percentage: percentage,
			Speed:      speed,
			SpeedHuman: tool.HumanizeBytes(float64(speed)) + "/s",
		}
		snap, ok := e.registry.SetProgress(entryID, progress)
		if !ok {
			return
		}
		e.emit(ctx, out, types.OutputEvent{Type: types.EventUploading, File: &snap})
	}

	err = e.transport.Send(ctx, &Request{
		URL:         url,
		Method:      method,
		ContentType: entry.FileType,
		Body:        body,
		Size:        entry.Size,
		OnProgress:  onProgress,
	})

	switch {
	case ctx.Err() != nil:
		// Aborted: the dispatcher emits cancelled; this run stays silent.
		return
	case err != nil:
		e.fail(ctx, entryID, out, err.Error())
	default:
		snap, ok := e.registry.SetProgress(entryID, types.Progress{
			Status:     types.StatusDone,
			Percentage: 100,
		})
		if !ok {
			return
		}
		e.emit(ctx, out, types.OutputEvent{Type: types.EventDone, File: &snap})
	}
}

func (e *Executor) fail(ctx context.Context, entryID string, out chan<- types.OutputEvent, msg string) {
	entry, ok := e.registry.Get(entryID)
	if !ok {
		// entry superseded mid-flight, nobody left to tell
		return
	}
	progress := entry.Progress
	progress.Status = types.StatusError
	progress.Speed = 0
	progress.SpeedHuman = ""
	snap, ok := e.registry.SetProgress(entryID, progress)
	if !ok {
		return
	}
	tool.DefaultLogger.Errorf("[Executor] Upload of %s failed: %s", entryID, msg)
	e.emit(ctx, out, types.OutputEvent{Type: types.EventError, File: &snap, Error: msg})
}

func (e *Executor) emit(ctx context.Context, out chan<- types.OutputEvent, ev types.OutputEvent) {
	select {
	case out <- ev:
	case <-ctx.Done():
	}
}
