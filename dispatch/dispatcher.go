package dispatch

import (
	"context"
	"net/http"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/mizuha/uploadq-go/queue"
	"github.com/mizuha/uploadq-go/tool"
	"github.com/mizuha/uploadq-go/transfer"
	"github.com/mizuha/uploadq-go/types"
)

// DefaultFinishedTTL bounds how long terminal entry snapshots stay queryable
// after they leave the registry.
var DefaultFinishedTTL = 60 * time.Minute

// Options tunes a Service. Zero values fall back to defaults.
type Options struct {
	DefaultURL    string
	DefaultMethod string
	EventBuffer   int
	FinishedTTL   time.Duration
}

// job is the live binding between a FileEntry and its running transfer. It
// exists only while the transfer is active and holds the cancellation handle.
type job struct {
	id     string
	cancel context.CancelFunc
}

// jobEvent is one message on the fan-in channel from running uploads to the
// coordination loop. closed marks the end of a run's stream.
type jobEvent struct {
	id     string
	ev     types.OutputEvent
	closed bool
}

// Service is the command dispatcher: it consumes commands one at a time in
// arrival order, fans uploads out to the executor, tracks active jobs for
// cancellation and republishes every event on one shared output stream.
//
// A single coordination goroutine owns the job table and is the only
// forwarder of run events, so per-job event order is preserved and a
// deregistered job can never emit again: cancellation drops the job from the
// table before the cancelled event goes out, and late transport events for
// unknown jobs are dropped.
type Service struct {
	registry *queue.Registry
	executor *transfer.Executor
	opts     Options

	commands  chan types.Command
	events    chan types.OutputEvent
	runEvents chan jobEvent

	jobsMu sync.RWMutex
	jobs   map[string]*job

	finished *ttlworker.Cache[string, types.FileEntry]

	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once
}

func New(registry *queue.Registry, executor *transfer.Executor, opts Options) *Service {
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 256
	}
	if opts.FinishedTTL <= 0 {
		opts.FinishedTTL = DefaultFinishedTTL
	}
	if opts.DefaultMethod == "" {
		opts.DefaultMethod = http.MethodPost
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		registry:  registry,
		executor:  executor,
		opts:      opts,
		commands:  make(chan types.Command, 64),
		events:    make(chan types.OutputEvent, opts.EventBuffer),
		runEvents: make(chan jobEvent, 64),
		jobs:      make(map[string]*job),
		finished:  ttlworker.NewCache[string, types.FileEntry](opts.FinishedTTL),
		ctx:       ctx,
		cancel:    cancel,
		stopped:   make(chan struct{}),
	}
}

// Start launches the coordination loop.
func (s *Service) Start() {
	go s.loop()
}

// Stop cancels every active job and stops the loop. No events are emitted
// for jobs torn down on shutdown.
func (s *Service) Stop() {
	s.once.Do(s.cancel)
	<-s.stopped
}

// Commands is the inbound command stream.
func (s *Service) Commands() chan<- types.Command {
	return s.commands
}

// Events is the shared output stream. The consumer is expected to drain it;
// it is never closed, observe Done for shutdown.
func (s *Service) Events() <-chan types.OutputEvent {
	return s.events
}

// Done is closed when the coordination loop has exited.
func (s *Service) Done() <-chan struct{} {
	return s.stopped
}

// Registry exposes the owned registry for read-only surfaces.
func (s *Service) Registry() *queue.Registry {
	return s.registry
}

// Finished returns the terminal snapshot of an entry that already left the
// registry, as long as its TTL has not lapsed.
func (s *Service) Finished(id string) (types.FileEntry, bool) {
	entry := s.finished.Get(id)
	return entry, entry.ID != ""
}

// ActiveJobs reports how many transfers are currently in flight.
func (s *Service) ActiveJobs() int {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	return len(s.jobs)
}

// Enqueue is the upstream collaborator entry point: it converts raw file
// handles into tracked entries, replacing any prior batch, and emits one
// addedToQueue per entry followed by a single allAddedToQueue.
func (s *Service) Enqueue(files []types.RawFile) []types.FileEntry {
	snapshots := s.registry.Enqueue(files)
	for i := range snapshots {
		s.emit(types.OutputEvent{Type: types.EventAddedToQueue, File: &snapshots[i]})
	}
	s.emit(types.OutputEvent{Type: types.EventAllAddedToQueue})
	return snapshots
}

func (s *Service) loop() {
	defer close(s.stopped)
	for {
		select {
		case <-s.ctx.Done():
			s.teardownJobs()
			return
		case cmd := <-s.commands:
			s.handleCommand(cmd)
		case je := <-s.runEvents:
			s.handleRunEvent(je)
		}
	}
}

func (s *Service) handleCommand(cmd types.Command) {
	switch cmd.Type {
	case types.CommandUploadFile:
		id := cmd.ID
		if id == "" && cmd.FileIndex != nil {
			if entry, ok := s.registry.AtIndex(*cmd.FileIndex); ok {
				id = entry.ID
			}
		}
		s.startUpload(id, cmd.URL, cmd.Method)
	case types.CommandUploadAll:
		for _, entry := range s.registry.Snapshot() {
			s.startUpload(entry.ID, cmd.URL, cmd.Method)
		}
	case types.CommandCancel:
		s.cancelOne(cmd.ID)
	case types.CommandCancelAll:
		s.cancelEverything()
	case types.CommandRemove:
		s.removeOne(cmd.ID)
	case types.CommandRemoveAll:
		s.removeEverything()
	default:
		tool.DefaultLogger.Warnf("[Dispatch] Unknown command type %q", cmd.Type)
	}
}

func (s *Service) handleRunEvent(je jobEvent) {
	j := s.getJob(je.id)
	if j == nil {
		// Cancelled or already deregistered; late transport events are dropped.
		return
	}
	if je.closed {
		// Stream ended without a terminal event reaching us (e.g. the entry
		// was superseded by a new batch mid-flight). Deregister silently.
		s.deregister(j)
		if entry, ok := s.registry.Get(je.id); ok {
			s.finished.Set(je.id, entry)
		}
		return
	}
	s.emit(je.ev)
	if je.ev.Type == types.EventDone || je.ev.Type == types.EventError {
		s.deregister(j)
		if je.ev.File != nil {
			s.finished.Set(je.id, *je.ev.File)
		}
	}
}

// startUpload emits start and binds a job to the entry. No-op for unknown,
// terminal or already-active entries.
func (s *Service) startUpload(id, url, method string) {
	if id == "" {
		return
	}
	if s.getJob(id) != nil {
		tool.DefaultLogger.Debugf("[Dispatch] Entry %s already uploading, skipped", id)
		return
	}
	entry, ok := s.registry.Get(id)
	if !ok || entry.Progress.Status.Terminal() {
		tool.DefaultLogger.Debugf("[Dispatch] Upload skipped for %s: not startable", id)
		return
	}
	if url == "" {
		url = s.opts.DefaultURL
	}
	if url == "" {
		tool.DefaultLogger.Errorf("[Dispatch] Upload of %s rejected: no endpoint URL", id)
		return
	}
	if method == "" {
		method = s.opts.DefaultMethod
	}

	s.emit(types.OutputEvent{Type: types.EventStart, File: &entry})

	runCtx, cancel := context.WithCancel(s.ctx)
	s.setJob(&job{id: id, cancel: cancel})

	events := s.executor.Run(runCtx, id, url, method)
	go func() {
		for ev := range events {
			select {
			case s.runEvents <- jobEvent{id: id, ev: ev}:
			case <-s.ctx.Done():
				return
			}
		}
		select {
		case s.runEvents <- jobEvent{id: id, closed: true}:
		case <-s.ctx.Done():
		}
	}()
}

// cancelOne aborts the matching job (or drops a still-queued entry), emits
// exactly one cancelled event and removes the entry while keeping the
// entry/source index alignment. Unknown ids are a strict no-op.
func (s *Service) cancelOne(id string) {
	if j := s.getJob(id); j != nil {
		s.deregister(j)
		s.finishEntry(id, types.StatusCancelled, types.EventCancelled)
		return
	}
	entry, ok := s.registry.Get(id)
	if !ok || entry.Progress.Status != types.StatusQueued {
		return
	}
	s.finishEntry(id, types.StatusCancelled, types.EventCancelled)
}

// cancelEverything cancels every active job, emitting one cancelled event
// per job, then clears the registry and the raw source list entirely.
func (s *Service) cancelEverything() {
	for _, j := range s.snapshotJobs() {
		s.deregister(j)
		s.finishEntry(j.id, types.StatusCancelled, types.EventCancelled)
	}
	s.registry.Clear()
}

// removeOne drops a non-active entry from the queue. Active entries must be
// cancelled instead.
func (s *Service) removeOne(id string) {
	if s.getJob(id) != nil {
		tool.DefaultLogger.Warnf("[Dispatch] Remove of %s skipped: upload active, cancel it first", id)
		return
	}
	entry, ok := s.registry.Get(id)
	if !ok {
		return
	}
	s.registry.RemoveByID(id)
	s.finished.Set(id, entry)
	s.emit(types.OutputEvent{Type: types.EventRemoved, File: &entry})
}

func (s *Service) removeEverything() {
	for _, entry := range s.registry.Snapshot() {
		if s.getJob(entry.ID) != nil {
			continue
		}
		s.removeOne(entry.ID)
	}
}

// finishEntry moves an entry into a terminal status, removes it from the
// registry and emits the matching event with the last-known snapshot. Speed
// is cleared, the reached percentage is kept. Entries that are already
// terminal or gone produce no event, so nothing ever follows done.
func (s *Service) finishEntry(id string, status types.UploadStatus, evType types.EventType) {
	entry, ok := s.registry.Get(id)
	if !ok {
		return
	}
	progress := entry.Progress
	progress.Status = status
	progress.Speed = 0
	progress.SpeedHuman = ""
	snap, ok := s.registry.SetProgress(id, progress)
	if !ok {
		return
	}
	s.registry.RemoveByID(id)
	s.finished.Set(id, snap)
	s.emit(types.OutputEvent{Type: evType, File: &snap})
}

func (s *Service) teardownJobs() {
	for _, j := range s.snapshotJobs() {
		s.deregister(j)
	}
}

func (s *Service) emit(ev types.OutputEvent) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

func (s *Service) getJob(id string) *job {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	return s.jobs[id]
}

func (s *Service) setJob(j *job) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	s.jobs[j.id] = j
}

// deregister removes the job from the table before cancelling, so an event
// racing in from the transport finds no job and is dropped.
func (s *Service) deregister(j *job) {
	s.jobsMu.Lock()
	delete(s.jobs, j.id)
	s.jobsMu.Unlock()
	j.cancel()
}

func (s *Service) snapshotJobs() []*job {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	out := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	return out
}
