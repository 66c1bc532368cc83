package queue

import (
	"sync"

	"github.com/mizuha/uploadq-go/tool"
	"github.com/mizuha/uploadq-go/types"
)

// Registry owns the canonical list of queued and active file entries together
// with their raw byte sources. The two slices stay index-aligned at all
// times: any removal drops the entry and its source at the same position and
// re-indexes the tail. All reads hand out copies, never shared pointers.
type Registry struct {
	mu      sync.RWMutex
	entries []*types.FileEntry
	sources []types.RawFile
}

func New() *Registry {
	return &Registry{}
}

// Enqueue replaces any prior batch with the given files and returns the
// created entry snapshots. Previous entries are discarded, not merged; their
// spooled sources are released.
func (r *Registry) Enqueue(files []types.RawFile) []types.FileEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.discardAllLocked()
	r.entries = make([]*types.FileEntry, 0, len(files))
	r.sources = make([]types.RawFile, 0, len(files))

	snapshots := make([]types.FileEntry, 0, len(files))
	for i, f := range files {
		entry := &types.FileEntry{
			ID:       tool.NewEntryID(),
			Index:    i,
			FileName: f.FileName,
			Size:     f.Size,
			FileType: f.FileType,
			Progress: types.Progress{
				Status:     types.StatusQueued,
				Percentage: 0,
			},
		}
		if !f.LastModified.IsZero() {
			entry.LastModified = f.LastModified.UnixMilli()
		}
		r.entries = append(r.entries, entry)
		r.sources = append(r.sources, f)
		snapshots = append(snapshots, *entry)
	}
	return snapshots
}

// Get returns a snapshot of the entry with the given id.
func (r *Registry) Get(id string) (types.FileEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.ID == id {
			return *e, true
		}
	}
	return types.FileEntry{}, false
}

// Source resolves the entry snapshot and its raw byte source at the same
// index in one step, so a concurrent removal cannot hand back a mismatched
// pair at send time.
func (r *Registry) Source(id string) (types.FileEntry, types.RawFile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, e := range r.entries {
		if e.ID == id {
			return *e, r.sources[i], true
		}
	}
	return types.FileEntry{}, types.RawFile{}, false
}

// AtIndex returns a snapshot of the entry at the given registry position.
func (r *Registry) AtIndex(i int) (types.FileEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || i >= len(r.entries) {
		return types.FileEntry{}, false
	}
	return *r.entries[i], true
}

// Snapshot returns copies of all current entries in queue order.
func (r *Registry) Snapshot() []types.FileEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.FileEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// SetProgress mutates the progress of the entry with the given id and
// returns the updated snapshot. This is the only mutation path used by a
// running upload; entries in a terminal state are left untouched.
func (r *Registry) SetProgress(id string, p types.Progress) (types.FileEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			if e.Progress.Status.Terminal() {
				return *e, false
			}
			e.Progress = p
			return *e, true
		}
	}
	return types.FileEntry{}, false
}

// RemoveByID removes the entry and its raw source at the same position,
// keeping both lists aligned, then re-indexes the remaining entries. Unknown
// ids are a silent no-op. The caller emits any removed/cancelled event.
func (r *Registry) RemoveByID(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.ID != id {
			continue
		}
		r.discardSource(r.sources[i])
		r.entries = append(r.entries[:i], r.entries[i+1:]...)
		r.sources = append(r.sources[:i], r.sources[i+1:]...)
		for j := i; j < len(r.entries); j++ {
			r.entries[j].Index = j
		}
		return true
	}
	return false
}

// Clear empties all entries and backing raw sources.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discardAllLocked()
	r.entries = nil
	r.sources = nil
}

func (r *Registry) discardAllLocked() {
	for _, src := range r.sources {
		r.discardSource(src)
	}
}

func (r *Registry) discardSource(src types.RawFile) {
	if src.Discard == nil {
		return
	}
	if err := src.Discard(); err != nil {
		tool.DefaultLogger.Errorf("Failed to discard raw source %s: %v", src.FileName, err)
	}
}
