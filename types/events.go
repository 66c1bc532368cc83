package types

// EventType tags an OutputEvent.
type EventType string

const (
	EventAddedToQueue    EventType = "addedToQueue"
	EventAllAddedToQueue EventType = "allAddedToQueue"
	EventStart           EventType = "start"
	EventUploading       EventType = "uploading"
	EventDone            EventType = "done"
	EventCancelled       EventType = "cancelled"
	EventRemoved         EventType = "removed"
	EventError           EventType = "error"
)

// OutputEvent is one message on the shared output stream. Every event except
// allAddedToQueue carries a snapshot of the entry it refers to; the snapshot
// is a copy and safe to keep.
type OutputEvent struct {
	Type  EventType  `json:"type"`
	File  *FileEntry `json:"file,omitempty"`
	Error string     `json:"error,omitempty"`
}
