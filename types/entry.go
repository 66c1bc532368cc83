package types

// UploadStatus is the lifecycle state of a queued file.
// Transitions: queued -> uploading (repeatedly) -> done, or queued/uploading -> cancelled.
// Transport failures end in error. Nothing leaves done, cancelled or error.
type UploadStatus string

const (
	StatusQueued    UploadStatus = "queued"
	StatusUploading UploadStatus = "uploading"
	StatusDone      UploadStatus = "done"
	StatusCancelled UploadStatus = "cancelled"
	StatusError     UploadStatus = "error"
)

// Terminal reports whether no further transition may leave this status.
func (s UploadStatus) Terminal() bool {
	return s == StatusDone || s == StatusCancelled || s == StatusError
}

// Progress is the mutable part of a FileEntry. Speed is the instantaneous
// transfer rate in bytes per second, computed over the interval since the
// previous transport tick, not since the start of the upload.
type Progress struct {
	Status     UploadStatus `json:"status"`
	Percentage int          `json:"percentage"`
	Speed      int64        `json:"speed,omitempty"`
	SpeedHuman string       `json:"speedHuman,omitempty"`
}

// FileEntry is one file queued or in transit. ID is the sole cancellation
// key and stays stable for the entry's lifetime. Index is the current
// position in the registry and is re-aligned after removals, so it must be
// resolved again at send time rather than cached.
type FileEntry struct {
	ID           string   `json:"id"`
	Index        int      `json:"index"`
	FileName     string   `json:"fileName"`
	Size         int64    `json:"size"`
	FileType     string   `json:"fileType"`
	LastModified int64    `json:"lastModified,omitempty"` // unix milliseconds
	Progress     Progress `json:"progress"`
}
