package types

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"
)

// RawFile is a byte-bearing file handle supplied by the selection surface.
// Open is called once per upload attempt; Discard, when set, releases any
// backing storage (e.g. a spooled temp file) once the entry leaves the queue.
type RawFile struct {
	FileName     string
	Size         int64
	FileType     string
	LastModified time.Time
	Open         func() (io.ReadCloser, error)
	Discard      func() error
}

// NewRawFileFromPath builds a RawFile backed by a file on disk. Metadata is
// captured now; bytes are read at send time.
func NewRawFileFromPath(path string) (RawFile, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return RawFile{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() {
		return RawFile{}, fmt.Errorf("path is a directory: %s", path)
	}
	fileType := mime.TypeByExtension(filepath.Ext(path))
	if fileType == "" {
		fileType = "application/octet-stream"
	}
	return RawFile{
		FileName:     filepath.Base(path),
		Size:         stat.Size(),
		FileType:     fileType,
		LastModified: stat.ModTime(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// NewRawFileFromBytes builds an in-memory RawFile, mainly for tests and small
// programmatic payloads.
func NewRawFileFromBytes(name, fileType string, modified time.Time, data []byte) RawFile {
	if fileType == "" {
		fileType = "application/octet-stream"
	}
	return RawFile{
		FileName:     name,
		Size:         int64(len(data)),
		FileType:     fileType,
		LastModified: modified,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}
