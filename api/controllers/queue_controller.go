package controllers

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mizuha/uploadq-go/dispatch"
	"github.com/mizuha/uploadq-go/tool"
	"github.com/mizuha/uploadq-go/types"
)

// QueueController exposes the transfer registry: enqueueing a batch, listing
// its entries and dropping entries that are not in flight.
type QueueController struct {
	service     *dispatch.Service
	spoolFolder string
}

func NewQueueController(service *dispatch.Service, spoolFolder string) *QueueController {
	return &QueueController{
		service:     service,
		spoolFolder: spoolFolder,
	}
}

// EnqueueFileSpec describes one file to enqueue. FileUrl supports the
// file:/// protocol for local paths; Content carries inline bytes instead.
type EnqueueFileSpec struct {
	FileUrl  string `json:"fileUrl,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileType string `json:"fileType,omitempty"`
	Content  string `json:"content,omitempty"`
}

type EnqueueRequest struct {
	Files []EnqueueFileSpec `json:"files"`
}

// HandleEnqueue handles both JSON (file specs) and multipart (spooled
// uploads) enqueue requests. The new batch replaces any prior one.
// POST /api/uploader/v1/queue
func (ctrl *QueueController) HandleEnqueue(c *gin.Context) {
	var raws []types.RawFile
	var err error

	if isMultipart(c) {
		raws, err = ctrl.spoolMultipart(c)
	} else {
		raws, err = ctrl.collectSpecs(c)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError(err.Error()))
		return
	}
	if len(raws) == 0 {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("No files to enqueue"))
		return
	}

	entries := ctrl.service.Enqueue(raws)
	tool.DefaultLogger.Infof("[Queue] Enqueued batch of %d files", len(entries))
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(entries))
}

// HandleList returns snapshots of all current entries.
// GET /api/uploader/v1/queue
func (ctrl *QueueController) HandleList(c *gin.Context) {
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(ctrl.service.Registry().Snapshot()))
}

// HandleGet returns one entry, falling back to the finished-entry cache for
// ids that already left the registry.
// GET /api/uploader/v1/queue/:id
func (ctrl *QueueController) HandleGet(c *gin.Context) {
	id := c.Param("id")
	if entry, ok := ctrl.service.Registry().Get(id); ok {
		c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(entry))
		return
	}
	if entry, ok := ctrl.service.Finished(id); ok {
		c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(entry))
		return
	}
	c.JSON(http.StatusNotFound, tool.FastReturnError("Entry not found"))
}

// HandleRemove drops a non-active entry from the queue.
// DELETE /api/uploader/v1/queue/:id
func (ctrl *QueueController) HandleRemove(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing parameters"))
		return
	}
	ctrl.service.Commands() <- types.Command{Type: types.CommandRemove, ID: id}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// HandleRemoveAll drops every non-active entry.
// DELETE /api/uploader/v1/queue
func (ctrl *QueueController) HandleRemoveAll(c *gin.Context) {
	ctrl.service.Commands() <- types.Command{Type: types.CommandRemoveAll}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

func isMultipart(c *gin.Context) bool {
	ct := c.ContentType()
	return ct == "multipart/form-data"
}

// collectSpecs builds raw files from a JSON body of file specs, following
// the file:/// convention for local paths.
func (ctrl *QueueController) collectSpecs(c *gin.Context) ([]types.RawFile, error) {
	var request EnqueueRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		return nil, fmt.Errorf("invalid request body: %v", err)
	}

	raws := make([]types.RawFile, 0, len(request.Files))
	for i, spec := range request.Files {
		raw, err := resolveSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("failed to process file %d: %v", i, err)
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

func resolveSpec(spec EnqueueFileSpec) (types.RawFile, error) {
	if spec.FileUrl != "" {
		parsedUrl, err := url.Parse(spec.FileUrl)
		if err != nil {
			return types.RawFile{}, fmt.Errorf("invalid fileUrl: %v", err)
		}
		if parsedUrl.Scheme != "file" {
			return types.RawFile{}, fmt.Errorf("only file:// protocol is supported for fileUrl")
		}
		raw, err := types.NewRawFileFromPath(parsedUrl.Path)
		if err != nil {
			return types.RawFile{}, err
		}
		if spec.FileName != "" {
			raw.FileName = spec.FileName
		}
		if spec.FileType != "" {
			raw.FileType = spec.FileType
		}
		return raw, nil
	}
	if spec.Content != "" {
		if spec.FileName == "" {
			return types.RawFile{}, fmt.Errorf("fileName is required for inline content")
		}
		fileType := spec.FileType
		if fileType == "" {
			fileType = "text/plain"
		}
		return types.NewRawFileFromBytes(spec.FileName, fileType, time.Now(), []byte(spec.Content)), nil
	}
	return types.RawFile{}, fmt.Errorf("either fileUrl or content is required")
}

// spoolMultipart saves uploaded form files under the spool folder and builds
// raw files whose Discard removes the spooled bytes once the entry is gone.
func (ctrl *QueueController) spoolMultipart(c *gin.Context) ([]types.RawFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("invalid multipart form: %v", err)
	}
	files := form.File["files"]
	if len(files) == 0 {
		return nil, fmt.Errorf("multipart form has no files field")
	}

	if err := os.MkdirAll(ctrl.spoolFolder, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir failed: %w", err)
	}

	raws := make([]types.RawFile, 0, len(files))
	for _, fh := range files {
		spooled := filepath.Join(ctrl.spoolFolder, tool.NewEntryID()+"-"+filepath.Base(fh.Filename))
		if err := c.SaveUploadedFile(fh, spooled); err != nil {
			return nil, fmt.Errorf("failed to spool %s: %v", fh.Filename, err)
		}
		fileType := fh.Header.Get("Content-Type")
		if fileType == "" {
			fileType = "application/octet-stream"
		}
		path := spooled
		raws = append(raws, types.RawFile{
			FileName:     filepath.Base(fh.Filename),
			Size:         fh.Size,
			FileType:     fileType,
			LastModified: time.Now(),
			Open: func() (io.ReadCloser, error) {
				return os.Open(path)
			},
			Discard: func() error {
				return os.Remove(path)
			},
		})
	}
	return raws, nil
}
