package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mizuha/uploadq-go/dispatch"
	"github.com/mizuha/uploadq-go/queue"
	"github.com/mizuha/uploadq-go/transfer"
	"github.com/mizuha/uploadq-go/types"
)

type noopTransport struct{}

func (noopTransport) Send(ctx context.Context, req *transfer.Request) error {
	return nil
}

// setupRouter creates a test router with the queue and transfer endpoints
func setupRouter(t *testing.T) (*gin.Engine, *dispatch.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := queue.New()
	svc := dispatch.New(registry, transfer.NewExecutor(noopTransport{}, registry), dispatch.Options{})
	svc.Start()
	t.Cleanup(svc.Stop)

	// drain the event stream so enqueues never block on a full buffer
	go func() {
		for {
			select {
			case <-svc.Events():
			case <-svc.Done():
				return
			}
		}
	}()

	queueCtrl := NewQueueController(svc, t.TempDir())
	transferCtrl := NewTransferController(svc)

	router := gin.New()
	v1 := router.Group("/api/uploader/v1")
	{
		v1.POST("/queue", queueCtrl.HandleEnqueue)
		v1.GET("/queue", queueCtrl.HandleList)
		v1.GET("/queue/:id", queueCtrl.HandleGet)
		v1.DELETE("/queue/:id", queueCtrl.HandleRemove)
		v1.POST("/upload", transferCtrl.HandleUpload)
		v1.POST("/cancel", transferCtrl.HandleCancel)
	}
	return router, svc
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	jsonData, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(jsonData))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "127.0.0.1:12345"

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleEnqueueInlineContent(t *testing.T) {
	router, svc := setupRouter(t)

	w := postJSON(router, "/api/uploader/v1/queue", EnqueueRequest{
		Files: []EnqueueFileSpec{
			{FileName: "a.txt", Content: "hello"},
			{FileName: "b.txt", Content: "world!", FileType: "text/plain"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, "response: %s", w.Body.String())

	var response struct {
		Data []types.FileEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Data, 2)
	assert.Equal(t, "a.txt", response.Data[0].FileName)
	assert.Equal(t, int64(5), response.Data[0].Size)
	assert.Equal(t, types.StatusQueued, response.Data[0].Progress.Status)

	assert.Equal(t, 2, svc.Registry().Len())
}

func TestHandleEnqueueRejectsEmptyBatch(t *testing.T) {
	router, _ := setupRouter(t)
	w := postJSON(router, "/api/uploader/v1/queue", EnqueueRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleEnqueueRejectsNonFileURL(t *testing.T) {
	router, _ := setupRouter(t)
	w := postJSON(router, "/api/uploader/v1/queue", EnqueueRequest{
		Files: []EnqueueFileSpec{{FileUrl: "https://example.test/a.txt"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file://")
}

func TestHandleGetAndList(t *testing.T) {
	router, svc := setupRouter(t)
	entries := svc.Enqueue([]types.RawFile{
		types.NewRawFileFromBytes("a.txt", "text/plain", time.Now(), []byte("abc")),
	})

	req, _ := http.NewRequest("GET", "/api/uploader/v1/queue/"+entries[0].ID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req, _ = http.NewRequest("GET", "/api/uploader/v1/queue/bogus", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req, _ = http.NewRequest("GET", "/api/uploader/v1/queue", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), entries[0].ID)
}

func TestHandleRemoveRealignsQueue(t *testing.T) {
	router, svc := setupRouter(t)
	entries := svc.Enqueue([]types.RawFile{
		types.NewRawFileFromBytes("a.txt", "text/plain", time.Now(), []byte("abc")),
		types.NewRawFileFromBytes("b.txt", "text/plain", time.Now(), []byte("defg")),
	})

	req, _ := http.NewRequest("DELETE", "/api/uploader/v1/queue/"+entries[0].ID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// the remove command is asynchronous
	require.Eventually(t, func() bool {
		return svc.Registry().Len() == 1
	}, 2*time.Second, 10*time.Millisecond)

	snap := svc.Registry().Snapshot()
	assert.Equal(t, entries[1].ID, snap[0].ID)
	assert.Equal(t, 0, snap[0].Index)
}

func TestHandleUploadRequiresID(t *testing.T) {
	router, _ := setupRouter(t)
	w := postJSON(router, "/api/uploader/v1/upload", gin.H{"url": "http://example.test"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCancelRequiresID(t *testing.T) {
	router, _ := setupRouter(t)
	w := postJSON(router, "/api/uploader/v1/cancel", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
