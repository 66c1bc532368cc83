package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mizuha/uploadq-go/dispatch"
	"github.com/mizuha/uploadq-go/tool"
	"github.com/mizuha/uploadq-go/types"
)

// TransferController turns HTTP requests into dispatcher commands. Commands
// are asynchronous: the response acknowledges acceptance, outcomes arrive on
// the event stream.
type TransferController struct {
	service *dispatch.Service
}

func NewTransferController(service *dispatch.Service) *TransferController {
	return &TransferController{
		service: service,
	}
}

type UploadRequest struct {
	ID        string `json:"id,omitempty"`
	FileIndex *int   `json:"fileIndex,omitempty"`
	URL       string `json:"url,omitempty"`
	Method    string `json:"method,omitempty"`
}

type UploadAllRequest struct {
	URL    string `json:"url,omitempty"`
	Method string `json:"method,omitempty"`
}

type CancelRequest struct {
	ID string `json:"id" binding:"required"`
}

// HandleUpload starts one entry's upload.
// POST /api/uploader/v1/upload
func (ctrl *TransferController) HandleUpload(c *gin.Context) {
	var request UploadRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if request.ID == "" && request.FileIndex == nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Either id or fileIndex is required"))
		return
	}
	ctrl.service.Commands() <- types.Command{
		Type:      types.CommandUploadFile,
		ID:        request.ID,
		FileIndex: request.FileIndex,
		URL:       request.URL,
		Method:    request.Method,
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// HandleUploadAll starts an independent upload for every queued entry.
// POST /api/uploader/v1/upload-all
func (ctrl *TransferController) HandleUploadAll(c *gin.Context) {
	var request UploadAllRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	ctrl.service.Commands() <- types.Command{
		Type:   types.CommandUploadAll,
		URL:    request.URL,
		Method: request.Method,
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// HandleCancel aborts one transfer. Unknown ids are a no-op, so the
// response is always an acknowledgement.
// POST /api/uploader/v1/cancel
func (ctrl *TransferController) HandleCancel(c *gin.Context) {
	var request CancelRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing parameters"))
		return
	}
	tool.DefaultLogger.Infof("[Cancel] Received cancel request: id=%s", request.ID)
	ctrl.service.Commands() <- types.Command{Type: types.CommandCancel, ID: request.ID}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// HandleCancelAll aborts every active transfer and empties the queue.
// POST /api/uploader/v1/cancel-all
func (ctrl *TransferController) HandleCancelAll(c *gin.Context) {
	tool.DefaultLogger.Info("[Cancel] Received cancel-all request")
	ctrl.service.Commands() <- types.Command{Type: types.CommandCancelAll}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// HandleProbe checks that an upload endpoint host answers ICMP before a
// batch is issued.
// GET /api/uploader/v1/probe?target=
func (ctrl *TransferController) HandleProbe(c *gin.Context) {
	target := c.Query("target")
	if target == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing parameters"))
		return
	}
	rtt, err := tool.ProbeEndpoint(target, tool.DefaultProbeTimeout)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, tool.FastReturnError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{
		"target": target,
		"rttMs":  rtt.Milliseconds(),
	}))
}
