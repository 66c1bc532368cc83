package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/mizuha/uploadq-go/tool"
)

// Tick is one upload-progress notification from the transport layer.
type Tick struct {
	BytesLoaded int64
	BytesTotal  int64
	TotalKnown  bool
}

// ProgressFunc receives ticks while the request body is being sent. It is
// called from the goroutine driving the request.
type ProgressFunc func(Tick)

// Request describes a single whole-file upload attempt.
type Request struct {
	URL         string
	Method      string // defaults to POST
	ContentType string
	Body        io.Reader
	Size        int64 // -1 when unknown
	OnProgress  ProgressFunc
}

// Transport issues one HTTP upload per Send call. Aborting is done through
// the context: implementations must stop sending and return promptly once it
// is cancelled, releasing the network handle on every exit path.
type Transport interface {
	Send(ctx context.Context, req *Request) error
}

// HTTPTransport is the default Transport on net/http. Progress is measured
// by counting the bytes the client reads from the request body; ticks are
// throttled per request, except the final one which always fires.
type HTTPTransport struct {
	client       *http.Client
	ticksPerSec  float64
	disableLimit bool
}

// NewHTTPTransport uses the shared upload client and the given tick rate.
// ticksPerSec <= 0 disables throttling.
func NewHTTPTransport(ticksPerSec float64) *HTTPTransport {
	return &HTTPTransport{
		client:       tool.GetUploadClient(),
		ticksPerSec:  ticksPerSec,
		disableLimit: ticksPerSec <= 0,
	}
}

// NewHTTPTransportWithClient is the injectable variant for tests.
func NewHTTPTransportWithClient(client *http.Client, ticksPerSec float64) *HTTPTransport {
	return &HTTPTransport{
		client:       client,
		ticksPerSec:  ticksPerSec,
		disableLimit: ticksPerSec <= 0,
	}
}

func (t *HTTPTransport) Send(ctx context.Context, req *Request) error {
	if req == nil || req.URL == "" {
		return fmt.Errorf("invalid parameters: request and URL must not be empty")
	}
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	body := req.Body
	if req.OnProgress != nil {
		pr := &progressReader{
			r:          req.Body,
			total:      req.Size,
			totalKnown: req.Size >= 0,
			onProgress: req.OnProgress,
		}
		if !t.disableLimit {
			pr.limiter = rate.NewLimiter(rate.Limit(t.ticksPerSec), 1)
		}
		body = pr
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %v", err)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if req.Size >= 0 {
		httpReq.ContentLength = req.Size
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		// Abort via context must surface as the context error, not a
		// transport failure.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to send upload request: %v", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
		}
	}()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("upload request failed: %s", resp.Status)
	}
	return nil
}

// progressReader counts bytes as the HTTP client consumes the request body
// and reports them as upload-progress ticks.
type progressReader struct {
	r          io.Reader
	loaded     int64
	total      int64
	totalKnown bool
	onProgress ProgressFunc
	limiter    *rate.Limiter
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.loaded += int64(n)
		final := p.totalKnown && p.loaded >= p.total
		if final || p.limiter == nil || p.limiter.Allow() {
			p.onProgress(Tick{
				BytesLoaded: p.loaded,
				BytesTotal:  p.total,
				TotalKnown:  p.totalKnown,
			})
		}
	}
	return n, err
}
