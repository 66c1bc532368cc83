package tool

import (
	"crypto/tls"
	"net/http"
	"time"
)

var uploadHttpClient *http.Client

func init() {
	uploadHttpClient = NewUploadClient(true)
}

// NewUploadClient creates the HTTP client used for uploads. No Client.Timeout
// is set: the engine imposes no deadline of its own, a stalled upload runs
// until its job is cancelled.
func NewUploadClient(insecureTLS bool) *http.Client {
	transport := &http.Transport{
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: insecureTLS},
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DisableKeepAlives:   false,
	}
	return &http.Client{
		Transport: transport,
	}
}

// InitUploadClient (re)initializes the shared upload client, e.g. after the
// config decides whether endpoint certificates must verify.
func InitUploadClient(insecureTLS bool) {
	uploadHttpClient = NewUploadClient(insecureTLS)
}

func GetUploadClient() *http.Client {
	return uploadHttpClient
}
