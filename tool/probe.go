package tool

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// DefaultProbeTimeout bounds a single endpoint reachability check.
var DefaultProbeTimeout = 3 * time.Second

// ProbeEndpoint pings the host of an upload endpoint once and returns the
// round-trip time. target may be a full URL or a bare host. Used as a
// pre-flight check before batch uploads; failure means unreachable, not that
// the upload itself would fail.
func ProbeEndpoint(target string, timeout time.Duration) (time.Duration, error) {
	host := target
	if strings.Contains(target, "://") {
		u, err := url.Parse(target)
		if err != nil {
			return 0, fmt.Errorf("invalid probe target: %v", err)
		}
		host = u.Hostname()
	}
	if host == "" {
		return 0, fmt.Errorf("probe target has no host")
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	pinger, err := probing.NewPinger(host)
	if err != nil {
		return 0, fmt.Errorf("failed to create pinger: %v", err)
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(false) // UDP ping, no raw socket capability needed

	if err := pinger.Run(); err != nil {
		return 0, fmt.Errorf("probe failed: %v", err)
	}
	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, fmt.Errorf("host %s unreachable within %s", host, timeout)
	}
	return stats.AvgRtt, nil
}
