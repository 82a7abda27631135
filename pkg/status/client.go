package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const fetchTimeout = 5 * time.Second

// Fetch reads the /status endpoint of a running bot. baseURL is either a full
// URL or a host:port.
func Fetch(ctx context.Context, baseURL string) (Response, error) {
	url := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}
	url += "/status"

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{}, fmt.Errorf("build status request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Response{}, fmt.Errorf("decode status response: %w", err)
	}

	return payload, nil
}
