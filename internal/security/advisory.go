package security

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// AdvisoryOutcome classifies one advisory lookup. Modelling the
// transient-failure case as its own value keeps the degrade-to-local-
// heuristics branch explicit and testable instead of a swallowed error.
type AdvisoryOutcome int

const (
	// AdvisoryHit: the service returned a threat record.
	AdvisoryHit AdvisoryOutcome = iota
	// AdvisoryMiss: the service answered and found nothing wrong.
	AdvisoryMiss
	// AdvisoryUnavailable: transport failure, timeout, or a malformed
	// response. The caller falls back to local analysis.
	AdvisoryUnavailable
)

// AdvisoryClient queries the external URL-scoring service. It is the
// only component in the pipeline that performs network I/O, and every
// call is bounded by the configured timeout.
type AdvisoryClient struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
}

// DefaultAdvisoryTimeout bounds a single advisory lookup.
const DefaultAdvisoryTimeout = 3 * time.Second

// NewAdvisoryClient returns a client posting lookups to endpoint. A
// non-positive timeout falls back to DefaultAdvisoryTimeout.
func NewAdvisoryClient(endpoint string, timeout time.Duration) *AdvisoryClient {
	if timeout <= 0 {
		timeout = DefaultAdvisoryTimeout
	}
	return &AdvisoryClient{
		endpoint:   endpoint,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Lookup asks the advisory service to classify url. The request body is
// {"content": "<url>"}; a 200 response decodes into a Threat that is
// used verbatim, a 204 means the service found nothing. Any failure —
// connect error, timeout, non-2xx status, undecodable body — is
// reported as AdvisoryUnavailable and never as an error: advisory
// outages must not break scanning.
func (c *AdvisoryClient) Lookup(ctx context.Context, url string) (Threat, AdvisoryOutcome) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"content": url})
	if err != nil {
		return Threat{}, AdvisoryUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		log.Printf("[advisory] build request failed: %v", err)
		return Threat{}, AdvisoryUnavailable
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[advisory] lookup failed for %q: %v (degrading to local analysis)", url, err)
		return Threat{}, AdvisoryUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return Threat{}, AdvisoryMiss
	case resp.StatusCode != http.StatusOK:
		log.Printf("[advisory] unexpected status %d for %q (degrading to local analysis)", resp.StatusCode, url)
		return Threat{}, AdvisoryUnavailable
	}

	var threat Threat
	if err := json.NewDecoder(resp.Body).Decode(&threat); err != nil {
		log.Printf("[advisory] decode failed for %q: %v (degrading to local analysis)", url, err)
		return Threat{}, AdvisoryUnavailable
	}
	if threat.Type == "" {
		// Well-formed 200 with an empty record: treat as a miss.
		return Threat{}, AdvisoryMiss
	}
	return threat, AdvisoryHit
}
