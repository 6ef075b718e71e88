// Package diagnostics validates the settings and the transcription
// server connection at startup and on demand.
package diagnostics

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"transcript-navigator/internal/domain"
)

// Checker validates settings values and remote service reachability.
type Checker struct {
	httpGet func(ctx context.Context, url string) (int, error)
	timeout time.Duration
}

// NewChecker builds a checker using a real HTTP client.
func NewChecker() *Checker {
	client := &http.Client{Timeout: 5 * time.Second}
	return &Checker{
		httpGet: func(ctx context.Context, target string) (int, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
			if err != nil {
				return 0, err
			}
			resp, err := client.Do(req)
			if err != nil {
				return 0, err
			}
			resp.Body.Close()
			return resp.StatusCode, nil
		},
		timeout: 5 * time.Second,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkServerURL(settings.ServerURL),
		c.checkServerReachable(settings.ServerURL),
		c.checkPollInterval(settings.PollIntervalSeconds),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkServerURL verifies the configured base URL parses.
func (c *Checker) checkServerURL(raw string) domain.DiagnosticItem {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return domain.DiagnosticItem{
			ID:      "server_url",
			Name:    "Server URL",
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Invalid server URL: %q", raw),
			Hint:    "Set a full base URL like http://localhost:8000 in settings.",
		}
	}

	return domain.DiagnosticItem{
		ID:      "server_url",
		Name:    "Server URL",
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Using %s", raw),
	}
}

// checkServerReachable probes the status endpoint. A 404 counts as
// reachable: it is the server's normal answer for an unknown filename.
func (c *Checker) checkServerReachable(baseURL string) domain.DiagnosticItem {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	status, err := c.httpGet(ctx, baseURL+"/status/__diagnostics__")
	if err != nil {
		return domain.DiagnosticItem{
			ID:      "server_reachable",
			Name:    "Transcription server",
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Server not reachable: %v", err),
			Hint:    "Start the transcription server (or the bundled devserver) and check the URL in settings.",
		}
	}

	return domain.DiagnosticItem{
		ID:      "server_reachable",
		Name:    "Transcription server",
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Reachable (status %d)", status),
	}
}

// checkPollInterval sanity-checks the poll cadence.
func (c *Checker) checkPollInterval(seconds float64) domain.DiagnosticItem {
	if seconds <= 0 {
		return domain.DiagnosticItem{
			ID:      "poll_interval",
			Name:    "Poll interval",
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Poll interval must be positive, got %v", seconds),
			Hint:    "Use the default of 3 seconds unless the server suggests otherwise.",
		}
	}

	return domain.DiagnosticItem{
		ID:      "poll_interval",
		Name:    "Poll interval",
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Polling every %vs", seconds),
	}
}
