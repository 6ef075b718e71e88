package diagnostics

import (
	"context"
	"errors"
	"testing"
	"time"

	"transcript-navigator/internal/domain"
)

// stubChecker returns a checker whose HTTP probe is scripted.
func stubChecker(status int, err error) *Checker {
	return &Checker{
		httpGet: func(context.Context, string) (int, error) {
			return status, err
		},
		timeout: time.Second,
	}
}

// TestRunAllPass verifies a healthy configuration reports no failures.
func TestRunAllPass(t *testing.T) {
	c := stubChecker(404, nil)

	report := c.Run(domain.Settings{
		ServerURL:           "http://localhost:8000",
		PollIntervalSeconds: 3,
	})

	if report.HasFailures {
		t.Fatalf("unexpected failures: %+v", report.Items)
	}
	if len(report.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(report.Items))
	}
}

// TestRunUnreachableServerFails verifies the reachability probe.
func TestRunUnreachableServerFails(t *testing.T) {
	c := stubChecker(0, errors.New("connection refused"))

	report := c.Run(domain.Settings{
		ServerURL:           "http://localhost:8000",
		PollIntervalSeconds: 3,
	})

	if !report.HasFailures {
		t.Fatal("expected reachability failure")
	}

	var found bool
	for _, item := range report.Items {
		if item.ID == "server_reachable" && item.Status == domain.DiagnosticStatusFail {
			found = true
		}
	}
	if !found {
		t.Fatalf("no server_reachable failure in %+v", report.Items)
	}
}

// TestRunRejectsBadSettings covers URL and interval validation.
func TestRunRejectsBadSettings(t *testing.T) {
	c := stubChecker(404, nil)

	report := c.Run(domain.Settings{ServerURL: "not a url", PollIntervalSeconds: 0})

	if !report.HasFailures {
		t.Fatal("expected settings failures")
	}

	failed := map[string]bool{}
	for _, item := range report.Items {
		if item.Status == domain.DiagnosticStatusFail {
			failed[item.ID] = true
		}
	}
	if !failed["server_url"] || !failed["poll_interval"] {
		t.Fatalf("failed checks = %v, want server_url and poll_interval", failed)
	}
}
