// Package transcribe talks to the remote transcription job API:
// idempotent submission and fixed-interval polling until a terminal
// status, per the contract in the server's /transcribe and /status
// endpoints.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"transcript-navigator/internal/domain"
)

// DefaultPollInterval is the fixed delay between status polls.
const DefaultPollInterval = 3 * time.Second

// SubmitResponse is the outcome of a job submission. Conflict marks
// the 409 case: the filename already has an active job and JobID
// identifies it; the caller resumes polling that job instead of
// treating the submission as a failure.
type SubmitResponse struct {
	JobID    string
	Filename string
	Message  string
	Conflict bool
}

// Update is one element of the lazy snapshot sequence produced by
// Watch. Exactly one of Job or Err is meaningful per element; an
// element with Err set is the last one.
type Update struct {
	Job domain.TranscriptionJob
	Err error
}

// Client submits transcription jobs and polls their status.
type Client struct {
	baseURL  string
	http     *http.Client
	interval time.Duration
	log      zerolog.Logger
}

// NewClient creates a job client for the given server base URL. A
// non-positive interval falls back to DefaultPollInterval.
func NewClient(baseURL string, interval time.Duration, log zerolog.Logger) *Client {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		interval: interval,
		log:      log,
	}
}

// Submit uploads audio as multipart field audio_file. A 202 accepts a
// new job; a 409 resolves to the existing job for the filename. Any
// other response is a *TransportError. Submission is never retried.
func (c *Client) Submit(ctx context.Context, filename string, audio io.Reader) (SubmitResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio_file", filename)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return SubmitResponse{}, fmt.Errorf("copy audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return SubmitResponse{}, fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &buf)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return SubmitResponse{}, &TransportError{Op: "submit", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return SubmitResponse{}, &TransportError{Op: "submit", Err: err}
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		var accepted struct {
			JobID    string `json:"job_id"`
			Filename string `json:"filename"`
			Message  string `json:"message"`
		}
		if err := json.Unmarshal(body, &accepted); err != nil {
			return SubmitResponse{}, &TransportError{Op: "submit", Err: fmt.Errorf("decode 202 body: %w", err)}
		}

		c.log.Info().Str("filename", filename).Str("job_id", accepted.JobID).Msg("job accepted")
		return SubmitResponse{JobID: accepted.JobID, Filename: accepted.Filename, Message: accepted.Message}, nil

	case http.StatusConflict:
		var conflict struct {
			Error string `json:"error"`
			JobID string `json:"job_id"`
		}
		if err := json.Unmarshal(body, &conflict); err != nil {
			return SubmitResponse{}, &TransportError{Op: "submit", Err: fmt.Errorf("decode 409 body: %w", err)}
		}

		c.log.Info().Str("filename", filename).Str("job_id", conflict.JobID).Msg("resuming existing job")
		return SubmitResponse{JobID: conflict.JobID, Filename: filename, Conflict: true}, nil

	default:
		return SubmitResponse{}, &TransportError{Op: "submit", StatusCode: resp.StatusCode}
	}
}

// Watch polls /status/{filename} at the fixed interval and sends each
// observed snapshot until the job reaches a terminal status, a fatal
// poll failure occurs, or ctx is cancelled. The returned channel is
// closed when the sequence ends.
//
// A 404 is the job not being visible yet: transient, never an error,
// the loop continues silently. Any other failure ends the sequence
// with exactly one error element; there is no automatic retry. A
// complete status with a payload failing shape validation ends the
// sequence with a *MalformedResultError.
func (c *Client) Watch(ctx context.Context, filename string) <-chan Update {
	updates := make(chan Update)

	go func() {
		defer close(updates)

		tick := time.NewTicker(c.interval)
		defer tick.Stop()

		for {
			snapshot, found, err := c.fetchStatus(ctx, filename)
			if err != nil {
				c.send(ctx, updates, Update{Err: err})
				return
			}

			if found {
				if snapshot.Status == domain.JobStatusComplete {
					if verr := domain.ValidateResult(snapshot.Result); verr != nil {
						c.send(ctx, updates, Update{Err: &MalformedResultError{Reason: verr}})
						return
					}
				}

				if !c.send(ctx, updates, Update{Job: snapshot}) {
					return
				}
				if snapshot.Status.Terminal() {
					c.log.Info().Str("filename", filename).Str("status", string(snapshot.Status)).Msg("job reached terminal status")
					return
				}
			} else {
				c.log.Debug().Str("filename", filename).Msg("job not visible yet")
			}

			select {
			case <-ctx.Done():
				return
			case <-tick.C:
			}
		}
	}()

	return updates
}

// fetchStatus performs one status poll. found=false means 404.
func (c *Client) fetchStatus(ctx context.Context, filename string) (domain.TranscriptionJob, bool, error) {
	endpoint := c.baseURL + "/status/" + url.PathEscape(filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.TranscriptionJob{}, false, &TransportError{Op: "poll", Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.TranscriptionJob{}, false, ctx.Err()
		}
		return domain.TranscriptionJob{}, false, &TransportError{Op: "poll", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var job domain.TranscriptionJob
		if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
			return domain.TranscriptionJob{}, false, &TransportError{Op: "poll", Err: fmt.Errorf("decode status body: %w", err)}
		}
		return job, true, nil
	case http.StatusNotFound:
		return domain.TranscriptionJob{}, false, nil
	default:
		return domain.TranscriptionJob{}, false, &TransportError{Op: "poll", StatusCode: resp.StatusCode}
	}
}

// send delivers one update unless the watcher was cancelled.
func (c *Client) send(ctx context.Context, updates chan<- Update, u Update) bool {
	select {
	case <-ctx.Done():
		return false
	case updates <- u:
		return true
	}
}
