package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"sync"
	"time"
)

// Import job statuses. COMPLETED and FAILED are terminal.
const (
	JobPending    = "PENDING"
	JobProcessing = "PROCESSING"
	JobCompleted  = "COMPLETED"
	JobFailed     = "FAILED"
)

// defaultPollInterval is the fixed job polling cadence.
const defaultPollInterval = 2 * time.Second

// ImportJob is one asynchronous Excel ingestion run.
type ImportJob struct {
	ID            string `json:"id"`
	VersionID     string `json:"version_id"`
	FileName      string `json:"file_name"`
	Country       string `json:"country"`
	Status        string `json:"status"`
	TotalRows     int    `json:"total_rows"`
	ProcessedRows int    `json:"processed_rows"`
	ErrorDetail   string `json:"error_detail"`
}

// Terminal reports whether polling should stop.
func (j ImportJob) Terminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

// UploadExcel posts an xlsx catalog sheet for ingestion into a PENDING
// version and returns the job to poll.
func (c *Client) UploadExcel(ctx context.Context, versionID, filename string, r io.Reader, country string) (*ImportJob, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if err := writer.WriteField("country", country); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	path := "/api/staging/versions/" + versionID + "/upload"
	raw, err := c.send(ctx, "POST", path, &buf, writer.FormDataContentType())
	if err != nil {
		return nil, fmt.Errorf("upload excel: %w", err)
	}
	c.cache.Clear()

	var payload struct {
		Job ImportJob `json:"job"`
	}
	if err := decodeData(raw, &payload); err != nil {
		return nil, err
	}
	return &payload.Job, nil
}

// GetJob polls one job's status. Bypasses the cache — polling wants fresh
// state every tick.
func (c *Client) GetJob(ctx context.Context, jobID string) (*ImportJob, error) {
	raw, err := c.roundTrip(ctx, "GET", "/api/staging/jobs/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	var job ImportJob
	if err := decodeData(raw, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// JobPoller polls one import job on a fixed interval until it reaches a
// terminal state, the context dies, or Stop is called.
type JobPoller struct {
	client   *Client
	jobID    string
	interval time.Duration

	// OnUpdate receives every successfully fetched snapshot, terminal
	// included. Optional.
	OnUpdate func(ImportJob)

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// NewJobPoller builds a poller with the standard 2s cadence.
func (c *Client) NewJobPoller(jobID string) *JobPoller {
	return &JobPoller{
		client:   c,
		jobID:    jobID,
		interval: defaultPollInterval,
	}
}

// Start begins polling in a new goroutine and returns immediately. The
// returned channel yields the terminal job snapshot (or closes on
// cancellation/error).
func (p *JobPoller) Start(ctx context.Context) <-chan ImportJob {
	p.mu.Lock()
	defer p.mu.Unlock()

	done := make(chan ImportJob, 1)
	if p.running {
		close(done)
		return done
	}

	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	go func() {
		defer close(done)
		defer func() {
			p.mu.Lock()
			p.running = false
			p.mu.Unlock()
		}()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
			}

			job, err := p.client.GetJob(pollCtx, p.jobID)
			if err != nil {
				// transient failures: keep polling; the next tick retries
				continue
			}
			if p.OnUpdate != nil {
				p.OnUpdate(*job)
			}
			if job.Terminal() {
				done <- *job
				return
			}
		}
	}()

	return done
}

// Stop cancels the poll loop. Idempotent.
func (p *JobPoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}
