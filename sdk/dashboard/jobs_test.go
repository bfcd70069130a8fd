package dashboard

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadExcel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/staging/versions/v1/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "KR", r.FormValue("country"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "catalog.xlsx", header.Filename)
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "sheet-bytes", string(content))

		writeEnvelope(w, http.StatusAccepted, map[string]any{
			"job_id": "job-1",
			"job":    ImportJob{ID: "job-1", VersionID: "v1", Status: JobPending, TotalRows: 40},
		}, "")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, managerSession())
	job, err := c.UploadExcel(context.Background(), "v1", "catalog.xlsx", strings.NewReader("sheet-bytes"), "KR")
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, JobPending, job.Status)
	assert.Equal(t, 40, job.TotalRows)
}

func TestJobPoller_StopsOnTerminal(t *testing.T) {
	var polls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&polls, 1)
		job := ImportJob{ID: "job-1", Status: JobProcessing, TotalRows: 100, ProcessedRows: int(n) * 25}
		if n >= 3 {
			job.Status = JobCompleted
			job.ProcessedRows = 100
		}
		writeEnvelope(w, http.StatusOK, job, "")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, managerSession())
	poller := c.NewJobPoller("job-1")
	poller.interval = 10 * time.Millisecond

	var updates int64
	poller.OnUpdate = func(ImportJob) { atomic.AddInt64(&updates, 1) }

	select {
	case final, ok := <-poller.Start(context.Background()):
		require.True(t, ok)
		assert.Equal(t, JobCompleted, final.Status)
		assert.Equal(t, 100, final.ProcessedRows)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not finish")
	}

	// No more polls after the terminal snapshot.
	settled := atomic.LoadInt64(&polls)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, settled, atomic.LoadInt64(&polls))
	assert.EqualValues(t, settled, atomic.LoadInt64(&updates))
}

func TestJobPoller_SurvivesTransientErrors(t *testing.T) {
	var polls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&polls, 1)
		if n == 1 {
			writeEnvelope(w, http.StatusInternalServerError, nil, "hiccup")
			return
		}
		writeEnvelope(w, http.StatusOK, ImportJob{ID: "job-1", Status: JobFailed, ErrorDetail: "row 7: bad price"}, "")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, managerSession())
	poller := c.NewJobPoller("job-1")
	poller.interval = 10 * time.Millisecond

	select {
	case final := <-poller.Start(context.Background()):
		assert.Equal(t, JobFailed, final.Status)
		assert.Contains(t, final.ErrorDetail, "row 7")
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not recover from the failed poll")
	}
	assert.GreaterOrEqual(t, atomic.LoadInt64(&polls), int64(2))
}

func TestJobPoller_Stop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, ImportJob{ID: "job-1", Status: JobProcessing}, "")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, managerSession())
	poller := c.NewJobPoller("job-1")
	poller.interval = 10 * time.Millisecond

	done := poller.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	poller.Stop()
	poller.Stop() // idempotent

	select {
	case _, ok := <-done:
		assert.False(t, ok, "a stopped poller closes its channel without a snapshot")
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestImportJob_Terminal(t *testing.T) {
	assert.False(t, ImportJob{Status: JobPending}.Terminal())
	assert.False(t, ImportJob{Status: JobProcessing}.Terminal())
	assert.True(t, ImportJob{Status: JobCompleted}.Terminal())
	assert.True(t, ImportJob{Status: JobFailed}.Terminal())
}
