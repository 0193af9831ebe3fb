package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"mixdown/internal/api"
	"mixdown/internal/job"
	"mixdown/internal/logging"
	"mixdown/internal/testsupport"
)

func newTestServer(t *testing.T) (*httptest.Server, *Daemon) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	d, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	ts := httptest.NewServer(d.api.server.Handler)
	t.Cleanup(ts.Close)
	return ts, d
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestStatusEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	status := decodeBody[api.DaemonStatus](t, resp)
	if status.PID <= 0 {
		t.Fatalf("pid = %d", status.PID)
	}
	if status.StoreBackend != "memory" {
		t.Fatalf("backend = %q", status.StoreBackend)
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("no dependency checks reported")
	}
}

func TestListJobsEmptyAndFiltered(t *testing.T) {
	ts, d := newTestServer(t)
	ctx := context.Background()

	resp, err := http.Get(ts.URL + "/api/jobs")
	if err != nil {
		t.Fatalf("GET jobs: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	list := decodeBody[api.JobListResponse](t, resp)
	if len(list.Jobs) != 0 {
		t.Fatalf("expected empty list, got %d jobs", len(list.Jobs))
	}

	record := testsupport.MustCreateJob(t, d.Store(), "https://example.com/v")
	if _, err := d.Store().Update(ctx, record.ID, job.Patch{Status: job.StatusOf(job.StatusFailed)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	testsupport.MustCreateJob(t, d.Store(), "https://example.com/w")

	resp, err = http.Get(ts.URL + "/api/jobs?status=failed")
	if err != nil {
		t.Fatalf("GET filtered jobs: %v", err)
	}
	list = decodeBody[api.JobListResponse](t, resp)
	if len(list.Jobs) != 1 || list.Jobs[0].Status != string(job.StatusFailed) {
		t.Fatalf("filtered jobs = %+v", list.Jobs)
	}
}

func TestListJobsRejectsUnknownStatus(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/jobs?status=bogus")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	body := decodeBody[api.ErrorResponse](t, resp)
	if body.Error == "" {
		t.Fatal("error body is empty")
	}
}

func TestSubmitJobAccepted(t *testing.T) {
	ts, _ := newTestServer(t)

	payload := bytes.NewBufferString(`{"url":"https://example.com/watch?v=abc"}`)
	resp, err := http.Post(ts.URL+"/api/jobs", "application/json", payload)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	body := decodeBody[api.JobResponse](t, resp)
	if body.Job.ID != 1 || body.Job.SourceURL != "https://example.com/watch?v=abc" {
		t.Fatalf("job = %+v", body.Job)
	}
}

func TestSubmitJobValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	cases := []string{
		`{"url":"ftp://example.com/file"}`,
		`{"url":""}`,
		`{"url":"https://ok.example.com","extra":true}`,
		`not json`,
	}
	for _, body := range cases {
		resp, err := http.Post(ts.URL+"/api/jobs", "application/json", bytes.NewBufferString(body))
		if err != nil {
			t.Fatalf("POST %q: %v", body, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestBulkSubmitAllOrNothing(t *testing.T) {
	ts, d := newTestServer(t)

	payload := bytes.NewBufferString(`{"urls":["https://example.com/a","ftp://bad"]}`)
	resp, err := http.Post(ts.URL+"/api/jobs/bulk", "application/json", payload)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	records, _ := d.Store().List(context.Background())
	if len(records) != 0 {
		t.Fatalf("rejected batch persisted %d records", len(records))
	}

	payload = bytes.NewBufferString(`{"urls":["https://example.com/a","https://example.com/b"]}`)
	resp, err = http.Post(ts.URL+"/api/jobs/bulk", "application/json", payload)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	body := decodeBody[api.JobListResponse](t, resp)
	if len(body.Jobs) != 2 {
		t.Fatalf("accepted %d jobs", len(body.Jobs))
	}
}

func TestGetAndDeleteJob(t *testing.T) {
	ts, d := newTestServer(t)
	record := testsupport.MustCreateJob(t, d.Store(), "https://example.com/v")

	resp, err := http.Get(ts.URL + "/api/jobs/" + strconv.FormatInt(record.ID, 10))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[api.JobResponse](t, resp)
	if body.Job.ID != record.ID {
		t.Fatalf("job = %+v", body.Job)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/jobs/"+strconv.FormatInt(record.ID, 10), nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("second DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", resp.StatusCode)
	}
}

func TestGetUnknownJob(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/jobs/999")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/jobs/not-a-number")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDownloadArtifact(t *testing.T) {
	ts, d := newTestServer(t)
	record := testsupport.MustCreateJob(t, d.Store(), "https://example.com/v")

	sink, err := d.blobs.Create("job-1-key.mp3")
	if err != nil {
		t.Fatalf("create blob: %v", err)
	}
	if _, err := sink.Write([]byte("mp3 bytes")); err != nil {
		t.Fatalf("write blob: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close blob: %v", err)
	}
	testsupport.MustCompleteJob(t, d.Store(), record.ID, "job-1-key.mp3", "Song-1.mp3", 9)

	resp, err := http.Get(ts.URL + "/api/jobs/1/download")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "audio/mpeg" {
		t.Fatalf("content type = %q", got)
	}
	if got := resp.Header.Get("Content-Disposition"); got != `attachment; filename="Song-1.mp3"` {
		t.Fatalf("disposition = %q", got)
	}
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if buf.String() != "mp3 bytes" {
		t.Fatalf("body = %q", buf.String())
	}
}

func TestDownloadPendingJobNotFound(t *testing.T) {
	ts, d := newTestServer(t)
	testsupport.MustCreateJob(t, d.Store(), "https://example.com/v")

	resp, err := http.Get(ts.URL + "/api/jobs/1/download")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestBundleEndpoint(t *testing.T) {
	ts, d := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/download")
	if err != nil {
		t.Fatalf("GET without ids: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing ids status = %d, want 400", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/download?ids=1,2")
	if err != nil {
		t.Fatalf("GET empty bundle: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("empty bundle status = %d, want 404", resp.StatusCode)
	}

	record := testsupport.MustCreateJob(t, d.Store(), "https://example.com/v")
	sink, err := d.blobs.Create("job-1-key.mp3")
	if err != nil {
		t.Fatalf("create blob: %v", err)
	}
	if _, err := sink.Write([]byte("x")); err != nil {
		t.Fatalf("write blob: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close blob: %v", err)
	}
	testsupport.MustCompleteJob(t, d.Store(), record.ID, "job-1-key.mp3", "Song-1.mp3", 1)

	resp, err = http.Get(ts.URL + "/api/download?ids=1")
	if err != nil {
		t.Fatalf("GET bundle: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bundle status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/zip" {
		t.Fatalf("content type = %q", got)
	}
}
