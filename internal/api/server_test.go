// internal/api/server_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/valpere/CommentHarvester/internal/monitoring"
	"github.com/valpere/CommentHarvester/internal/scan"
	"github.com/valpere/CommentHarvester/internal/utils"
)

func quietLogger() utils.Logger {
	return utils.NewLoggerWithOutput(utils.ErrorLevel, io.Discard)
}

func setupTestServer(t *testing.T, run scan.RunFunc) (*httptest.Server, *scan.Service) {
	t.Helper()
	if run == nil {
		run = func(ctx context.Context, postURL string, sink scan.ProgressSink) scan.Result {
			<-ctx.Done()
			return scan.Result{State: scan.StateStopped}
		}
	}
	service := scan.NewService(run)
	srv := NewServer(service, monitoring.NewHealth("test", service.State), "", quietLogger())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, service
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := setupTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestStartScan(t *testing.T) {
	ts, service := setupTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/v1/scan", map[string]string{
		"post_url": "https://www.example.com/feed/update/1",
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	var start struct {
		Token   string `json:"token"`
		PostURL string `json:"post_url"`
	}
	decodeInto(t, resp, &start)
	if start.Token == "" {
		t.Error("response carried no token")
	}

	// Second start while the first runs must be rejected.
	busy := postJSON(t, ts.URL+"/api/v1/scan", map[string]string{
		"post_url": "https://www.example.com/feed/update/2",
	})
	defer busy.Body.Close()
	if busy.StatusCode != http.StatusConflict {
		t.Errorf("busy status = %d, want 409", busy.StatusCode)
	}

	service.Stop(start.Token)
}

func TestStartScan_RequiresPostURL(t *testing.T) {
	ts, _ := setupTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/v1/scan", map[string]string{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestStopScan_TokenChecked(t *testing.T) {
	ts, _ := setupTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/v1/scan", map[string]string{
		"post_url": "https://www.example.com/feed/update/1",
	})
	var start struct {
		Token string `json:"token"`
	}
	decodeInto(t, resp, &start)

	bad := postJSON(t, ts.URL+"/api/v1/scan/stop", map[string]string{"token": "wrong"})
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("wrong-token status = %d, want 400", bad.StatusCode)
	}

	good := postJSON(t, ts.URL+"/api/v1/scan/stop", map[string]string{"token": start.Token})
	defer good.Body.Close()
	if good.StatusCode != http.StatusOK {
		t.Errorf("stop status = %d, want 200", good.StatusCode)
	}
}

func TestProgressAndResults(t *testing.T) {
	done := make(chan struct{})
	run := func(ctx context.Context, postURL string, sink scan.ProgressSink) scan.Result {
		sink(scan.Progress{State: scan.StatePrimaryCollection, EmailsFound: 3})
		<-done
		return scan.Result{State: scan.StateComplete, CommentsScanned: 12}
	}
	ts, service := setupTestServer(t, run)

	resp := postJSON(t, ts.URL+"/api/v1/scan", map[string]string{
		"post_url": "https://www.example.com/feed/update/1",
	})
	var start struct {
		Token string `json:"token"`
	}
	decodeInto(t, resp, &start)

	// Valid token but no completed scan yet.
	notReady, err := http.Get(ts.URL + "/api/v1/scan/results?token=" + start.Token)
	if err != nil {
		t.Fatalf("results request failed: %v", err)
	}
	notReady.Body.Close()
	if notReady.StatusCode != http.StatusNotFound {
		t.Errorf("results-before-completion status = %d, want 404", notReady.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && service.Progress().EmailsFound != 3 {
		time.Sleep(5 * time.Millisecond)
	}
	progressReq, _ := http.NewRequest("GET", ts.URL+"/api/v1/scan/progress", nil)
	progressReq.Header.Set("X-Scan-Token", start.Token)
	progressResp, err := http.DefaultClient.Do(progressReq)
	if err != nil {
		t.Fatalf("progress request failed: %v", err)
	}
	var progress scan.Progress
	decodeInto(t, progressResp, &progress)
	if progress.EmailsFound != 3 {
		t.Errorf("progress.EmailsFound = %d, want 3", progress.EmailsFound)
	}

	close(done)
	for time.Now().Before(deadline) {
		if _, ok := service.Result(); ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	resultResp, err := http.Get(ts.URL + "/api/v1/scan/results?token=" + start.Token)
	if err != nil {
		t.Fatalf("results request failed: %v", err)
	}
	var result scan.Result
	decodeInto(t, resultResp, &result)
	if result.State != scan.StateComplete || result.CommentsScanned != 12 {
		t.Errorf("result = %+v", result)
	}
}

func TestProgressAndResults_TokenChecked(t *testing.T) {
	ts, _ := setupTestServer(t, nil)

	// Before any scan there is no token to match.
	noScan, err := http.Get(ts.URL + "/api/v1/scan/progress?token=whatever")
	if err != nil {
		t.Fatalf("progress request failed: %v", err)
	}
	noScan.Body.Close()
	if noScan.StatusCode != http.StatusConflict {
		t.Errorf("progress-before-scan status = %d, want 409", noScan.StatusCode)
	}

	resp := postJSON(t, ts.URL+"/api/v1/scan", map[string]string{
		"post_url": "https://www.example.com/feed/update/1",
	})
	var start struct {
		Token string `json:"token"`
	}
	decodeInto(t, resp, &start)

	tests := []struct {
		name string
		path string
	}{
		{"progress", "/api/v1/scan/progress"},
		{"results", "/api/v1/scan/results"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			missing, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			missing.Body.Close()
			if missing.StatusCode != http.StatusBadRequest {
				t.Errorf("missing-token status = %d, want 400", missing.StatusCode)
			}

			wrong, err := http.Get(ts.URL + tt.path + "?token=wrong")
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			wrong.Body.Close()
			if wrong.StatusCode != http.StatusBadRequest {
				t.Errorf("wrong-token status = %d, want 400", wrong.StatusCode)
			}
		})
	}
}
