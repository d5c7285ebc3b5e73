package health_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wanctl/wanctl/pkg/health"
)

type fakeProvider struct {
	snap health.Snapshot
}

func (f fakeProvider) HealthSnapshot() health.Snapshot {
	return f.snap
}

func newTestServer(snap health.Snapshot) *httptest.Server {
	s := health.New("127.0.0.1:0", "test", fakeProvider{snap: snap}, nil)
	return httptest.NewServer(s.Handler())
}

func TestHandleHealth_HealthyReturns200(t *testing.T) {
	srv := newTestServer(health.Snapshot{WANCount: 1})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var got health.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", got.Status)
	}
}

func TestHandleHealth_DegradedReturns503(t *testing.T) {
	srv := newTestServer(health.Snapshot{ConsecutiveFailures: 3})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestNotFound_ReturnsJSONError(t *testing.T) {
	srv := newTestServer(health.Snapshot{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/nonexistent")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["error"] != "Not found" {
		t.Errorf("body = %v, want error=Not found", body)
	}
}
