package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"gotemper/domain/mcmc"
)

func TestStatusEndpoint(t *testing.T) {
	reg := NewRegistry()
	tracker := reg.Register("run-1", "demo")
	tracker.SetPhase("Sampling")
	tracker.SetTotal(128)
	for i := 0; i < 32; i++ {
		tracker.Step()
	}
	tracker.Annotate(map[string]float64{"accept": 0.31})

	srv := httptest.NewServer(NewRouter(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/runs/run-1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var status RunStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.ID != "run-1" || status.Label != "demo" {
		t.Errorf("unexpected identity: %+v", status)
	}
	if status.Phase != "Sampling" || status.Current != 32 || status.Total != 128 {
		t.Errorf("unexpected progress: %+v", status)
	}
	if status.Done {
		t.Error("run must not be marked done while sampling")
	}
	if status.Annotations["accept"] != 0.31 {
		t.Errorf("annotation lost: %+v", status.Annotations)
	}
}

func TestStatusEndpoint_UnknownRun(t *testing.T) {
	srv := httptest.NewServer(NewRouter(NewRegistry()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/runs/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestReportEndpoint_IncludesChainOnceFinished(t *testing.T) {
	reg := NewRegistry()
	tracker := reg.Register("run-2", "box")
	tracker.SetPhase("Checking")
	tracker.Finish()
	tracker.SetResult(&mcmc.RunResult{
		ID:         uuid.New(),
		Label:      "box",
		Ndim:       2,
		Nwalkers:   8,
		Ntemps:     4,
		Iterations: 192,
		ACL:        3,
		AcceptMean: 0.27,
		Samples:    [][]float64{{0.1, 0.2}, {0.3, 0.4}},
		CreatedAt:  time.Now().UTC(),
	})

	srv := httptest.NewServer(NewRouter(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/runs/run-2/report")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected an HTML report, got %q", ct)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	body := string(raw)
	if !strings.Contains(body, "box") {
		t.Errorf("report missing run label: %q", body)
	}
	if !strings.Contains(body, "finished") {
		t.Errorf("report missing finished state: %q", body)
	}
	if !strings.Contains(body, "<table>") {
		t.Errorf("report missing chain table: %q", body)
	}
}
