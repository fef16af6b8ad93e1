package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/wafermap/pkg/pipeline"
)

// testProblem routes a horizontal bus to its neighbour and gives one line
// two drivers.
const testProblem = `
[routing]
source = 0

[[routing.buses]]
id = 0
x = 0
y = 0
orientation = "horizontal"

[[routing.buses]]
id = 1
x = 1
y = 0
orientation = "horizontal"

[[routing.links]]
from = 0
to = 1

[[routing.targets]]
x = 1
y = 0
orientation = "horizontal"

[[drivers.requests]]
line = 3
drivers = 2
synapses = 10
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard)
	srv := httptest.NewServer(newServer(pipeline.NewRunner(nil, nil, logger), logger, 10*time.Second).routes())
	t.Cleanup(srv.Close)
	return srv
}

func TestServeHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestServeVersion(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/version")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["version"] == "" || body["go_version"] == "" {
		t.Errorf("version body = %v", body)
	}
}

func TestServeRun(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"ok", "", testProblem, http.StatusOK, ""},
		{"override", "?exclusiveness=global&max_chain=1", testProblem, http.StatusOK, ""},
		{"bad problem", "", "[routing", http.StatusBadRequest, "INVALID_PROBLEM"},
		{"bad exclusiveness", "?exclusiveness=sometimes", testProblem, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad max chain", "?max_chain=x", testProblem, http.StatusBadRequest, "INVALID_INPUT"},
	}

	srv := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/v1/run"+tt.query, "application/toml", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantCode != "" {
				var body errorBody
				if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
					t.Fatal(err)
				}
				if body.Code != tt.wantCode || body.Error == "" {
					t.Errorf("error body = %+v, want code %s", body, tt.wantCode)
				}
				return
			}

			var res pipeline.Result
			if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
				t.Fatal(err)
			}
			if res.RunID == "" || res.Stats.Reached != 1 {
				t.Errorf("result = %+v", res)
			}
			if len(res.Drivers) != 1 || res.Stats.DriversAssigned == 0 {
				t.Errorf("drivers = %+v", res.Drivers)
			}
		})
	}
}

func TestServeRender(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantStatus  int
		wantType    string
		wantContent string
	}{
		{"dot", "?format=dot", http.StatusOK, "text/vnd.graphviz", "digraph"},
		{"detailed dot", "?format=dot&detailed=true", http.StatusOK, "text/vnd.graphviz", "HICANN(1,0)"},
		{"svg", "?format=svg", http.StatusOK, "image/svg+xml", "<svg"},
		{"default svg", "", http.StatusOK, "image/svg+xml", "<svg"},
		{"unknown format", "?format=png", http.StatusBadRequest, "application/json", "INVALID_FORMAT"},
	}

	srv := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/v1/render"+tt.query, "application/toml", strings.NewReader(testProblem))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if got := resp.Header.Get("Content-Type"); got != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", got, tt.wantType)
			}
			data, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(data), tt.wantContent) {
				t.Errorf("body missing %q:\n%s", tt.wantContent, data)
			}
		})
	}
}

func TestServeMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/run")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}
