// Package integration exercises a running picasso server over HTTP and
// gRPC. The tests skip unless PICASSO_SERVER_URL is set, e.g.
//
//	picasso serve &
//	PICASSO_SERVER_URL=http://localhost:8787 go test ./test/integration/...
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// testServer holds the base URL of a running picasso instance.
var testServer = os.Getenv("PICASSO_SERVER_URL")

var programCounter atomic.Int64

func requireServer(t *testing.T) {
	t.Helper()
	if testServer == "" {
		t.Skip("PICASSO_SERVER_URL not set; skipping live-server test")
	}
	if !strings.HasPrefix(testServer, "http://") && !strings.HasPrefix(testServer, "https://") {
		testServer = "http://" + testServer
	}
}

// serverURL builds a full URL for the given path.
func serverURL(path string) string {
	return strings.TrimRight(testServer, "/") + path
}

// uniqueID returns a program ID that will not collide across tests or runs.
func uniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano()%1_000_000, programCounter.Add(1))
}

// doJSON sends a JSON request and decodes the JSON response.
func doJSON(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, serverURL(path), r)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("%s %s: decoding %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, out
}

// createProgram deploys source under a fresh ID, deleting it when the test
// ends.
func createProgram(t *testing.T, prefix, source string) string {
	t.Helper()
	id := uniqueID(prefix)
	code, body := doJSON(t, "POST", "/v1/programs?programId="+id, map[string]string{"source": source})
	if code != http.StatusOK {
		t.Fatalf("createProgram failed with status %d: %v", code, body)
	}
	t.Cleanup(func() {
		doJSON(t, "DELETE", "/v1/programs/"+id, nil)
	})
	return id
}

// waitForRender polls a render until it leaves the ACTIVE state.
func waitForRender(t *testing.T, program, id string, timeout time.Duration) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		code, body := doJSON(t, "GET", "/v1/programs/"+program+"/renders/"+id, nil)
		if code != http.StatusOK {
			t.Fatalf("get render: status %d: %v", code, body)
		}
		if body["state"] != "ACTIVE" {
			return body
		}
		if time.Now().After(deadline) {
			t.Fatalf("render %s did not finish within %s", id, timeout)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
