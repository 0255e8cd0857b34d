//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

const repoRootRel = ".." // relative to ./e2e

const (
	serverPkgRel = "./cmd/server"
	toolsPkgRel  = "./cmd/tools"
)

const stationsCSV = `station,name,latitude,longitude,elevation
USC001,ONE,21.2716,-157.8168,3.0
USC002,TWO,21.4234,-157.8015,14.6
`

const measurementsCSV = `station,date,prcp,tobs
USC001,2017-08-23,0.0,79
USC001,2016-08-23,0.1,77
USC002,2016-08-22,,70
`

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}

	return repo
}

func buildBinary(t *testing.T, repoRoot, pkg, name string) string {
	t.Helper()

	out := filepath.Join(t.TempDir(), name)

	build := exec.Command("go", "build", "-o", out, pkg)
	build.Dir = repoRoot
	build.Env = os.Environ()

	b, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build %s failed: %v\n%s", pkg, err, string(b))
	}

	return out
}

// runTool runs the tools binary to completion with env appended.
func runTool(t *testing.T, bin string, env []string, args ...string) {
	t.Helper()

	cmd := exec.Command(bin, args...)
	cmd.Env = append(os.Environ(), env...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("tools %v failed: %v\n%s", args, err, string(b))
	}
}

func writeDataset(t *testing.T) (stations, measurements string) {
	t.Helper()

	dir := t.TempDir()
	stations = filepath.Join(dir, "stations.csv")
	measurements = filepath.Join(dir, "measurements.csv")
	if err := os.WriteFile(stations, []byte(stationsCSV), 0o644); err != nil {
		t.Fatalf("write stations: %v", err)
	}
	if err := os.WriteFile(measurements, []byte(measurementsCSV), 0o644); err != nil {
		t.Fatalf("write measurements: %v", err)
	}
	return stations, measurements
}

// startServer runs the server binary and waits for /healthz.
func startServer(t *testing.T, bin string, env []string) (*exec.Cmd, string) {
	t.Helper()

	addr := pickFreeAddr(t)
	cmd := exec.Command(bin)
	cmd.Env = append(os.Environ(), append([]string{
		"APP_ENV=dev",
		"LOG_LEVEL=info",
		"HTTP_ADDR=" + addr,
	}, env...)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})

	base := "http://" + addr
	waitForOK(t, &http.Client{Timeout: 2 * time.Second}, base+"/healthz", 10*time.Second)
	return cmd, base
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status=%d want=%d", url, resp.StatusCode, http.StatusOK)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
}

// assertDataset checks the API against stationsCSV and measurementsCSV.
func assertDataset(t *testing.T, base string) {
	t.Helper()

	var prcp map[string]*float64
	getJSON(t, base+"/api/v1.0/precipitation", &prcp)
	if len(prcp) != 2 || prcp["2017-08-23"] == nil || *prcp["2017-08-23"] != 0.0 ||
		prcp["2016-08-23"] == nil || *prcp["2016-08-23"] != 0.1 {
		t.Fatalf("precipitation=%v", prcp)
	}

	var stations []string
	getJSON(t, base+"/api/v1.0/stations", &stations)
	if len(stations) != 2 {
		t.Fatalf("stations=%v", stations)
	}

	var tobs []map[string]any
	getJSON(t, base+"/api/v1.0/tobs", &tobs)
	if len(tobs) != 2 {
		t.Fatalf("tobs=%v", tobs)
	}

	var stats map[string]*float64
	getJSON(t, base+"/api/v1.0/2016-08-23/2017-08-23", &stats)
	if stats["TMIN"] == nil || *stats["TMIN"] != 77 || *stats["TMAX"] != 79 {
		t.Fatalf("stats=%v", stats)
	}
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	defer ln.Close()

	return ln.Addr().String()
}

func waitForOK(t *testing.T, client *http.Client, url string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server not healthy after %s: %s", timeout, url)
}

func stopServer(t *testing.T, cmd *exec.Cmd) {
	t.Helper()

	_ = cmd.Process.Signal(syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		t.Fatalf("server did not exit in time")
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				t.Fatalf("server exited non-zero: %v", err)
			}
			t.Fatalf("server wait error: %v", err)
		}
	}
}
