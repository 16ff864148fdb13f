package integration

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// StatusResponse is the part of GET /api/v1/status the tests read
type StatusResponse struct {
	Status              string `json:"status"`
	Health              string `json:"health"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	Threshold           int    `json:"threshold"`
	RecoveryInProgress  bool   `json:"recovery_in_progress"`
	Target              *struct {
		ServerID   string `json:"server_id"`
		Address    string `json:"address"`
		Name       string `json:"name"`
		Recoveries int    `json:"recoveries"`
	} `json:"target"`
	LastRecovery *struct {
		Result      string `json:"result"`
		OldServerID string `json:"old_server_id"`
		NewServerID string `json:"new_server_id"`
	} `json:"last_recovery"`
}

// buildBinary builds the revive binary and returns its path
func buildBinary(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	projectRoot := filepath.Join(wd, "..", "..")

	binary := filepath.Join(t.TempDir(), "revive")

	cmd := exec.Command("go", "build", "-o", binary, "./cmd/revive")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build binary: %v\n%s", err, output)
	}

	return binary
}

// freePort returns a TCP port that was free a moment ago
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// probeTarget listens on 127.0.0.1 so tcp probes of that address succeed.
// Other loopback addresses such as 127.0.0.2 refuse the port.
func probeTarget(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	return l.Addr().(*net.TCPAddr).Port
}

// testEnv is a working directory with a config pointing at a fake provider
type testEnv struct {
	dir      string
	config   string
	apiAddr  string
	hetzner  *fakeHetzner
	binary   string
	tcpPort  int
	apiPort  int
	extraEnv []string
}

func newTestEnv(t *testing.T, binary string) *testEnv {
	t.Helper()

	env := &testEnv{
		dir:     t.TempDir(),
		hetzner: newFakeHetzner(t),
		binary:  binary,
		tcpPort: probeTarget(t),
		apiPort: freePort(t),
	}
	env.apiAddr = fmt.Sprintf("http://127.0.0.1:%d", env.apiPort)
	env.config = filepath.Join(env.dir, "revive.yaml")

	content := fmt.Sprintf(`
api:
  host: 127.0.0.1
  port: %d
watchdog:
  check_interval: 200ms
  probe_timeout: 100ms
  failure_threshold: 2
  probe: tcp
  tcp_port: %d
retry:
  max_attempts: 2
  backoff: 10ms
provider:
  endpoint: %s
  wait_for_create: false
telegram:
  enabled: false
`, env.apiPort, env.tcpPort, env.hetzner.URL())

	if err := os.WriteFile(env.config, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return env
}

func (e *testEnv) command(args ...string) *exec.Cmd {
	cmd := exec.Command(e.binary, append(args, "-c", e.config)...)
	cmd.Dir = e.dir
	cmd.Env = append(os.Environ(), "HETZNER_TOKEN=test-token", "HOME="+e.dir)
	cmd.Env = append(cmd.Env, e.extraEnv...)
	return cmd
}

// run runs a client command and returns its combined output
func (e *testEnv) run(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.command(args...).CombinedOutput()
	if err != nil {
		t.Fatalf("revive %v failed: %v\n%s", args, err, out)
	}
	return string(out)
}

// startForeground starts `revive run` and stops it when the test ends
func (e *testEnv) startForeground(t *testing.T) *exec.Cmd {
	t.Helper()

	cmd := e.command("run")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start revive: %v", err)
	}
	t.Cleanup(func() { killRevive(cmd) })

	waitForAPI(t, e.apiAddr, 10*time.Second)
	return cmd
}

// waitForAPI waits for the API to be ready
func waitForAPI(t *testing.T, addr string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(addr + "/api/v1/status")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("API did not become ready within %v", timeout)
}

// getStatus fetches the watchdog status
func getStatus(t *testing.T, addr string) StatusResponse {
	t.Helper()

	resp, err := http.Get(addr + "/api/v1/status")
	requireNoError(t, err, "failed to get status")
	defer resp.Body.Close()

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	return status
}

// waitForStatus polls the status until cond holds
func waitForStatus(t *testing.T, addr string, timeout time.Duration, cond func(StatusResponse) bool) StatusResponse {
	t.Helper()

	deadline := time.Now().Add(timeout)
	var last StatusResponse
	for time.Now().Before(deadline) {
		last = getStatus(t, addr)
		if cond(last) {
			return last
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("status condition not met within %v (last: %+v)", timeout, last)
	return last
}

// stopRevive sends a shutdown request through the API
func stopRevive(addr string) error {
	resp, err := http.Post(addr+"/api/v1/shutdown", "application/json", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// killRevive forcefully kills the revive process
func killRevive(cmd *exec.Cmd) {
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}
}

// requireNoError fails the test if err is not nil
func requireNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}

// skipShort skips the test if -short flag is provided
func skipShort(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}
