// Package integration drives the built qadesk binary: the CLI commands and
// the HTTP API served by "qadesk serve".
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/qadesk/pkg/types"
)

var (
	// qadeskBin is the path to the built qadesk binary.
	qadeskBin string
	// buildErr captures any build error.
	buildErr error
)

// BuildError wraps a build error with output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot finds the project root by walking up and looking for go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// TestEnv provides an isolated environment with its own config and data
// directory.
type TestEnv struct {
	t       *testing.T
	Config  string
	DataDir string
}

// NewTestEnv creates a new isolated test environment.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if buildErr != nil {
		t.Fatalf("failed to build qadesk: %v", buildErr)
	}
	tempDir := t.TempDir()
	return &TestEnv{
		t:       t,
		Config:  filepath.Join(tempDir, "config"),
		DataDir: filepath.Join(tempDir, "data"),
	}
}

// CmdResult holds the result of a qadesk command execution.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

func (e *TestEnv) command(args ...string) *exec.Cmd {
	allArgs := append([]string{"--config-dir", e.Config, "--data-dir", e.DataDir}, args...)
	return exec.Command(qadeskBin, allArgs...)
}

// Run executes the qadesk CLI with the given arguments.
func (e *TestEnv) Run(args ...string) CmdResult {
	e.t.Helper()
	cmd := e.command(args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			e.t.Fatalf("failed to run qadesk: %v", err)
		}
		exitCode = exitErr.ExitCode()
	}
	return CmdResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}
}

// MustRun executes the qadesk CLI and fails the test on a non-zero exit.
func (e *TestEnv) MustRun(args ...string) CmdResult {
	e.t.Helper()
	result := e.Run(args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("qadesk %v failed with exit code %d:\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// Serve starts "qadesk serve" on a free port and waits for /health. The
// process is interrupted when the test ends.
func (e *TestEnv) Serve() *Client {
	e.t.Helper()
	addr := freeAddr(e.t)
	cmd := e.command("serve", "--addr", addr)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	require.NoError(e.t, cmd.Start())

	e.t.Cleanup(func() {
		_ = cmd.Process.Signal(os.Interrupt)
		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			_ = cmd.Process.Kill()
		}
	})

	c := &Client{t: e.t, base: "http://" + addr, http: &http.Client{Timeout: 5 * time.Second}}
	require.Eventually(e.t, c.healthy, 10*time.Second, 50*time.Millisecond, "server did not start: %s", stderr.String())
	return c
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// Client sends JSON requests to a running server.
type Client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (c *Client) healthy() bool {
	resp, err := c.http.Get(c.base + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Do sends body as JSON on behalf of actor and decodes the response into out
// when out is non-nil. It returns the status code.
func (c *Client) Do(actor types.Actor, method, path string, body, out any) int {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, c.base+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", actor.ID)
	req.Header.Set("X-Actor-Name", actor.Name)
	req.Header.Set("X-Actor-Role", string(actor.Role))

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	if out != nil && resp.StatusCode < 300 && len(data) > 0 {
		require.NoError(c.t, json.Unmarshal(data, out), string(data))
	}
	return resp.StatusCode
}
