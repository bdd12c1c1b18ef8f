// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dashdctrl

import (
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/stretchr/testify/require"
)

// stubDaemon writes a shell script that sleeps, standing in for a daemon
// process that never serves RPC itself.
func stubDaemon(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fakedashd")
	script := "#!/bin/sh\nexec sleep 600\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

// fakeRPCServer answers every JSON-RPC request with a getblockcount-style
// result on a fixed loopback port, so readiness polling succeeds without a
// real dashd.
func fakeRPCServer(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req btcjson.Request
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			resp, err := btcjson.MarshalResponse(btcjson.RpcVersion1,
				req.ID, int64(0), nil)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Write(resp)
		}),
	}
	go server.Serve(l)
	t.Cleanup(func() { server.Close() })

	return l.Addr().(*net.TCPAddr).Port
}

// startReady brings up a controller whose process is a stub daemon and
// whose RPC endpoint is answered by a fake server.
func startReady(t *testing.T, dataDir string) *Controller {
	t.Helper()

	c, err := New(&Config{
		ExePath:       stubDaemon(t),
		DataDir:       dataDir,
		RPCPort:       fakeRPCServer(t),
		ReadyTimeout:  5 * time.Second,
		ReadyInterval: 20 * time.Millisecond,
		StopGrace:     100 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, c.Start())
	require.Equal(t, StateReady, c.State())
	return c
}

func TestNewRequiresDataDir(t *testing.T) {
	_, err := New(&Config{})
	require.Error(t, err)
}

func TestArguments(t *testing.T) {
	c, err := New(&Config{
		DataDir:   "/tmp/data",
		ExtraArgs: []string{"-blockfilterindex=1"},
	})
	require.NoError(t, err)
	c.rpcPort = 19998
	c.p2pPort = 19999

	args := c.arguments()
	require.Contains(t, args, "-regtest")
	require.Contains(t, args, "-datadir=/tmp/data")
	require.Contains(t, args, "-rpcport=19998")
	require.Contains(t, args, "-port=19999")
	require.Contains(t, args, "-daemon=0")
	require.Contains(t, args, "-blockfilterindex=1")
	// Extra args come last so callers can override defaults.
	require.Equal(t, "-blockfilterindex=1", args[len(args)-1])
}

func TestLivePIDStale(t *testing.T) {
	dir := t.TempDir()
	c, err := New(&Config{DataDir: dir})
	require.NoError(t, err)

	// No pid file at all.
	require.Zero(t, c.livePID())

	// Garbage content.
	require.NoError(t, os.WriteFile(c.pidFilePath(), []byte("junk"), 0600))
	require.Zero(t, c.livePID())

	// Our own pid is alive.
	require.NoError(t, os.WriteFile(c.pidFilePath(),
		[]byte(strconv.Itoa(os.Getpid())+"\n"), 0600))
	require.Equal(t, os.Getpid(), c.livePID())
}

func TestStartFailsWhenAlreadyRunning(t *testing.T) {
	dir := t.TempDir()
	c, err := New(&Config{DataDir: dir, ExePath: "/nonexistent"})
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(dir, 0700))
	require.NoError(t, os.WriteFile(c.pidFilePath(),
		[]byte(strconv.Itoa(os.Getpid())+"\n"), 0600))

	err = c.Start()
	require.True(t, IsAlreadyRunning(err))

	var alreadyRunning *AlreadyRunningError
	require.ErrorAs(t, err, &alreadyRunning)
	require.Equal(t, os.Getpid(), alreadyRunning.PID)
	require.Equal(t, StateStopped, c.State())
}

func TestStartReadyTimeout(t *testing.T) {
	c, err := New(&Config{
		ExePath:       stubDaemon(t),
		DataDir:       t.TempDir(),
		ReadyTimeout:  300 * time.Millisecond,
		ReadyInterval: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	err = c.Start()
	var startErr *StartFailedError
	require.ErrorAs(t, err, &startErr)
	require.Equal(t, StateFailed, c.State())

	// The spawned process must have been terminated and the data
	// directory released.
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stub daemon still running after failed start")
	}
	require.Zero(t, c.livePID())
}

func TestStartExecutableMissing(t *testing.T) {
	c, err := New(&Config{
		ExePath: filepath.Join(t.TempDir(), "no-such-dashd"),
		DataDir: t.TempDir(),
	})
	require.NoError(t, err)

	err = c.Start()
	var startErr *StartFailedError
	require.ErrorAs(t, err, &startErr)
}

func TestStartStop(t *testing.T) {
	dir := t.TempDir()
	c := startReady(t, dir)

	require.NotNil(t, c.RPCClient())
	require.NotEmpty(t, c.RPCAddress())

	require.NoError(t, c.Stop())
	require.Equal(t, StateStopped, c.State())
	require.Zero(t, c.livePID())

	// Stop is idempotent.
	require.NoError(t, c.Stop())
	require.Equal(t, StateStopped, c.State())
}

func TestRestartAfterStop(t *testing.T) {
	dir := t.TempDir()

	c := startReady(t, dir)
	require.NoError(t, c.Stop())

	// A second acquisition of the same data directory must succeed,
	// proving the first run did not leak a process.
	c2 := startReady(t, dir)
	require.NoError(t, c2.Stop())
}

func TestCrashDetection(t *testing.T) {
	c := startReady(t, t.TempDir())
	defer c.Stop()

	// Kill the process externally, as a daemon crash would.
	pid := c.cmd.Process.Pid
	require.NoError(t, syscall.Kill(pid, syscall.SIGKILL))

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("crash not observed")
	}

	require.Equal(t, StateCrashed, c.State())
	require.True(t, IsCrashed(c.Err()))

	// Stop after a crash is still a clean no-op.
	require.NoError(t, c.Stop())
	require.Equal(t, StateStopped, c.State())
}

func TestWithInstanceStopsOnError(t *testing.T) {
	dir := t.TempDir()

	ranErr := os.ErrClosed
	err := WithInstance(&Config{
		ExePath:       stubDaemon(t),
		DataDir:       dir,
		RPCPort:       fakeRPCServer(t),
		ReadyTimeout:  5 * time.Second,
		ReadyInterval: 20 * time.Millisecond,
		StopGrace:     100 * time.Millisecond,
	}, func(c *Controller) error {
		return ranErr
	})
	require.ErrorIs(t, err, ranErr)

	// The daemon must be stopped even though fn failed.
	c, newErr := New(&Config{DataDir: dir})
	require.NoError(t, newErr)
	require.Zero(t, c.livePID())
}

func TestFindFreePort(t *testing.T) {
	port, err := findFreePort(defaultPortStart)
	require.NoError(t, err)
	require.GreaterOrEqual(t, port, defaultPortStart)
	require.True(t, portAvailable(port))
}

func TestStateString(t *testing.T) {
	require.Equal(t, "stopped", StateStopped.String())
	require.Equal(t, "ready", StateReady.String())
	require.Equal(t, "crashed", StateCrashed.String())
}
