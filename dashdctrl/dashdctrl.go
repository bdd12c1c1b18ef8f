// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dashdctrl

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dashpay/regtestgen/dashrpc"
)

const (
	defaultExePath       = "dashd"
	defaultNetwork       = "regtest"
	defaultRPCUser       = "user"
	defaultRPCPass       = "pass"
	defaultReadyTimeout  = 30 * time.Second
	defaultReadyInterval = 500 * time.Millisecond
	defaultStopGrace     = 10 * time.Second

	// pidFilename records the pid of the spawned daemon inside the data
	// directory.  Its presence with a live pid marks the directory as
	// owned by a running instance.
	pidFilename = "regtestgen.pid"
)

// State describes the lifecycle state of a Controller.
type State uint8

// Controller lifecycle states.
const (
	StateStopped State = iota
	StateStarting
	StateReady
	StateStopping
	StateFailed
	StateCrashed
)

// String returns the state as a human-readable string.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateStopping:
		return "stopping"
	case StateFailed:
		return "failed"
	case StateCrashed:
		return "crashed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Config bundles everything needed to launch one dashd instance.
type Config struct {
	// ExePath is the dashd executable.  Relative names resolve through
	// PATH.  Defaults to "dashd".
	ExePath string

	// DataDir is the daemon data directory.  Required, exclusively owned
	// by the controller between Start and Stop.
	DataDir string

	// RPCPort and P2PPort pin listening ports.  Zero means scan for a
	// free port starting at the regtest defaults.
	RPCPort int
	P2PPort int

	// RPCUser and RPCPass are the RPC credentials handed to the daemon
	// and to the readiness client.  Default to user/pass.
	RPCUser string
	RPCPass string

	// ExtraArgs are appended verbatim to the daemon command line, e.g.
	// the block filter index flags.
	ExtraArgs []string

	// ReadyTimeout bounds how long Start polls for RPC responsiveness
	// before giving up and killing the process.
	ReadyTimeout time.Duration

	// ReadyInterval is the fixed polling interval during Start.
	ReadyInterval time.Duration

	// StopGrace bounds how long Stop waits after a graceful shutdown
	// request before escalating to SIGTERM and then SIGKILL.
	StopGrace time.Duration

	// Stdout and Stderr receive the daemon's output when set.
	Stdout io.Writer
	Stderr io.Writer
}

// fillDefaults returns a copy of cfg with zero values replaced.
func (cfg *Config) fillDefaults() Config {
	out := *cfg
	if out.ExePath == "" {
		out.ExePath = defaultExePath
	}
	if out.RPCUser == "" {
		out.RPCUser = defaultRPCUser
	}
	if out.RPCPass == "" {
		out.RPCPass = defaultRPCPass
	}
	if out.ReadyTimeout <= 0 {
		out.ReadyTimeout = defaultReadyTimeout
	}
	if out.ReadyInterval <= 0 {
		out.ReadyInterval = defaultReadyInterval
	}
	if out.StopGrace <= 0 {
		out.StopGrace = defaultStopGrace
	}
	return out
}

// Controller owns a single dashd process and its data directory.
type Controller struct {
	cfg Config

	mtx     sync.Mutex
	state   State
	cmd     *exec.Cmd
	client  *dashrpc.Client
	rpcPort int
	p2pPort int

	// exited is closed by the monitor goroutine once the process has
	// exited; exitErr holds the wait error at that point.
	exited  chan struct{}
	exitErr error
}

// New returns a Controller for the given config.  The daemon is not
// launched until Start.
func New(cfg *Config) (*Controller, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("dashdctrl: missing data directory")
	}
	return &Controller{
		cfg:   cfg.fillDefaults(),
		state: StateStopped,
	}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.state
}

// DataDir returns the daemon data directory.
func (c *Controller) DataDir() string {
	return c.cfg.DataDir
}

// RPCAddress returns the host:port of the daemon's RPC listener.  Only
// meaningful once Start has succeeded.
func (c *Controller) RPCAddress() string {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(c.rpcPort))
}

// RPCClient returns the readiness-checked RPC client for this instance.
// Only meaningful once Start has succeeded.
func (c *Controller) RPCClient() *dashrpc.Client {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.client
}

// Done returns a channel closed once the daemon process has exited, whether
// through Stop or a crash.
func (c *Controller) Done() <-chan struct{} {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.exited
}

// Err returns a *CrashedError when the daemon exited unexpectedly, and nil
// otherwise.
func (c *Controller) Err() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.state != StateCrashed {
		return nil
	}
	return &CrashedError{DataDir: c.cfg.DataDir, Err: c.exitErr}
}

// pidFilePath returns the controller's pid file location.
func (c *Controller) pidFilePath() string {
	return filepath.Join(c.cfg.DataDir, pidFilename)
}

// livePID returns the pid recorded for the data directory when that process
// is still alive, and 0 otherwise.
func (c *Controller) livePID() int {
	b, err := os.ReadFile(c.pidFilePath())
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		return 0
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0
	}
	// Signal 0 probes liveness without delivering anything.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return 0
	}
	return pid
}

// arguments builds the daemon command line.
func (c *Controller) arguments() []string {
	args := []string{
		"-" + defaultNetwork,
		"-datadir=" + c.cfg.DataDir,
		fmt.Sprintf("-port=%d", c.p2pPort),
		fmt.Sprintf("-rpcport=%d", c.rpcPort),
		"-rpcuser=" + c.cfg.RPCUser,
		"-rpcpass=" + c.cfg.RPCPass,
		"-server=1",
		"-daemon=0",
		"-listen=1",
		"-rpcbind=127.0.0.1",
		"-rpcallowip=127.0.0.1",
		"-fallbackfee=0.00001",
		// Compact filters must be indexed while the chain grows for
		// the data directory to serve filter sync later.
		"-blockfilterindex=1",
		"-peerblockfilters=1",
	}
	return append(args, c.cfg.ExtraArgs...)
}

// Start launches the daemon and blocks until it is RPC-responsive.  It
// fails with *AlreadyRunningError when a live process is already bound to
// the data directory, and with *StartFailedError when the daemon cannot be
// spawned or does not become ready within ReadyTimeout (in which case the
// spawned process has been terminated).
func (c *Controller) Start() error {
	c.mtx.Lock()
	if c.state != StateStopped && c.state != StateFailed &&
		c.state != StateCrashed {

		state := c.state
		c.mtx.Unlock()
		return fmt.Errorf("dashdctrl: start in state %v", state)
	}

	if pid := c.livePID(); pid != 0 {
		c.mtx.Unlock()
		return &AlreadyRunningError{DataDir: c.cfg.DataDir, PID: pid}
	}

	if err := os.MkdirAll(filepath.Join(c.cfg.DataDir, defaultNetwork),
		0700); err != nil {

		c.mtx.Unlock()
		return &StartFailedError{DataDir: c.cfg.DataDir, Err: err}
	}

	var err error
	c.rpcPort = c.cfg.RPCPort
	if c.rpcPort == 0 {
		if c.rpcPort, err = findFreePort(defaultPortStart); err != nil {
			c.mtx.Unlock()
			return &StartFailedError{DataDir: c.cfg.DataDir, Err: err}
		}
	}
	c.p2pPort = c.cfg.P2PPort
	if c.p2pPort == 0 {
		if c.p2pPort, err = findFreePort(c.rpcPort + 1); err != nil {
			c.mtx.Unlock()
			return &StartFailedError{DataDir: c.cfg.DataDir, Err: err}
		}
	}

	cmd := exec.Command(c.cfg.ExePath, c.arguments()...)
	cmd.Stdout = c.cfg.Stdout
	cmd.Stderr = c.cfg.Stderr

	log.Infof("Starting dashd for %s (rpc port %d)", c.cfg.DataDir,
		c.rpcPort)
	log.Debugf("dashd arguments: %s", strings.Join(c.arguments(), " "))

	if err := cmd.Start(); err != nil {
		c.mtx.Unlock()
		return &StartFailedError{DataDir: c.cfg.DataDir, Err: err}
	}

	pidFile := c.pidFilePath()
	pidErr := os.WriteFile(pidFile,
		[]byte(strconv.Itoa(cmd.Process.Pid)+"\n"), 0600)
	if pidErr != nil {
		log.Warnf("Unable to write pid file %s: %v", pidFile, pidErr)
	}

	c.cmd = cmd
	c.state = StateStarting
	c.exited = make(chan struct{})
	c.exitErr = nil
	exited := c.exited

	// The monitor goroutine is the only caller of Wait.  Any exit while
	// the controller believes the daemon should be running is a crash.
	go func() {
		waitErr := cmd.Wait()

		c.mtx.Lock()
		c.exitErr = waitErr
		if c.state == StateReady || c.state == StateStarting {
			log.Errorf("dashd for %s exited unexpectedly: %v",
				c.cfg.DataDir, waitErr)
			c.state = StateCrashed
		}
		close(exited)
		c.mtx.Unlock()
	}()

	client, err := dashrpc.New(&dashrpc.ConnConfig{
		Host: net.JoinHostPort("127.0.0.1", strconv.Itoa(c.rpcPort)),
		User: c.cfg.RPCUser,
		Pass: c.cfg.RPCPass,
	})
	if err != nil {
		c.mtx.Unlock()
		c.terminate()
		return &StartFailedError{DataDir: c.cfg.DataDir, Err: err}
	}
	c.client = client
	c.mtx.Unlock()

	if err := c.waitForReady(); err != nil {
		c.terminate()
		c.mtx.Lock()
		c.state = StateFailed
		c.mtx.Unlock()
		return &StartFailedError{DataDir: c.cfg.DataDir, Err: err}
	}

	c.mtx.Lock()
	if c.state != StateStarting {
		// Crashed while the last poll was in flight.
		err := c.exitErr
		c.mtx.Unlock()
		return &StartFailedError{DataDir: c.cfg.DataDir, Err: err}
	}
	c.state = StateReady
	c.mtx.Unlock()

	log.Infof("dashd ready for %s", c.cfg.DataDir)
	return nil
}

// waitForReady polls the daemon at a fixed interval until it answers a
// status call, the process exits, or the ready deadline elapses.
func (c *Controller) waitForReady() error {
	deadline := time.Now().Add(c.cfg.ReadyTimeout)

	var lastErr error
	for time.Now().Before(deadline) {
		select {
		case <-c.Done():
			return fmt.Errorf("process exited during startup: %w",
				c.exitError())
		default:
		}

		if err := c.RPCClient().Ping(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		time.Sleep(c.cfg.ReadyInterval)
	}

	return fmt.Errorf("not ready after %v: %w", c.cfg.ReadyTimeout, lastErr)
}

// exitError returns the recorded wait error.
func (c *Controller) exitError() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.exitErr
}

// terminate force-kills the daemon process and waits for the monitor to
// observe the exit.  Used on startup failure paths.
func (c *Controller) terminate() {
	c.mtx.Lock()
	cmd := c.cmd
	exited := c.exited
	c.mtx.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
	if exited != nil {
		<-exited
	}
	c.removePIDFile()
}

// Stop shuts the daemon down: first a graceful RPC stop, then SIGTERM after
// the grace period, then SIGKILL.  Stopping an already-stopped controller
// is a no-op, so Stop is safe to defer on every acquisition.
func (c *Controller) Stop() error {
	c.mtx.Lock()
	switch c.state {
	case StateStopped, StateFailed:
		c.mtx.Unlock()
		return nil
	case StateCrashed:
		// Process already gone; only the pid file remains.
		c.state = StateStopped
		c.mtx.Unlock()
		c.removePIDFile()
		return nil
	}
	c.state = StateStopping
	cmd := c.cmd
	client := c.client
	exited := c.exited
	c.mtx.Unlock()

	log.Infof("Stopping dashd for %s", c.cfg.DataDir)

	if client != nil {
		if err := client.Stop(); err != nil {
			log.Debugf("Graceful RPC stop failed: %v", err)
		}
	}

	if !c.waitExit(exited, c.cfg.StopGrace) {
		log.Warnf("dashd did not stop gracefully, sending SIGTERM")
		_ = cmd.Process.Signal(syscall.SIGTERM)

		if !c.waitExit(exited, c.cfg.StopGrace) {
			log.Warnf("dashd ignored SIGTERM, killing")
			_ = cmd.Process.Kill()
			c.waitExit(exited, 0)
		}
	}

	if client != nil {
		client.Shutdown()
	}
	c.removePIDFile()

	c.mtx.Lock()
	c.state = StateStopped
	c.cmd = nil
	c.mtx.Unlock()

	log.Infof("dashd stopped for %s", c.cfg.DataDir)
	return nil
}

// waitExit waits for the exited channel up to the given grace period.  A
// zero grace waits forever.
func (c *Controller) waitExit(exited <-chan struct{}, grace time.Duration) bool {
	if exited == nil {
		return true
	}
	if grace <= 0 {
		<-exited
		return true
	}
	select {
	case <-exited:
		return true
	case <-time.After(grace):
		return false
	}
}

// removePIDFile deletes the controller's pid file, ignoring absence.
func (c *Controller) removePIDFile() {
	if err := os.Remove(c.pidFilePath()); err != nil &&
		!os.IsNotExist(err) {

		log.Warnf("Unable to remove pid file: %v", err)
	}
}

// WithInstance starts a daemon for cfg, runs fn against the ready
// controller, and guarantees Stop on every exit path.
func WithInstance(cfg *Config, fn func(*Controller) error) error {
	c, err := New(cfg)
	if err != nil {
		return err
	}
	if err := c.Start(); err != nil {
		return err
	}
	defer c.Stop()

	return fn(c)
}
