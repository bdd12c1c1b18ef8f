// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dashdctrl

import (
	"fmt"
	"net"
	"strconv"
)

const (
	// defaultPortStart is the first port probed when the caller does not
	// pin one.  It matches the dashd regtest RPC default neighborhood so
	// datasets remain comparable across machines.
	defaultPortStart = 19998

	// portProbeAttempts bounds the free-port scan.
	portProbeAttempts = 20
)

// portAvailable reports whether the port can currently be bound on the
// loopback interface.
func portAvailable(port int) bool {
	l, err := net.Listen("tcp4", net.JoinHostPort("127.0.0.1",
		strconv.Itoa(port)))
	if err != nil {
		return false
	}
	l.Close()
	return true
}

// findFreePort returns the first bindable port at or above start.
func findFreePort(start int) (int, error) {
	for port := start; port < start+portProbeAttempts; port++ {
		if portAvailable(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start,
		start+portProbeAttempts-1)
}
