// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dashrpc

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// readCookieFile reads the daemon's RPC auth cookie, which holds a single
// "username:password" line.
func readCookieFile(path string) (username, password string, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}

	s := strings.TrimSpace(string(b))
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("malformed cookie file %s", path)
	}

	return parts[0], parts[1], nil
}

// cookieRetriever caches cookie credentials and re-reads the file when the
// daemon rewrites it, e.g. across a restart.
type cookieRetriever struct {
	path string

	mtx           sync.Mutex
	lastCheckTime time.Time
	lastModTime   time.Time
	curUsername   string
	curPassword   string
	curError      error
}

func newCookieRetriever(path string) *cookieRetriever {
	return &cookieRetriever{path: path}
}

// credentials returns the current cookie credentials, refreshing them from
// disk at most every 30 seconds.
func (r *cookieRetriever) credentials() (string, string, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if !r.lastCheckTime.IsZero() &&
		time.Now().Before(r.lastCheckTime.Add(30*time.Second)) {

		return r.curUsername, r.curPassword, r.curError
	}
	r.lastCheckTime = time.Now()

	st, err := os.Stat(r.path)
	if err != nil {
		r.curError = err
		return r.curUsername, r.curPassword, r.curError
	}

	if modTime := st.ModTime(); !modTime.Equal(r.lastModTime) {
		r.lastModTime = modTime
		r.curUsername, r.curPassword, r.curError = readCookieFile(r.path)
	}

	return r.curUsername, r.curPassword, r.curError
}
