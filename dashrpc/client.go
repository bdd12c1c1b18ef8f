// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dashrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcjson"
)

const (
	// defaultTimeout bounds every RPC round trip when the caller does not
	// configure one.
	defaultTimeout = time.Second * 30
)

// ConnConfig describes the connection parameters for a Client.
type ConnConfig struct {
	// Host is the host:port of the daemon's RPC listener.
	Host string

	// User and Pass are the credentials for HTTP basic auth.  They are
	// ignored when CookiePath is set.
	User string
	Pass string

	// CookiePath optionally points at the daemon's RPC auth cookie
	// (<datadir>/<network>/.cookie).  The cookie is re-read when the
	// daemon rewrites it.
	CookiePath string

	// Timeout bounds each individual call.  Zero means defaultTimeout.
	Timeout time.Duration
}

// Client is a synchronous JSON-RPC client for dashd.  It is a stateless
// transport: it holds no chain or wallet state and is safe for use from
// multiple goroutines, though callers coordinating chain mutation must
// serialize their own mutating calls.
type Client struct {
	cfg ConnConfig

	httpClient *http.Client
	retriever  *cookieRetriever

	id       uint64
	shutdown int32
}

// New returns a new Client for the given connection config.  No connection
// is attempted; the first call does that.
func New(cfg *ConnConfig) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: missing RPC host", ErrInvalidParam)
	}

	c := &Client{
		cfg: *cfg,
	}
	if c.cfg.Timeout <= 0 {
		c.cfg.Timeout = defaultTimeout
	}
	if c.cfg.CookiePath != "" {
		c.retriever = newCookieRetriever(c.cfg.CookiePath)
	}

	c.httpClient = &http.Client{
		Timeout: c.cfg.Timeout,
	}

	return c, nil
}

// Host returns the host:port this client targets.
func (c *Client) Host() string {
	return c.cfg.Host
}

// Shutdown marks the client unusable.  It exists so long-lived owners can
// fail fast on calls issued after the daemon has been stopped.
func (c *Client) Shutdown() {
	atomic.StoreInt32(&c.shutdown, 1)
}

// nextID returns the next request id.
func (c *Client) nextID() uint64 {
	return atomic.AddUint64(&c.id, 1)
}

// credentials returns the user/pass pair for the next request, reading the
// auth cookie when one is configured.
func (c *Client) credentials() (string, string, error) {
	if c.retriever != nil {
		return c.retriever.credentials()
	}
	return c.cfg.User, c.cfg.Pass, nil
}

// endpoint returns the request URL, routing wallet-scoped calls through the
// daemon's per-wallet endpoint.
func (c *Client) endpoint(wallet string) string {
	if wallet == "" {
		return "http://" + c.cfg.Host + "/"
	}
	return "http://" + c.cfg.Host + "/wallet/" + url.PathEscape(wallet)
}

// call issues a single JSON-RPC request against the daemon, optionally
// scoped to a wallet, and unmarshals the result into result when it is
// non-nil.  It returns *ConnectionError, *TimeoutError, or the daemon's
// *btcjson.RPCError.
func (c *Client) call(wallet, method string, params []interface{}, result interface{}) error {
	if atomic.LoadInt32(&c.shutdown) != 0 {
		return ErrClientShutdown
	}

	req, err := btcjson.NewRequest(btcjson.RpcVersion1, c.nextID(), method, params)
	if err != nil {
		return err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	user, pass, err := c.credentials()
	if err != nil {
		return &ConnectionError{Host: c.cfg.Host, Err: err}
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.endpoint(wallet),
		bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Close = true
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(user, pass)

	log.Tracef("Sending command [%s] to %s", method, httpReq.URL)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return &TimeoutError{Method: method, Timeout: c.cfg.Timeout}
		}
		return &ConnectionError{Host: c.cfg.Host, Err: err}
	}
	defer httpResp.Body.Close()

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if isTimeout(err) {
			return &TimeoutError{Method: method, Timeout: c.cfg.Timeout}
		}
		return &ConnectionError{Host: c.cfg.Host, Err: err}
	}

	// The daemon reports errors both through the HTTP status and through
	// the JSON-RPC error field, so decode the body first and only fall
	// back to the status code when no JSON-RPC response is present.
	var resp btcjson.Response
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return &ConnectionError{
			Host: c.cfg.Host,
			Err: fmt.Errorf("status %d (%s)", httpResp.StatusCode,
				http.StatusText(httpResp.StatusCode)),
		}
	}
	if resp.Error != nil {
		return resp.Error
	}

	if result == nil {
		return nil
	}
	return json.Unmarshal(resp.Result, result)
}

// RawRequest issues method with the marshalled params against the daemon
// (optionally scoped to wallet) and returns the raw JSON result.  It is the
// escape hatch for RPCs without a typed wrapper.
func (c *Client) RawRequest(wallet, method string, params []interface{}) (json.RawMessage, error) {
	if method == "" {
		return nil, fmt.Errorf("%w: missing method", ErrInvalidParam)
	}
	var result json.RawMessage
	if err := c.call(wallet, method, params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// isTimeout reports whether err stems from an elapsed request deadline.
func isTimeout(err error) bool {
	type timeouter interface {
		Timeout() bool
	}
	for err != nil {
		if t, ok := err.(timeouter); ok && t.Timeout() {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
