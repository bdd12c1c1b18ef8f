// Copyright (c) 2025-2026 The regtestgen developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package dashrpc implements a small, synchronous JSON-RPC client for a
dashd instance.

The client is a stateless transport: it holds connection parameters and
an HTTP client, but no chain or wallet state.  Every exported call maps
to exactly one daemon RPC, blocks until the daemon responds or the
configured timeout elapses, and translates failures into one of three
error kinds: *ConnectionError when the daemon is unreachable,
*TimeoutError when the deadline elapses, and *btcjson.RPCError when the
daemon itself returns an error response.

Mutating calls (generatetoaddress, sendtoaddress, ...) are never
retried by this layer.  Retry policy belongs to the caller, since only
the caller knows whether a mutation is safe to reissue.
*/
package dashrpc
