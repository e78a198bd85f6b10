// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package api implements the client side of the hostd administrative
// API. The protocol is one JSON envelope per line in each direction
// over a local stream socket, strictly request then response.
package api

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/hostd/dispsweep/api/params"
)

var logger = loggo.GetLogger("dispsweep.api")

// DefaultSocketPath is where hostd listens on a standard install.
const DefaultSocketPath = "/run/hostd/admin.sock"

// Info holds everything needed to connect to hostd.
type Info struct {
	// SocketPath locates the admin socket.
	SocketPath string

	// Timeout bounds each individual call on the connection. Zero means
	// calls wait as long as the socket does.
	Timeout time.Duration
}

// Validate returns an error if the Info is unusable.
func (info Info) Validate() error {
	if info.SocketPath == "" {
		return errors.NotValidf("empty SocketPath")
	}
	if info.Timeout < 0 {
		return errors.NotValidf("negative Timeout")
	}
	return nil
}

// Caller is the subset of a Connection needed to make API calls.
// Clients wrap a Caller rather than a concrete Connection so tests can
// substitute their own.
type Caller interface {
	Call(ctx context.Context, request string, args, response interface{}) error
}

// request and response are the admin protocol envelopes.
type request struct {
	RequestID uint64      `json:"request-id"`
	Request   string      `json:"request"`
	Params    interface{} `json:"params,omitempty"`
}

type response struct {
	RequestID uint64          `json:"request-id"`
	Response  json.RawMessage `json:"response,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorCode string          `json:"error-code,omitempty"`
}

// Connection is a single connection to the hostd admin API. It may be
// shared between goroutines; calls are issued one at a time.
type Connection struct {
	timeout time.Duration

	mu     sync.Mutex
	conn   net.Conn
	enc    *json.Encoder
	dec    *json.Decoder
	reqID  uint64
	broken bool
	closed bool
}

var _ Caller = (*Connection)(nil)

// Open connects to the hostd admin socket described by info.
func Open(info Info) (*Connection, error) {
	if err := info.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	conn, err := net.Dial("unix", info.SocketPath)
	if err != nil {
		return nil, errors.Annotatef(err, "connecting to hostd at %q", info.SocketPath)
	}
	logger.Debugf("connected to hostd at %q", info.SocketPath)
	return NewConnection(conn, info.Timeout), nil
}

// NewConnection wraps an established admin socket connection. Open is
// the usual way in; NewConnection exists so tests can speak the
// protocol over a pipe.
func NewConnection(conn net.Conn, timeout time.Duration) *Connection {
	return &Connection{
		timeout: timeout,
		conn:    conn,
		enc:     json.NewEncoder(conn),
		dec:     json.NewDecoder(conn),
	}
}

// Call invokes the named request on hostd and unmarshals the payload
// into result, which may be nil when the caller does not care about
// it. Coded hostd failures come back through
// params.TranslateWellKnownError, so not-found satisfies
// errors.NotFound while in-use keeps its params code.
//
// ctx is consulted before anything is written; once the request is on
// the wire the call runs to completion, bounded by the connection
// timeout if one was configured.
func (c *Connection) Call(ctx context.Context, req string, args, result interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection is closed")
	}
	if c.broken {
		return errors.New("connection is broken")
	}
	if err := ctx.Err(); err != nil {
		return errors.Trace(err)
	}
	if err := c.setDeadline(ctx); err != nil {
		return errors.Trace(err)
	}
	c.reqID++
	if err := c.enc.Encode(request{
		RequestID: c.reqID,
		Request:   req,
		Params:    args,
	}); err != nil {
		c.broken = true
		return errors.Annotatef(err, "sending %s request", req)
	}
	var resp response
	if err := c.dec.Decode(&resp); err != nil {
		c.broken = true
		return errors.Annotatef(err, "reading %s response", req)
	}
	if resp.RequestID != c.reqID {
		// The protocol has no pipelining, so a mismatched id means
		// the two sides have lost framing.
		c.broken = true
		return errors.Errorf("response out of sequence: got id %d, want %d", resp.RequestID, c.reqID)
	}
	if resp.Error != "" {
		return params.TranslateWellKnownError(&params.Error{
			Message: resp.Error,
			Code:    resp.ErrorCode,
		})
	}
	if result == nil || len(resp.Response) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Response, result); err != nil {
		return errors.Annotatef(err, "unmarshalling %s response", req)
	}
	return nil
}

func (c *Connection) setDeadline(ctx context.Context) error {
	var deadline time.Time
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return errors.Trace(c.conn.SetDeadline(deadline))
}

// Close shuts the connection down. It is safe to call more than once.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return errors.Trace(c.conn.Close())
}
