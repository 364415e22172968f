/*
 *	devbridge exposes host device capabilities over method channels.
 *	Copyright (C) 2022 Arsen Musayelyan
 *
 *	This program is free software: you can redistribute it and/or modify
 *	it under the terms of the GNU General Public License as published by
 *	the Free Software Foundation, either version 3 of the License, or
 *	(at your option) any later version.
 *
 *	This program is distributed in the hope that it will be useful,
 *	but WITHOUT ANY WARRANTY; without even the implied warranty of
 *	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *	GNU General Public License for more details.
 *
 *	You should have received a copy of the GNU General Public License
 *	along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"reflect"
	"sort"
	"sync"

	"go.arsenm.dev/devbridge/codec"
	"go.arsenm.dev/devbridge/internal/types"
	"go.arsenm.dev/devbridge/status"
	"go.uber.org/zap"
)

// BuiltinChannel is the name of the channel registered on every server
const BuiltinChannel = "devbridge"

// ErrInvalidChannel is returned when registering a channel without a name
var ErrInvalidChannel = errors.New("channel name must not be empty")

// Server dispatches method calls arriving on named channels
// to the handler table registered for that channel
type Server struct {
	log *zap.Logger

	chMtx    sync.RWMutex
	channels map[string]map[string]handler

	pendingMtx sync.Mutex
	pending    map[*Context]struct{}
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger used by the server
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates and returns a new server
func New(opts ...Option) *Server {
	// Create new server
	out := &Server{
		log:      zap.NewNop(),
		channels: map[string]map[string]handler{},
		pending:  map[*Context]struct{}{},
	}
	for _, opt := range opts {
		opt(out)
	}

	// Register built-in functions
	b := builtin{out}
	out.Register(BuiltinChannel, Handlers{
		"listChannels": b.ListChannels,
		"describe":     b.Describe,
	})

	return out
}

// Close cancels the context of every deferred call that has not
// been answered yet. The calls themselves stay resolvable.
func (s *Server) Close() {
	s.pendingMtx.Lock()
	defer s.pendingMtx.Unlock()
	for ctx := range s.pending {
		ctx.cancel()
	}
}

// Register binds a handler table to a channel name for the lifetime
// of the server. Registering a name again replaces its table.
func (s *Server) Register(name string, h Handlers) error {
	if name == "" {
		return ErrInvalidChannel
	}

	table := make(map[string]handler, len(h))
	for method, fn := range h {
		hd, err := newHandler(fn)
		if err != nil {
			return fmt.Errorf("%s/%s: %w", name, method, err)
		}
		table[method] = hd
	}

	s.chMtx.Lock()
	defer s.chMtx.Unlock()
	if _, ok := s.channels[name]; ok {
		s.log.Warn("replacing handler table", zap.String("channel", name))
	}
	s.channels[name] = table
	s.log.Debug("channel registered", zap.String("channel", name), zap.Int("methods", len(table)))

	return nil
}

// Unregister removes the handler table of a channel. Later calls
// on that channel are answered as not implemented.
func (s *Server) Unregister(name string) {
	s.chMtx.Lock()
	defer s.chMtx.Unlock()
	delete(s.channels, name)
}

// Channels returns the sorted names of all registered channels
func (s *Server) Channels() []string {
	s.chMtx.RLock()
	defer s.chMtx.RUnlock()
	out := make([]string, 0, len(s.channels))
	for name := range s.channels {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *Server) lookup(channel, method string) (handler, bool) {
	s.chMtx.RLock()
	defer s.chMtx.RUnlock()
	table, ok := s.channels[channel]
	if !ok {
		return handler{}, false
	}
	h, ok := table[method]
	return h, ok
}

func (s *Server) track(ctx *Context) {
	s.pendingMtx.Lock()
	s.pending[ctx] = struct{}{}
	s.pendingMtx.Unlock()
}

func (s *Server) untrack(ctx *Context) {
	s.pendingMtx.Lock()
	delete(s.pending, ctx)
	s.pendingMtx.Unlock()
}

// Deferred returns the number of deferred calls still waiting
// for a result
func (s *Server) Deferred() int {
	s.pendingMtx.Lock()
	defer s.pendingMtx.Unlock()
	return len(s.pending)
}

// dispatch runs a call and hands its outcome to reply, either
// before returning or later if the handler deferred the call
func (s *Server) dispatch(pCtx context.Context, c codec.Codec, channel, method string, arg any, reply replyFunc) {
	h, ok := s.lookup(channel, method)
	if !ok {
		s.log.Debug("method not implemented", zap.String("channel", channel), zap.String("method", method))
		reply(nil, status.ErrNotImplemented)
		return
	}

	argVal, err := h.convertArg(arg)
	if err != nil {
		reply(nil, status.Newf(status.CodeInvalidArguments, "%s: %v", method, err))
		return
	}

	ctx := newContext(pCtx, s, c, channel, method, reply)
	ctx.log.Debug("dispatching call")

	val, err := s.run(ctx, h, argVal)
	if ctx.deferred != nil {
		if err != nil {
			ctx.deferred.resolve(nil, err)
		}
		return
	}

	ctx.cancel()
	reply(val, err)
}

// run calls the handler, turning a panic into an error
// for this call only
func (s *Server) run(ctx *Context, h handler, arg reflect.Value) (val any, err error) {
	defer func() {
		if r := recover(); r != nil {
			ctx.log.Error("handler panicked", zap.Any("panic", r), zap.Stack("stack"))
			val, err = nil, status.Newf(status.CodeInternal, "handler panicked: %v", r)
		}
	}()
	return h.call(ctx, arg)
}

// Invoke performs a call in-process and waits for its outcome,
// including calls the handler deferred. The returned error is
// status.ErrNotImplemented, a *status.Error, or ctx's error.
func (s *Server) Invoke(ctx context.Context, channel, method string, arg any) (any, error) {
	type outcome struct {
		val any
		err error
	}
	done := make(chan outcome, 1)

	s.dispatch(ctx, nil, channel, method, arg, func(val any, err error) {
		done <- outcome{val, err}
	})

	select {
	case o := <-done:
		if o.err != nil && !errors.Is(o.err, status.ErrNotImplemented) {
			return nil, status.FromError(o.err)
		}
		return o.val, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Serve starts the server using the provided listener
// and codec function
func (s *Server) Serve(ctx context.Context, ln net.Listener, cf codec.CodecFunc) {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if errors.Is(err, net.ErrClosed) {
			break
		} else if err != nil {
			s.log.Warn("accept failed", zap.Error(err))
			continue
		}

		s.log.Debug("connection accepted", zap.Stringer("remote", conn.RemoteAddr()))

		// Handle connection using a codec bound to it
		go func() {
			defer conn.Close()
			s.handleConn(ctx, cf(conn))
		}()
	}
}

// ServeConn uses the provided connection to serve the client.
// This may be useful if something other than a net.Listener
// needs to be used
func (s *Server) ServeConn(ctx context.Context, conn io.ReadWriter, cf codec.CodecFunc) {
	s.handleConn(ctx, cf(conn))
}

// handleConn reads calls from a connection until it is closed.
// Calls are dispatched in arrival order; a deferred call does
// not hold up the calls behind it.
func (s *Server) handleConn(pCtx context.Context, c codec.Codec) {
	ctx, cancel := context.WithCancel(pCtx)
	defer cancel()

	codecMtx := &sync.Mutex{}
	send := func(res types.Response) {
		codecMtx.Lock()
		defer codecMtx.Unlock()
		if err := c.Encode(res); err != nil {
			s.log.Debug("failed to send response", zap.String("id", res.ID), zap.Error(err))
		}
	}

	for {
		var call types.Request
		// Read request using codec
		err := c.Decode(&call)
		if isClosed(err) {
			break
		} else if err != nil {
			// The stream can't be trusted after a decode error
			s.log.Warn("failed to decode request", zap.Error(err))
			send(newResponse(call.ID, nil, status.Newf(status.CodeInvalidArguments, "malformed request: %v", err)))
			break
		}

		id := call.ID
		s.dispatch(ctx, c, call.Channel, call.Method, call.Arg, func(val any, err error) {
			send(newResponse(id, val, err))
		})
	}
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed)
}

// newResponse builds the wire response for a call outcome
func newResponse(id string, val any, err error) types.Response {
	switch {
	case err == nil:
		return types.Response{ID: id, Return: val}
	case errors.Is(err, status.ErrNotImplemented):
		return types.Response{ID: id, Type: types.ResponseTypeNotImplemented}
	default:
		se := status.FromError(err)
		return types.Response{
			ID:      id,
			Type:    types.ResponseTypeError,
			Code:    se.Code,
			Error:   se.Message,
			Details: se.Details,
		}
	}
}
