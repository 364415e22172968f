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
	"sync"

	"go.arsenm.dev/devbridge/codec"
	"go.arsenm.dev/devbridge/status"
	"go.uber.org/zap"
)

// replyFunc delivers the outcome of a call to whoever made it
type replyFunc func(val any, err error)

// Context is the context of a single method call. It is canceled
// once the call has been answered, or when the connection that
// made the call goes away.
type Context struct {
	context.Context
	cancel context.CancelFunc

	srv     *Server
	codec   codec.Codec
	channel string
	method  string
	log     *zap.Logger

	reply    replyFunc
	deferred *deferredResult
}

func newContext(pCtx context.Context, srv *Server, c codec.Codec, channel, method string, reply replyFunc) *Context {
	ctx, cancel := context.WithCancel(pCtx)
	return &Context{
		Context: ctx,
		cancel:  cancel,
		srv:     srv,
		codec:   c,
		channel: channel,
		method:  method,
		log:     srv.log.With(zap.String("channel", channel), zap.String("method", method)),
		reply:   reply,
	}
}

// Channel returns the name of the channel the call arrived on
func (ctx *Context) Channel() string {
	return ctx.channel
}

// Method returns the name of the called method
func (ctx *Context) Method() string {
	return ctx.method
}

// Logger returns a logger annotated with the channel and method
func (ctx *Context) Logger() *zap.Logger {
	return ctx.log
}

// GetCodec returns a codec bound to the connection that made
// this call, or nil if the call was made in-process
func (ctx *Context) GetCodec() codec.Codec {
	return ctx.codec
}

// Defer changes the handler it's called in into a deferred
// handler, and returns a Result which must later be used to
// answer the call. The handler's own return values are ignored,
// except that a non-nil error fails the call if the Result has
// not been resolved yet.
//
// The Result may be resolved from any goroutine, after the
// handler has returned.
func (ctx *Context) Defer() Result {
	if ctx.deferred == nil {
		ctx.deferred = &deferredResult{ctx: ctx}
		ctx.srv.track(ctx)
		ctx.log.Debug("call deferred")
	}
	return ctx.deferred
}

// Result is the sink of a deferred call. Only the first
// resolution is delivered; later ones are logged and dropped.
type Result interface {
	Success(val any)
	Error(code, message string, details any)
	NotImplemented()
}

type deferredResult struct {
	ctx  *Context
	once sync.Once
}

func (r *deferredResult) Success(val any) {
	r.resolve(val, nil)
}

func (r *deferredResult) Error(code, message string, details any) {
	r.resolve(nil, status.New(code, message, details))
}

func (r *deferredResult) NotImplemented() {
	r.resolve(nil, status.ErrNotImplemented)
}

func (r *deferredResult) resolve(val any, err error) {
	resolved := false
	r.once.Do(func() {
		resolved = true
		r.ctx.srv.untrack(r.ctx)
		r.ctx.cancel()
		r.ctx.reply(val, err)
	})
	if !resolved {
		r.ctx.log.Warn("deferred call already resolved, dropping outcome")
	}
}
