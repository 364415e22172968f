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

package client

import (
	"context"
	"errors"
	"io"
	"net"
	"reflect"
	"strings"
	"sync"

	"go.arsenm.dev/devbridge/codec"
	"go.arsenm.dev/devbridge/internal/reflectutil"
	"go.arsenm.dev/devbridge/internal/types"
	"go.arsenm.dev/devbridge/status"
	"golang.org/x/net/websocket"

	"github.com/gofrs/uuid"
)

// Client error values
var (
	ErrReturnNotPointer = errors.New("function call returns value but return value is not a pointer")
	ErrClosed           = errors.New("client connection closed")
)

// Client calls methods on a devbridge server
type Client struct {
	conn  io.ReadWriteCloser
	codec codec.Codec

	encMtx sync.Mutex

	chMtx sync.Mutex
	chs   map[string]chan *types.Response

	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// New creates and returns a new client
func New(conn io.ReadWriteCloser, cf codec.CodecFunc) *Client {
	out := &Client{
		conn:  conn,
		codec: cf(conn),
		chs:   map[string]chan *types.Response{},
		done:  make(chan struct{}),
	}

	go out.handleConn()

	return out
}

// Dial connects to addr and returns a client for it. Addresses
// starting with ws:// or wss:// are dialed as WebSocket endpoints,
// anything else as TCP.
func Dial(ctx context.Context, addr string, cf codec.CodecFunc) (*Client, error) {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		origin := "http://localhost/"
		conn, err := websocket.Dial(addr, "", origin)
		if err != nil {
			return nil, err
		}
		conn.PayloadType = websocket.BinaryFrame
		return New(conn, cf), nil
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return New(conn, cf), nil
}

// Call calls a method on a channel of the server and waits for
// its outcome. If the method is not implemented, the error is
// status.ErrNotImplemented. If the call failed, the error is a
// *status.Error. Otherwise the returned value, if any, is stored
// in ret, which must be a pointer.
func (c *Client) Call(ctx context.Context, channel, method string, arg any, ret any) error {
	// Create new v4 UUID
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	idStr := id.String()

	// Create new channel using the generated ID
	respCh := make(chan *types.Response, 1)
	c.chMtx.Lock()
	c.chs[idStr] = respCh
	c.chMtx.Unlock()

	defer func() {
		c.chMtx.Lock()
		delete(c.chs, idStr)
		c.chMtx.Unlock()
	}()

	// Encode request using codec
	c.encMtx.Lock()
	err = c.codec.Encode(types.Request{
		ID:      idStr,
		Channel: channel,
		Method:  method,
		Arg:     arg,
	})
	c.encMtx.Unlock()
	if err != nil {
		return err
	}

	var resp *types.Response
	select {
	case resp = <-respCh:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return c.err
	}

	switch resp.Type {
	case types.ResponseTypeNotImplemented:
		return status.ErrNotImplemented
	case types.ResponseTypeError:
		return status.New(resp.Code, resp.Error, resp.Details)
	}

	// If there is no return value, stop now
	if resp.Return == nil || ret == nil {
		return nil
	}

	// Get reflect value of return value
	retVal := reflect.ValueOf(ret)

	// IF return value is not a pointer, return error
	if retVal.Kind() != reflect.Ptr {
		return ErrReturnNotPointer
	}

	// Attempt to convert types, return error if not possible
	rVal, err := reflectutil.Convert(reflect.ValueOf(resp.Return), retVal.Type().Elem())
	if err != nil {
		return err
	}

	// Set return value to received value
	retVal.Elem().Set(rVal)

	return nil
}

func (c *Client) handleConn() {
	for {
		resp := &types.Response{}
		// Attempt to decode response using codec
		err := c.codec.Decode(resp)
		if err != nil {
			c.shutdown(err)
			return
		}

		c.chMtx.Lock()
		// Get channel from map, skip if it doesn't exist
		ch, ok := c.chs[resp.ID]
		c.chMtx.Unlock()
		if !ok {
			continue
		}

		// Send response to channel
		select {
		case ch <- resp:
		default:
		}
	}
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
			err = ErrClosed
		}
		c.err = err
		close(c.done)
	})
}

// Close closes the client
func (c *Client) Close() error {
	err := c.conn.Close()
	c.shutdown(nil)
	return err
}
