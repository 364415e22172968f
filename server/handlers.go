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
	"errors"
	"reflect"

	"go.arsenm.dev/devbridge/internal/reflectutil"
)

// ErrInvalidHandler is returned by Register when a handler
// table contains a value that cannot be called by the dispatcher
var ErrInvalidHandler = errors.New("handler must be func(*Context[, A]) [R][, error]")

var (
	ctxType = reflect.TypeOf((*Context)(nil))
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// Handlers maps method names to handler functions. Each
// handler must have one of the following shapes, where A
// is any argument type and R is any return type:
//
//	func(*Context)
//	func(*Context) error
//	func(*Context) R
//	func(*Context) (R, error)
//
// and the same with a second parameter of type A. Loose
// call arguments are converted to A before the call; a
// handler without A ignores whatever arguments were sent.
type Handlers map[string]any

// handler is a validated handler function
type handler struct {
	fn  reflect.Value
	typ reflect.Type
}

func newHandler(fn any) (handler, error) {
	val := reflect.ValueOf(fn)
	if val.Kind() != reflect.Func || val.IsNil() {
		return handler{}, ErrInvalidHandler
	}
	h := handler{fn: val, typ: val.Type()}
	if !h.valid() {
		return handler{}, ErrInvalidHandler
	}
	return h, nil
}

func (h handler) valid() bool {
	// If handler has more than 2 or less than 1 input, it is invalid
	if h.typ.NumIn() > 2 || h.typ.NumIn() < 1 || h.typ.IsVariadic() {
		return false
	}

	// If handler has more than 2 outputs, it is invalid
	if h.typ.NumOut() > 2 {
		return false
	}

	// Check to ensure first parameter is context
	if h.typ.In(0) != ctxType {
		return false
	}

	// If handler has 2 outputs, the second one must be an error
	if h.typ.NumOut() == 2 && h.typ.Out(1) != errType {
		return false
	}

	return true
}

// hasArg reports whether the handler takes an argument
func (h handler) hasArg() bool {
	return h.typ.NumIn() == 2
}

// convertArg converts a loose argument to the handler's
// argument type
func (h handler) convertArg(arg any) (reflect.Value, error) {
	if !h.hasArg() {
		return reflect.Value{}, nil
	}
	argType := h.typ.In(1)

	// IF argument is []any, convert it to the handler's slice type
	if anySlice, ok := arg.([]any); ok {
		k := argType.Kind()
		if k == reflect.Slice || k == reflect.Array {
			return reflect.ValueOf(reflectutil.ConvertSlice(anySlice, argType)), nil
		}
	}

	return reflectutil.Convert(reflect.ValueOf(arg), argType)
}

// call runs the handler and normalizes its return values
func (h handler) call(ctx *Context, arg reflect.Value) (any, error) {
	in := []reflect.Value{reflect.ValueOf(ctx)}
	if h.hasArg() {
		in = append(in, arg)
	}

	out := h.fn.Call(in)

	switch len(out) {
	case 1:
		// If the only return value's type is error
		if h.typ.Out(0) == errType {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	case 2:
		if err := asError(out[1]); err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	}
	return nil, nil
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

// MethodDesc describes a method registered on a channel
type MethodDesc struct {
	Name    string
	Args    []string
	Returns []string
}

func (h handler) describe(name string) MethodDesc {
	desc := MethodDesc{Name: name}
	// Skip first argument, as it is *Context
	for i := 1; i < h.typ.NumIn(); i++ {
		desc.Args = append(desc.Args, h.typ.In(i).String())
	}
	for i := 0; i < h.typ.NumOut(); i++ {
		desc.Returns = append(desc.Returns, h.typ.Out(i).String())
	}
	return desc
}
