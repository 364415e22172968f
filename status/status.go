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

// Package status defines the outcome of a method call as seen on
// both sides of a channel.
//
// A call either succeeds with a value, fails with a structured *Error
// carrying a code, a message and optional details, or reports that the
// method is not implemented. The last case is deliberately not an *Error
// so the application layer can tell "unsupported" from "failed".
package status

import (
	"errors"
	"fmt"
)

// Error codes used by the built-in capabilities
const (
	CodeUnavailable      = "UNAVAILABLE"
	CodeInvalidArguments = "INVALID_ARGUMENTS"
	CodeWifiError        = "WIFI_ERROR"
	CodeUnknownRequest   = "UNKNOWN_REQUEST"
	CodeInternal         = "INTERNAL"
	CodeGeneric          = "ERROR"
)

// ErrNotImplemented is returned when a channel has no handler
// for the requested method
var ErrNotImplemented = errors.New("method not implemented")

// Error is a structured call failure
type Error struct {
	Code    string
	Message string
	Details any
}

// New creates a new *Error
func New(code, msg string, details any) *Error {
	return &Error{Code: code, Message: msg, Details: details}
}

// Newf creates a new *Error with a formatted message and no details
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// Is reports whether target is an *Error with the same code,
// so errors.Is(err, &Error{Code: CodeUnavailable}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// FromError converts any error into an *Error. Errors that already
// are (or wrap) an *Error are returned as-is; anything else is
// reported with CodeGeneric. nil and ErrNotImplemented return nil.
func FromError(err error) *Error {
	if err == nil || errors.Is(err, ErrNotImplemented) {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return &Error{Code: CodeGeneric, Message: err.Error()}
}

// Code returns the status code of err, or "" if err is nil
// or not implemented.
func Code(err error) string {
	se := FromError(err)
	if se == nil {
		return ""
	}
	return se.Code
}
