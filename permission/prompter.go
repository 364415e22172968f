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

package permission

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/term"
)

// ErrNoTerminal is returned by a Terminal prompter whose input
// is not a terminal
var ErrNoTerminal = errors.New("permission prompt needs an interactive terminal")

// Static answers every request with the same result, asynchronously,
// as a platform with a fixed policy would
type Static struct {
	Grant bool
}

// Prompt implements Prompter
func (s Static) Prompt(_ context.Context, req Request, r Resolver) error {
	go r.Resolve(req.ID, s.Grant)
	return nil
}

// Manual leaves requests pending until something calls Resolve,
// such as an operator answering through the permissions channel
type Manual struct {
	Log *zap.Logger
}

// Prompt implements Prompter
func (m Manual) Prompt(_ context.Context, req Request, _ Resolver) error {
	if m.Log != nil {
		m.Log.Info("permission request waiting for an operator", zap.String("id", req.ID))
	}
	return nil
}

// Terminal asks on a terminal whether to grant each request.
// Prompts are shown one at a time, in request order.
type Terminal struct {
	in  *os.File
	out io.Writer
	log *zap.Logger

	mtx    sync.Mutex
	reader *bufio.Reader
}

// NewTerminal creates a prompter reading answers from in and
// writing questions to out
func NewTerminal(in *os.File, out io.Writer, log *zap.Logger) *Terminal {
	if log == nil {
		log = zap.NewNop()
	}
	return &Terminal{
		in:     in,
		out:    out,
		log:    log,
		reader: bufio.NewReader(in),
	}
}

// Available reports whether the prompter's input is a terminal
func (t *Terminal) Available() bool {
	return term.IsTerminal(int(t.in.Fd()))
}

// Prompt implements Prompter
func (t *Terminal) Prompt(_ context.Context, req Request, r Resolver) error {
	if !t.Available() {
		return ErrNoTerminal
	}
	go func() {
		granted := t.ask(req)
		if err := r.Resolve(req.ID, granted); err != nil {
			t.log.Warn("permission answer not delivered", zap.String("id", req.ID), zap.Error(err))
		}
	}()
	return nil
}

func (t *Terminal) ask(req Request) bool {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	perms := make([]string, len(req.Permissions))
	for i, p := range req.Permissions {
		perms[i] = string(p)
	}
	fmt.Fprintf(t.out, "Allow access to %s? [y/N] ", strings.Join(perms, ", "))

	line, err := t.reader.ReadString('\n')
	if err != nil && line == "" {
		t.log.Warn("failed to read permission answer", zap.Error(err))
		return false
	}
	return parseAnswer(line)
}

func parseAnswer(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "allow", "grant":
		return true
	default:
		return false
	}
}
