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

// Package permission defers calls that need a runtime-granted
// permission until the platform reports whether it was granted.
//
// A Gate keeps the set of granted permissions and the continuations
// waiting on a permission request. Each request gets its own id, so
// any number of callers may wait at the same time; a callback for
// one id resolves exactly that caller and clears it.
package permission

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// Permission names a runtime permission
type Permission string

// Permissions known to the built-in capabilities
const (
	FineLocation      Permission = "ACCESS_FINE_LOCATION"
	NearbyWifiDevices Permission = "NEARBY_WIFI_DEVICES"
)

// LocationRequestCode is the request code sent with location requests
const LocationRequestCode = 100

// ErrUnknownRequest is returned when resolving a request id that
// is not pending, including one that was already resolved
var ErrUnknownRequest = errors.New("no pending permission request with that id")

// Request describes a permission request awaiting a result
type Request struct {
	ID          string
	Code        int
	Permissions []Permission
	Created     time.Time
}

// Continuation holds what to do once a request is resolved.
// Exactly one of the two functions runs.
type Continuation struct {
	Granted func()
	Denied  func()
}

type pendingRequest struct {
	req  Request
	cont Continuation
}

// Resolver delivers the result of a permission request
type Resolver interface {
	Resolve(id string, granted bool) error
}

// Prompter asks the platform (or a person) for a permission. It must
// not block waiting for the answer; the answer is delivered later
// through the Resolver.
type Prompter interface {
	Prompt(ctx context.Context, req Request, r Resolver) error
}

// Gate tracks granted permissions and pending requests
type Gate struct {
	log      *zap.Logger
	prompter Prompter

	mtx     sync.Mutex
	granted map[Permission]bool
	pending map[string]*pendingRequest
}

// NewGate creates a gate that asks p for permissions, with the
// given permissions already granted
func NewGate(p Prompter, log *zap.Logger, granted ...Permission) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Gate{
		log:      log,
		prompter: p,
		granted:  map[Permission]bool{},
		pending:  map[string]*pendingRequest{},
	}
	for _, perm := range granted {
		g.granted[perm] = true
	}
	return g
}

// Granted reports whether perm is currently granted
func (g *Gate) Granted(perm Permission) bool {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.granted[perm]
}

// Grant marks perm as granted without prompting
func (g *Gate) Grant(perm Permission) {
	g.mtx.Lock()
	g.granted[perm] = true
	g.mtx.Unlock()
	g.log.Info("permission granted", zap.String("permission", string(perm)))
}

// Revoke marks perm as not granted. Later requests prompt again.
func (g *Gate) Revoke(perm Permission) {
	g.mtx.Lock()
	delete(g.granted, perm)
	g.mtx.Unlock()
	g.log.Info("permission revoked", zap.String("permission", string(perm)))
}

// Request asks for perm and stores cont until the answer arrives.
// It does not wait for the answer. If perm is already granted,
// cont.Granted runs immediately and no request is created.
func (g *Gate) Request(ctx context.Context, perm Permission, code int, cont Continuation) (Request, error) {
	g.mtx.Lock()
	if g.granted[perm] {
		g.mtx.Unlock()
		cont.Granted()
		return Request{}, nil
	}

	id, err := uuid.NewV4()
	if err != nil {
		g.mtx.Unlock()
		return Request{}, err
	}
	req := Request{
		ID:          id.String(),
		Code:        code,
		Permissions: []Permission{perm},
		Created:     time.Now(),
	}
	g.pending[req.ID] = &pendingRequest{req: req, cont: cont}
	g.mtx.Unlock()

	g.log.Info("awaiting permission",
		zap.String("id", req.ID),
		zap.Int("code", code),
		zap.String("permission", string(perm)),
	)

	if g.prompter == nil {
		return req, nil
	}

	if err := g.prompter.Prompt(ctx, req, g); err != nil {
		// Nobody will ever answer this request
		g.mtx.Lock()
		delete(g.pending, req.ID)
		g.mtx.Unlock()
		return Request{}, err
	}

	return req, nil
}

// Resolve delivers the result of the request with the given id.
// The request is cleared before its continuation runs, whatever
// the result. On grant the requested permissions are recorded as
// granted.
func (g *Gate) Resolve(id string, granted bool) error {
	g.mtx.Lock()
	p, ok := g.pending[id]
	if !ok {
		g.mtx.Unlock()
		return ErrUnknownRequest
	}
	delete(g.pending, id)
	if granted {
		for _, perm := range p.req.Permissions {
			g.granted[perm] = true
		}
	}
	g.mtx.Unlock()

	g.log.Info("permission result",
		zap.String("id", id),
		zap.Int("code", p.req.Code),
		zap.Bool("granted", granted),
	)

	if granted {
		if p.cont.Granted != nil {
			p.cont.Granted()
		}
	} else if p.cont.Denied != nil {
		p.cont.Denied()
	}

	return nil
}

// Pending returns the outstanding requests, oldest first
func (g *Gate) Pending() []Request {
	g.mtx.Lock()
	out := make([]Request, 0, len(g.pending))
	for _, p := range g.pending {
		out = append(out, p.req)
	}
	g.mtx.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Created.Before(out[j].Created)
	})
	return out
}
