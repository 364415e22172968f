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

package capability

import (
	"errors"
	"time"

	"go.arsenm.dev/devbridge/permission"
	"go.arsenm.dev/devbridge/server"
	"go.arsenm.dev/devbridge/status"
)

// Permissions lets an operator answer permission requests and
// inspect permission state. It is how the permission callback
// reaches the bridge when no interactive prompt is available.
type Permissions struct {
	Gate *permission.Gate
}

// ListPending returns the outstanding permission requests
func (p Permissions) ListPending(_ *server.Context) []any {
	pending := p.Gate.Pending()
	out := make([]any, len(pending))
	for i, req := range pending {
		perms := make([]any, len(req.Permissions))
		for j, perm := range req.Permissions {
			perms[j] = string(perm)
		}
		out[i] = map[string]any{
			"id":          req.ID,
			"code":        req.Code,
			"permissions": perms,
			"created":     req.Created.UTC().Format(time.RFC3339),
		}
	}
	return out
}

// RespondArgs answers a permission request
type RespondArgs struct {
	ID      string `mapstructure:"id"`
	Granted bool   `mapstructure:"granted"`
}

// Respond delivers the answer to a permission request
func (p Permissions) Respond(_ *server.Context, args RespondArgs) error {
	err := p.Gate.Resolve(args.ID, args.Granted)
	if errors.Is(err, permission.ErrUnknownRequest) {
		return status.Newf(status.CodeUnknownRequest, "no pending permission request %q", args.ID)
	}
	return err
}

// CheckArgs selects a permission
type CheckArgs struct {
	Permission string `mapstructure:"permission"`
}

// Check reports whether a permission is granted
func (p Permissions) Check(_ *server.Context, args CheckArgs) bool {
	return p.Gate.Granted(permission.Permission(args.Permission))
}
