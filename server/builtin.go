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
	"encoding/gob"
	"sort"

	"go.arsenm.dev/devbridge/status"
)

func init() {
	// Describe results travel inside an interface field
	gob.Register([]MethodDesc{})
}

// builtin contains handlers registered on every server
type builtin struct {
	srv *Server
}

// ListChannels returns the names of all registered channels
func (b builtin) ListChannels(_ *Context) []string {
	return b.srv.Channels()
}

// DescribeArgs selects the channel to describe
type DescribeArgs struct {
	Channel string `mapstructure:"channel"`
}

// Describe returns method descriptions for the given channel
func (b builtin) Describe(_ *Context, args DescribeArgs) ([]MethodDesc, error) {
	b.srv.chMtx.RLock()
	defer b.srv.chMtx.RUnlock()

	table, ok := b.srv.channels[args.Channel]
	if !ok {
		return nil, status.Newf(status.CodeInvalidArguments, "no such channel: %q", args.Channel)
	}

	out := make([]MethodDesc, 0, len(table))
	for name, h := range table {
		out = append(out, h.describe(name))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return out, nil
}
