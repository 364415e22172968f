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
	"go.arsenm.dev/devbridge/platform"
	"go.arsenm.dev/devbridge/server"
	"go.uber.org/zap"
)

// SaveFileArgs are the arguments of saveFileToDownloads
type SaveFileArgs struct {
	// Values holds display_name, mime_type and relative_path
	Values  map[string]string `mapstructure:"values"`
	Content *string           `mapstructure:"content"`
}

// Files saves files to the shared Downloads area
type Files struct {
	Platform platform.Downloads
}

// SaveFileToDownloads writes the content as a new download and
// returns its URI, or nil if an argument is missing or the platform
// could not store the file
func (f Files) SaveFileToDownloads(ctx *server.Context, args SaveFileArgs) any {
	if args.Values == nil || args.Content == nil {
		return nil
	}

	entry := platform.FileEntry{
		DisplayName:  args.Values["display_name"],
		MimeType:     args.Values["mime_type"],
		RelativePath: args.Values["relative_path"],
	}

	uri, err := f.Platform.Insert(ctx, entry, []byte(*args.Content))
	if err != nil {
		ctx.Logger().Warn("failed to save download", zap.String("name", entry.DisplayName), zap.Error(err))
		return nil
	}
	return uri
}
