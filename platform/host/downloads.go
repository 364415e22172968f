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

package host

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.arsenm.dev/devbridge/platform"
	"go.uber.org/zap"
)

// ErrPathEscape is returned when a relative path points outside
// the Downloads directory
var ErrPathEscape = errors.New("relative path leaves the downloads directory")

const maxDuplicates = 1000

// preferred extensions for types whose registered extension
// list does not start with the common one
var preferredExt = map[string]string{
	"text/plain":       ".txt",
	"text/csv":         ".csv",
	"text/html":        ".html",
	"application/json": ".json",
	"application/pdf":  ".pdf",
	"image/jpeg":       ".jpg",
	"image/png":        ".png",
}

// Insert implements platform.Downloads. Like a media store, it adds
// an extension matching the MIME type when the name has none, and
// picks "name (1).ext", "name (2).ext", ... when the name is taken.
func (h *Host) Insert(_ context.Context, entry platform.FileEntry, content []byte) (string, error) {
	dir, err := h.resolveDir(entry.RelativePath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := withExtension(sanitizeName(entry.DisplayName), entry.MimeType)

	f, path, err := createUnique(dir, name)
	if err != nil {
		return "", err
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}

	h.log.Info("file saved to downloads", zap.String("path", path), zap.Int("bytes", len(content)))

	u := &url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String(), nil
}

// resolveDir maps a media-store style relative path such as
// "Download/reports" onto the Downloads directory
func (h *Host) resolveDir(rel string) (string, error) {
	base := filepath.Clean(h.downloadsDir)

	rel = strings.TrimSpace(filepath.ToSlash(rel))
	parts := strings.Split(strings.Trim(rel, "/"), "/")
	if len(parts) > 0 && (strings.EqualFold(parts[0], "Download") || strings.EqualFold(parts[0], "Downloads")) {
		parts = parts[1:]
	}

	for _, p := range parts {
		if p == ".." {
			return "", ErrPathEscape
		}
	}

	dir := filepath.Join(append([]string{base}, parts...)...)
	if dir != base && !strings.HasPrefix(dir, base+string(filepath.Separator)) {
		return "", ErrPathEscape
	}
	return dir, nil
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "download"
	}
	return name
}

func withExtension(name, mimeType string) string {
	if filepath.Ext(name) != "" || mimeType == "" {
		return name
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return name
	}
	if ext, ok := preferredExt[mediaType]; ok {
		return name + ext
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return name + exts[0]
	}
	return name
}

// createUnique creates name in dir, or the first free "name (n)"
func createUnique(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i <= maxDuplicates; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		} else if err != nil {
			return nil, "", err
		}
		return f, path, nil
	}
	return nil, "", fmt.Errorf("too many files named %q", name)
}
