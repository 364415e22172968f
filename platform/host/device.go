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
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// Manufacturer implements platform.DeviceInfo
func (h *Host) Manufacturer(_ context.Context) string {
	if h.manufacturer != "" {
		return h.manufacturer
	}
	if runtime.GOOS == "darwin" {
		return "Apple"
	}
	if vendor, ok := readTrim(filepath.Join(h.sysRoot, "class", "dmi", "id", "sys_vendor")); ok && vendor != "" {
		return vendor
	}
	return "unknown"
}

// OpenURL implements platform.URLOpener. The URL is handed to the
// desktop's default handler; the handler's own exit is not awaited.
func (h *Host) OpenURL(_ context.Context, u *url.URL) error {
	switch runtime.GOOS {
	case "darwin":
		return h.start("open", u.String())
	case "windows":
		return h.start("rundll32", "url.dll,FileProtocolHandler", u.String())
	default:
		return h.start("xdg-open", u.String())
	}
}

// ShareText implements platform.Sharer by opening a mailto: URL
// in the default mail client
func (h *Host) ShareText(ctx context.Context, subject, body string) error {
	q := url.Values{}
	q.Set("subject", subject)
	q.Set("body", body)

	u := &url.URL{
		Scheme: "mailto",
		// Mail clients expect %20, not +
		RawQuery: strings.ReplaceAll(q.Encode(), "+", "%20"),
	}
	return h.OpenURL(ctx, u)
}
