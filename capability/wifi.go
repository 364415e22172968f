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
	"context"
	"strings"

	"go.arsenm.dev/devbridge/permission"
	"go.arsenm.dev/devbridge/platform"
	"go.arsenm.dev/devbridge/server"
	"go.arsenm.dev/devbridge/status"
	"go.uber.org/zap"
)

// WifiKind tags the outcome of a Wi-Fi lookup
type WifiKind int

const (
	WifiConnected WifiKind = iota
	WifiNoActiveNetwork
	WifiNoCapabilities
	WifiNotConnected
	WifiNeedNearbyDevices
	WifiPermissionDenied
)

var wifiKindNames = [...]string{
	WifiConnected:         "connected",
	WifiNoActiveNetwork:   "noActiveNetwork",
	WifiNoCapabilities:    "noCapabilities",
	WifiNotConnected:      "notConnected",
	WifiNeedNearbyDevices: "needNearbyDevicesPermission",
	WifiPermissionDenied:  "permissionDenied",
}

func (k WifiKind) String() string {
	if k < 0 || int(k) >= len(wifiKindNames) {
		return "unknown"
	}
	return wifiKindNames[k]
}

// WifiStatus is the outcome of a Wi-Fi lookup that did not fail
type WifiStatus struct {
	Kind WifiKind
	SSID string
}

// String renders the status the way getWifiSsid reports it:
// the SSID when connected, a description otherwise
func (s WifiStatus) String() string {
	switch s.Kind {
	case WifiConnected:
		return s.SSID
	case WifiNoActiveNetwork:
		return "No active network"
	case WifiNoCapabilities:
		return "No network capabilities"
	case WifiNotConnected:
		return "Not connected to WiFi"
	case WifiNeedNearbyDevices:
		return "Need NEARBY_WIFI_DEVICES permission"
	case WifiPermissionDenied:
		return "Location permission denied. Cannot get SSID."
	}
	return s.Kind.String()
}

// Wifi reports the SSID of the active Wi-Fi network. Reading it
// needs the location permission; calls made without it wait for
// the permission request to be answered.
type Wifi struct {
	Platform platform.Network
	Gate     *permission.Gate
	// RequireNearbyDevices additionally requires the nearby Wi-Fi
	// devices permission before an SSID is reported
	RequireNearbyDevices bool
}

// GetWifiSsid returns the SSID, without quotes, or a description
// of why there is none
func (w Wifi) GetWifiSsid(ctx *server.Context) (any, error) {
	return w.withLocation(ctx, func(s WifiStatus) any {
		return s.String()
	})
}

// GetWifiStatus returns {"status": kind, "ssid": ssid}, so callers
// can branch on the kind instead of matching descriptions
func (w Wifi) GetWifiStatus(ctx *server.Context) (any, error) {
	return w.withLocation(ctx, func(s WifiStatus) any {
		return map[string]any{
			"status": s.Kind.String(),
			"ssid":   s.SSID,
		}
	})
}

// withLocation answers the call right away if the location permission
// is granted. Otherwise it defers the call, requests the permission,
// and answers once the request is resolved: with the lookup on grant,
// with a denial status on deny.
func (w Wifi) withLocation(ctx *server.Context, render func(WifiStatus) any) (any, error) {
	log := ctx.Logger()

	if w.Gate.Granted(permission.FineLocation) {
		return w.outcome(ctx, render)
	}

	res := ctx.Defer()
	// The retry outlives this handler
	retryCtx := context.WithoutCancel(ctx)

	_, err := w.Gate.Request(ctx, permission.FineLocation, permission.LocationRequestCode, permission.Continuation{
		Granted: func() {
			val, err := w.outcome(retryCtx, render)
			if err != nil {
				se := status.FromError(err)
				res.Error(se.Code, se.Message, se.Details)
				return
			}
			log.Debug("wifi lookup after permission granted", zap.Any("result", val))
			res.Success(val)
		},
		Denied: func() {
			res.Success(render(WifiStatus{Kind: WifiPermissionDenied}))
		},
	})
	if err != nil {
		return nil, status.Newf(status.CodeWifiError, "Failed to request location permission: '%s'", err)
	}
	return nil, nil
}

func (w Wifi) outcome(ctx context.Context, render func(WifiStatus) any) (any, error) {
	st, err := w.lookup(ctx)
	if err != nil {
		return nil, status.Newf(status.CodeWifiError, "Failed to get WIFI SSID: '%s'", err)
	}
	return render(st), nil
}

func (w Wifi) lookup(ctx context.Context) (WifiStatus, error) {
	info, err := w.Platform.ActiveNetwork(ctx)
	if err != nil {
		return WifiStatus{}, err
	}
	if info == nil {
		return WifiStatus{Kind: WifiNoActiveNetwork}, nil
	}

	switch info.Transport {
	case platform.TransportUnknown:
		return WifiStatus{Kind: WifiNoCapabilities}, nil
	case platform.TransportOther:
		return WifiStatus{Kind: WifiNotConnected}, nil
	}

	if w.RequireNearbyDevices && !w.Gate.Granted(permission.NearbyWifiDevices) {
		return WifiStatus{Kind: WifiNeedNearbyDevices}, nil
	}

	return WifiStatus{
		Kind: WifiConnected,
		SSID: strings.ReplaceAll(info.SSID, `"`, ""),
	}, nil
}
