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

// Package profile groups capabilities into the channel sets
// served by each app. A profile maps channel names to handler
// tables and installs them on a server.
package profile

import (
	"errors"
	"fmt"
	"sort"

	"go.arsenm.dev/devbridge/capability"
	"go.arsenm.dev/devbridge/permission"
	"go.arsenm.dev/devbridge/platform"
	"go.arsenm.dev/devbridge/server"
)

// Channel names
const (
	BatteryChannel     = "samples.flutter.dev/battery"
	DeviceInfoChannel  = "samples.flutter.dev/device_info"
	BrowserChannel     = "samples.flutter.dev/browser"
	DeviceChannel      = "com.example.student_dashboard/device"
	FileHelperChannel  = "file_helper"
	PermissionsChannel = "devbridge/permissions"
)

var (
	ErrUnknownProfile = errors.New("unknown profile")
	ErrMissingDep     = errors.New("profile dependency not provided")
)

// Deps holds the platform collaborators capabilities call into.
// Only the ones needed by the installed profiles must be set.
type Deps struct {
	Battery   platform.Battery
	Device    platform.DeviceInfo
	Opener    platform.URLOpener
	Network   platform.Network
	Sharer    platform.Sharer
	Downloads platform.Downloads
	Gate      *permission.Gate

	// RequireNearbyDevices makes Wi-Fi lookups also require
	// the nearby Wi-Fi devices permission
	RequireNearbyDevices bool
}

type profile struct {
	needsGate bool
	channels  func(d Deps) (map[string]server.Handlers, error)
}

var profiles = map[string]profile{
	"lab4": {channels: lab4},
	"lab6": {channels: lab6, needsGate: true},
	"lab7": {channels: lab7},
}

// Names returns the known profile names, sorted
func Names() []string {
	out := make([]string, 0, len(profiles))
	for name := range profiles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Valid reports whether name is a known profile
func Valid(name string) bool {
	_, ok := profiles[name]
	return ok
}

// Channels returns the handler tables of the named profiles,
// keyed by channel name. The permissions channel is included
// when any of the profiles requests permissions.
func Channels(d Deps, names ...string) (map[string]server.Handlers, error) {
	out := map[string]server.Handlers{}
	needsGate := false

	for _, name := range names {
		p, ok := profiles[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
		}

		chs, err := p.channels(d)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", name, err)
		}
		for ch, h := range chs {
			out[ch] = h
		}
		needsGate = needsGate || p.needsGate
	}

	if needsGate {
		perms := capability.Permissions{Gate: d.Gate}
		out[PermissionsChannel] = server.Handlers{
			"listPending": perms.ListPending,
			"respond":     perms.Respond,
			"check":       perms.Check,
		}
	}

	return out, nil
}

// Install registers the channels of the named profiles on srv
func Install(srv *server.Server, d Deps, names ...string) error {
	chs, err := Channels(d, names...)
	if err != nil {
		return err
	}
	for ch, h := range chs {
		if err := srv.Register(ch, h); err != nil {
			return fmt.Errorf("register %s: %w", ch, err)
		}
	}
	return nil
}

func lab4(d Deps) (map[string]server.Handlers, error) {
	if d.Battery == nil || d.Device == nil || d.Opener == nil {
		return nil, ErrMissingDep
	}
	return map[string]server.Handlers{
		BatteryChannel: {
			"getBatteryLevel": capability.Battery{Platform: d.Battery}.GetBatteryLevel,
		},
		DeviceInfoChannel: {
			"getDeviceManufacturer": capability.Device{Platform: d.Device}.GetDeviceManufacturer,
		},
		BrowserChannel: {
			"openUrl": capability.Browser{Platform: d.Opener}.OpenURL,
		},
	}, nil
}

func lab6(d Deps) (map[string]server.Handlers, error) {
	if d.Battery == nil || d.Network == nil || d.Sharer == nil || d.Gate == nil {
		return nil, ErrMissingDep
	}
	wifi := capability.Wifi{
		Platform:             d.Network,
		Gate:                 d.Gate,
		RequireNearbyDevices: d.RequireNearbyDevices,
	}
	return map[string]server.Handlers{
		DeviceChannel: {
			"getBatteryLevel": capability.Battery{Platform: d.Battery}.GetBatteryLevel,
			"getWifiSsid":     wifi.GetWifiSsid,
			"getWifiStatus":   wifi.GetWifiStatus,
			"sendEmail":       capability.Email{Platform: d.Sharer}.SendEmail,
		},
	}, nil
}

func lab7(d Deps) (map[string]server.Handlers, error) {
	if d.Downloads == nil {
		return nil, ErrMissingDep
	}
	return map[string]server.Handlers{
		FileHelperChannel: {
			"saveFileToDownloads": capability.Files{Platform: d.Downloads}.SaveFileToDownloads,
		},
	}, nil
}
