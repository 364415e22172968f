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

// Package platform declares the device APIs the capabilities call
// into. The capabilities never touch the operating system directly;
// package host provides implementations for the local machine, and
// tests provide fakes.
package platform

import (
	"context"
	"net/url"
)

// Battery reads the battery charge
type Battery interface {
	// BatteryLevel returns the charge in percent, or -1 if the
	// platform cannot report it
	BatteryLevel(ctx context.Context) int
}

// DeviceInfo describes the hardware
type DeviceInfo interface {
	Manufacturer(ctx context.Context) string
}

// URLOpener hands a URL to the platform's default handler
type URLOpener interface {
	OpenURL(ctx context.Context, u *url.URL) error
}

// Transport is the kind of link an active network uses
type Transport int

const (
	// TransportUnknown means the network's capabilities
	// could not be read
	TransportUnknown Transport = iota
	TransportWifi
	TransportOther
)

// NetworkInfo describes the active network
type NetworkInfo struct {
	Interface string
	Transport Transport
	// SSID as reported by the platform, possibly quoted
	SSID string
}

// Network queries network state
type Network interface {
	// ActiveNetwork returns the network carrying the default
	// route, or nil if there is none
	ActiveNetwork(ctx context.Context) (*NetworkInfo, error)
}

// Sharer opens a compose/share sheet prefilled with text
type Sharer interface {
	ShareText(ctx context.Context, subject, body string) error
}

// FileEntry describes a file to create in the Downloads area
type FileEntry struct {
	DisplayName  string
	MimeType     string
	RelativePath string
}

// Downloads stores files in the shared Downloads area
type Downloads interface {
	// Insert writes content as a new file and returns a URI
	// identifying it
	Insert(ctx context.Context, entry FileEntry, content []byte) (string, error)
}
