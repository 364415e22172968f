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
	"go.arsenm.dev/devbridge/status"
)

// Battery reports the battery charge
type Battery struct {
	Platform platform.Battery
}

// GetBatteryLevel returns the charge in percent, 0 to 100
func (b Battery) GetBatteryLevel(ctx *server.Context) (int, error) {
	level := b.Platform.BatteryLevel(ctx)
	if level < 0 {
		return 0, status.New(status.CodeUnavailable, "Battery level not available.", nil)
	}
	if level > 100 {
		level = 100
	}
	return level, nil
}

// Device describes the hardware
type Device struct {
	Platform platform.DeviceInfo
}

// GetDeviceManufacturer returns the hardware vendor
func (d Device) GetDeviceManufacturer(ctx *server.Context) string {
	return d.Platform.Manufacturer(ctx)
}
