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
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"go.arsenm.dev/devbridge/platform"
)

// ActiveNetwork implements platform.Network
func (h *Host) ActiveNetwork(ctx context.Context) (*platform.NetworkInfo, error) {
	switch runtime.GOOS {
	case "linux":
		return h.linuxNetwork(ctx)
	case "darwin":
		return h.darwinNetwork(ctx)
	default:
		return nil, errors.ErrUnsupported
	}
}

func (h *Host) linuxNetwork(ctx context.Context) (*platform.NetworkInfo, error) {
	iface, err := h.defaultRouteInterface()
	if err != nil {
		return nil, err
	}
	if iface == "" {
		return nil, nil
	}

	info := &platform.NetworkInfo{Interface: iface}

	netDir := filepath.Join(h.sysRoot, "class", "net", iface)
	if _, err := os.Stat(netDir); err != nil {
		info.Transport = platform.TransportUnknown
		return info, nil
	}

	if !isWireless(netDir) {
		info.Transport = platform.TransportOther
		return info, nil
	}
	info.Transport = platform.TransportWifi

	out, err := h.output(ctx, "iwgetid", "-r", iface)
	if err != nil {
		return nil, fmt.Errorf("iwgetid %s: %w", iface, err)
	}
	info.SSID = strings.TrimSpace(string(out))

	return info, nil
}

func isWireless(netDir string) bool {
	for _, name := range []string{"wireless", "phy80211"} {
		if _, err := os.Stat(filepath.Join(netDir, name)); err == nil {
			return true
		}
	}
	return false
}

// defaultRouteInterface returns the interface of the IPv4 default
// route with the lowest metric, or "" if there is none
func (h *Host) defaultRouteInterface() (string, error) {
	f, err := os.Open(filepath.Join(h.procRoot, "net", "route"))
	if err != nil {
		return "", err
	}
	defer f.Close()

	const flagUp = 0x1

	best, bestMetric := "", -1
	sc := bufio.NewScanner(f)
	// Skip header
	sc.Scan()
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 7 || fields[1] != "00000000" {
			continue
		}
		flags, err := strconv.ParseUint(fields[3], 16, 32)
		if err != nil || flags&flagUp == 0 {
			continue
		}
		metric, err := strconv.Atoi(fields[6])
		if err != nil {
			continue
		}
		if bestMetric < 0 || metric < bestMetric {
			best, bestMetric = fields[0], metric
		}
	}
	return best, sc.Err()
}

func (h *Host) darwinNetwork(ctx context.Context) (*platform.NetworkInfo, error) {
	const prefix = "Current Wi-Fi Network: "

	out, err := h.output(ctx, "networksetup", "-getairportnetwork", "en0")
	if err != nil {
		return nil, fmt.Errorf("networksetup: %w", err)
	}

	line := strings.TrimSpace(string(out))
	if strings.HasPrefix(line, prefix) {
		return &platform.NetworkInfo{
			Interface: "en0",
			Transport: platform.TransportWifi,
			SSID:      strings.TrimPrefix(line, prefix),
		}, nil
	}
	return &platform.NetworkInfo{Interface: "en0", Transport: platform.TransportOther}, nil
}
