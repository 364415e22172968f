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
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"

	"go.uber.org/zap"
)

var pmsetPercent = regexp.MustCompile(`(\d+)%`)

// BatteryLevel implements platform.Battery
func (h *Host) BatteryLevel(ctx context.Context) int {
	if runtime.GOOS == "darwin" {
		return h.pmsetBattery(ctx)
	}
	return h.sysfsBattery()
}

// sysfsBattery reads the first battery under power_supply. The
// capacity attribute is preferred; drivers without it still
// report now/full counters.
func (h *Host) sysfsBattery() int {
	dir := filepath.Join(h.sysRoot, "class", "power_supply")
	entries, err := os.ReadDir(dir)
	if err != nil {
		h.log.Debug("no power supplies", zap.Error(err))
		return -1
	}

	for _, e := range entries {
		supply := filepath.Join(dir, e.Name())
		if typ, _ := readTrim(filepath.Join(supply, "type")); typ != "Battery" {
			continue
		}

		if capacity, ok := readInt(filepath.Join(supply, "capacity")); ok {
			return int(capacity)
		}

		for _, pair := range [][2]string{
			{"energy_now", "energy_full"},
			{"charge_now", "charge_full"},
		} {
			now, okNow := readInt(filepath.Join(supply, pair[0]))
			full, okFull := readInt(filepath.Join(supply, pair[1]))
			if okNow && okFull && full > 0 {
				return int(now * 100 / full)
			}
		}
	}

	return -1
}

func (h *Host) pmsetBattery(ctx context.Context) int {
	out, err := h.output(ctx, "pmset", "-g", "batt")
	if err != nil {
		h.log.Debug("pmset failed", zap.Error(err))
		return -1
	}
	m := pmsetPercent.FindSubmatch(out)
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return -1
	}
	return n
}
