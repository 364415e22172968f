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

// Package host implements the platform interfaces for the machine
// the bridge runs on, reading sysfs and procfs on Linux and calling
// the usual desktop helpers (xdg-open, open, pmset, iwgetid).
package host

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Options configures a Host
type Options struct {
	// SysRoot is where sysfs is mounted, normally /sys
	SysRoot string
	// ProcRoot is where procfs is mounted, normally /proc
	ProcRoot string
	// Manufacturer overrides the vendor read from the hardware
	Manufacturer string
	// DownloadsDir is the shared Downloads area, ~/Downloads by default
	DownloadsDir string

	Log *zap.Logger
}

// Host is the local machine
type Host struct {
	sysRoot      string
	procRoot     string
	manufacturer string
	downloadsDir string
	log          *zap.Logger

	// output runs a command and returns its stdout
	output func(ctx context.Context, name string, args ...string) ([]byte, error)
	// start launches a command without waiting for it
	start func(name string, args ...string) error
}

// New creates a Host from opts
func New(opts Options) (*Host, error) {
	h := &Host{
		sysRoot:      opts.SysRoot,
		procRoot:     opts.ProcRoot,
		manufacturer: opts.Manufacturer,
		downloadsDir: opts.DownloadsDir,
		log:          opts.Log,
		output:       runOutput,
		start:        runDetached,
	}
	if h.sysRoot == "" {
		h.sysRoot = "/sys"
	}
	if h.procRoot == "" {
		h.procRoot = "/proc"
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.downloadsDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.New("no downloads directory configured and no home directory found")
		}
		h.downloadsDir = filepath.Join(home, "Downloads")
	}
	return h, nil
}

// DownloadsDir returns the directory files are saved to
func (h *Host) DownloadsDir() string {
	return h.downloadsDir
}

func runOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func runDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	// Reap the child whenever it exits
	go cmd.Wait()
	return nil
}

// readTrim reads a small sysfs/procfs file
func readTrim(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

func readInt(path string) (int64, bool) {
	s, ok := readTrim(path)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
