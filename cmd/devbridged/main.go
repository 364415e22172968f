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

// Command devbridged serves the device capabilities of the host
// it runs on over TCP, HTTP and WebSocket.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"go.arsenm.dev/devbridge/codec"
	"go.arsenm.dev/devbridge/config"
	"go.arsenm.dev/devbridge/internal/logging"
	"go.arsenm.dev/devbridge/permission"
	"go.arsenm.dev/devbridge/platform/host"
	"go.arsenm.dev/devbridge/profile"
	"go.arsenm.dev/devbridge/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// version is overridable at link time:
//
//	go build -ldflags "-X main.version=1.1.0"
var version = "1.0.0"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "devbridged: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("devbridged", flag.ContinueOnError)
	fs.SetOutput(out)

	cfgPath := fs.StringP("config", "c", "", "Path to config file")
	tcpAddr := fs.String("tcp", "", "TCP listen address (empty disables)")
	httpAddr := fs.String("http", "", "HTTP listen address (empty disables)")
	codecName := fs.String("codec", "", "Stream codec: "+fmt.Sprint(codec.Names))
	profiles := fs.StringSliceP("profile", "p", nil, "Profiles to serve (repeatable)")
	policy := fs.String("policy", "", "Permission policy: prompt, grant, deny or manual")
	granted := fs.StringSlice("grant", nil, "Permissions granted at startup (repeatable)")
	downloads := fs.String("downloads-dir", "", "Directory files are saved to")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn or error")
	showVersion := fs.Bool("version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: devbridged [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Fprintf(out, "devbridged %s\n", version)
		return nil
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}

	// Flags override the config file
	if fs.Changed("tcp") {
		cfg.Listen.TCP = *tcpAddr
	}
	if fs.Changed("http") {
		cfg.Listen.HTTP = *httpAddr
	}
	if fs.Changed("codec") {
		cfg.Codec = *codecName
	}
	if fs.Changed("profile") {
		cfg.Profiles = *profiles
	}
	if fs.Changed("policy") {
		cfg.Permissions.Policy = *policy
	}
	if fs.Changed("grant") {
		cfg.Permissions.Granted = append(cfg.Permissions.Granted, *granted...)
	}
	if fs.Changed("downloads-dir") {
		cfg.Downloads.Dir = *downloads
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	return serve(ctx, cfg, log)
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	h, err := host.New(host.Options{
		SysRoot:      cfg.Host.SysRoot,
		ProcRoot:     cfg.Host.ProcRoot,
		Manufacturer: cfg.Device.Manufacturer,
		DownloadsDir: cfg.Downloads.Dir,
		Log:          log.Named("host"),
	})
	if err != nil {
		return err
	}

	granted := make([]permission.Permission, len(cfg.Permissions.Granted))
	for i, p := range cfg.Permissions.Granted {
		granted[i] = permission.Permission(p)
	}
	gate := permission.NewGate(newPrompter(cfg.Permissions.Policy, log), log.Named("permission"), granted...)

	srv := server.New(server.WithLogger(log.Named("server")))
	defer srv.Close()

	err = profile.Install(srv, profile.Deps{
		Battery:              h,
		Device:               h,
		Opener:               h,
		Network:              h,
		Sharer:               h,
		Downloads:            h,
		Gate:                 gate,
		RequireNearbyDevices: cfg.Permissions.RequireNearbyWifiDevices,
	}, cfg.Profiles...)
	if err != nil {
		return err
	}

	cf, err := codec.ByName(cfg.Codec)
	if err != nil {
		return err
	}

	log.Info("serving",
		zap.Strings("profiles", cfg.Profiles),
		zap.Strings("channels", srv.Channels()),
		zap.String("codec", cfg.Codec),
		zap.String("policy", cfg.Permissions.Policy),
		zap.String("downloads", h.DownloadsDir()),
	)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Listen.TCP != "" {
		ln, err := net.Listen("tcp", cfg.Listen.TCP)
		if err != nil {
			return err
		}
		log.Info("tcp listening", zap.Stringer("addr", ln.Addr()))
		g.Go(func() error {
			srv.Serve(gctx, ln, cf)
			return nil
		})
	}

	if cfg.Listen.HTTP != "" {
		g.Go(func() error {
			return srv.ListenAndServe(gctx, cfg.Listen.HTTP, cf)
		})
	}

	return g.Wait()
}

// newPrompter returns the prompter for a permission policy. The
// prompt policy falls back to manual answers when there is no
// terminal to ask on.
func newPrompter(policy string, log *zap.Logger) permission.Prompter {
	switch policy {
	case config.PolicyGrant:
		return permission.Static{Grant: true}
	case config.PolicyDeny:
		return permission.Static{Grant: false}
	case config.PolicyManual:
		return permission.Manual{Log: log}
	}

	t := permission.NewTerminal(os.Stdin, os.Stderr, log)
	if !t.Available() {
		log.Warn("stdin is not a terminal, answer permission requests with devbridgectl respond")
		return permission.Manual{Log: log}
	}
	return t
}
