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

// Command devbridgectl calls methods on a running devbridged and
// answers its pending permission requests.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"
	"go.arsenm.dev/devbridge/client"
	"go.arsenm.dev/devbridge/codec"
	"go.arsenm.dev/devbridge/profile"
	"go.arsenm.dev/devbridge/server"
	"go.arsenm.dev/devbridge/status"
)

var version = "1.0.0"

var errUsage = errors.New("invalid usage, see --help")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "devbridgectl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("devbridgectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	// Everything after the command belongs to the command
	fs.SetInterspersed(false)

	addr := fs.StringP("addr", "a", "127.0.0.1:9797", "Server address, ws:// or wss:// for WebSocket")
	codecName := fs.String("codec", "msgpack", "Stream codec: "+fmt.Sprint(codec.Names))
	timeout := fs.DurationP("timeout", "t", 0, "Give up after this long (0 waits forever)")
	showVersion := fs.Bool("version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprint(stderr, `Usage: devbridgectl [options] <command> [args]

Commands:
  call <channel> <method> [json]   Call a method, with optional JSON arguments
  channels                         List channels
  describe <channel>               List the methods of a channel
  pending                          List pending permission requests
  respond <id> <grant|deny>        Answer a permission request

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Fprintf(stdout, "devbridgectl %s\n", version)
		return nil
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errUsage
	}

	cmd, arg, err := parseCommand(rest)
	if err != nil {
		return err
	}

	cf, err := codec.ByName(*codecName)
	if err != nil {
		return err
	}

	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	c, err := client.Dial(ctx, *addr, cf)
	if err != nil {
		return err
	}
	defer c.Close()

	var ret any
	err = c.Call(ctx, cmd.channel, cmd.method, arg, &ret)
	if errors.Is(err, status.ErrNotImplemented) {
		return fmt.Errorf("%s/%s: not implemented", cmd.channel, cmd.method)
	} else if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(ret)
}

type command struct {
	channel string
	method  string
}

// parseCommand turns command line arguments into a call
func parseCommand(args []string) (command, any, error) {
	switch args[0] {
	case "call":
		if len(args) < 3 || len(args) > 4 {
			return command{}, nil, errUsage
		}
		var arg any
		if len(args) == 4 {
			if err := json.Unmarshal([]byte(args[3]), &arg); err != nil {
				return command{}, nil, fmt.Errorf("arguments: %w", err)
			}
		}
		return command{args[1], args[2]}, arg, nil
	case "channels":
		return command{server.BuiltinChannel, "listChannels"}, nil, nil
	case "describe":
		if len(args) != 2 {
			return command{}, nil, errUsage
		}
		return command{server.BuiltinChannel, "describe"}, map[string]any{"channel": args[1]}, nil
	case "pending":
		return command{profile.PermissionsChannel, "listPending"}, nil, nil
	case "respond":
		if len(args) != 3 {
			return command{}, nil, errUsage
		}
		var granted bool
		switch strings.ToLower(args[2]) {
		case "grant", "allow", "yes", "y":
			granted = true
		case "deny", "no", "n":
		default:
			return command{}, nil, fmt.Errorf("expected grant or deny, got %q", args[2])
		}
		return command{profile.PermissionsChannel, "respond"}, map[string]any{"id": args[1], "granted": granted}, nil
	}
	return command{}, nil, fmt.Errorf("unknown command %q", args[0])
}
