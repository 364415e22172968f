package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"go.arsenm.dev/devbridge/capability"
	"go.arsenm.dev/devbridge/codec"
	"go.arsenm.dev/devbridge/permission"
	"go.arsenm.dev/devbridge/profile"
	"go.arsenm.dev/devbridge/server"
)

type echoArgs struct {
	Text string `mapstructure:"text"`
}

// startServer serves a test channel and the permissions channel
// with the given codec and returns the listen address
func startServer(t *testing.T, cf codec.CodecFunc) (string, *permission.Gate) {
	t.Helper()

	gate := permission.NewGate(permission.Manual{}, nil)
	srv := server.New()
	t.Cleanup(srv.Close)

	err := srv.Register("test", server.Handlers{
		"echo": func(_ *server.Context, a echoArgs) string { return a.Text },
		"add":  func(_ *server.Context, in [2]int) int { return in[0] + in[1] },
	})
	if err != nil {
		t.Fatal(err)
	}
	perms := capability.Permissions{Gate: gate}
	err = srv.Register(profile.PermissionsChannel, server.Handlers{
		"listPending": perms.ListPending,
		"respond":     perms.Respond,
	})
	if err != nil {
		t.Fatal(err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Serve(ctx, ln, cf)

	return ln.Addr().String(), gate
}

func ctl(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := run(ctx, args, &stdout, &stderr)
	return stdout.String(), err
}

func TestCall(t *testing.T) {
	for _, name := range codec.Names {
		t.Run(name, func(t *testing.T) {
			cf, err := codec.ByName(name)
			if err != nil {
				t.Fatal(err)
			}
			addr, _ := startServer(t, cf)

			out, err := ctl(t, "-a", addr, "--codec", name, "call", "test", "echo", `{"text":"hello"}`)
			if err != nil {
				t.Fatal(err)
			}
			if strings.TrimSpace(out) != `"hello"` {
				t.Errorf("unexpected output %q", out)
			}

			out, err = ctl(t, "-a", addr, "--codec", name, "call", "test", "add", "[2, 3]")
			if err != nil {
				t.Fatal(err)
			}
			if strings.TrimSpace(out) != "5" {
				t.Errorf("unexpected output %q", out)
			}

			_, err = ctl(t, "-a", addr, "--codec", name, "call", "test", "missing")
			if err == nil || !strings.Contains(err.Error(), "not implemented") {
				t.Errorf("expected not implemented, got %v", err)
			}
		})
	}
}

func TestChannels(t *testing.T) {
	addr, _ := startServer(t, codec.Msgpack)

	out, err := ctl(t, "-a", addr, "channels")
	if err != nil {
		t.Fatal(err)
	}
	var chs []string
	if err := json.Unmarshal([]byte(out), &chs); err != nil {
		t.Fatal(err)
	}
	want := []string{server.BuiltinChannel, profile.PermissionsChannel, "test"}
	if strings.Join(chs, ",") != strings.Join(want, ",") {
		t.Errorf("unexpected channels %v", chs)
	}

	out, err = ctl(t, "-a", addr, "describe", "test")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "echo") || !strings.Contains(out, "add") {
		t.Errorf("unexpected description %q", out)
	}
}

func TestPendingAndRespond(t *testing.T) {
	addr, gate := startServer(t, codec.CBOR)

	granted := make(chan struct{})
	req, err := gate.Request(context.Background(), permission.FineLocation, permission.LocationRequestCode, permission.Continuation{
		Granted: func() { close(granted) },
	})
	if err != nil {
		t.Fatal(err)
	}

	out, err := ctl(t, "-a", addr, "--codec", "cbor", "pending")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, req.ID) || !strings.Contains(out, string(permission.FineLocation)) {
		t.Errorf("expected pending request in output, got %q", out)
	}

	if _, err = ctl(t, "-a", addr, "--codec", "cbor", "respond", req.ID, "grant"); err != nil {
		t.Fatal(err)
	}
	select {
	case <-granted:
	case <-time.After(time.Second):
		t.Fatal("continuation did not run")
	}

	_, err = ctl(t, "-a", addr, "--codec", "cbor", "respond", req.ID, "deny")
	if err == nil || !strings.Contains(err.Error(), "UNKNOWN_REQUEST") {
		t.Errorf("expected UNKNOWN_REQUEST, got %v", err)
	}
}

func TestParseCommand(t *testing.T) {
	cmd, arg, err := parseCommand([]string{"respond", "abc", "grant"})
	if err != nil {
		t.Fatal(err)
	}
	if cmd.channel != profile.PermissionsChannel || cmd.method != "respond" {
		t.Errorf("unexpected command %+v", cmd)
	}
	m := arg.(map[string]any)
	if m["id"] != "abc" || m["granted"] != true {
		t.Errorf("unexpected args %v", m)
	}

	bad := [][]string{
		{"call", "test"},
		{"call", "test", "echo", "{not json"},
		{"describe"},
		{"respond", "abc"},
		{"respond", "abc", "maybe"},
		{"reboot"},
	}
	for _, args := range bad {
		if _, _, err := parseCommand(args); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestUsage(t *testing.T) {
	if _, err := ctl(t); !errors.Is(err, errUsage) {
		t.Errorf("expected usage error, got %v", err)
	}
	if _, err := ctl(t, "--help"); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	out, err := ctl(t, "--version")
	if err != nil || !strings.Contains(out, version) {
		t.Errorf("unexpected version output %q, %v", out, err)
	}
}
