package permission

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

// recorder is a prompter that remembers requests and never answers
type recorder struct {
	reqs []Request
	err  error
}

func (r *recorder) Prompt(_ context.Context, req Request, _ Resolver) error {
	if r.err != nil {
		return r.err
	}
	r.reqs = append(r.reqs, req)
	return nil
}

func TestAlreadyGrantedRunsImmediately(t *testing.T) {
	p := &recorder{}
	g := NewGate(p, nil, FineLocation)

	ran := false
	req, err := g.Request(context.Background(), FineLocation, LocationRequestCode, Continuation{
		Granted: func() { ran = true },
	})
	if err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("expected granted continuation to run")
	}
	if req.ID != "" || len(p.reqs) != 0 {
		t.Error("no request should be issued for a granted permission")
	}
}

func TestGrantAndDeny(t *testing.T) {
	p := &recorder{}
	g := NewGate(p, nil)
	ctx := context.Background()

	var outcome []string
	cont := func(name string) Continuation {
		return Continuation{
			Granted: func() { outcome = append(outcome, name+":granted") },
			Denied:  func() { outcome = append(outcome, name+":denied") },
		}
	}

	first, err := g.Request(ctx, FineLocation, LocationRequestCode, cont("first"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := g.Request(ctx, FineLocation, LocationRequestCode, cont("second"))
	if err != nil {
		t.Fatal(err)
	}

	if first.ID == second.ID {
		t.Fatal("each request needs its own id")
	}
	if len(g.Pending()) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(g.Pending()))
	}
	if first.Code != LocationRequestCode || first.Permissions[0] != FineLocation {
		t.Errorf("unexpected request: %+v", first)
	}

	if err := g.Resolve(first.ID, false); err != nil {
		t.Fatal(err)
	}
	if g.Granted(FineLocation) {
		t.Error("denial must not grant")
	}

	if err := g.Resolve(second.ID, true); err != nil {
		t.Fatal(err)
	}
	if !g.Granted(FineLocation) {
		t.Error("grant must be recorded")
	}

	if len(outcome) != 2 || outcome[0] != "first:denied" || outcome[1] != "second:granted" {
		t.Errorf("unexpected outcome: %v", outcome)
	}
	if len(g.Pending()) != 0 {
		t.Error("resolved requests must be cleared")
	}

	// A request resolves exactly once
	if err := g.Resolve(first.ID, true); !errors.Is(err, ErrUnknownRequest) {
		t.Errorf("expected ErrUnknownRequest, got %v", err)
	}
}

func TestPromptFailureClearsRequest(t *testing.T) {
	p := &recorder{err: errors.New("no dialog")}
	g := NewGate(p, nil)

	_, err := g.Request(context.Background(), FineLocation, LocationRequestCode, Continuation{})
	if err == nil {
		t.Fatal("expected prompt error")
	}
	if len(g.Pending()) != 0 {
		t.Error("failed prompt must not leave a pending request")
	}
}

func TestStaticPrompter(t *testing.T) {
	for _, grant := range []bool{true, false} {
		g := NewGate(Static{Grant: grant}, nil)

		got := make(chan bool, 1)
		_, err := g.Request(context.Background(), FineLocation, LocationRequestCode, Continuation{
			Granted: func() { got <- true },
			Denied:  func() { got <- false },
		})
		if err != nil {
			t.Fatal(err)
		}

		select {
		case v := <-got:
			if v != grant {
				t.Errorf("expected %v, got %v", grant, v)
			}
		case <-time.After(time.Second):
			t.Fatal("static prompter never answered")
		}
	}
}

func TestRevoke(t *testing.T) {
	g := NewGate(nil, nil, FineLocation)
	g.Revoke(FineLocation)
	if g.Granted(FineLocation) {
		t.Error("expected permission to be revoked")
	}
	g.Grant(NearbyWifiDevices)
	if !g.Granted(NearbyWifiDevices) {
		t.Error("expected permission to be granted")
	}
}

func TestTerminalNeedsTTY(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "answers")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	p := NewTerminal(f, os.Stderr, nil)
	if p.Available() {
		t.Skip("temp file reported as a terminal")
	}

	g := NewGate(p, nil)
	_, err = g.Request(context.Background(), FineLocation, LocationRequestCode, Continuation{})
	if !errors.Is(err, ErrNoTerminal) {
		t.Errorf("expected ErrNoTerminal, got %v", err)
	}
}

func TestParseAnswer(t *testing.T) {
	tests := map[string]bool{
		"y\n":     true,
		" YES ":   true,
		"allow":   true,
		"n\n":     false,
		"":        false,
		"maybe\n": false,
	}
	for in, want := range tests {
		if got := parseAnswer(in); got != want {
			t.Errorf("parseAnswer(%q) = %v, want %v", in, got, want)
		}
	}
}
