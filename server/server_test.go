package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.arsenm.dev/devbridge/status"
)

type echoArgs struct {
	Text *string `mapstructure:"text"`
}

func TestNotImplemented(t *testing.T) {
	s := New()
	defer s.Close()

	called := false
	err := s.Register("echo", Handlers{
		"echo": func(_ *Context) string {
			called = true
			return "x"
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()

	_, err = s.Invoke(ctx, "echo", "missing", nil)
	if !errors.Is(err, status.ErrNotImplemented) {
		t.Errorf("unknown method: expected not implemented, got %v", err)
	}

	_, err = s.Invoke(ctx, "nope", "echo", nil)
	if !errors.Is(err, status.ErrNotImplemented) {
		t.Errorf("unknown channel: expected not implemented, got %v", err)
	}

	if called {
		t.Error("no handler may run for an unknown method")
	}
}

func TestHandlerShapes(t *testing.T) {
	s := New()
	defer s.Close()

	err := s.Register("shapes", Handlers{
		"none":     func(_ *Context) {},
		"errOnly":  func(_ *Context) error { return status.New(status.CodeUnavailable, "gone", nil) },
		"valOnly":  func(_ *Context) int { return 42 },
		"both":     func(_ *Context, in [2]int) (int, error) { return in[0] + in[1], nil },
		"withArgs": func(_ *Context, a echoArgs) string { return *a.Text },
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()

	if v, err := s.Invoke(ctx, "shapes", "none", nil); v != nil || err != nil {
		t.Errorf("none: got %v, %v", v, err)
	}

	_, err = s.Invoke(ctx, "shapes", "errOnly", nil)
	if status.Code(err) != status.CodeUnavailable {
		t.Errorf("errOnly: expected UNAVAILABLE, got %v", err)
	}

	// Arguments sent to a handler that takes none are ignored
	if v, _ := s.Invoke(ctx, "shapes", "valOnly", map[string]any{"x": 1}); v != 42 {
		t.Errorf("valOnly: expected 42, got %v", v)
	}

	if v, _ := s.Invoke(ctx, "shapes", "both", []any{int64(2), float64(3)}); v != 5 {
		t.Errorf("both: expected 5, got %v", v)
	}

	if v, _ := s.Invoke(ctx, "shapes", "withArgs", map[string]any{"text": "hi"}); v != "hi" {
		t.Errorf("withArgs: expected hi, got %v", v)
	}

	_, err = s.Invoke(ctx, "shapes", "withArgs", map[string]any{"text": 7})
	if status.Code(err) != status.CodeInvalidArguments {
		t.Errorf("withArgs: expected INVALID_ARGUMENTS, got %v", err)
	}
}

func TestRegisterRejectsInvalidHandlers(t *testing.T) {
	s := New()
	defer s.Close()

	invalid := []any{
		"not a func",
		func() {},
		func(_ context.Context) {},
		func(_ *Context, a, b int) {},
		func(_ *Context) (int, string) { return 0, "" },
		func(_ *Context) (int, int, error) { return 0, 0, nil },
	}
	for i, fn := range invalid {
		err := s.Register("bad", Handlers{"m": fn})
		if !errors.Is(err, ErrInvalidHandler) {
			t.Errorf("case %d: expected ErrInvalidHandler, got %v", i, err)
		}
	}

	if err := s.Register("", Handlers{}); !errors.Is(err, ErrInvalidChannel) {
		t.Errorf("expected ErrInvalidChannel, got %v", err)
	}
}

func TestPanicIsContained(t *testing.T) {
	s := New()
	defer s.Close()

	s.Register("p", Handlers{
		"boom": func(_ *Context, a echoArgs) string { return *a.Text },
	})

	// Missing "text" dereferences a nil pointer
	_, err := s.Invoke(context.Background(), "p", "boom", nil)
	if status.Code(err) != status.CodeInternal {
		t.Fatalf("expected INTERNAL, got %v", err)
	}
}

func TestDeferredCall(t *testing.T) {
	s := New()
	defer s.Close()

	results := make(chan Result, 1)
	s.Register("d", Handlers{
		"later": func(ctx *Context) {
			results <- ctx.Defer()
		},
	})

	done := make(chan any, 1)
	go func() {
		v, err := s.Invoke(context.Background(), "d", "later", nil)
		if err != nil {
			t.Error(err)
		}
		done <- v
	}()

	res := <-results
	if s.Deferred() != 1 {
		t.Errorf("expected 1 deferred call, got %d", s.Deferred())
	}

	res.Success("first")
	// Only the first resolution is delivered
	res.Success("second")

	select {
	case v := <-done:
		if v != "first" {
			t.Errorf("expected first, got %v", v)
		}
	case <-time.After(time.Second):
		t.Fatal("deferred call was never answered")
	}

	if s.Deferred() != 0 {
		t.Errorf("expected no deferred calls, got %d", s.Deferred())
	}
}

func TestDeferredHandlerError(t *testing.T) {
	s := New()
	defer s.Close()

	s.Register("d", Handlers{
		"fail": func(ctx *Context) error {
			ctx.Defer()
			return status.New(status.CodeWifiError, "prompt failed", nil)
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := s.Invoke(ctx, "d", "fail", nil)
	if status.Code(err) != status.CodeWifiError {
		t.Errorf("expected WIFI_ERROR, got %v", err)
	}
}

func TestBuiltinChannel(t *testing.T) {
	s := New()
	defer s.Close()

	s.Register("b", Handlers{
		"get": func(_ *Context) (int, error) { return 0, nil },
	})

	ctx := context.Background()

	v, err := s.Invoke(ctx, BuiltinChannel, "listChannels", nil)
	if err != nil {
		t.Fatal(err)
	}
	names := v.([]string)
	if len(names) != 2 || names[0] != "b" || names[1] != BuiltinChannel {
		t.Errorf("unexpected channels: %v", names)
	}

	v, err = s.Invoke(ctx, BuiltinChannel, "describe", map[string]any{"channel": "b"})
	if err != nil {
		t.Fatal(err)
	}
	descs := v.([]MethodDesc)
	if len(descs) != 1 || descs[0].Name != "get" || len(descs[0].Returns) != 2 {
		t.Errorf("unexpected description: %+v", descs)
	}

	_, err = s.Invoke(ctx, BuiltinChannel, "describe", map[string]any{"channel": "zzz"})
	if status.Code(err) != status.CodeInvalidArguments {
		t.Errorf("expected INVALID_ARGUMENTS, got %v", err)
	}
}

func TestContextAndUnregister(t *testing.T) {
	s := New()
	defer s.Close()

	err := s.Register("names", Handlers{
		"whoami": func(ctx *Context) string {
			if ctx.GetCodec() != nil {
				return "unexpected codec"
			}
			return ctx.Channel() + "/" + ctx.Method()
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	v, err := s.Invoke(ctx, "names", "whoami", nil)
	if err != nil || v != "names/whoami" {
		t.Errorf("unexpected result %v, %v", v, err)
	}

	s.Unregister("names")
	_, err = s.Invoke(ctx, "names", "whoami", nil)
	if !errors.Is(err, status.ErrNotImplemented) {
		t.Errorf("expected not implemented after unregister, got %v", err)
	}
}
