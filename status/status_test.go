package status

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"with message", New(CodeUnavailable, "Battery level not available.", nil), "UNAVAILABLE: Battery level not available."},
		{"code only", &Error{Code: CodeInternal}, "INTERNAL"},
		{"formatted", Newf(CodeWifiError, "Failed to get WIFI SSID: '%s'", "boom"), "WIFI_ERROR: Failed to get WIFI SSID: 'boom'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil) != nil {
		t.Error("nil should map to nil")
	}
	if FromError(ErrNotImplemented) != nil {
		t.Error("not implemented must not become an *Error")
	}

	wrapped := fmt.Errorf("call: %w", New(CodeInvalidArguments, "URL not provided", nil))
	if got := FromError(wrapped); got.Code != CodeInvalidArguments {
		t.Errorf("expected wrapped code to survive, got %q", got.Code)
	}

	if got := FromError(errors.New("plain")); got.Code != CodeGeneric || got.Message != "plain" {
		t.Errorf("unexpected generic mapping: %+v", got)
	}
}

func TestIsMatchesCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", New(CodeUnavailable, "x", nil))
	if !errors.Is(err, &Error{Code: CodeUnavailable}) {
		t.Error("expected errors.Is to match on code")
	}
	if errors.Is(err, &Error{Code: CodeWifiError}) {
		t.Error("different code must not match")
	}
	if Code(ErrNotImplemented) != "" {
		t.Error("not implemented has no code")
	}
}
