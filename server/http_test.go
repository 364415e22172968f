package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.arsenm.dev/devbridge/client"
	"go.arsenm.dev/devbridge/codec"
	"go.arsenm.dev/devbridge/status"
)

func newTestHTTP(t *testing.T) *httptest.Server {
	t.Helper()

	s := New()
	t.Cleanup(s.Close)

	s.Register("samples.flutter.dev/battery", Handlers{
		"getBatteryLevel": func(_ *Context) (int, error) { return 87, nil },
		"broken": func(_ *Context) error {
			return status.New(status.CodeUnavailable, "Battery level not available.", nil)
		},
	})

	ts := httptest.NewServer(s.Router(codec.Msgpack))
	t.Cleanup(ts.Close)
	return ts
}

func postCall(t *testing.T, ts *httptest.Server, body string) (int, CallResponse) {
	t.Helper()

	resp, err := http.Post(ts.URL+"/call", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out CallResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, out
}

func TestHTTPCall(t *testing.T) {
	ts := newTestHTTP(t)

	code, out := postCall(t, ts, `{"channel":"samples.flutter.dev/battery","method":"getBatteryLevel"}`)
	if code != http.StatusOK || out.Type != CallSuccess || out.Result != float64(87) {
		t.Errorf("success: got %d %+v", code, out)
	}

	code, out = postCall(t, ts, `{"channel":"samples.flutter.dev/battery","method":"broken"}`)
	if code != http.StatusInternalServerError || out.Code != status.CodeUnavailable {
		t.Errorf("error: got %d %+v", code, out)
	}

	code, out = postCall(t, ts, `{"channel":"samples.flutter.dev/battery","method":"nope"}`)
	if code != http.StatusNotImplemented || out.Type != CallNotImplemented {
		t.Errorf("not implemented: got %d %+v", code, out)
	}

	code, out = postCall(t, ts, `{`)
	if code != http.StatusBadRequest || out.Code != status.CodeInvalidArguments {
		t.Errorf("malformed: got %d %+v", code, out)
	}
}

func TestHTTPChannels(t *testing.T) {
	ts := newTestHTTP(t)

	resp, err := http.Get(ts.URL + "/channels")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var names []string
	if err := json.NewDecoder(resp.Body).Decode(&names); err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != BuiltinChannel {
		t.Errorf("unexpected channels: %v", names)
	}
}

func TestWebSocket(t *testing.T) {
	ts := newTestHTTP(t)

	ctx := context.Background()
	c, err := client.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", codec.Msgpack)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	var level int
	if err := c.Call(ctx, "samples.flutter.dev/battery", "getBatteryLevel", nil, &level); err != nil {
		t.Fatal(err)
	}
	if level != 87 {
		t.Errorf("expected 87, got %d", level)
	}

	err = c.Call(ctx, "samples.flutter.dev/battery", "broken", nil, nil)
	if status.Code(err) != status.CodeUnavailable {
		t.Errorf("expected UNAVAILABLE, got %v", err)
	}
}
