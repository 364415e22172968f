package reflectutil

import (
	"reflect"
	"testing"
)

type urlArgs struct {
	URL *string `mapstructure:"url"`
}

func TestConvertMapToStruct(t *testing.T) {
	in := map[string]any{"url": "https://example.com"}
	out, err := Convert(reflect.ValueOf(in), reflect.TypeOf(urlArgs{}))
	if err != nil {
		t.Fatal(err)
	}
	args := out.Interface().(urlArgs)
	if args.URL == nil || *args.URL != "https://example.com" {
		t.Errorf("unexpected url: %v", args.URL)
	}
}

func TestConvertMapTypeMismatch(t *testing.T) {
	in := map[string]any{"url": 42}
	if _, err := Convert(reflect.ValueOf(in), reflect.TypeOf(urlArgs{})); err == nil {
		t.Error("expected error decoding number into *string")
	}
}

func TestConvertInvalidIsZero(t *testing.T) {
	out, err := Convert(reflect.Value{}, reflect.TypeOf(urlArgs{}))
	if err != nil {
		t.Fatal(err)
	}
	if out.Interface().(urlArgs).URL != nil {
		t.Error("expected zero value")
	}
}

func TestConvertNumbers(t *testing.T) {
	out, err := Convert(reflect.ValueOf(float64(87)), reflect.TypeOf(0))
	if err != nil {
		t.Fatal(err)
	}
	if out.Interface().(int) != 87 {
		t.Errorf("expected 87, got %v", out.Interface())
	}

	if _, err := Convert(reflect.ValueOf(65), reflect.TypeOf("")); err == nil {
		t.Error("int must not silently convert to a rune string")
	}
}

func TestConvertSlice(t *testing.T) {
	got := ConvertSlice([]any{"a", "b"}, reflect.TypeOf([]string{}))
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("unexpected slice: %#v", got)
	}

	arr := ConvertSlice([]any{int64(1), int8(2)}, reflect.TypeOf([2]int{}))
	if arr != [2]int{1, 2} {
		t.Errorf("unexpected array: %#v", arr)
	}
}
