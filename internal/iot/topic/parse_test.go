package topic

import (
	"errors"
	"math"
	"testing"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
)

func TestParseUint32(t *testing.T) {
	tests := []struct {
		input  string
		want   uint32
		wantOK bool
	}{
		{input: "0", want: 0, wantOK: true},
		{input: "16", want: 16, wantOK: true},
		{input: "0042", want: 42, wantOK: true},
		{input: "4294967295", want: math.MaxUint32, wantOK: true},
		{input: "4294967296", wantOK: false},
		{input: "", wantOK: false},
		{input: "+1", wantOK: false},
		{input: "-1", wantOK: false},
		{input: " 1", wantOK: false},
		{input: "1a", wantOK: false},
		{input: "id_one", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseUint32([]byte(tt.input))
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseUint32(%q) = %d, %v; want %d, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := ParseStatus([]byte("204")); !ok || s != iot.StatusNoContent {
		t.Errorf("ParseStatus(204) = %d, %v", s, ok)
	}
	if _, ok := ParseStatus([]byte("3000000000")); ok {
		t.Error("ParseStatus() accepted a value above MaxInt32")
	}
}

func TestQuery(t *testing.T) {
	q := NewQuery([]byte("$rid=id_one&$version=16&flag&empty="))

	var keys, values []string
	for k, v, ok := q.Next(); ok; k, v, ok = q.Next() {
		keys = append(keys, string(k))
		values = append(values, string(v))
	}

	wantKeys := []string{"$rid", "$version", "flag", "empty"}
	wantValues := []string{"id_one", "16", "", ""}
	if len(keys) != len(wantKeys) {
		t.Fatalf("Next() yielded %d pairs, want %d", len(keys), len(wantKeys))
	}
	for i := range wantKeys {
		if keys[i] != wantKeys[i] || values[i] != wantValues[i] {
			t.Errorf("pair %d = %q=%q, want %q=%q", i, keys[i], values[i], wantKeys[i], wantValues[i])
		}
	}
}

func TestQuery_Empty(t *testing.T) {
	q := NewQuery(nil)
	if _, _, ok := q.Next(); ok {
		t.Error("Next() on empty query returned a pair")
	}
}

func TestQueryValue(t *testing.T) {
	query := []byte("$version=16&$rid=id_one")

	if v, ok := QueryValue(query, ParamRequestID); !ok || string(v) != "id_one" {
		t.Errorf("QueryValue($rid) = %q, %v", v, ok)
	}
	if v, ok := QueryValue(query, ParamVersion); !ok || string(v) != "16" {
		t.Errorf("QueryValue($version) = %q, %v", v, ok)
	}
	if _, ok := QueryValue(query, ParamRetryAfter); ok {
		t.Error("QueryValue(retry-after) found a missing key")
	}
}

func TestCutHelpers(t *testing.T) {
	rest, ok := CutPrefix([]byte("$iothub/twin/res/200"), TwinResponsePrefix)
	if !ok || string(rest) != "200" {
		t.Errorf("CutPrefix() = %q, %v", rest, ok)
	}
	if _, ok := CutPrefix([]byte("$iothub"), TwinResponsePrefix); ok {
		t.Error("CutPrefix() matched a shorter input")
	}

	level, rest, found := CutLevel([]byte("200/?$rid=1"))
	if !found || string(level) != "200" || string(rest) != "?$rid=1" {
		t.Errorf("CutLevel() = %q, %q, %v", level, rest, found)
	}
	if _, _, found := CutLevel([]byte("200")); found {
		t.Error("CutLevel() found a separator that is not there")
	}

	if q, ok := CutQuery([]byte("?a=b")); !ok || string(q) != "a=b" {
		t.Errorf("CutQuery() = %q, %v", q, ok)
	}
	if _, ok := CutQuery([]byte("a=b")); ok {
		t.Error("CutQuery() accepted input without '?'")
	}
}

type probe struct {
	name  string
	value []byte
}

func TestMatch_OrderAndIsolation(t *testing.T) {
	matchers := []Matcher[probe]{
		{
			Name:   "specific",
			Prefix: "a/b/",
			Parse: func(rest []byte) (probe, bool) {
				p := probe{name: "specific", value: rest}
				// Fails half way for anything but "ok".
				return p, string(rest) == "ok"
			},
		},
		{
			Name:   "general",
			Prefix: "a/",
			Parse: func(rest []byte) (probe, bool) {
				return probe{name: "general"}, true
			},
		},
	}

	var got probe
	if err := Match(matchers, []byte("a/b/ok"), &got); err != nil || got.name != "specific" {
		t.Errorf("Match(a/b/ok) = %+v, %v", got, err)
	}

	got = probe{}
	if err := Match(matchers, []byte("a/b/bad"), &got); err != nil || got.name != "general" || got.value != nil {
		t.Errorf("Match(a/b/bad) = %+v, %v; want general with no leaked value", got, err)
	}

	got = probe{name: "untouched"}
	if err := Match(matchers, []byte("z/"), &got); !errors.Is(err, iot.ErrTopicNoMatch) || got.name != "untouched" {
		t.Errorf("Match(z/) = %+v, %v; want ErrTopicNoMatch and untouched output", got, err)
	}
}
