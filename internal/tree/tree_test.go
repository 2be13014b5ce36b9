package tree

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestDecodeJSONPreservesMemberOrder(t *testing.T) {
	v, err := Decode([]byte(`{"zeta":1,"alpha":{"b":2,"a":3},"mid":[true,null,"x"]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := v.Keys(); !reflect.DeepEqual(got, []string{"zeta", "alpha", "mid"}) {
		t.Fatalf("unexpected key order: %v", got)
	}
	nested, ok := v.Get("alpha")
	if !ok {
		t.Fatal("alpha missing")
	}
	first, ok := nested.First()
	if !ok || first.Key != "b" {
		t.Fatalf("expected first nested member b, got %+v", first)
	}
	out, err := v.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(out) != `{"zeta":1,"alpha":{"b":2,"a":3},"mid":[true,null,"x"]}` {
		t.Fatalf("unexpected re-serialisation: %s", out)
	}
}

func TestDecodeJSONKeepsNamesAcrossNestedValues(t *testing.T) {
	//1.- Every member name must survive decoding of its own, possibly deep, value.
	v, err := Decode([]byte(`{"playerName":"Ace","personal":{"zzz":{"damageDealt":7},"aaa":{"damageDealt":9}},"list":[{"k":"v"}],"tail":"x"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := v.Keys(); !reflect.DeepEqual(got, []string{"playerName", "personal", "list", "tail"}) {
		t.Fatalf("unexpected keys: %v", got)
	}
	damage, ok := v.Lookup("personal", "zzz", "damageDealt")
	if n, _ := damage.AsInt(); !ok || n != 7 {
		t.Fatalf("expected nested damage 7, got %v", damage)
	}
	if tail, _ := v.Get("tail"); tail.String() != `"x"` {
		t.Fatalf("unexpected tail %v", tail)
	}
}

func TestDecodeMsgpackAfterBOMAndWhitespace(t *testing.T) {
	payload := append([]byte{0xef, 0xbb, 0xbf, ' ', '\n'}, 0x81, 0xa1, 'a', 0x05)
	v, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	a, ok := v.Get("a")
	if n, _ := a.AsInt(); !ok || n != 5 {
		t.Fatalf("expected a=5, got %s", v)
	}
}

func TestDecodeJSONNumbers(t *testing.T) {
	v, err := Decode([]byte(`{"i":450,"neg":-7,"f":1.5,"e":2e3,"big":18446744073709551616}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	cases := []struct {
		key  string
		kind Kind
	}{
		{"i", Int},
		{"neg", Int},
		{"f", Float},
		{"e", Float},
		{"big", Float},
	}
	for _, tc := range cases {
		got, ok := v.Get(tc.key)
		if !ok {
			t.Fatalf("%s missing", tc.key)
		}
		if got.Kind() != tc.kind {
			t.Fatalf("%s: kind %s, want %s", tc.key, got.Kind(), tc.kind)
		}
	}
	i, _ := v.Get("i")
	if n, ok := i.AsInt(); !ok || n != 450 {
		t.Fatalf("AsInt = %d, %v", n, ok)
	}
	f, _ := v.Get("f")
	if _, ok := f.AsInt(); ok {
		t.Fatal("float must not convert to int")
	}
}

func TestDecodeJSONDuplicateNamesOverwriteInPlace(t *testing.T) {
	v, err := Decode([]byte(`{"a":1,"b":2,"a":3}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := v.Keys(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("unexpected keys: %v", got)
	}
	a, _ := v.Get("a")
	if n, _ := a.AsInt(); n != 3 {
		t.Fatalf("expected last duplicate to win, got %d", n)
	}
}

func TestDecodeKeepsUnknownFields(t *testing.T) {
	v, err := Decode([]byte(`{"playerName":"Ace","futureBlock":{"nested":[1,{"deep":"yes"}]}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	future, ok := v.Lookup("futureBlock", "nested")
	if !ok || future.Len() != 2 {
		t.Fatalf("expected nested array to survive, got %v", future)
	}
	deep, _ := future.Index(1)
	if s, _ := deep.Get("deep"); s.String() != `"yes"` {
		t.Fatalf("unexpected deep value %s", s)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"truncated": `{"playerName":"Ac`,
		"trailing":  `{"a":1} {"b":2}`,
		"empty":     "   ",
		"binary":    "\x01\x02\x03",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(input))
			if err == nil {
				t.Fatal("expected decode error")
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected DecodeError, got %T", err)
			}
		})
	}
}

func TestDecodeRejectsExcessiveDepth(t *testing.T) {
	input := strings.Repeat("[", MaxDepth+2) + strings.Repeat("]", MaxDepth+2)
	if _, err := Decode([]byte(input)); err == nil {
		t.Fatal("expected depth error")
	}
}

func TestDecodeMsgpackMatchesJSON(t *testing.T) {
	//1.- {"personal": {"7": {"damageDealt": 300}, "avatar": {}}, "ok": true} with an integer vehicle key.
	payload := []byte{
		0x82,
		0xa8, 'p', 'e', 'r', 's', 'o', 'n', 'a', 'l',
		0x82,
		0x07,
		0x81, 0xab, 'd', 'a', 'm', 'a', 'g', 'e', 'D', 'e', 'a', 'l', 't', 0xcd, 0x01, 0x2c,
		0xa6, 'a', 'v', 'a', 't', 'a', 'r', 0x80,
		0xa2, 'o', 'k', 0xc3,
	}
	v, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want, err := Decode([]byte(`{"personal":{"7":{"damageDealt":300},"avatar":{}},"ok":true}`))
	if err != nil {
		t.Fatalf("Decode json: %v", err)
	}
	if v.String() != want.String() {
		t.Fatalf("msgpack tree %s differs from %s", v, want)
	}
}

func TestDecodeMsgpackTruncated(t *testing.T) {
	if _, err := Decode([]byte{0x82, 0xa1, 'a'}); err == nil {
		t.Fatal("expected error for truncated msgpack map")
	}
	if _, err := Decode([]byte{0xdf, 0xff, 0xff, 0xff, 0xff}); err == nil {
		t.Fatal("expected error for oversized declared map")
	}
}

func TestDigestIgnoresMemberOrder(t *testing.T) {
	a, err := Decode([]byte(`{"b":2,"a":1}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	b, err := Decode([]byte(`{ "a": 1, "b": 2 }`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	da, err := Digest(a)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	db, err := Digest(b)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if da != db {
		t.Fatalf("expected equal digests, got %s and %s", da, db)
	}
	c, _ := Decode([]byte(`{"a":1,"b":3}`))
	if dc, _ := Digest(c); dc == da {
		t.Fatal("expected different digest for different content")
	}
}

func TestZeroValueIsNull(t *testing.T) {
	var v Value
	if v.Kind() != Null || v.String() != "null" {
		t.Fatalf("zero value should be null, got %s", v)
	}
	if _, ok := v.Get("x"); ok {
		t.Fatal("Get on null must miss")
	}
}
