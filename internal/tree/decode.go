package tree

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-json-experiment/json/jsontext"
)

// MaxDepth bounds container nesting so hostile payloads cannot exhaust the stack.
const MaxDepth = 512

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// DecodeError reports a payload that could not be turned into a tree.
type DecodeError struct {
	Format string
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s at offset %d: %v", e.Format, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var errTooDeep = fmt.Errorf("nesting exceeds %d levels", MaxDepth)

// Decode sniffs the payload format and decodes it into a tree.
func Decode(data []byte) (Value, error) {
	trimmed := bytes.TrimPrefix(data, utf8BOM)
	start := bytes.TrimLeft(trimmed, " \t\r\n")
	if len(start) == 0 {
		return Value{}, &DecodeError{Format: "unknown", Err: errors.New("empty payload")}
	}
	switch {
	case start[0] == '{' || start[0] == '[':
		return DecodeJSON(trimmed)
	case isMsgpackContainer(start[0]):
		return DecodeMsgpack(start)
	default:
		return Value{}, &DecodeError{Format: "unknown", Err: fmt.Errorf("unrecognised leading byte 0x%02x", start[0])}
	}
}

// DecodeJSON tokenises a JSON document preserving member order.
func DecodeJSON(data []byte) (Value, error) {
	dec := jsontext.NewDecoder(bytes.NewReader(data),
		jsontext.AllowDuplicateNames(true),
		jsontext.AllowInvalidUTF8(true),
	)
	v, err := decodeJSONValue(dec, 0)
	if err != nil {
		return Value{}, &DecodeError{Format: "json", Offset: dec.InputOffset(), Err: err}
	}
	//1.- Reject trailing tokens so a concatenated or corrupt block is not half-read.
	if _, err := dec.ReadToken(); err != io.EOF {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return Value{}, &DecodeError{Format: "json", Offset: dec.InputOffset(), Err: err}
	}
	return v, nil
}

func decodeJSONValue(dec *jsontext.Decoder, depth int) (Value, error) {
	if depth > MaxDepth {
		return Value{}, errTooDeep
	}
	tok, err := dec.ReadToken()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Value{}, err
	}
	switch tok.Kind() {
	case 'n':
		return Value{}, nil
	case 'f', 't':
		return BoolValue(tok.Bool()), nil
	case '"':
		return StringValue(tok.String()), nil
	case '0':
		return parseNumber(tok.String())
	case '[':
		var items []Value
		for dec.PeekKind() != ']' {
			item, err := decodeJSONValue(dec, depth+1)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		if _, err := dec.ReadToken(); err != nil {
			return Value{}, err
		}
		return Value{kind: Array, items: items}, nil
	case '{':
		obj := newObject(8)
		for dec.PeekKind() != '}' {
			name, err := dec.ReadToken()
			if err != nil {
				return Value{}, err
			}
			//1.- Copy the name out now; the token is voided by the next decoder call.
			key := name.String()
			member, err := decodeJSONValue(dec, depth+1)
			if err != nil {
				return Value{}, err
			}
			obj.set(key, member)
		}
		if _, err := dec.ReadToken(); err != nil {
			return Value{}, err
		}
		return Value{kind: Object, obj: obj}, nil
	default:
		return Value{}, fmt.Errorf("unexpected token %v", tok.Kind())
	}
}

// parseNumber keeps integral literals exact and widens everything else to float64.
func parseNumber(raw string) (Value, error) {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return IntValue(i), nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Value{}, fmt.Errorf("number %q: %w", raw, err)
	}
	return FloatValue(f), nil
}
