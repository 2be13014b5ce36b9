package tree

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

func isMsgpackContainer(b byte) bool {
	switch {
	case b >= 0x80 && b <= 0x9f:
		return true
	case b == 0xdc || b == 0xdd || b == 0xde || b == 0xdf:
		return true
	}
	return false
}

// DecodeMsgpack decodes a MessagePack document preserving map entry order.
func DecodeMsgpack(data []byte) (Value, error) {
	dec := msgpackDecoder{data: data}
	v, err := dec.decodeValue(0)
	if err != nil {
		return Value{}, &DecodeError{Format: "msgpack", Offset: int64(dec.pos), Err: err}
	}
	if dec.pos != len(dec.data) {
		return Value{}, &DecodeError{Format: "msgpack", Offset: int64(dec.pos), Err: errors.New("unexpected data after top-level value")}
	}
	return v, nil
}

type msgpackDecoder struct {
	data []byte
	pos  int
}

func (d *msgpackDecoder) decodeValue(depth int) (Value, error) {
	if depth > MaxDepth {
		return Value{}, errTooDeep
	}
	b, err := d.readByte()
	if err != nil {
		return Value{}, err
	}

	switch {
	case b <= 0x7f:
		return IntValue(int64(b)), nil
	case b >= 0xe0:
		return IntValue(int64(int8(b))), nil
	case b >= 0xa0 && b <= 0xbf:
		return d.readString(int(b & 0x1f))
	case b >= 0x90 && b <= 0x9f:
		return d.readArray(int(b&0x0f), depth)
	case b >= 0x80 && b <= 0x8f:
		return d.readMap(int(b&0x0f), depth)
	}

	switch b {
	case 0xc0:
		return Value{}, nil
	case 0xc2:
		return BoolValue(false), nil
	case 0xc3:
		return BoolValue(true), nil
	case 0xc4, 0xd9:
		n, err := d.readUint(1)
		if err != nil {
			return Value{}, err
		}
		return d.readString(int(n))
	case 0xc5, 0xda:
		n, err := d.readUint(2)
		if err != nil {
			return Value{}, err
		}
		return d.readString(int(n))
	case 0xc6, 0xdb:
		n, err := d.readUint(4)
		if err != nil {
			return Value{}, err
		}
		return d.readString(int(n))
	case 0xca:
		bits, err := d.readUint(4)
		if err != nil {
			return Value{}, err
		}
		return FloatValue(float64(math.Float32frombits(uint32(bits)))), nil
	case 0xcb:
		bits, err := d.readUint(8)
		if err != nil {
			return Value{}, err
		}
		return FloatValue(math.Float64frombits(bits)), nil
	case 0xcc, 0xcd, 0xce, 0xcf:
		width := 1 << (b - 0xcc)
		n, err := d.readUint(width)
		if err != nil {
			return Value{}, err
		}
		if n > math.MaxInt64 {
			//1.- uint64 values beyond int64 widen to float like JSON literals of the same size.
			return FloatValue(float64(n)), nil
		}
		return IntValue(int64(n)), nil
	case 0xd0:
		n, err := d.readUint(1)
		return IntValue(int64(int8(n))), err
	case 0xd1:
		n, err := d.readUint(2)
		return IntValue(int64(int16(n))), err
	case 0xd2:
		n, err := d.readUint(4)
		return IntValue(int64(int32(n))), err
	case 0xd3:
		n, err := d.readUint(8)
		return IntValue(int64(n)), err
	case 0xdc:
		n, err := d.readUint(2)
		if err != nil {
			return Value{}, err
		}
		return d.readArray(int(n), depth)
	case 0xdd:
		n, err := d.readUint(4)
		if err != nil {
			return Value{}, err
		}
		return d.readArray(int(n), depth)
	case 0xde:
		n, err := d.readUint(2)
		if err != nil {
			return Value{}, err
		}
		return d.readMap(int(n), depth)
	case 0xdf:
		n, err := d.readUint(4)
		if err != nil {
			return Value{}, err
		}
		return d.readMap(int(n), depth)
	}
	return Value{}, fmt.Errorf("unsupported msgpack type 0x%02x", b)
}

func (d *msgpackDecoder) readByte() (byte, error) {
	if d.pos >= len(d.data) {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *msgpackDecoder) readUint(width int) (uint64, error) {
	if len(d.data)-d.pos < width {
		return 0, io.ErrUnexpectedEOF
	}
	chunk := d.data[d.pos : d.pos+width]
	d.pos += width
	switch width {
	case 1:
		return uint64(chunk[0]), nil
	case 2:
		return uint64(binary.BigEndian.Uint16(chunk)), nil
	case 4:
		return uint64(binary.BigEndian.Uint32(chunk)), nil
	default:
		return binary.BigEndian.Uint64(chunk), nil
	}
}

func (d *msgpackDecoder) readString(n int) (Value, error) {
	if n < 0 || len(d.data)-d.pos < n {
		return Value{}, io.ErrUnexpectedEOF
	}
	s := string(d.data[d.pos : d.pos+n])
	d.pos += n
	return StringValue(s), nil
}

// checkCount bounds declared lengths: every element takes at least perElement bytes.
func (d *msgpackDecoder) checkCount(n, perElement int) error {
	if n < 0 || (len(d.data)-d.pos)/perElement < n {
		return fmt.Errorf("declared length %d exceeds remaining input", n)
	}
	return nil
}

func (d *msgpackDecoder) readArray(n, depth int) (Value, error) {
	if err := d.checkCount(n, 1); err != nil {
		return Value{}, err
	}
	items := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		item, err := d.decodeValue(depth + 1)
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}
	return Value{kind: Array, items: items}, nil
}

func (d *msgpackDecoder) readMap(n, depth int) (Value, error) {
	if err := d.checkCount(n, 2); err != nil {
		return Value{}, err
	}
	obj := newObject(n)
	for i := 0; i < n; i++ {
		key, err := d.decodeValue(depth + 1)
		if err != nil {
			return Value{}, err
		}
		name, err := mapKey(key)
		if err != nil {
			return Value{}, err
		}
		val, err := d.decodeValue(depth + 1)
		if err != nil {
			return Value{}, err
		}
		obj.set(name, val)
	}
	return Value{kind: Object, obj: obj}, nil
}

// mapKey stringifies scalar keys; vehicle stats are often keyed by numeric ids.
func mapKey(key Value) (string, error) {
	switch key.kind {
	case String:
		return key.s, nil
	case Int:
		return strconv.FormatInt(key.i, 10), nil
	case Bool:
		return strconv.FormatBool(key.b), nil
	case Float:
		return strconv.FormatFloat(key.f, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported map key kind %s", key.kind)
	}
}
