package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// DecodeError reports which message and field group failed to decode.
type DecodeError struct {
	Message string
	Field   string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("decode %s.%s: %v", e.Message, e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type field struct {
	msg   string
	num   protowire.Number
	typ   protowire.Type
	value uint64
	bytes []byte
}

// parseFields walks every field of a serialized message, skipping groups.
func parseFields(msg string, b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return &DecodeError{Message: msg, Err: protowire.ParseError(n)}
		}
		b = b[n:]

		f := field{msg: msg, num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.value, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			f.value, n = protowire.ConsumeFixed64(b)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			f.value = uint64(v)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return &DecodeError{Message: msg, Field: fmt.Sprintf("#%d", num), Err: protowire.ParseError(n)}
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) mismatch(name string) error {
	return &DecodeError{Message: f.msg, Field: name, Err: fmt.Errorf("unexpected wire type %d", f.typ)}
}

func (f field) nested(name string, err error) error {
	if err == nil {
		return nil
	}
	return &DecodeError{Message: f.msg, Field: name, Err: err}
}

func (f field) asUint(name string) (uint64, error) {
	switch f.typ {
	case protowire.VarintType, protowire.Fixed64Type, protowire.Fixed32Type:
		return f.value, nil
	}
	return 0, f.mismatch(name)
}

func (f field) asUint32(name string) (uint32, error) {
	v, err := f.asUint(name)
	return uint32(v), err
}

func (f field) asBool(name string) (bool, error) {
	v, err := f.asUint(name)
	return v != 0, err
}

func (f field) asBytes(name string) ([]byte, error) {
	if f.typ != protowire.BytesType {
		return nil, f.mismatch(name)
	}
	return append([]byte(nil), f.bytes...), nil
}

func (f field) asString(name string) (string, error) {
	if f.typ != protowire.BytesType {
		return "", f.mismatch(name)
	}
	return string(f.bytes), nil
}

// asMessage returns the raw bytes of an embedded message.
func (f field) asMessage(name string) ([]byte, error) {
	if f.typ != protowire.BytesType {
		return nil, f.mismatch(name)
	}
	return f.bytes, nil
}

// asPackedUints accepts both packed and unpacked encodings of a repeated varint.
func (f field) asPackedUints(name string) ([]uint64, error) {
	switch f.typ {
	case protowire.VarintType:
		return []uint64{f.value}, nil
	case protowire.BytesType:
		var out []uint64
		b := f.bytes
		for len(b) > 0 {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, &DecodeError{Message: f.msg, Field: name, Err: protowire.ParseError(n)}
			}
			out = append(out, v)
			b = b[n:]
		}
		return out, nil
	}
	return nil, f.mismatch(name)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendVarint(b, num, 1)
}

func appendFixed64(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// appendMessage always writes the field, so an empty sub-message stays present.
func appendMessage(b []byte, num protowire.Number, inner []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}
