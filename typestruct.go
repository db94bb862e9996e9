// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package blockpar

import "github.com/cockroachdb/errors"

// StructRegistry holds named fixed-layout record schemas that can be read
// from or written to a typed stream. It is an explicit value passed to the
// code that needs it; there is no process-global schema cache.
type StructRegistry struct {
	types map[string][]StructField
}

// StructField describes one field of a record schema. Type is a primitive
// name (bool, byte, word, int, uint, single, double, widestr) or the name
// of a previously registered schema. Repeat above 1 makes the field an
// array.
type StructField struct {
	Name   string
	Type   string
	Repeat int
}

// StructValue is a decoded record: values in field order. Primitive fields
// decode to bool/byte/uint16/int32/uint32/float32/float64/string, nested
// schemas to *StructValue, repeated fields to []any.
type StructValue struct {
	Type   string
	Values []any
}

// NewStructRegistry returns an empty registry.
func NewStructRegistry() *StructRegistry {
	return &StructRegistry{types: map[string][]StructField{}}
}

var primitiveTypes = map[string]bool{
	"bool": true, "byte": true, "word": true, "int": true,
	"uint": true, "single": true, "double": true, "widestr": true,
}

// Register adds a schema. Field types must be primitives or already
// registered schema names.
func (r *StructRegistry) Register(name string, fields []StructField) error {
	if _, ok := r.types[name]; ok {
		return errors.Newf("typestruct: %q already registered", name)
	}
	for _, f := range fields {
		if !primitiveTypes[f.Type] {
			if _, ok := r.types[f.Type]; !ok {
				return errors.Newf("typestruct: %q field %q has unknown type %q", name, f.Name, f.Type)
			}
		}
	}
	r.types[name] = fields
	return nil
}

// Read decodes one record of the named schema from s.
func (r *StructRegistry) Read(s *Stream, name string) (*StructValue, error) {
	fields, ok := r.types[name]
	if !ok {
		return nil, errors.Newf("typestruct: unknown schema %q", name)
	}
	result := &StructValue{Type: name}
	for _, f := range fields {
		repeat := f.Repeat
		if repeat < 1 {
			repeat = 1
		}
		if f.Repeat > 1 {
			arr := make([]any, repeat)
			for i := range arr {
				v, err := r.readField(s, f.Type)
				if err != nil {
					return nil, err
				}
				arr[i] = v
			}
			result.Values = append(result.Values, arr)
			continue
		}
		v, err := r.readField(s, f.Type)
		if err != nil {
			return nil, err
		}
		result.Values = append(result.Values, v)
	}
	return result, nil
}

func (r *StructRegistry) readField(s *Stream, typ string) (any, error) {
	switch typ {
	case "bool":
		return s.ReadBool()
	case "byte":
		return s.ReadByte()
	case "word":
		return s.ReadWord()
	case "int":
		return s.ReadInt()
	case "uint":
		return s.ReadUint()
	case "single":
		return s.ReadSingle()
	case "double":
		return s.ReadDouble()
	case "widestr":
		return s.ReadWideStr()
	default:
		return r.Read(s, typ)
	}
}

// Write encodes a record previously decoded by Read (or built with the
// same shape) to s.
func (r *StructRegistry) Write(s *Stream, v *StructValue) error {
	fields, ok := r.types[v.Type]
	if !ok {
		return errors.Newf("typestruct: unknown schema %q", v.Type)
	}
	if len(v.Values) != len(fields) {
		return errors.Newf("typestruct: %q has %d fields, value has %d", v.Type, len(fields), len(v.Values))
	}
	for i, f := range fields {
		if f.Repeat > 1 {
			arr, ok := v.Values[i].([]any)
			if !ok || len(arr) != f.Repeat {
				return errors.Newf("typestruct: %q field %q wants %d repeated values", v.Type, f.Name, f.Repeat)
			}
			for _, el := range arr {
				if err := r.writeField(s, f, el); err != nil {
					return err
				}
			}
			continue
		}
		if err := r.writeField(s, f, v.Values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *StructRegistry) writeField(s *Stream, f StructField, v any) error {
	fail := func() error {
		return errors.Newf("typestruct: field %q wants %s, got %T", f.Name, f.Type, v)
	}
	switch f.Type {
	case "bool":
		b, ok := v.(bool)
		if !ok {
			return fail()
		}
		return s.WriteBool(b)
	case "byte":
		b, ok := v.(byte)
		if !ok {
			return fail()
		}
		return s.WriteByte(b)
	case "word":
		w, ok := v.(uint16)
		if !ok {
			return fail()
		}
		return s.WriteWord(w)
	case "int":
		i, ok := v.(int32)
		if !ok {
			return fail()
		}
		return s.WriteInt(i)
	case "uint":
		u, ok := v.(uint32)
		if !ok {
			return fail()
		}
		return s.WriteUint(u)
	case "single":
		f32, ok := v.(float32)
		if !ok {
			return fail()
		}
		return s.WriteSingle(f32)
	case "double":
		f64, ok := v.(float64)
		if !ok {
			return fail()
		}
		return s.WriteDouble(f64)
	case "widestr":
		str, ok := v.(string)
		if !ok {
			return fail()
		}
		return s.WriteWideStr(str)
	default:
		nested, ok := v.(*StructValue)
		if !ok || nested.Type != f.Type {
			return fail()
		}
		return r.Write(s, nested)
	}
}
