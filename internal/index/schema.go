package index

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	errs "github.com/chaisql/hashkv/internal/errors"
	"github.com/hashicorp/go-msgpack/codec"
)

// FieldType determines how the values of a field are indexed and queried.
type FieldType string

const (
	// Text fields are split into lowercase words and matched word by word.
	Text FieldType = "TEXT"
	// Tag fields hold comma separated values matched exactly, ignoring case.
	Tag FieldType = "TAG"
	// Numeric fields are matched by range.
	Numeric FieldType = "NUMERIC"
)

func (t FieldType) valid() bool {
	switch t {
	case Text, Tag, Numeric:
		return true
	}
	return false
}

// A Field of the schema of an index.
type Field struct {
	Name string
	Type FieldType
}

func (f Field) String() string {
	return f.Name + " " + string(f.Type)
}

// Definition describes an index over the hashes whose keys start with one of Prefixes.
type Definition struct {
	Name     string
	Prefixes []string
	Fields   []Field
}

// String returns a FT.CREATE like representation of the definition.
func (d *Definition) String() string {
	var s strings.Builder

	fmt.Fprintf(&s, "%s ON HASH PREFIX %d", d.Name, len(d.Prefixes))
	for _, p := range d.Prefixes {
		s.WriteString(" ")
		s.WriteString(p)
	}
	s.WriteString(" SCHEMA")
	for _, f := range d.Fields {
		s.WriteString(" ")
		s.WriteString(f.String())
	}

	return s.String()
}

// Field returns the schema field with the given name.
func (d *Definition) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldsOfType returns the name of the fields of type t.
func (d *Definition) FieldsOfType(t FieldType) []string {
	var names []string
	for _, f := range d.Fields {
		if f.Type == t {
			names = append(names, f.Name)
		}
	}
	return names
}

// Covers reports whether the hash key belongs to the index.
func (d *Definition) Covers(key string) bool {
	if len(d.Prefixes) == 0 {
		return true
	}
	for _, p := range d.Prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// Validate the definition.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return errs.InvalidArgumentf("index name cannot be empty")
	}
	if len(d.Fields) == 0 {
		return errs.InvalidArgumentf("index %q: schema cannot be empty", d.Name)
	}

	seen := make(map[string]struct{}, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name == "" {
			return errs.InvalidArgumentf("index %q: field name cannot be empty", d.Name)
		}
		if !f.Type.valid() {
			return errs.InvalidArgumentf("index %q: invalid type %q for field %q", d.Name, f.Type, f.Name)
		}
		if _, ok := seen[f.Name]; ok {
			return errs.InvalidArgumentf("index %q: duplicate field %q", d.Name, f.Name)
		}
		seen[f.Name] = struct{}{}
	}

	return nil
}

var msgpackHandle codec.MsgpackHandle

func encodeDefinition(d *Definition) ([]byte, error) {
	var buf []byte
	err := codec.NewEncoderBytes(&buf, &msgpackHandle).Encode(d)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot encode index %q", d.Name)
	}
	return buf, nil
}

func decodeDefinition(b []byte) (*Definition, error) {
	var d Definition
	err := codec.NewDecoderBytes(b, &msgpackHandle).Decode(&d)
	if err != nil {
		return nil, errors.Wrap(err, "cannot decode index definition")
	}
	return &d, nil
}
