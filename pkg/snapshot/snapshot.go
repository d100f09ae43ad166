// Package snapshot defines the persisted form of a suspended evaluation and
// its canonical CBOR encoding.
package snapshot

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"sandvm/pkg/future"
	"sandvm/pkg/value"
)

var ErrUnencodable = errors.New("value cannot be persisted")

// Snapshot is everything needed to restore a suspended evaluation in another
// VM: the program source and the journal of resolutions consumed so far.
// Restoring replays the program against the journal.
type Snapshot struct {
	Name    string       `cbor:"1,keyasint"`
	Source  string       `cbor:"2,keyasint"`
	Token   future.Token `cbor:"3,keyasint"`
	Journal []Entry      `cbor:"4,keyasint,omitempty"`
	Created time.Time    `cbor:"5,keyasint"`
}

// Entry is one recorded await resolution.
type Entry struct {
	Statement int       `cbor:"1,keyasint"`
	Site      int       `cbor:"2,keyasint"`
	Value     Primitive `cbor:"3,keyasint"`
}

// Primitive is a value without identity: nil, int, float, bool or string.
type Primitive struct {
	Kind  value.Kind `cbor:"1,keyasint"`
	Int   int64      `cbor:"2,keyasint,omitempty"`
	Float float64    `cbor:"3,keyasint,omitempty"`
	Bool  bool       `cbor:"4,keyasint,omitempty"`
	Str   string     `cbor:"5,keyasint,omitempty"`
}

// FromValue converts v to a Primitive. Functions, builtins and futures are
// ErrUnencodable.
func FromValue(v value.Value) (Primitive, error) {
	switch v.Kind {
	case value.KindNil:
		return Primitive{Kind: v.Kind}, nil
	case value.KindInt:
		return Primitive{Kind: v.Kind, Int: v.I64}, nil
	case value.KindFloat:
		return Primitive{Kind: v.Kind, Float: v.F64}, nil
	case value.KindBool:
		return Primitive{Kind: v.Kind, Bool: v.Bool}, nil
	case value.KindString:
		return Primitive{Kind: v.Kind, Str: v.Str}, nil
	default:
		return Primitive{}, fmt.Errorf("%w: %s", ErrUnencodable, v.Kind)
	}
}

// Value converts p back to a runtime value
func (p Primitive) Value() value.Value {
	switch p.Kind {
	case value.KindInt:
		return value.Int(p.Int)
	case value.KindFloat:
		return value.Float(p.Float)
	case value.KindBool:
		return value.Bool(p.Bool)
	case value.KindString:
		return value.String(p.Str)
	default:
		return value.Nil
	}
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Marshal serializes a Snapshot to canonical CBOR bytes.
func Marshal(s Snapshot) ([]byte, error) {
	return encMode.Marshal(s)
}

// Unmarshal deserializes a Snapshot from CBOR bytes.
func Unmarshal(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	return s, nil
}
