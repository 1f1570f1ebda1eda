// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package metadata

import (
	"errors"
	"sort"

	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Serialization errors.
var (
	// ErrTruncated indicates the byte slice ends before the encoded value does.
	ErrTruncated = errors.New("truncated value data")

	// ErrUnknownKind indicates an unrecognized kind tag in encoded data.
	ErrUnknownKind = errors.New("unknown value kind")
)

// ValueMUS serializes Value in the MUS format. Map entries marshal in sorted
// key order so identical values always produce identical bytes.
var ValueMUS = valueMUS{}

type valueMUS struct{}

func (s valueMUS) Size(v Value) (size int) {
	size = 1 // kind tag
	switch v.Kind {
	case KindString:
		size += SizeString(v.Str)
	case KindInt:
		size += varint.Int64.Size(v.I64)
	case KindFloat:
		size += raw.Float64.Size(v.F64)
	case KindBool:
		size++
	case KindStrings:
		size += varint.Uint64.Size(uint64(len(v.Strs)))
		for _, e := range v.Strs {
			size += SizeString(e)
		}
	case KindBytes:
		size += varint.Uint64.Size(uint64(len(v.Blob)))
		size += len(v.Blob)
	case KindMap:
		size += varint.Uint64.Size(uint64(len(v.M)))
		for k, e := range v.M {
			size += SizeString(k)
			size += s.Size(e)
		}
	}
	return size
}

func (s valueMUS) Marshal(v Value, bs []byte) (n int) {
	bs[0] = byte(v.Kind)
	n = 1
	switch v.Kind {
	case KindString:
		n += MarshalString(v.Str, bs[n:])
	case KindInt:
		n += varint.Int64.Marshal(v.I64, bs[n:])
	case KindFloat:
		n += raw.Float64.Marshal(v.F64, bs[n:])
	case KindBool:
		if v.B {
			bs[n] = 1
		} else {
			bs[n] = 0
		}
		n++
	case KindStrings:
		n += varint.Uint64.Marshal(uint64(len(v.Strs)), bs[n:])
		for _, e := range v.Strs {
			n += MarshalString(e, bs[n:])
		}
	case KindBytes:
		n += varint.Uint64.Marshal(uint64(len(v.Blob)), bs[n:])
		n += copy(bs[n:], v.Blob)
	case KindMap:
		n += varint.Uint64.Marshal(uint64(len(v.M)), bs[n:])
		keys := make([]string, 0, len(v.M))
		for k := range v.M {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			n += MarshalString(k, bs[n:])
			n += s.Marshal(v.M[k], bs[n:])
		}
	}
	return n
}

func (s valueMUS) Unmarshal(bs []byte) (v Value, n int, err error) {
	if len(bs) < 1 {
		return Value{}, 0, ErrTruncated
	}
	v.Kind = Kind(bs[0])
	n = 1
	switch v.Kind {
	case KindString:
		var n1 int
		v.Str, n1, err = UnmarshalString(bs[n:])
		n += n1
	case KindInt:
		var n1 int
		v.I64, n1, err = varint.Int64.Unmarshal(bs[n:])
		n += n1
	case KindFloat:
		var n1 int
		v.F64, n1, err = raw.Float64.Unmarshal(bs[n:])
		n += n1
	case KindBool:
		if len(bs) < n+1 {
			return Value{}, n, ErrTruncated
		}
		v.B = bs[n] == 1
		n++
	case KindStrings:
		var count uint64
		var n1 int
		count, n1, err = varint.Uint64.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return Value{}, n, err
		}
		v.Strs = make([]string, 0, count)
		for i := uint64(0); i < count; i++ {
			var e string
			e, n1, err = UnmarshalString(bs[n:])
			n += n1
			if err != nil {
				return Value{}, n, err
			}
			v.Strs = append(v.Strs, e)
		}
	case KindBytes:
		var length uint64
		var n1 int
		length, n1, err = varint.Uint64.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return Value{}, n, err
		}
		if uint64(len(bs[n:])) < length {
			return Value{}, n, ErrTruncated
		}
		v.Blob = make([]byte, length)
		n += copy(v.Blob, bs[n:n+int(length)])
	case KindMap:
		var count uint64
		var n1 int
		count, n1, err = varint.Uint64.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return Value{}, n, err
		}
		v.M = make(map[string]Value, count)
		for i := uint64(0); i < count; i++ {
			var k string
			k, n1, err = UnmarshalString(bs[n:])
			n += n1
			if err != nil {
				return Value{}, n, err
			}
			var e Value
			e, n1, err = s.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return Value{}, n, err
			}
			v.M[k] = e
		}
	default:
		return Value{}, n, ErrUnknownKind
	}
	if err != nil {
		return Value{}, n, err
	}
	return v, n, nil
}

// SizeString returns the encoded size of a length-prefixed string.
func SizeString(v string) int {
	return varint.Uint64.Size(uint64(len(v))) + len(v)
}

// MarshalString encodes a length-prefixed string into bs.
func MarshalString(v string, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(len(v)), bs)
	n += copy(bs[n:], v)
	return n
}

// UnmarshalString decodes a length-prefixed string from bs.
func UnmarshalString(bs []byte) (v string, n int, err error) {
	length, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return "", n, err
	}
	if uint64(len(bs[n:])) < length {
		return "", n, ErrTruncated
	}
	v = string(bs[n : n+int(length)])
	n += int(length)
	return v, n, nil
}
