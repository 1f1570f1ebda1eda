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


package storage

import (
	"fmt"
	"sort"

	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/recall/metadata"
)

// RecordMUS implements the MUS serializer for Record. Fields are encoded in
// key order, so equal records always produce equal bytes.
var RecordMUS = recordMUS{}

type recordMUS struct{}

func (s recordMUS) Size(record Record) int {
	size := varint.Uint64.Size(uint64(len(record)))
	for key, value := range record {
		size += metadata.SizeString(key)
		size += metadata.ValueMUS.Size(value)
	}
	return size
}

func (s recordMUS) Marshal(record Record, bs []byte) int {
	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	n := varint.Uint64.Marshal(uint64(len(record)), bs)
	for _, key := range keys {
		n += metadata.MarshalString(key, bs[n:])
		n += metadata.ValueMUS.Marshal(record[key], bs[n:])
	}
	return n
}

func (s recordMUS) Unmarshal(bs []byte) (Record, int, error) {
	count, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}

	record := make(Record, count)
	for i := uint64(0); i < count; i++ {
		key, n1, err := metadata.UnmarshalString(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
		value, n1, err := metadata.ValueMUS.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
		record[key] = value
	}
	return record, n, nil
}

// MarshalRecord serializes a Record to bytes.
func MarshalRecord(record Record) []byte {
	buf := make([]byte, RecordMUS.Size(record))
	RecordMUS.Marshal(record, buf)
	return buf
}

// UnmarshalRecord deserializes a Record from bytes.
func UnmarshalRecord(data []byte) (Record, error) {
	record, _, err := RecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return record, nil
}

// MarshalVersion serializes a collection schema version to bytes.
func MarshalVersion(version uint32) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(version)))
	varint.Uint64.Marshal(uint64(version), buf)
	return buf
}

// UnmarshalVersion deserializes a collection schema version from bytes.
func UnmarshalVersion(data []byte) (uint32, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTruncatedData, err)
	}
	return uint32(v), nil
}
