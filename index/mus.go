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


package index

import (
	"sort"

	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/recall/metadata"
)

// DocumentMUS serializes Document in the MUS format. Meta entries marshal in
// sorted key order so identical documents always produce identical bytes.
var DocumentMUS = documentMUS{}

type documentMUS struct{}

func (s documentMUS) Size(d Document) (size int) {
	size = metadata.SizeString(d.ID)
	size += metadata.SizeString(d.Text)
	size += metadata.SizeString(d.SecondaryText)
	size += varint.Uint64.Size(uint64(len(d.Tags)))
	for _, tag := range d.Tags {
		size += metadata.SizeString(tag)
	}
	size += metadata.SizeString(d.URL)
	size += varint.Int64.Size(d.Timestamp)
	size += varint.Uint64.Size(uint64(len(d.Embedding)))
	for _, e := range d.Embedding {
		size += raw.Float32.Size(e)
	}
	size += varint.Uint64.Size(uint64(len(d.Meta)))
	for k, v := range d.Meta {
		size += metadata.SizeString(k)
		size += metadata.ValueMUS.Size(v)
	}
	return size
}

func (s documentMUS) Marshal(d Document, bs []byte) (n int) {
	n = metadata.MarshalString(d.ID, bs)
	n += metadata.MarshalString(d.Text, bs[n:])
	n += metadata.MarshalString(d.SecondaryText, bs[n:])
	n += varint.Uint64.Marshal(uint64(len(d.Tags)), bs[n:])
	for _, tag := range d.Tags {
		n += metadata.MarshalString(tag, bs[n:])
	}
	n += metadata.MarshalString(d.URL, bs[n:])
	n += varint.Int64.Marshal(d.Timestamp, bs[n:])
	n += varint.Uint64.Marshal(uint64(len(d.Embedding)), bs[n:])
	for _, e := range d.Embedding {
		n += raw.Float32.Marshal(e, bs[n:])
	}
	n += varint.Uint64.Marshal(uint64(len(d.Meta)), bs[n:])
	keys := make([]string, 0, len(d.Meta))
	for k := range d.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n += metadata.MarshalString(k, bs[n:])
		n += metadata.ValueMUS.Marshal(d.Meta[k], bs[n:])
	}
	return n
}

func (s documentMUS) Unmarshal(bs []byte) (d Document, n int, err error) {
	var n1 int
	d.ID, n, err = metadata.UnmarshalString(bs)
	if err != nil {
		return Document{}, n, err
	}
	d.Text, n1, err = metadata.UnmarshalString(bs[n:])
	n += n1
	if err != nil {
		return Document{}, n, err
	}
	d.SecondaryText, n1, err = metadata.UnmarshalString(bs[n:])
	n += n1
	if err != nil {
		return Document{}, n, err
	}

	var count uint64
	count, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return Document{}, n, err
	}
	if count > 0 {
		d.Tags = make([]string, 0, count)
		for i := uint64(0); i < count; i++ {
			var tag string
			tag, n1, err = metadata.UnmarshalString(bs[n:])
			n += n1
			if err != nil {
				return Document{}, n, err
			}
			d.Tags = append(d.Tags, tag)
		}
	}

	d.URL, n1, err = metadata.UnmarshalString(bs[n:])
	n += n1
	if err != nil {
		return Document{}, n, err
	}
	d.Timestamp, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return Document{}, n, err
	}

	count, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return Document{}, n, err
	}
	if count > 0 {
		d.Embedding = make([]float32, 0, count)
		for i := uint64(0); i < count; i++ {
			var e float32
			e, n1, err = raw.Float32.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return Document{}, n, err
			}
			d.Embedding = append(d.Embedding, e)
		}
	}

	count, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return Document{}, n, err
	}
	if count > 0 {
		d.Meta = make(map[string]metadata.Value, count)
		for i := uint64(0); i < count; i++ {
			var k string
			k, n1, err = metadata.UnmarshalString(bs[n:])
			n += n1
			if err != nil {
				return Document{}, n, err
			}
			var v metadata.Value
			v, n1, err = metadata.ValueMUS.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return Document{}, n, err
			}
			d.Meta[k] = v
		}
	}

	return d, n, nil
}
