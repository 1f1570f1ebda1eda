package index

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/go-crypt/x/blake2b"
	"github.com/mus-format/mus-go/varint"
)

// snapshotFormatVersion tags snapshot bytes. Bump it whenever the encoded
// layout changes; restore rejects any other tag as incompatible.
const snapshotFormatVersion uint64 = 1

// snapshotChecksumSize is the size of the BLAKE2b digest trailing the payload.
const snapshotChecksumSize = 8

// Snapshot serializes the entire index to an opaque, checksummed byte blob.
// Documents are encoded in ID order, so the same index contents always
// produce the same bytes.
func Snapshot(h *Hybrid) ([]byte, error) {
	h.mu.RLock()
	docs := make([]Document, 0, len(h.docs))
	for _, doc := range h.docs {
		docs = append(docs, *doc)
	}
	dim := h.dim
	h.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	return marshalSnapshot(snapshotFormatVersion, dim, docs), nil
}

// Restore rebuilds an index from snapshot bytes, validating the checksum,
// the format version and the dimensionality. Unreadable bytes yield
// ErrSnapshotCorrupt; a readable payload for the wrong format version or
// dimensionality yields ErrSnapshotIncompatible. Either way the caller's
// recovery is the same: discard the snapshot, start empty, re-index from
// the durable store.
func Restore(data []byte, dim int, opts ...Option) (*Hybrid, error) {
	if len(data) <= snapshotChecksumSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrSnapshotCorrupt, len(data))
	}

	payload := data[:len(data)-snapshotChecksumSize]
	if !bytes.Equal(checksum(payload), data[len(data)-snapshotChecksumSize:]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrSnapshotCorrupt)
	}

	version, n, err := varint.Uint64.Unmarshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
	}
	if version != snapshotFormatVersion {
		return nil, fmt.Errorf("%w: format version %d, want %d",
			ErrSnapshotIncompatible, version, snapshotFormatVersion)
	}

	encodedDim, n1, err := varint.Uint64.Unmarshal(payload[n:])
	n += n1
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
	}
	if int(encodedDim) != dim {
		return nil, fmt.Errorf("%w: dimensionality %d, want %d",
			ErrSnapshotIncompatible, encodedDim, dim)
	}

	count, n1, err := varint.Uint64.Unmarshal(payload[n:])
	n += n1
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
	}

	h, err := NewHybrid(dim, opts...)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < count; i++ {
		doc, n1, err := DocumentMUS.Unmarshal(payload[n:])
		n += n1
		if err != nil {
			return nil, fmt.Errorf("%w: document %d: %w", ErrSnapshotCorrupt, i, err)
		}
		if err := h.Upsert(doc); err != nil {
			return nil, fmt.Errorf("%w: document %d: %w", ErrSnapshotCorrupt, i, err)
		}
	}

	return h, nil
}

func marshalSnapshot(version uint64, dim int, docs []Document) []byte {
	size := varint.Uint64.Size(version)
	size += varint.Uint64.Size(uint64(dim))
	size += varint.Uint64.Size(uint64(len(docs)))
	for _, doc := range docs {
		size += DocumentMUS.Size(doc)
	}

	payload := make([]byte, size)
	n := varint.Uint64.Marshal(version, payload)
	n += varint.Uint64.Marshal(uint64(dim), payload[n:])
	n += varint.Uint64.Marshal(uint64(len(docs)), payload[n:])
	for _, doc := range docs {
		n += DocumentMUS.Marshal(doc, payload[n:])
	}

	return append(payload, checksum(payload)...)
}

func checksum(payload []byte) []byte {
	h, _ := blake2b.New(snapshotChecksumSize, nil)
	h.Write(payload)
	return h.Sum(nil)
}
