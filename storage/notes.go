package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/metadata"
)

// NotesCollection is the name of the durable notes collection.
const NotesCollection = "notes"

// NotesSchemaVersion is the current schema version of the notes collection.
//
// History:
//
//	0 -> 1: initial shape (id, text, tags, timestamp)
//	1 -> 2: added url and secondaryText
//	2 -> 3: added flattened metadata fields
const NotesSchemaVersion = 3

// NotesSpec declares the notes collection at its current version.
func NotesSpec() CollectionSpec {
	return CollectionSpec{
		Name:    NotesCollection,
		Version: NotesSchemaVersion,
		Fields: map[string]FieldSpec{
			"id":            {Kind: metadata.KindString, Required: true},
			"text":          {Kind: metadata.KindString, Required: true},
			"secondaryText": {Kind: metadata.KindString},
			"tags":          {Kind: metadata.KindStrings},
			"url":           {Kind: metadata.KindString},
			"timestamp":     {Kind: metadata.KindInt, Required: true},
		},
		OpenPrefix: metadata.KeyPrefix,
	}
}

// RegisterNotesMigrations registers the notes migration chain. It reaches
// back to version 0, so a fresh store migrates forward over empty data.
func RegisterNotesMigrations(reg *Migrations) {
	// 0 -> 1: initial shape. Nothing to rewrite.
	reg.Register(NotesCollection, 0, func(ctx context.Context, records map[string]Record) error {
		return nil
	})

	// 1 -> 2: url and secondaryText arrived as optional fields. Existing
	// records need no backfill.
	reg.Register(NotesCollection, 1, func(ctx context.Context, records map[string]Record) error {
		return nil
	})

	// 2 -> 3: metadata moved from a single Map field into flattened
	// "meta."-prefixed scalars. A record without the legacy field is left
	// alone, which also makes the step idempotent.
	reg.Register(NotesCollection, 2, func(ctx context.Context, records map[string]Record) error {
		for _, record := range records {
			legacy, ok := record["metadata"].AsMap()
			if !ok {
				continue
			}
			for key, value := range legacy {
				if key == "" || !value.IsScalar() {
					continue
				}
				if !strings.HasPrefix(key, metadata.KeyPrefix) {
					key = metadata.KeyPrefix + key
				}
				record[key] = value
			}
			delete(record, "metadata")
		}
		return nil
	})
}

// NoteToRecord converts a note to its stored record shape. Optional fields
// are omitted when empty; metadata is flattened into prefixed scalar fields.
func NoteToRecord(note *core.Note) Record {
	record := Record{
		"id":        metadata.String(note.ID),
		"text":      metadata.String(note.Text),
		"timestamp": metadata.Int(note.Timestamp),
	}
	if note.SecondaryText != "" {
		record["secondaryText"] = metadata.String(note.SecondaryText)
	}
	if len(note.Tags) > 0 {
		record["tags"] = metadata.Strings(note.Tags)
	}
	if note.URL != "" {
		record["url"] = metadata.String(note.URL)
	}
	for key, value := range metadata.Flatten(note.Metadata) {
		record[key] = value
	}
	return record
}

// RecordToNote converts a stored record back into a note. Flattened metadata
// fields are unprefixed into the note's metadata map; numeric metadata comes
// back as int64 or float64.
func RecordToNote(record Record) (*core.Note, error) {
	id, ok := record["id"].AsString()
	if !ok {
		return nil, fmt.Errorf("%w: note record has no id", ErrSchemaViolation)
	}
	text, ok := record["text"].AsString()
	if !ok {
		return nil, fmt.Errorf("%w: note record %q has no text", ErrSchemaViolation, id)
	}

	note := &core.Note{ID: id, Text: text}
	if v, ok := record["secondaryText"].AsString(); ok {
		note.SecondaryText = v
	}
	if v, ok := record["tags"].AsStrings(); ok {
		note.Tags = v
	}
	if v, ok := record["url"].AsString(); ok {
		note.URL = v
	}
	if v, ok := record["timestamp"].AsInt(); ok {
		note.Timestamp = v
	}

	for key, value := range record {
		if !strings.HasPrefix(key, metadata.KeyPrefix) {
			continue
		}
		if note.Metadata == nil {
			note.Metadata = make(map[string]any)
		}
		note.Metadata[strings.TrimPrefix(key, metadata.KeyPrefix)] = value.Any()
	}

	return note, nil
}

// NotesStore is a typed view over the notes collection of a Store.
type NotesStore struct {
	store Store
}

// NewNotesStore wraps a store. The store must have been opened with the
// notes collection declared.
func NewNotesStore(store Store) *NotesStore {
	return &NotesStore{store: store}
}

// Put validates and writes a note, creating or replacing it.
func (s *NotesStore) Put(ctx context.Context, note *core.Note) error {
	if err := core.ValidateNote(note); err != nil {
		return err
	}
	return s.store.Put(ctx, NotesCollection, note.ID, NoteToRecord(note))
}

// Get retrieves a note by ID. Returns ErrNotFound if it doesn't exist.
func (s *NotesStore) Get(ctx context.Context, id string) (*core.Note, error) {
	record, err := s.store.Get(ctx, NotesCollection, id)
	if err != nil {
		return nil, err
	}
	return RecordToNote(record)
}

// Delete removes a note by ID. Returns ErrNotFound if it doesn't exist.
func (s *NotesStore) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, NotesCollection, id)
}

// All retrieves every stored note, ordered by ID.
func (s *NotesStore) All(ctx context.Context) ([]*core.Note, error) {
	rows, err := s.store.Scan(ctx, NotesCollection, nil)
	if err != nil {
		return nil, err
	}
	notes := make([]*core.Note, 0, len(rows))
	for _, row := range rows {
		note, err := RecordToNote(row.Record)
		if err != nil {
			return nil, fmt.Errorf("record %q: %w", row.Key, err)
		}
		notes = append(notes, note)
	}
	return notes, nil
}
