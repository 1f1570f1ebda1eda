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


package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/recall"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/index"
	"github.com/poiesic/recall/metadata"
	"github.com/poiesic/recall/reindex"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	defaults := ai.DefaultConfig()

	return &cli.App{
		Name:  "recall",
		Usage: "Note store with hybrid keyword and semantic search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the database directory",
				Value:   "./recall_db",
			},
			&cli.BoolFlag{
				Name:  "in-memory",
				Usage: "Keep all data in memory (nothing survives exit)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Embedding service host URL",
				Value: defaults.Host,
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "Embedding model name",
				Value: defaults.Model,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Debug logging and search tracing",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a note",
				ArgsUsage: "TEXT",
				Action:    addAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "id",
						Usage: "Note ID (derived from the text when omitted)",
					},
					&cli.StringSliceFlag{
						Name:    "tag",
						Aliases: []string{"t"},
						Usage:   "Tag for the note (repeatable)",
					},
					&cli.StringFlag{
						Name:  "url",
						Usage: "Source URL",
					},
					&cli.StringFlag{
						Name:  "secondary",
						Usage: "Secondary text indexed alongside the note",
					},
					&cli.StringFlag{
						Name:  "meta",
						Usage: "Metadata as a JSON object, e.g. '{\"kind\":\"recipe\"}'",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search notes",
				ArgsUsage: "QUERY",
				Action:    searchAction,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   5,
					},
					&cli.StringSliceFlag{
						Name:  "filter",
						Usage: "Metadata filter as key=value (repeatable, AND-combined)",
					},
				},
			},
			{
				Name:      "rm",
				Usage:     "Remove a note",
				ArgsUsage: "ID",
				Action:    rmAction,
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild the search index from the stored notes",
				Action: reindexAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "if-needed",
						Usage: "Only rebuild when the index was recovered empty",
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show store and index counters",
				Action: statusAction,
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func openService(c *cli.Context) (*recall.Service, error) {
	opts := []recall.Option{
		recall.WithAIConfig(ai.NewConfig(
			ai.WithHost(c.String("host")),
			ai.WithModel(c.String("model")),
		)),
		recall.WithProgress(os.Stderr),
	}

	if c.Bool("in-memory") {
		opts = append(opts, recall.WithInMemory())
	} else {
		opts = append(opts, recall.WithPath(c.String("db")))
	}

	return recall.Open(c.Context, opts...)
}

func addAction(c *cli.Context) error {
	text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if text == "" {
		return fmt.Errorf("note text is required")
	}

	note := &core.Note{
		ID:            c.String("id"),
		Text:          text,
		SecondaryText: c.String("secondary"),
		Tags:          c.StringSlice("tag"),
		URL:           c.String("url"),
		Timestamp:     time.Now().UnixMilli(),
	}
	if note.ID == "" {
		note.ID = core.IDFromContent(note.Text)
	}

	if raw := c.String("meta"); raw != "" {
		meta := map[string]any{}
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return fmt.Errorf("invalid --meta JSON: %w", err)
		}
		note.Metadata = meta
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.AddNote(c.Context, note); err != nil {
		return err
	}
	svc.Flush()

	fmt.Printf("added %s\n", note.ID)
	return nil
}

func searchAction(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query is required")
	}

	filters, err := parseFilters(c.StringSlice("filter"))
	if err != nil {
		return err
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	var matches []index.Match
	if c.Bool("verbose") {
		matches, err = svc.SearchWithMonitor(c.Context, query, c.Int("limit"), filters, &traceMonitor{out: os.Stderr})
	} else {
		matches, err = svc.Search(c.Context, query, c.Int("limit"), filters)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Found %d hits\n", len(matches))
	for i, hit := range matches {
		fmt.Printf("%d: %q (%s)[%0.3f]\n", i, hit.Doc.Text, hit.ID, hit.Score)
	}

	return nil
}

func rmAction(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("note id is required")
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.RemoveNote(c.Context, id); err != nil {
		return err
	}
	svc.Flush()

	fmt.Printf("removed %s\n", id)
	return nil
}

func reindexAction(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	var stats reindex.Stats
	if c.Bool("if-needed") {
		stats, err = svc.ReindexIfNeeded(c.Context)
	} else {
		stats, err = svc.Reindex(c.Context)
	}
	if err != nil {
		return err
	}

	fmt.Printf("scanned %d, indexed %d in %v\n",
		stats.Scanned, stats.Indexed, stats.Elapsed.Round(time.Millisecond))
	return nil
}

func statusAction(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	notes, err := svc.Notes().All(c.Context)
	if err != nil {
		return err
	}

	stats := svc.Stats()
	fmt.Printf("notes stored:  %d\n", len(notes))
	fmt.Printf("indexed docs:  %d\n", stats.Documents)
	fmt.Printf("dimension:     %d\n", stats.Dimension)
	fmt.Printf("queue:         completed %d, failed %d\n", stats.Queue.Completed, stats.Queue.Failed)
	fmt.Printf("needs reindex: %v\n", stats.NeedsReindex)

	return nil
}

// parseFilters turns key=value pairs into typed metadata filters. Bare keys
// address metadata fields, so "kind=work" filters on "meta.kind".
func parseFilters(pairs []string) (map[string]metadata.Value, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	filters := make(map[string]metadata.Value, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q: want key=value", pair)
		}
		if !strings.HasPrefix(key, metadata.KeyPrefix) {
			key = metadata.KeyPrefix + key
		}
		filters[key] = parseFilterValue(raw)
	}

	return filters, nil
}

// parseFilterValue guesses the value's kind so typed metadata still matches.
func parseFilterValue(raw string) metadata.Value {
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return metadata.Int(v)
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return metadata.Float(v)
	}
	if v, err := strconv.ParseBool(raw); err == nil {
		return metadata.Bool(v)
	}
	return metadata.String(raw)
}

// traceMonitor prints each search stage, for --verbose runs.
type traceMonitor struct {
	out io.Writer
}

func (m *traceMonitor) Start(query string) {
	fmt.Fprintf(m.out, "search: %q\n", query)
}

func (m *traceMonitor) AfterKeywordSearch(ids []string) {
	fmt.Fprintf(m.out, "keyword candidates: %v\n", ids)
}

func (m *traceMonitor) AfterVectorSearch(ids []string) {
	fmt.Fprintf(m.out, "vector candidates: %v\n", ids)
}

func (m *traceMonitor) VerbatimBoost(id string) {
	fmt.Fprintf(m.out, "verbatim boost: %s\n", id)
}

func (m *traceMonitor) Finish(matches []index.Match) {
	fmt.Fprintf(m.out, "results: %d\n", len(matches))
}
