package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/recall"
	"github.com/poiesic/recall/core"
)

var notes = []string{
	"Sourdough needs six hours at room temperature before the second fold.",
	"The ferry to the outer islands runs twice daily in summer, once in winter.",
	"Replace the anode rod in the water heater every three years.",
	"Paprika plants wilt below ten degrees; bring them in by October.",
	"The library's interlibrary loan desk closes at four on Fridays.",
	"Backup drive rotation: odd weeks offsite, even weeks in the safe.",
	"Grandma's dumpling recipe doubles fine but never halves.",
	"The north trail floods after two days of rain; take the ridge instead.",
	"Car insurance renewal lands on March twelfth.",
	"Basil cuttings root faster in water than in soil.",
	"The hardware store stocks metric wood screws only in the back aisle.",
	"Tide charts for the harbor are posted at the marina office.",
	"Rye starter lives on the top shelf, feed it Thursday evenings.",
	"The accountant wants receipts scanned before the quarter closes.",
	"Winter tires go on when overnight lows hit seven degrees.",
	"The beekeeping club meets the first Tuesday of every month.",
	"Citrus trees drop leaves when overwatered, not underwatered.",
	"The bridge toll is cheaper with the transponder after six.",
	"Firewood needs two summers of seasoning before it burns clean.",
	"The pediatrician's after-hours line picks up before the front desk.",
	"Museum admission is free on the last Sunday of the month.",
	"Bicycle chain gets waxed every four hundred kilometers.",
	"The community garden assigns plots by lottery in February.",
	"Pressure cooker beans: forty minutes from dry, no soak needed.",
	"The landlord covers gutter cleaning, not downspout repairs.",
	"Trail permits for the gorge sell out by early May.",
	"Aunt Mari's address changed to the house by the old mill.",
	"The compost bin needs turning when it stops steaming.",
	"Passport renewal takes eleven weeks without the expedite fee.",
	"The good olive oil comes from the shop behind the fish market.",
	"Roof shingles on the south face are due for inspection next fall.",
	"The choir rehearses in the chapel when the hall is booked.",
	"Parking by the courthouse is free after five and all weekend.",
	"Tomato seedlings start indoors eight weeks before the last frost.",
	"The printer at work jams on anything heavier than ninety gsm.",
	"Ferry tickets are refundable up to an hour before departure.",
	"The electrician said the garage subpanel can take one more circuit.",
	"Marmalade sets better with the pips tied in a muslin bag.",
	"The gym's lap pool is lane-swimming only before eight.",
	"Chimney sweep booked for the second week of September.",
	"The orchard's honesty stand takes coins and a payment app.",
	"Knife sharpening guy is at the farmers market every other week.",
	"The cabin's water main shuts off under the porch steps.",
	"Annual flu shots arrive at the pharmacy mid-October.",
}

var (
	seedFileName = flag.String("src", "", "file of seed notes, one per line")
	dbPath       = flag.String("db", "./recall_db", "database directory")
	producers    = flag.Int("producers", 4, "concurrent ingest producers")
	batchSize    = flag.Int("batch", 5, "notes per ingest call")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// linesFromFile returns an iterator over lines in a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
	}, nil
}

// linesFromSlice returns an iterator over a slice of strings.
func linesFromSlice(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !yield(line) {
				return
			}
		}
	}
}

// batches groups lines into slices of at most n.
func batches(source iter.Seq[string], n int) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		batch := make([]string, 0, n)
		for line := range source {
			batch = append(batch, line)
			if len(batch) == n {
				if !yield(batch) {
					return
				}
				batch = make([]string, 0, n)
			}
		}
		if len(batch) > 0 {
			yield(batch)
		}
	}
}

func main() {
	svc, err := recall.Open(context.Background(), recall.WithPath(*dbPath))
	if err != nil {
		panic(err)
	}
	defer svc.Close()

	var source iter.Seq[string]
	if *seedFileName != "" {
		source, err = linesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = linesFromSlice(notes)
	}

	// Several producers feed the pipeline at once; the index queue is the
	// serialization point, so contention here is the thing being exercised.
	g, ctx := errgroup.WithContext(context.Background())
	work := make(chan []string)

	for i := 0; i < *producers; i++ {
		g.Go(func() error {
			for batch := range work {
				toAdd := make([]*core.Note, len(batch))
				for i, text := range batch {
					toAdd[i] = &core.Note{
						ID:        core.IDFromContent(text),
						Text:      text,
						Tags:      []string{"seed"},
						Timestamp: time.Now().UnixMilli(),
					}
				}
				if err := svc.AddNotes(ctx, toAdd...); err != nil {
					return err
				}
			}
			return nil
		})
	}

	start := time.Now()
	count := 0
feed:
	for batch := range batches(source, *batchSize) {
		select {
		case work <- batch:
			count += len(batch)
		case <-ctx.Done():
			break feed
		}
	}
	close(work)

	if err := g.Wait(); err != nil {
		panic(err)
	}
	svc.Flush()

	stats := svc.Stats()
	fmt.Printf("seeded %d notes in %v (indexed %d, completed %d, failed %d)\n",
		count, time.Since(start).Round(time.Millisecond),
		stats.Documents, stats.Queue.Completed, stats.Queue.Failed)
}
