package index

import (
	"math"
	"sort"

	"github.com/poiesic/recall/metadata"
)

// Scoring policy. The combination is deterministic for identical inputs; the
// exact weighting is an internal tunable, not a contract.
const (
	// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
	rrfK = 60

	keywordWeight = 1.0
	vectorWeight  = 1.0

	// verbatimBoost is added when a document contains every query word.
	verbatimBoost = 0.3

	// minVectorSimilarity is the cosine floor below which a document is not
	// considered a vector candidate.
	minVectorSimilarity = 0.30
)

// Query describes one search call.
type Query struct {
	Text      string
	Embedding []float32                 // Empty or wrong-length degrades to keyword-only
	Limit     int                       // Non-positive yields no results
	Filters   map[string]metadata.Value // AND-combined exact matches over flattened metadata
}

// Match is one ranked search result. Doc is a copy; its slices are shared
// with the index and must not be mutated.
type Match struct {
	ID    string
	Score float64
	Doc   Document
}

// Search ranks documents against the query, combining keyword and vector
// relevance. An empty index yields an empty result, never an error; a
// missing, zero or wrong-length query embedding degrades to keyword-only
// ranking.
func (h *Hybrid) Search(q Query) []Match {
	return h.SearchWithMonitor(q, nil)
}

// SearchWithMonitor is Search with observation hooks for each stage.
func (h *Hybrid) SearchWithMonitor(q Query, monitor Monitor) []Match {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(q.Text)

	h.mu.RLock()
	defer h.mu.RUnlock()

	if q.Limit <= 0 || len(h.docs) == 0 {
		results := []Match{}
		monitor.Finish(results)
		return results
	}

	allowed := h.filterLocked(q.Filters)
	if allowed != nil && len(allowed) == 0 {
		results := []Match{}
		monitor.Finish(results)
		return results
	}

	// 1. Keyword ranking
	keywordRanked := h.rankLocked(h.keywords.search(q.Text), allowed)
	monitor.AfterKeywordSearch(keywordRanked)

	// 2. Vector ranking
	var vectorRanked []string
	switch {
	case len(q.Embedding) == 0:
		// Keyword-only query.
	case len(q.Embedding) != h.dim:
		h.logger.Warn("query embedding has wrong dimensionality, degrading to keyword-only",
			"got", len(q.Embedding), "want", h.dim)
	default:
		vectorRanked = h.rankLocked(h.vectorScoresLocked(q.Embedding, allowed), nil)
	}
	monitor.AfterVectorSearch(vectorRanked)

	// 3. Fuse the two rankings with weighted reciprocal ranks.
	fused := make(map[string]float64, len(keywordRanked)+len(vectorRanked))
	for rank, id := range keywordRanked {
		fused[id] += keywordWeight / float64(rrfK+rank+1)
	}
	for rank, id := range vectorRanked {
		fused[id] += vectorWeight / float64(rrfK+rank+1)
	}

	// 4. Score and build results
	results := make([]Match, 0, len(fused))
	for id, score := range fused {
		doc := h.docs[id]

		// Apply verbatim match boost
		if containsAllQueryWords(doc.keywordText(), q.Text) {
			score += verbatimBoost
			monitor.VerbatimBoost(id)
		}

		results = append(results, Match{ID: id, Score: score, Doc: *doc})
	}

	// Sort by score descending; ties go to the most recent document, then ID.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Doc.Timestamp != results[j].Doc.Timestamp {
			return results[i].Doc.Timestamp > results[j].Doc.Timestamp
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > q.Limit {
		results = results[:q.Limit]
	}
	monitor.Finish(results)

	return results
}

// filterLocked resolves AND-combined exact-match predicates to the set of
// matching document IDs. A nil return means no filtering.
func (h *Hybrid) filterLocked(filters map[string]metadata.Value) map[string]bool {
	if len(filters) == 0 {
		return nil
	}

	allowed := make(map[string]bool)
	for id, doc := range h.docs {
		match := true
		for key, want := range filters {
			got, ok := doc.Meta[key]
			if !ok || !got.Equal(want) {
				match = false
				break
			}
		}
		if match {
			allowed[id] = true
		}
	}
	return allowed
}

// vectorScoresLocked scores every allowed document with an embedding against
// the query embedding. Documents below the similarity floor are dropped.
func (h *Hybrid) vectorScoresLocked(embedding []float32, allowed map[string]bool) map[string]float64 {
	scores := make(map[string]float64)
	for id, doc := range h.docs {
		if allowed != nil && !allowed[id] {
			continue
		}
		if len(doc.Embedding) != h.dim {
			continue
		}
		sim := cosineSimilarity(embedding, doc.Embedding)
		if sim >= minVectorSimilarity {
			scores[id] = sim
		}
	}
	return scores
}

// rankLocked orders score-map entries into a deterministic rank list:
// score descending, then newest timestamp, then ID.
func (h *Hybrid) rankLocked(scores map[string]float64, allowed map[string]bool) []string {
	type candidate struct {
		id        string
		score     float64
		timestamp int64
	}

	candidates := make([]candidate, 0, len(scores))
	for id, score := range scores {
		if allowed != nil && !allowed[id] {
			continue
		}
		doc, ok := h.docs[id]
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{id: id, score: score, timestamp: doc.Timestamp})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].timestamp != candidates[j].timestamp {
			return candidates[i].timestamp > candidates[j].timestamp
		}
		return candidates[i].id < candidates[j].id
	})

	ranked := make([]string, len(candidates))
	for i, c := range candidates {
		ranked[i] = c.id
	}
	return ranked
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Zero vectors have no direction and score 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
