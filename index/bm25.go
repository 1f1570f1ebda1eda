package index

import "math"

// BM25 parameters (standard values).
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

type posting struct {
	id    string
	count int
}

// keywordIndex is an in-memory BM25 inverted index over document keyword
// text. It is not safe for concurrent use on its own; Hybrid's lock guards
// every call.
type keywordIndex struct {
	inverted    map[string][]posting
	docLengths  map[string]int
	totalLength int64
}

func newKeywordIndex() *keywordIndex {
	return &keywordIndex{
		inverted:   make(map[string][]posting),
		docLengths: make(map[string]int),
	}
}

// add indexes the keyword text for id. Callers must remove any previous
// entry for id first; add assumes the id is absent.
func (ki *keywordIndex) add(id, text string) {
	tokens := tokenizeAndFilter(text)

	ki.docLengths[id] = len(tokens)
	ki.totalLength += int64(len(tokens))

	tf := make(map[string]int)
	for _, t := range tokens {
		tf[t]++
	}
	for t, count := range tf {
		ki.inverted[t] = append(ki.inverted[t], posting{id: id, count: count})
	}
}

// remove drops the entry for id. The document's keyword text is re-tokenized
// to find its postings, so only the terms it actually carries are touched.
func (ki *keywordIndex) remove(id, text string) {
	length, ok := ki.docLengths[id]
	if !ok {
		return
	}

	seen := make(map[string]bool)
	for _, t := range tokenizeAndFilter(text) {
		if seen[t] {
			continue
		}
		seen[t] = true

		postings := ki.inverted[t]
		for i, p := range postings {
			if p.id == id {
				ki.inverted[t] = append(postings[:i], postings[i+1:]...)
				break
			}
		}
		if len(ki.inverted[t]) == 0 {
			delete(ki.inverted, t)
		}
	}

	delete(ki.docLengths, id)
	ki.totalLength -= int64(length)
}

func (ki *keywordIndex) clear() {
	ki.inverted = make(map[string][]posting)
	ki.docLengths = make(map[string]int)
	ki.totalLength = 0
}

// search scores every document containing at least one query term.
func (ki *keywordIndex) search(query string) map[string]float64 {
	scores := make(map[string]float64)
	docCount := len(ki.docLengths)
	if docCount == 0 {
		return scores
	}

	avgDL := float64(ki.totalLength) / float64(docCount)

	for _, t := range tokenizeAndFilter(query) {
		postings, ok := ki.inverted[t]
		if !ok {
			continue
		}

		idf := ki.computeIDF(len(postings), docCount)

		for _, p := range postings {
			tf := float64(p.count)
			docLen := float64(ki.docLengths[p.id])

			// BM25 formula
			num := tf * (bm25K1 + 1)
			denom := tf + bm25K1*(1-bm25B+bm25B*(docLen/avgDL))
			scores[p.id] += idf * (num / denom)
		}
	}

	return scores
}

func (ki *keywordIndex) computeIDF(df, docCount int) float64 {
	// IDF = log(1 + (N - n + 0.5) / (n + 0.5))
	N := float64(docCount)
	n := float64(df)
	return math.Log(1 + (N-n+0.5)/(n+0.5))
}
