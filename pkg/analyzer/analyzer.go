package analyzer

import (
	"fmt"
	"sort"

	"github.com/go-ego/gse"
)

// LevelNone marks a word outside the graded HSK 1-6 lists. It is an
// explicit value, not an absence: every analyzed word carries a level.
const LevelNone = 0

// Segment is one timed line of transcript text.
type Segment struct {
	Text  string
	Start float64
	End   float64
}

// Occurrence is one concrete sighting of a word inside a transcript segment.
type Occurrence struct {
	Word     string
	Sentence string
	Start    float64
	End      float64
	// Position is the index within the sentence's kept tokens, so a word
	// repeated inside one sentence yields distinct occurrences.
	Position int
}

// WordAnalysis aggregates everything known about one distinct word.
type WordAnalysis struct {
	Word        string
	Frequency   int
	Level       int // LevelNone when the word is outside the graded lists
	Pinyin      string
	Definitions []string
	Contexts    []Occurrence
}

// Analyzer segments Mandarin text and classifies words against the HSK
// table and CC-CEDICT. The reference tables are loaded once at
// construction and never mutated afterwards; the same Analyzer may be
// shared across goroutines.
type Analyzer struct {
	seg  gse.Segmenter
	hsk  HSKTable
	dict Dict
}

// New loads both reference tables from disk and builds the segmenter.
// A missing or unparseable table is a hard error: continuing with empty
// data would silently misclassify every word downstream.
func New(hskPath, cedictPath string) (*Analyzer, error) {
	hsk, err := LoadHSK(hskPath)
	if err != nil {
		return nil, fmt.Errorf("load hsk table: %w", err)
	}
	dict, err := LoadCEDICT(cedictPath)
	if err != nil {
		return nil, fmt.Errorf("load cedict: %w", err)
	}
	return NewFromData(hsk, dict)
}

// NewFromData builds an analyzer around already-loaded reference tables.
func NewFromData(hsk HSKTable, dict Dict) (*Analyzer, error) {
	a := &Analyzer{hsk: hsk, dict: dict}
	if err := a.seg.LoadDict(); err != nil {
		return nil, fmt.Errorf("load segmenter dictionary: %w", err)
	}
	return a, nil
}

// Segment cuts a sentence into word tokens, dropping every token without
// a CJK ideograph (pure punctuation, digits, Latin).
func (a *Analyzer) Segment(text string) []string {
	var kept []string
	for _, tok := range a.seg.Cut(text, true) {
		if containsHan(tok) {
			kept = append(kept, tok)
		}
	}
	return kept
}

func containsHan(s string) bool {
	for _, r := range s {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}

// ExtractOccurrences runs segmentation over every transcript segment and
// emits one occurrence per kept token, carrying the segment's timestamps.
func (a *Analyzer) ExtractOccurrences(segments []Segment) []Occurrence {
	var out []Occurrence
	for _, seg := range segments {
		for i, tok := range a.Segment(seg.Text) {
			out = append(out, Occurrence{
				Word:     tok,
				Sentence: seg.Text,
				Start:    seg.Start,
				End:      seg.End,
				Position: i,
			})
		}
	}
	return out
}

// Level returns the HSK level of word, or LevelNone.
func (a *Analyzer) Level(word string) int { return a.hsk.Level(word) }

// Lookup returns the merged dictionary data for word.
func (a *Analyzer) Lookup(word string) (pinyin string, definitions []string) {
	return a.dict.Lookup(word)
}

// Analyze is the composed pipeline: occurrence extraction, frequency
// aggregation, HSK classification and dictionary enrichment folded into
// one record per distinct word. The result is ordered by frequency
// descending; ties keep first-seen order.
func (a *Analyzer) Analyze(segments []Segment) []WordAnalysis {
	occurrences := a.ExtractOccurrences(segments)

	var order []string
	freq := make(map[string]int)
	contexts := make(map[string][]Occurrence)
	for _, o := range occurrences {
		if _, seen := freq[o.Word]; !seen {
			order = append(order, o.Word)
		}
		freq[o.Word]++
		contexts[o.Word] = append(contexts[o.Word], o)
	}

	out := make([]WordAnalysis, 0, len(order))
	for _, w := range order {
		pinyin, defs := a.dict.Lookup(w)
		out = append(out, WordAnalysis{
			Word:        w,
			Frequency:   freq[w],
			Level:       a.hsk.Level(w),
			Pinyin:      pinyin,
			Definitions: defs,
			Contexts:    contexts[w],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Frequency > out[j].Frequency
	})
	return out
}
