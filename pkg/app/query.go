package app

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/lromero/hanvid/pkg/analyzer"
	"github.com/lromero/hanvid/pkg/db"
)

// SortOrder selects one of the three deterministic word-list orders.
type SortOrder string

const (
	// SortByFrequency orders by frequency, descending.
	SortByFrequency SortOrder = "frequency"
	// SortByLevel orders by level ascending with every out-of-level word
	// after all graded words; frequency descending breaks ties.
	SortByLevel SortOrder = "level"
	// SortByText orders by the word's literal text, ascending.
	SortByText SortOrder = "text"
)

// WordDetail merges the stored word with presentation-oriented derived
// fields for one video.
type WordDetail struct {
	Word        db.Word
	Frequency   int
	Status      db.Status
	ReviewCount int
	// Difficulty is a 1-5 estimate from frequency relative to the
	// video's most frequent word (frequent reads as easier).
	Difficulty  int
	Occurrences []db.Occurrence
	Examples    []string // present only when the generation collaborator is enabled
}

// Videos lists all ingested videos, newest first.
func (c *Controller) Videos() ([]db.Video, error) {
	return c.store.Videos()
}

// VideoStats returns the saved stats row for a video.
func (c *Controller) VideoStats(videoID int64) (*db.VideoStats, error) {
	return c.store.VideoStats(videoID)
}

// DefaultUserID exposes the store's seeded user for single-user hosts.
func (c *Controller) DefaultUserID() (int64, error) {
	return c.store.DefaultUserID()
}

// VideoWords returns a video's word list for a user in the requested
// order. Frequency is always scoped to the video.
func (c *Controller) VideoWords(videoID, userID int64, order SortOrder) ([]db.VideoWord, error) {
	words, err := c.store.VideoWords(videoID, userID)
	if err != nil {
		return nil, err
	}
	switch order {
	case SortByLevel:
		sort.SliceStable(words, func(i, j int) bool {
			li, lj := levelRank(words[i].Level), levelRank(words[j].Level)
			if li != lj {
				return li < lj
			}
			return words[i].Frequency > words[j].Frequency
		})
	case SortByText:
		sort.SliceStable(words, func(i, j int) bool {
			return words[i].Chinese < words[j].Chinese
		})
	default:
		sort.SliceStable(words, func(i, j int) bool {
			return words[i].Frequency > words[j].Frequency
		})
	}
	return words, nil
}

// levelRank pushes out-of-level words after every graded word.
func levelRank(level int) int {
	if level == analyzer.LevelNone {
		return 99
	}
	return level
}

// estimateDifficulty maps a word's share of the video's top frequency
// to a 1 (easy, common) to 5 (hard, rare) score.
func estimateDifficulty(frequency, maxFrequency int) int {
	if maxFrequency <= 0 {
		return 3
	}
	ratio := float64(frequency) / float64(maxFrequency)
	switch {
	case ratio > 0.2:
		return 1
	case ratio > 0.1:
		return 2
	case ratio > 0.05:
		return 3
	case ratio > 0.02:
		return 4
	default:
		return 5
	}
}

// WordDetail assembles the detail record for a word within a video. A
// failing generation collaborator degrades to no examples rather than
// failing the query.
func (c *Controller) WordDetail(ctx context.Context, wordID, videoID, userID int64) (*WordDetail, error) {
	word, err := c.store.Word(wordID)
	if err != nil {
		return nil, err
	}
	occurrences, err := c.store.Occurrences(wordID, videoID, c.opts.OccurrenceCap)
	if err != nil {
		return nil, err
	}
	status, err := c.store.WordStatus(userID, wordID)
	if err != nil {
		return nil, err
	}
	reviews, err := c.store.ReviewCount(userID, wordID)
	if err != nil {
		return nil, err
	}

	words, err := c.store.VideoWords(videoID, userID)
	if err != nil {
		return nil, err
	}
	var frequency, maxFrequency int
	for _, w := range words {
		if w.Frequency > maxFrequency {
			maxFrequency = w.Frequency
		}
		if w.ID == wordID {
			frequency = w.Frequency
		}
	}

	detail := &WordDetail{
		Word:        *word,
		Frequency:   frequency,
		Status:      status,
		ReviewCount: reviews,
		Difficulty:  estimateDifficulty(frequency, maxFrequency),
		Occurrences: occurrences,
	}

	if c.gen != nil {
		examples, err := c.gen.ExampleSentences(ctx, word.Chinese, c.opts.ExampleCount)
		if err != nil {
			c.log.Warn("example generation failed", zap.String("word", word.Chinese), zap.Error(err))
		} else {
			detail.Examples = examples
		}
	}
	return detail, nil
}

// Synonyms ranks the video's vocabulary around a word. Returns nothing
// when the generation collaborator is disabled.
func (c *Controller) Synonyms(ctx context.Context, wordID, videoID, userID int64) ([]string, error) {
	if c.gen == nil {
		return nil, nil
	}
	word, err := c.store.Word(wordID)
	if err != nil {
		return nil, err
	}
	words, err := c.store.VideoWords(videoID, userID)
	if err != nil {
		return nil, err
	}
	vocabulary := make([]string, len(words))
	for i, w := range words {
		vocabulary[i] = w.Chinese
	}
	return c.gen.Synonyms(ctx, word.Chinese, vocabulary, c.opts.SynonymTopK)
}

// SetWordStatus overwrites the user's status for a word.
func (c *Controller) SetWordStatus(userID, wordID int64, status db.Status) error {
	return c.store.SetWordStatus(userID, wordID, status)
}

// WordStatus reads the user's status for a word.
func (c *Controller) WordStatus(userID, wordID int64) (db.Status, error) {
	return c.store.WordStatus(userID, wordID)
}

// ReviewWord records one review of a word; the counter only grows.
func (c *Controller) ReviewWord(userID, wordID int64) error {
	return c.store.IncrementReview(userID, wordID)
}
