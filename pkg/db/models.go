package db

import (
	"fmt"
	"time"
)

// Video is one ingested video. Rows are immutable after insert and are
// never de-duplicated by title or URL.
type Video struct {
	ID        int64     `db:"video_id"`
	Title     string    `db:"title"`
	SourceURL string    `db:"source_url"`
	FilePath  string    `db:"file_path"`
	Duration  float64   `db:"duration"`
	CreatedAt time.Time `db:"created_at"`
}

// Word is the canonical entry for a Chinese word, shared across videos.
// Level 0 is the explicit out-of-level marker.
type Word struct {
	ID          int64  `db:"word_id"`
	Chinese     string `db:"chinese"`
	Pinyin      string `db:"pinyin"`
	Translation string `db:"translation"`
	Level       int    `db:"hsk_level"`
}

// Occurrence is one concrete token instance inside one video.
type Occurrence struct {
	ID       int64   `db:"occurrence_id"`
	WordID   int64   `db:"word_id"`
	VideoID  int64   `db:"video_id"`
	Sentence string  `db:"sentence"`
	Position int     `db:"position"`
	Start    float64 `db:"start_time"`
	End      float64 `db:"end_time"`
}

// Status is a learner's relationship with a word.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusPractice Status = "practice"
	StatusKnown    Status = "known"
)

// ParseStatus validates a status string coming from outside the store.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusUnknown, StatusPractice, StatusKnown:
		return Status(s), nil
	}
	return "", fmt.Errorf("invalid word status %q", s)
}

// VideoWord is a word as seen from one video: canonical fields plus the
// frequency within that video (aggregated at query time) and the
// requesting user's status.
type VideoWord struct {
	Word
	Frequency int    `db:"frequency"`
	Status    Status `db:"status"`
}

// VideoStats is the aggregated counts for one video, computed by the
// caller from the video's occurrence set at save time.
type VideoStats struct {
	VideoID     int64 `db:"video_id"`
	TotalWords  int   `db:"total_words"`
	UniqueWords int   `db:"unique_words"`
	HSK1        int   `db:"hsk1_count"`
	HSK2        int   `db:"hsk2_count"`
	HSK3        int   `db:"hsk3_count"`
	HSK4        int   `db:"hsk4_count"`
	HSK5        int   `db:"hsk5_count"`
	HSK6        int   `db:"hsk6_count"`
	NonHSK      int   `db:"non_hsk_count"`
}

// BumpLevel increments the counter bucket for the given level; values
// outside 1-6 land in the out-of-level bucket.
func (s *VideoStats) BumpLevel(level int) {
	switch level {
	case 1:
		s.HSK1++
	case 2:
		s.HSK2++
	case 3:
		s.HSK3++
	case 4:
		s.HSK4++
	case 5:
		s.HSK5++
	case 6:
		s.HSK6++
	default:
		s.NonHSK++
	}
}

// LevelSum is the sum of the per-level buckets plus the out-of-level
// bucket; it must equal UniqueWords for a well-formed row.
func (s *VideoStats) LevelSum() int {
	return s.HSK1 + s.HSK2 + s.HSK3 + s.HSK4 + s.HSK5 + s.HSK6 + s.NonHSK
}
