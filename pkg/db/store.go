package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// AddVideo inserts a new video row and returns its id. Every call
// inserts; videos are never de-duplicated.
func (s *Store) AddVideo(v *Video) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO videos (title, source_url, file_path, duration) VALUES (?, ?, ?, ?)`,
		v.Title, v.SourceURL, v.FilePath, v.Duration,
	)
	if err != nil {
		return 0, fmt.Errorf("insert video: %w", err)
	}
	return res.LastInsertId()
}

// Videos lists all videos, newest first.
func (s *Store) Videos() ([]Video, error) {
	var out []Video
	err := s.db.Select(&out, `SELECT * FROM videos ORDER BY created_at DESC, video_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return out, nil
}

// Video returns one video row.
func (s *Store) Video(id int64) (*Video, error) {
	var v Video
	if err := s.db.Get(&v, `SELECT * FROM videos WHERE video_id = ?`, id); err != nil {
		return nil, fmt.Errorf("get video %d: %w", id, err)
	}
	return &v, nil
}

// AddWord inserts a word keyed by its Chinese text and returns its id.
// If the word already exists the stored row wins: enrichment fields are
// not overwritten, and the existing id is returned.
func (s *Store) AddWord(chinese, pinyin, translation string, level int) (int64, error) {
	if chinese == "" {
		return 0, errors.New("word text must be non-empty")
	}
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO words (chinese, pinyin, translation, hsk_level) VALUES (?, ?, ?, ?)`,
		chinese, pinyin, translation, level,
	)
	if err != nil {
		return 0, fmt.Errorf("insert word %s: %w", chinese, err)
	}
	var id int64
	if err := s.db.Get(&id, `SELECT word_id FROM words WHERE chinese = ?`, chinese); err != nil {
		return 0, fmt.Errorf("select word %s: %w", chinese, err)
	}
	return id, nil
}

// Word returns one canonical word row.
func (s *Store) Word(id int64) (*Word, error) {
	var w Word
	if err := s.db.Get(&w, `SELECT * FROM words WHERE word_id = ?`, id); err != nil {
		return nil, fmt.Errorf("get word %d: %w", id, err)
	}
	return &w, nil
}

// AddOccurrence appends one token instance. There is no uniqueness
// constraint: the same word in the same sentence yields one row per
// instance, told apart by position.
func (s *Store) AddOccurrence(o *Occurrence) error {
	_, err := s.db.Exec(
		`INSERT INTO word_occurrences (word_id, video_id, sentence, position, start_time, end_time)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		o.WordID, o.VideoID, o.Sentence, o.Position, o.Start, o.End,
	)
	if err != nil {
		return fmt.Errorf("insert occurrence: %w", err)
	}
	return nil
}

// Occurrences returns up to limit occurrences of a word within a video,
// in playback order.
func (s *Store) Occurrences(wordID, videoID int64, limit int) ([]Occurrence, error) {
	var out []Occurrence
	err := s.db.Select(&out,
		`SELECT * FROM word_occurrences
		 WHERE word_id = ? AND video_id = ?
		 ORDER BY start_time, occurrence_id LIMIT ?`,
		wordID, videoID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list occurrences: %w", err)
	}
	return out, nil
}

// VideoWords returns every word occurring in a video with its frequency
// scoped to that video. Frequency is aggregated at query time, never a
// stored counter. Status reflects the given user; unset pairs read as
// unknown.
func (s *Store) VideoWords(videoID, userID int64) ([]VideoWord, error) {
	var out []VideoWord
	err := s.db.Select(&out,
		`SELECT w.word_id, w.chinese, w.pinyin, w.translation, w.hsk_level,
		        COUNT(o.occurrence_id) AS frequency,
		        COALESCE(ws.status, 'unknown') AS status
		 FROM words w
		 JOIN word_occurrences o ON o.word_id = w.word_id
		 LEFT JOIN word_status ws ON ws.word_id = w.word_id AND ws.user_id = ?
		 WHERE o.video_id = ?
		 GROUP BY w.word_id`,
		userID, videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("list video words: %w", err)
	}
	return out, nil
}

// WordStatus returns the user's status for a word; unset pairs default
// to unknown.
func (s *Store) WordStatus(userID, wordID int64) (Status, error) {
	var status Status
	err := s.db.Get(&status,
		`SELECT status FROM word_status WHERE user_id = ? AND word_id = ?`,
		userID, wordID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return StatusUnknown, nil
	}
	if err != nil {
		return "", fmt.Errorf("get word status: %w", err)
	}
	return status, nil
}

// SetWordStatus fully overwrites the status for a (user, word) pair.
// The review counter is untouched; it only moves via IncrementReview.
func (s *Store) SetWordStatus(userID, wordID int64, status Status) error {
	if _, err := ParseStatus(string(status)); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO word_status (user_id, word_id, status) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, word_id) DO UPDATE SET status = excluded.status`,
		userID, wordID, status,
	)
	if err != nil {
		return fmt.Errorf("set word status: %w", err)
	}
	return nil
}

// ReviewCount returns the user's review counter for a word, 0 when the
// pair has never been touched.
func (s *Store) ReviewCount(userID, wordID int64) (int, error) {
	var count int
	err := s.db.Get(&count,
		`SELECT review_count FROM word_status WHERE user_id = ? AND word_id = ?`,
		userID, wordID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get review count: %w", err)
	}
	return count, nil
}

// IncrementReview bumps the review counter by one. The counter never
// decreases.
func (s *Store) IncrementReview(userID, wordID int64) error {
	_, err := s.db.Exec(
		`INSERT INTO word_status (user_id, word_id, status, review_count) VALUES (?, ?, 'unknown', 1)
		 ON CONFLICT(user_id, word_id) DO UPDATE SET review_count = word_status.review_count + 1`,
		userID, wordID,
	)
	if err != nil {
		return fmt.Errorf("increment review: %w", err)
	}
	return nil
}

// SaveVideoStats replaces the single stats row for a video.
func (s *Store) SaveVideoStats(videoID int64, stats *VideoStats) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO video_stats
		 (video_id, total_words, unique_words, hsk1_count, hsk2_count, hsk3_count,
		  hsk4_count, hsk5_count, hsk6_count, non_hsk_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		videoID, stats.TotalWords, stats.UniqueWords,
		stats.HSK1, stats.HSK2, stats.HSK3, stats.HSK4, stats.HSK5, stats.HSK6,
		stats.NonHSK,
	)
	if err != nil {
		return fmt.Errorf("save video stats: %w", err)
	}
	return nil
}

// VideoStats returns the saved stats row for a video.
func (s *Store) VideoStats(videoID int64) (*VideoStats, error) {
	var stats VideoStats
	if err := s.db.Get(&stats, `SELECT * FROM video_stats WHERE video_id = ?`, videoID); err != nil {
		return nil, fmt.Errorf("get video stats %d: %w", videoID, err)
	}
	return &stats, nil
}
