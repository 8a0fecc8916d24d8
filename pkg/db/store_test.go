package db

import (
	"path/filepath"
	"testing"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDefaultUserSeededOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id1, err := s.DefaultUserID()
	if err != nil {
		t.Fatalf("default user: %v", err)
	}
	s.Close()

	// Re-opening must not seed a second user.
	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	id2, err := s.DefaultUserID()
	if err != nil {
		t.Fatalf("default user after reopen: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("default user changed: %d vs %d", id1, id2)
	}
	var count int
	if err := s.db.Get(&count, `SELECT COUNT(*) FROM users`); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 user, got %d", count)
	}
}

func TestAddWordIdempotent(t *testing.T) {
	s := setupTestStore(t)

	id1, err := s.AddWord("学习", "xue2 xi2", "to study; to learn", 1)
	if err != nil {
		t.Fatalf("add word: %v", err)
	}
	// Second insert with different enrichment must return the same id
	// and leave the first write in place.
	id2, err := s.AddWord("学习", "changed", "changed", 5)
	if err != nil {
		t.Fatalf("add word again: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same id, got %d and %d", id1, id2)
	}
	var count int
	if err := s.db.Get(&count, `SELECT COUNT(*) FROM words WHERE chinese = ?`, "学习"); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
	w, err := s.Word(id1)
	if err != nil {
		t.Fatalf("get word: %v", err)
	}
	if w.Pinyin != "xue2 xi2" || w.Level != 1 {
		t.Fatalf("first write lost: %+v", w)
	}
}

func TestAddVideoNeverDeduplicates(t *testing.T) {
	s := setupTestStore(t)
	v := &Video{Title: "same", SourceURL: "https://example.com/v"}
	id1, err := s.AddVideo(v)
	if err != nil {
		t.Fatalf("add video: %v", err)
	}
	id2, err := s.AddVideo(v)
	if err != nil {
		t.Fatalf("add video again: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("videos must not deduplicate, got same id %d", id1)
	}
	videos, err := s.Videos()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(videos))
	}
	// Newest first.
	if videos[0].ID != id2 {
		t.Fatalf("expected newest video first, got %d", videos[0].ID)
	}
}

func TestWordSharedAcrossVideosFrequencyScoped(t *testing.T) {
	s := setupTestStore(t)
	userID, _ := s.DefaultUserID()

	wordID, err := s.AddWord("你好", "ni3 hao3", "hello", 1)
	if err != nil {
		t.Fatalf("add word: %v", err)
	}
	v1, _ := s.AddVideo(&Video{Title: "a"})
	v2, _ := s.AddVideo(&Video{Title: "b"})

	for i := 0; i < 3; i++ {
		if err := s.AddOccurrence(&Occurrence{WordID: wordID, VideoID: v1, Sentence: "你好你好", Position: i}); err != nil {
			t.Fatalf("occurrence v1: %v", err)
		}
	}
	if err := s.AddOccurrence(&Occurrence{WordID: wordID, VideoID: v2, Sentence: "你好", Position: 0}); err != nil {
		t.Fatalf("occurrence v2: %v", err)
	}

	words1, err := s.VideoWords(v1, userID)
	if err != nil {
		t.Fatalf("video words v1: %v", err)
	}
	words2, err := s.VideoWords(v2, userID)
	if err != nil {
		t.Fatalf("video words v2: %v", err)
	}
	if len(words1) != 1 || len(words2) != 1 {
		t.Fatalf("expected 1 word each, got %d and %d", len(words1), len(words2))
	}
	if words1[0].ID != words2[0].ID {
		t.Fatalf("expected one shared word row, got %d and %d", words1[0].ID, words2[0].ID)
	}
	if words1[0].Frequency != 3 {
		t.Fatalf("v1 frequency = %d, want 3", words1[0].Frequency)
	}
	if words2[0].Frequency != 1 {
		t.Fatalf("v2 frequency = %d, want 1", words2[0].Frequency)
	}
}

func TestVideoWordsReportsStatus(t *testing.T) {
	s := setupTestStore(t)
	userID, _ := s.DefaultUserID()

	wordID, _ := s.AddWord("我", "wo3", "I", 1)
	videoID, _ := s.AddVideo(&Video{Title: "v"})
	_ = s.AddOccurrence(&Occurrence{WordID: wordID, VideoID: videoID, Sentence: "我"})

	words, err := s.VideoWords(videoID, userID)
	if err != nil {
		t.Fatalf("video words: %v", err)
	}
	if words[0].Status != StatusUnknown {
		t.Fatalf("expected unknown default, got %q", words[0].Status)
	}

	if err := s.SetWordStatus(userID, wordID, StatusKnown); err != nil {
		t.Fatalf("set status: %v", err)
	}
	words, _ = s.VideoWords(videoID, userID)
	if words[0].Status != StatusKnown {
		t.Fatalf("expected known, got %q", words[0].Status)
	}
}

func TestWordStatusOverwrite(t *testing.T) {
	s := setupTestStore(t)
	userID, _ := s.DefaultUserID()
	wordID, _ := s.AddWord("喜欢", "", "", 1)

	got, err := s.WordStatus(userID, wordID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got != StatusUnknown {
		t.Fatalf("unset pair = %q, want unknown", got)
	}

	for _, want := range []Status{StatusPractice, StatusKnown, StatusUnknown} {
		if err := s.SetWordStatus(userID, wordID, want); err != nil {
			t.Fatalf("set %q: %v", want, err)
		}
		got, _ = s.WordStatus(userID, wordID)
		if got != want {
			t.Fatalf("status = %q, want %q", got, want)
		}
	}
	// Full overwrite: exactly one row per (user, word).
	var count int
	if err := s.db.Get(&count, `SELECT COUNT(*) FROM word_status WHERE user_id = ? AND word_id = ?`, userID, wordID); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 status row, got %d", count)
	}
}

func TestSetWordStatusRejectsInvalid(t *testing.T) {
	s := setupTestStore(t)
	userID, _ := s.DefaultUserID()
	wordID, _ := s.AddWord("好", "", "", 1)
	if err := s.SetWordStatus(userID, wordID, Status("mastered")); err == nil {
		t.Fatal("expected error for invalid status")
	}
}

func TestReviewCountMonotonic(t *testing.T) {
	s := setupTestStore(t)
	userID, _ := s.DefaultUserID()
	wordID, _ := s.AddWord("学习", "", "", 1)

	count, err := s.ReviewCount(userID, wordID)
	if err != nil || count != 0 {
		t.Fatalf("initial count = %d (%v), want 0", count, err)
	}
	for i := 1; i <= 3; i++ {
		if err := s.IncrementReview(userID, wordID); err != nil {
			t.Fatalf("increment: %v", err)
		}
		count, _ = s.ReviewCount(userID, wordID)
		if count != i {
			t.Fatalf("count = %d, want %d", count, i)
		}
	}
	// Status updates must not reset the counter.
	if err := s.SetWordStatus(userID, wordID, StatusKnown); err != nil {
		t.Fatalf("set status: %v", err)
	}
	count, _ = s.ReviewCount(userID, wordID)
	if count != 3 {
		t.Fatalf("count after status update = %d, want 3", count)
	}
}

func TestVideoStatsReplace(t *testing.T) {
	s := setupTestStore(t)
	videoID, _ := s.AddVideo(&Video{Title: "v"})

	stats := &VideoStats{VideoID: videoID, TotalWords: 3, UniqueWords: 3, HSK1: 3}
	if err := s.SaveVideoStats(videoID, stats); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.VideoStats(videoID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalWords != 3 || got.HSK1 != 3 {
		t.Fatalf("bad stats: %+v", got)
	}
	if got.LevelSum() != got.UniqueWords {
		t.Fatalf("invariant broken: sum %d, unique %d", got.LevelSum(), got.UniqueWords)
	}

	// Saving again fully replaces the single row.
	stats = &VideoStats{VideoID: videoID, TotalWords: 10, UniqueWords: 5, HSK1: 2, HSK2: 2, NonHSK: 1}
	if err := s.SaveVideoStats(videoID, stats); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _ = s.VideoStats(videoID)
	if got.TotalWords != 10 || got.UniqueWords != 5 || got.NonHSK != 1 {
		t.Fatalf("replace failed: %+v", got)
	}
	var count int
	if err := s.db.Get(&count, `SELECT COUNT(*) FROM video_stats WHERE video_id = ?`, videoID); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 stats row, got %d", count)
	}
}

func TestOccurrencesCapAndOrder(t *testing.T) {
	s := setupTestStore(t)
	wordID, _ := s.AddWord("我", "", "", 1)
	videoID, _ := s.AddVideo(&Video{Title: "v"})

	for i := 0; i < 15; i++ {
		_ = s.AddOccurrence(&Occurrence{
			WordID: wordID, VideoID: videoID,
			Sentence: "我", Start: float64(15 - i), End: float64(16 - i),
		})
	}
	occs, err := s.Occurrences(wordID, videoID, 10)
	if err != nil {
		t.Fatalf("occurrences: %v", err)
	}
	if len(occs) != 10 {
		t.Fatalf("expected cap of 10, got %d", len(occs))
	}
	for i := 1; i < len(occs); i++ {
		if occs[i].Start < occs[i-1].Start {
			t.Fatalf("not in playback order at %d", i)
		}
	}
}
