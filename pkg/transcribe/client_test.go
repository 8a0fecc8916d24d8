package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeAudioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, []byte("RIFF fake"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestTranscribe(t *testing.T) {
	var gotModel, gotLang, gotFormat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotModel = r.FormValue("model")
		gotLang = r.FormValue("language")
		gotFormat = r.FormValue("response_format")

		logprob := -0.2
		resp := map[string]interface{}{
			"text": "你好 我喜欢学习",
			"segments": []map[string]interface{}{
				{"text": " 你好 ", "start": 0.0, "end": 1.2, "avg_logprob": logprob},
				{"text": "我喜欢学习", "start": 1.2, "end": 3.4},
				{"text": "   ", "start": 3.4, "end": 3.5},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "base", "")
	segments, err := c.Transcribe(context.Background(), writeAudioFixture(t))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}

	if gotModel != "base" || gotLang != "zh" || gotFormat != "verbose_json" {
		t.Fatalf("form fields: model=%q language=%q format=%q", gotModel, gotLang, gotFormat)
	}
	// Blank segment dropped, text trimmed, order preserved.
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].Text != "你好" || segments[0].Start != 0.0 || segments[0].End != 1.2 {
		t.Fatalf("segment 0: %+v", segments[0])
	}
	want := math.Exp(-0.2)
	if diff := segments[0].Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("confidence = %v, want %v", segments[0].Confidence, want)
	}
	if segments[1].Confidence != 0 {
		t.Fatalf("segment without logprob should have zero confidence, got %v", segments[1].Confidence)
	}
}

func TestTranscribeMissingAudio(t *testing.T) {
	c := NewClient("http://localhost:1", "base", "")
	_, err := c.Transcribe(context.Background(), filepath.Join(t.TempDir(), "absent.wav"))
	if err == nil {
		t.Fatal("expected error for missing audio")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist cause, got %v", err)
	}
}

func TestTranscribeBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "base", "")
	_, err := c.Transcribe(context.Background(), writeAudioFixture(t))
	if err == nil {
		t.Fatal("expected backend error")
	}
	if !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("error should carry backend message, got %v", err)
	}
}

func TestFormatTranscript(t *testing.T) {
	got := FormatTranscript([]Segment{
		{Text: "你好", Start: 1.2, End: 4.5},
		{Text: "再见", Start: 61.0, End: 62.25},
	})
	want := "[00:01.20 - 00:04.50] 你好\n[01:01.00 - 01:02.25] 再见"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSaveTranscript(t *testing.T) {
	dir := t.TempDir()
	segs := []Segment{{Text: "你好", Start: 0, End: 1}}
	path, err := SaveTranscript(dir, "abc", segs)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var got []Segment
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got[0].Text != "你好" {
		t.Fatalf("round trip: %+v", got)
	}
}
