package transcribe

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FormatTranscript joins segments into readable text with time marks:
//
//	[00:01.20 - 00:04.50] 你好，欢迎来到这个视频
func FormatTranscript(segments []Segment) string {
	var b strings.Builder
	for i, s := range segments {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s - %s] %s", formatTime(s.Start), formatTime(s.End), s.Text)
	}
	return b.String()
}

// SaveTranscript writes the raw segment list as JSON under dir so a
// transcription can be reused without re-running the backend.
func SaveTranscript(dir, key string, segments []Segment) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create transcript dir: %w", err)
	}
	path := filepath.Join(dir, key+".json")
	data, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return path, nil
}

func formatTime(seconds float64) string {
	m := int(seconds) / 60
	s := seconds - float64(m*60)
	return fmt.Sprintf("%02d:%05.2f", m, s)
}
