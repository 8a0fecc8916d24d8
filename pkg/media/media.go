package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoAudio is returned when the external tool finished without
// producing an audio artifact.
var ErrNoAudio = errors.New("no audio artifact produced")

// Source describes one acquired video and its normalized audio artifact.
type Source struct {
	Title     string
	Duration  float64
	SourceURL string
	FilePath  string
	AudioPath string
}

// Processor acquires audio from remote URLs (yt-dlp) and local video
// files (ffmpeg), normalized to mono 16 kHz WAV under a temp directory.
type Processor struct {
	tempDir string
	log     *zap.Logger
}

// NewProcessor creates the temp directory if needed.
func NewProcessor(tempDir string, log *zap.Logger) (*Processor, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &Processor{tempDir: tempDir, log: log}, nil
}

type ytMetadata struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

// FromURL downloads the best audio stream of a remote video and
// converts it to mono 16 kHz WAV.
func (p *Processor) FromURL(ctx context.Context, url string) (*Source, error) {
	id := uuid.New().String()
	outTemplate := filepath.Join(p.tempDir, id+".%(ext)s")

	cmd := exec.CommandContext(ctx, "yt-dlp",
		"-f", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "wav",
		"--audio-quality", "0",
		"--postprocessor-args", "ffmpeg:-ac 1 -ar 16000",
		"-o", outTemplate,
		"--print-json",
		url,
	)
	out, err := cmd.Output()
	if err != nil {
		var exit *exec.ExitError
		if errors.As(err, &exit) {
			return nil, fmt.Errorf("yt-dlp: %w: %s", err, strings.TrimSpace(string(exit.Stderr)))
		}
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}

	audioPath := filepath.Join(p.tempDir, id+".wav")
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("%s: %w", audioPath, ErrNoAudio)
	}

	meta := parseMetadata(out)
	title := meta.Title
	if title == "" {
		title = "Unknown title"
	}
	p.log.Info("audio downloaded", zap.String("title", title), zap.String("audio", audioPath))

	return &Source{
		Title:     title,
		Duration:  meta.Duration,
		SourceURL: url,
		AudioPath: audioPath,
	}, nil
}

// FromFile extracts the audio track of a local video file.
func (p *Processor) FromFile(ctx context.Context, path string) (*Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("source video: %w", err)
	}

	audioPath := filepath.Join(p.tempDir, uuid.New().String()+".wav")
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		audioPath,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, lastLine(stderr.String()))
	}
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("%s: %w", audioPath, ErrNoAudio)
	}
	p.log.Info("audio extracted", zap.String("source", path), zap.String("audio", audioPath))

	return &Source{
		Title:     filepath.Base(path),
		FilePath:  path,
		AudioPath: audioPath,
	}, nil
}

// CleanTemp removes audio artifacts older than maxAge and returns how
// many were deleted.
func (p *Processor) CleanTemp(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(p.tempDir)
	if err != nil {
		return 0, fmt.Errorf("read temp dir: %w", err)
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(p.tempDir, e.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		p.log.Info("temp audio cleaned", zap.Int("removed", removed))
	}
	return removed, nil
}

// parseMetadata picks the last valid JSON object out of yt-dlp's
// stdout; the tool may print several lines.
func parseMetadata(out []byte) ytMetadata {
	lines := strings.Split(string(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		var meta ytMetadata
		if err := json.Unmarshal([]byte(line), &meta); err == nil {
			return meta
		}
	}
	return ytMetadata{}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
