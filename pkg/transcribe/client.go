package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Segment is one timed line of recognized speech.
type Segment struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"` // 0 when the backend reports none
}

// Client talks to a Whisper-compatible transcription endpoint
// (POST {base}/v1/audio/transcriptions, verbose JSON response).
// No request timeout is set: a transcription runs as long as it runs,
// and the caller owns the context.
type Client struct {
	baseURL string
	model   string
	apiKey  string
	http    *http.Client
}

// NewClient builds a client for the given endpoint. apiKey may be empty
// for self-hosted servers.
func NewClient(baseURL, model, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		http:    &http.Client{},
	}
}

type verboseResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Text       string   `json:"text"`
		Start      float64  `json:"start"`
		End        float64  `json:"end"`
		AvgLogprob *float64 `json:"avg_logprob"`
	} `json:"segments"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Transcribe sends the audio file for Mandarin transcription and
// returns the ordered timed segments. A missing audio file fails before
// any request is made.
func (c *Client) Transcribe(ctx context.Context, audioPath string) ([]Segment, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	_ = mw.WriteField("model", c.model)
	_ = mw.WriteField("language", "zh")
	_ = mw.WriteField("response_format", "verbose_json")
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("transcription backend: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var vr verboseResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("decode transcription: %w", err)
	}
	if vr.Error != nil {
		return nil, fmt.Errorf("transcription backend: %s", vr.Error.Message)
	}

	segments := make([]Segment, 0, len(vr.Segments))
	for _, s := range vr.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		seg := Segment{Text: text, Start: s.Start, End: s.End}
		// Whisper reports no per-segment confidence; exp(avg_logprob)
		// is the usual pseudo-confidence in [0,1].
		if s.AvgLogprob != nil {
			seg.Confidence = math.Exp(*s.AvgLogprob)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}
