package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Client generates example sentences and embedding-based synonyms
// through an OpenAI-compatible API. It is entirely optional: the rest
// of the system works without it.
type Client struct {
	baseURL    string
	apiKey     string
	chatModel  string
	embedModel string
	http       *http.Client
}

// New builds a client for the given endpoint.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		chatModel:  "gpt-3.5-turbo",
		embedModel: "text-embedding-3-small",
		http:       &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ExampleSentences asks the model for count short Mandarin sentences
// containing word. Lines that do not actually contain the word are
// dropped.
func (c *Client) ExampleSentences(ctx context.Context, word string, count int) ([]string, error) {
	if count <= 0 {
		count = 3
	}
	prompt := fmt.Sprintf("请用“%s”造%d个简短的中文例句，每行一个，不要编号。", word, count)
	reqBody := chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: "你是一个帮助学习中文的助手，擅长为词语造简单实用的例句。"},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   200,
		Temperature: 0.7,
	}

	var resp chatResponse
	if err := c.post(ctx, "/v1/chat/completions", reqBody, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("generation backend: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("generation backend: no choices returned")
	}

	var sentences []string
	for _, line := range strings.Split(resp.Choices[0].Message.Content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, word) {
			continue
		}
		sentences = append(sentences, line)
		if len(sentences) == count {
			break
		}
	}
	return sentences, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// embedBatchSize caps one embeddings request; larger vocabularies fan
// out over the worker pool.
const embedBatchSize = 64

// Synonyms ranks the supplied vocabulary by embedding similarity to
// word and returns the topK closest entries. The lookup is restricted
// to the vocabulary: a word outside it yields nothing.
func (c *Client) Synonyms(ctx context.Context, word string, vocabulary []string, topK int) ([]string, error) {
	if topK <= 0 {
		topK = 5
	}
	found := false
	var others []string
	for _, v := range vocabulary {
		if v == word {
			found = true
			continue
		}
		others = append(others, v)
	}
	if !found || len(others) == 0 {
		return nil, nil
	}

	targetVecs, err := c.embed(ctx, []string{word})
	if err != nil {
		return nil, err
	}
	target := targetVecs[0]

	type scored struct {
		word string
		sim  float64
	}
	var (
		mu  sync.Mutex
		all []scored
	)

	p := newPool(4, len(others)/embedBatchSize+1)
	p.start(ctx)
	for start := 0; start < len(others); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(others) {
			end = len(others)
		}
		batch := others[start:end]
		if err := p.submit(func(ctx context.Context) error {
			vecs, err := c.embed(ctx, batch)
			if err != nil {
				return err
			}
			local := make([]scored, len(batch))
			for i, w := range batch {
				local[i] = scored{word: w, sim: cosine(target, vecs[i])}
			}
			mu.Lock()
			all = append(all, local...)
			mu.Unlock()
			return nil
		}); err != nil {
			break
		}
	}
	if err := p.close(); err != nil {
		return nil, err
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].sim > all[j].sim })
	if len(all) > topK {
		all = all[:topK]
	}
	out := make([]string, len(all))
	for i, s := range all {
		out[i] = s.word
	}
	return out, nil
}

// embed returns one vector per input, in input order.
func (c *Client) embed(ctx context.Context, input []string) ([][]float64, error) {
	var resp embedResponse
	if err := c.post(ctx, "/v1/embeddings", embedRequest{Model: c.embedModel, Input: input}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("embedding backend: %s", resp.Error.Message)
	}
	if len(resp.Data) != len(input) {
		return nil, fmt.Errorf("embedding backend: got %d vectors for %d inputs", len(resp.Data), len(input))
	}
	out := make([][]float64, len(input))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(input) {
			return nil, fmt.Errorf("embedding backend: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, into interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
