package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/brendonia/brendonia-backend/pkg/config"
	"github.com/brendonia/brendonia-backend/pkg/logger"
)

// MomentCount is the exact number of highlights the model must return.
const MomentCount = 10

var (
	errAPIKeyRequired = errors.New("openai api key is required")
	errEmptyChoice    = errors.New("openai returned no choices")
)

// Moment is one highlight candidate produced by the model.
type Moment struct {
	Idx      int      `json:"idx"`
	StartSec int      `json:"start_sec"`
	EndSec   int      `json:"end_sec"`
	Title    string   `json:"title"`
	Hook     string   `json:"hook,omitempty"`
	Reason   string   `json:"reason,omitempty"`
	Score    *float64 `json:"score,omitempty"`
}

// Client calls the chat completions API with a JSON-only response contract.
type Client struct {
	cfg        config.OpenAIConfig
	httpClient *http.Client
}

// NewClient validates the configured key and builds the HTTP client.
func NewClient(ctx context.Context, cfg config.OpenAIConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errAPIKeyRequired
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("openai client initialized (%s)", cfg.Model))
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

const systemPrompt = `Voce e um editor de cortes para TikTok/Reels.
A partir do transcript com timestamps, encontre os TOP 10 melhores momentos para viralizar.
Regras:
- Cada momento precisa ter start_sec e end_sec (em segundos).
- Duracao ideal: 20s a 60s (pode variar, mas evite >90s).
- Deve ser um trecho com GANCHO forte (curiosidade, contraste, emocao, promessa, conflito, punchline).
- NAO invente falas: use apenas o transcript.
- Selecione momentos bem espacados (nao repetir a mesma parte).
Retorne exatamente 10, como JSON no formato {"moments":[{"idx":1,"start_sec":0,"end_sec":30,"title":"...","hook":"...","reason":"...","score":80}]}.`

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat chatRespFormat `json:"response_format"`
	Temperature    float64        `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRespFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

type momentsPayload struct {
	Moments []Moment `json:"moments"`
}

// TopMoments asks the model for the ten best cut candidates for the
// timestamped transcript text.
func (c *Client) TopMoments(ctx context.Context, transcriptText string) ([]Moment, error) {
	if strings.TrimSpace(transcriptText) == "" {
		return nil, errors.New("transcript text is required")
	}

	body := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "TRANSCRIPT:\n" + transcriptText},
		},
		ResponseFormat: chatRespFormat{Type: "json_object"},
		Temperature:    0.4,
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling openai: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("reading openai response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decoding openai response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := "unexpected status"
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, msg)
	}
	if len(parsed.Choices) == 0 {
		return nil, errEmptyChoice
	}

	var payload momentsPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(parsed.Choices[0].Message.Content)), &payload); err != nil {
		return nil, fmt.Errorf("decoding moments payload: %w", err)
	}

	if err := validateMoments(payload.Moments); err != nil {
		return nil, err
	}
	return payload.Moments, nil
}

func validateMoments(moments []Moment) error {
	if len(moments) != MomentCount {
		return fmt.Errorf("expected %d moments, got %d", MomentCount, len(moments))
	}
	seen := map[int]bool{}
	for _, m := range moments {
		if m.Idx < 1 || m.Idx > MomentCount {
			return fmt.Errorf("moment idx %d out of range", m.Idx)
		}
		if seen[m.Idx] {
			return fmt.Errorf("duplicate moment idx %d", m.Idx)
		}
		seen[m.Idx] = true
		if m.StartSec < 0 {
			return fmt.Errorf("moment %d has negative start", m.Idx)
		}
		if m.EndSec <= m.StartSec {
			return fmt.Errorf("moment %d ends before it starts", m.Idx)
		}
		if len(strings.TrimSpace(m.Title)) < 3 {
			return fmt.Errorf("moment %d title too short", m.Idx)
		}
		if m.Score != nil && (*m.Score < 0 || *m.Score > 100) {
			return fmt.Errorf("moment %d score out of range", m.Idx)
		}
	}
	return nil
}
