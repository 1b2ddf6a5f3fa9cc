package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"meetscribe/internal/config"
)

// SummaryResult carries everything the summarization pass derives from a
// transcript. Slices are never nil on a successful return.
type SummaryResult struct {
	Title        string   `json:"title"`
	KeyPoints    []string `json:"keyPoints"`
	Decisions    []string `json:"decisions"`
	ActionItems  []string `json:"actionItems"`
	Tags         []string `json:"tags"`
	Participants []string `json:"participants"`
}

// Summarizer distills a transcript into a titled, tagged summary.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (*SummaryResult, error)
}

type openAISummarizer struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	log     *logrus.Entry
}

// NewOpenAISummarizer builds a Summarizer from config.
func NewOpenAISummarizer(cfg config.OpenAIConfig, log *logrus.Entry) Summarizer {
	return &openAISummarizer{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.SummaryModel,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		log:     log,
	}
}

const summarySystemPrompt = `You are an assistant that summarizes meeting transcripts.
Given a transcript, produce:
- title: a short descriptive title inferred from the content of the discussion, never from a file name
- keyPoints: the main points discussed
- decisions: decisions that were made
- actionItems: concrete follow-up tasks, each as a single sentence
- tags: between 2 and 6 short lowercase topic tags that do not repeat the title
- participants: the real names of people speaking or mentioned as present; omit generic labels such as "Speaker 1" or "Unknown"; leave empty if no real names appear`

var summarySchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "title": {"type": "string"},
    "keyPoints": {"type": "array", "items": {"type": "string"}},
    "decisions": {"type": "array", "items": {"type": "string"}},
    "actionItems": {"type": "array", "items": {"type": "string"}},
    "tags": {"type": "array", "items": {"type": "string"}},
    "participants": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["title", "keyPoints", "decisions", "actionItems", "tags", "participants"],
  "additionalProperties": false
}`)

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type jsonSchema struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (s *openAISummarizer) Summarize(ctx context.Context, transcript string) (*SummaryResult, error) {
	result, err := s.request(ctx, transcript)
	if err != nil {
		return nil, summarizationError(err)
	}
	if err := normalizeSummary(result); err != nil {
		return nil, summarizationError(err)
	}
	return result, nil
}

func (s *openAISummarizer) request(ctx context.Context, transcript string) (*SummaryResult, error) {
	payload := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: summarySystemPrompt},
			{Role: "user", Content: transcript},
		},
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchema{
				Name:   "meeting_summary",
				Strict: true,
				Schema: summarySchema,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded chatResponse
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("summarization backend returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode summarization response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("summarization backend returned no choices")
	}

	var result SummaryResult
	if err := json.Unmarshal([]byte(decoded.Choices[0].Message.Content), &result); err != nil {
		return nil, fmt.Errorf("decode summary content: %w", err)
	}
	return &result, nil
}

var placeholderName = regexp.MustCompile(`(?i)^(speaker\s*\d+|unknown)$`)

// normalizeSummary enforces the output contract: non-empty title, 2 to 6
// lowercase tags, participants stripped of placeholder labels, non-nil
// slices throughout.
func normalizeSummary(r *SummaryResult) error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return fmt.Errorf("summary has no title")
	}

	tags := make([]string, 0, len(r.Tags))
	for _, tag := range r.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
	}
	if len(tags) < 2 || len(tags) > 6 {
		return fmt.Errorf("summary has %d tags, want 2 to 6", len(tags))
	}
	r.Tags = tags

	participants := make([]string, 0, len(r.Participants))
	for _, name := range r.Participants {
		name = strings.TrimSpace(name)
		if name == "" || placeholderName.MatchString(name) {
			continue
		}
		participants = append(participants, name)
	}
	r.Participants = participants

	if r.KeyPoints == nil {
		r.KeyPoints = []string{}
	}
	if r.Decisions == nil {
		r.Decisions = []string{}
	}
	if r.ActionItems == nil {
		r.ActionItems = []string{}
	}
	return nil
}
