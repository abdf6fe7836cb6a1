package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jcarver/oddsparity/internal/hashutil"
	"github.com/jcarver/oddsparity/internal/matching"
)

const systemPrompt = "You are a strict prediction-market reviewer. Determine if two binary market questions resolve identically with no ambiguity. Reject if timing, definitions, or data sources differ. Respond only with JSON."

// Verdict is the reviewer's decision for one matched pair.
type Verdict struct {
	Equivalent bool   `json:"Equivalent"`
	Reason     string `json:"Reason"`
}

type completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Service reviews matched pairs via the LLM client.
type Service struct {
	llm completer
}

func NewService(client *Client) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("review: llm client is required")
	}
	return &Service{llm: client}, nil
}

// CacheKey builds a verdict cache key from the pair's identity and question
// texts, so a rewording forces a fresh review.
func CacheKey(res matching.Result) string {
	left := fmt.Sprintf("%s:%s:%s", res.Source.Venue, res.Source.ID, hashutil.HashStrings(res.Source.Question))
	right := fmt.Sprintf("%s:%s:%s", res.Matched.Venue, res.Matched.ID, hashutil.HashStrings(res.Matched.Question))
	return hashutil.PairKey(left, right)
}

// Review asks whether the two questions of a matched pair resolve
// identically.
func (s *Service) Review(ctx context.Context, res matching.Result) (*Verdict, error) {
	if s == nil {
		return nil, fmt.Errorf("review: service is nil")
	}

	input := map[string]any{
		"question_a": map[string]any{
			"venue":      res.Source.Venue,
			"question":   res.Source.Question,
			"close_time": res.Source.CloseTime,
		},
		"question_b": map[string]any{
			"venue":      res.Matched.Venue,
			"question":   res.Matched.Question,
			"close_time": res.Matched.CloseTime,
		},
		"match_strategy":   res.Strategy,
		"match_confidence": res.Confidence,
	}
	inputJSON, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("review: marshal input: %w", err)
	}

	userPrompt := strings.Join([]string{
		"The two questions below come from independent prediction markets and were matched by text similarity.",
		"A cross-venue hedge on them is only risk-free if both markets must settle the same way for every possible real-world outcome.",
		"They must represent the exact same binary outcome with matching cutoff and resolution criteria.",
		"Pay special attention to timing, settlement sources, definitions, tiebreakers, cancellations, or alternate clauses.",
		"If unsure, treat the pair as not equivalent.",
		"Return EXACTLY this JSON format:\n{\n  \"Equivalent\": true|false,\n  \"Reason\": \"short explanation\"\n}\n\nInput JSON:\n" + string(inputJSON),
	}, "\n")

	raw, err := s.llm.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("review: llm call: %w", err)
	}
	return parseVerdict(raw)
}

func parseVerdict(raw string) (*Verdict, error) {
	cleaned := strings.TrimSpace(raw)
	if idx := strings.Index(cleaned, "{"); idx > 0 {
		cleaned = cleaned[idx:]
	}
	if idx := strings.LastIndex(cleaned, "}"); idx >= 0 {
		cleaned = cleaned[:idx+1]
	}
	var v Verdict
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return nil, fmt.Errorf("review: parse response: %w", err)
	}
	return &v, nil
}
