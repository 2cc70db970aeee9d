package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/discusslab/chat-analyzer/internal/core/domain"
	coreerrors "github.com/discusslab/chat-analyzer/internal/core/errors"
)

// ParseBatchResponse turns raw model output into discussions. The content
// must be a JSON object `{"discussions": [...]}` once markdown code fences
// are stripped; an empty array is a valid result. Known shape drift is
// normalized, anything else fails closed with ErrMalformedResponse.
func ParseBatchResponse(content string) ([]domain.Discussion, error) {
	text := stripCodeFence(content)
	if text == "" {
		return nil, fmt.Errorf("%w: empty content", coreerrors.ErrMalformedResponse)
	}

	var envelope struct {
		Discussions *[]rawDiscussion `json:"discussions"`
	}

	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", coreerrors.ErrMalformedResponse, err)
	}

	if envelope.Discussions == nil {
		return nil, fmt.Errorf("%w: missing discussions array", coreerrors.ErrMalformedResponse)
	}

	discussions := make([]domain.Discussion, 0, len(*envelope.Discussions))

	for i, raw := range *envelope.Discussions {
		d, err := raw.normalize()
		if err != nil {
			return nil, fmt.Errorf("%w: discussion %d: %v", coreerrors.ErrMalformedResponse, i, err)
		}

		discussions = append(discussions, d)
	}

	return discussions, nil
}

// stripCodeFence extracts the payload from a ```json ... ``` (or bare
// ``` ... ```) block when the model wraps its answer despite instructions.
func stripCodeFence(s string) string {
	for _, fence := range []string{"```json", "```"} {
		i := strings.Index(s, fence)
		if i < 0 {
			continue
		}

		rest := s[i+len(fence):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}

		return strings.TrimSpace(rest)
	}

	return strings.TrimSpace(s)
}

// rawDiscussion tolerates the shape drift the model exhibits: list fields
// arrive comma-joined, numeric fields arrive as strings, the expert
// comment arrives as a bare string.
type rawDiscussion struct {
	Topic          string      `json:"topic"`
	Keywords       stringList  `json:"keywords"`
	Participants   stringList  `json:"participants"`
	Summary        string      `json:"summary"`
	ExpertComment  flexComment `json:"expert_comment"`
	MessageLinks   stringList  `json:"message_links"`
	Complexity     flexInt     `json:"complexity"`
	Sentiment      string      `json:"sentiment"`
	PracticalValue flexInt     `json:"practical_value"`
}

func (r rawDiscussion) normalize() (domain.Discussion, error) {
	topic := strings.TrimSpace(r.Topic)
	if topic == "" {
		return domain.Discussion{}, errors.New("empty topic")
	}

	sentiment, ok := domain.ParseSentiment(strings.ToLower(strings.TrimSpace(r.Sentiment)))
	if !ok {
		sentiment = domain.SentimentNeutral
	}

	return domain.Discussion{
		Topic:          topic,
		Keywords:       r.Keywords,
		Participants:   r.Participants,
		Summary:        strings.TrimSpace(r.Summary),
		ExpertComment:  domain.ExpertComment(r.ExpertComment),
		MessageLinks:   r.MessageLinks,
		Complexity:     clamp(int(r.Complexity), domain.ComplexityMin, domain.ComplexityMax),
		Sentiment:      sentiment,
		PracticalValue: clamp(int(r.PracticalValue), domain.PracticalValueMin, domain.PracticalValueMax),
	}, nil
}

// stringList accepts a JSON array of strings or a single comma-joined
// string. Entries are trimmed, empties dropped.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*l = nil

		return nil
	}

	switch data[0] {
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}

		*l = cleanList(items)

		return nil
	case '"':
		var joined string
		if err := json.Unmarshal(data, &joined); err != nil {
			return err
		}

		*l = cleanList(strings.Split(joined, ","))

		return nil
	default:
		return fmt.Errorf("unexpected list shape %q", data)
	}
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))

	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}

	if len(out) == 0 {
		return nil
	}

	return out
}

// flexInt accepts a JSON number or a numeric string; fractions are
// rounded to the nearest integer.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*n = 0

		return nil
	}

	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" {
		*n = 0

		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}

	*n = flexInt(math.Round(f))

	return nil
}

// flexComment accepts the structured expert comment object or a bare
// string, which becomes the problem analysis.
type flexComment domain.ExpertComment

func (c *flexComment) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*c = flexComment{}

		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*c = flexComment{ProblemAnalysis: strings.TrimSpace(s)}

		return nil
	}

	var fields struct {
		ProblemAnalysis    string     `json:"problem_analysis"`
		CommonMistakes     stringList `json:"common_mistakes"`
		BestPractices      stringList `json:"best_practices"`
		ActionableInsights stringList `json:"actionable_insights"`
		LearningResources  stringList `json:"learning_resources"`
	}

	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*c = flexComment{
		ProblemAnalysis:    strings.TrimSpace(fields.ProblemAnalysis),
		CommonMistakes:     fields.CommonMistakes,
		BestPractices:      fields.BestPractices,
		ActionableInsights: fields.ActionableInsights,
		LearningResources:  fields.LearningResources,
	}

	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
