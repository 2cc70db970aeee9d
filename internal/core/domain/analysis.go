package domain

import "time"

// Sentiment classifies the overall tone of a discussion.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// ParseSentiment maps a raw string to a known sentiment value.
func ParseSentiment(s string) (Sentiment, bool) {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed:
		return Sentiment(s), true
	default:
		return "", false
	}
}

// Priority is the derived significance tier of a merged discussion.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Complexity and practical value bounds for model-reported scores.
const (
	ComplexityMin     = 1
	ComplexityMax     = 5
	PracticalValueMin = 1
	PracticalValueMax = 10
)

// ExpertComment is the structured commentary attached to a discussion.
type ExpertComment struct {
	ProblemAnalysis    string   `json:"problem_analysis"`
	CommonMistakes     []string `json:"common_mistakes"`
	BestPractices      []string `json:"best_practices"`
	ActionableInsights []string `json:"actionable_insights"`
	LearningResources  []string `json:"learning_resources"`
}

// Discussion is a single topic extracted by the inference service from one
// batch. Transient: produced per batch, consumed by the merge step, never
// persisted directly.
type Discussion struct {
	Topic          string        `json:"topic"`
	Keywords       []string      `json:"keywords"`
	Participants   []string      `json:"participants"`
	Summary        string        `json:"summary"`
	ExpertComment  ExpertComment `json:"expert_comment"`
	MessageLinks   []string      `json:"message_links"`
	Complexity     int           `json:"complexity"`
	Sentiment      Sentiment     `json:"sentiment"`
	PracticalValue int           `json:"practical_value"`
}

// MergedDiscussion is the consolidated form of one or more per-batch
// discussions on the same topic. ParticipantCount and MessageCount are
// always recomputed from the live slices, never taken from model output.
type MergedDiscussion struct {
	Discussion
	Priority         Priority `json:"priority"`
	ParticipantCount int      `json:"participant_count"`
	MessageCount     int      `json:"message_count"`
}

// DiscussionStats aggregates the final discussion list for the report
// metadata block.
type DiscussionStats struct {
	TotalDiscussions  int            `json:"total_discussions"`
	ByPriority        map[string]int `json:"by_priority"`
	ByComplexity      map[string]int `json:"by_complexity"`
	BySentiment       map[string]int `json:"by_sentiment"`
	AvgParticipants   float64        `json:"avg_participants"`
	AvgMessages       float64        `json:"avg_messages"`
	AvgComplexity     float64        `json:"avg_complexity"`
	AvgPracticalValue float64        `json:"avg_practical_value"`
	TopKeywords       []string       `json:"top_keywords"`
}

// AnalysisMetadata describes one completed analysis run.
type AnalysisMetadata struct {
	Chat             string          `json:"chat"`
	ChatUsername     string          `json:"chat_username"`
	Date             string          `json:"date"`
	AnalyzedAt       time.Time       `json:"analyzed_at"`
	TotalMessages    int             `json:"total_messages"`
	AnalyzedMessages int             `json:"analyzed_messages"`
	TokensUsed       int             `json:"tokens_used"`
	Model            string          `json:"model"`
	LatencySeconds   float64         `json:"latency_seconds"`
	DiscussionStats  DiscussionStats `json:"discussion_stats"`
}

// AnalysisResult is the final report for one (chat, date): at most five
// discussions, sorted by practical value descending.
type AnalysisResult struct {
	Metadata    AnalysisMetadata   `json:"metadata"`
	Discussions []MergedDiscussion `json:"discussions"`
}
