package merge

import (
	"reflect"
	"testing"

	"github.com/discusslab/chat-analyzer/internal/core/domain"
)

func mergedSample(topic string, priority domain.Priority, complexity, value, participants, messages int, keywords ...string) domain.MergedDiscussion {
	return domain.MergedDiscussion{
		Discussion: domain.Discussion{
			Topic:          topic,
			Keywords:       keywords,
			Complexity:     complexity,
			Sentiment:      domain.SentimentNeutral,
			PracticalValue: value,
		},
		Priority:         priority,
		ParticipantCount: participants,
		MessageCount:     messages,
	}
}

func TestStats(t *testing.T) {
	discussions := []domain.MergedDiscussion{
		mergedSample("A", domain.PriorityHigh, 3, 8, 2, 2, "python", "asyncio"),
		mergedSample("B", domain.PriorityMedium, 4, 7, 3, 1, "python", "typing"),
	}

	stats := Stats(discussions)

	if stats.TotalDiscussions != 2 {
		t.Errorf("TotalDiscussions = %d, want 2", stats.TotalDiscussions)
	}

	if got := stats.ByPriority; got["high"] != 1 || got["medium"] != 1 || len(got) != 2 {
		t.Errorf("ByPriority = %v, want high:1 medium:1", got)
	}

	if got := stats.ByComplexity; got["3"] != 1 || got["4"] != 1 || len(got) != 2 {
		t.Errorf("ByComplexity = %v, want 3:1 4:1", got)
	}

	if got := stats.BySentiment; got["neutral"] != 2 || len(got) != 1 {
		t.Errorf("BySentiment = %v, want neutral:2", got)
	}

	if stats.AvgParticipants != 2.5 {
		t.Errorf("AvgParticipants = %v, want 2.5", stats.AvgParticipants)
	}

	if stats.AvgMessages != 1.5 {
		t.Errorf("AvgMessages = %v, want 1.5", stats.AvgMessages)
	}

	if stats.AvgComplexity != 3.5 {
		t.Errorf("AvgComplexity = %v, want 3.5", stats.AvgComplexity)
	}

	if stats.AvgPracticalValue != 7.5 {
		t.Errorf("AvgPracticalValue = %v, want 7.5", stats.AvgPracticalValue)
	}

	want := []string{"python", "asyncio", "typing"}
	if !reflect.DeepEqual(stats.TopKeywords, want) {
		t.Errorf("TopKeywords = %v, want %v", stats.TopKeywords, want)
	}
}

func TestStats_RoundsAveragesToTwoDecimals(t *testing.T) {
	discussions := []domain.MergedDiscussion{
		mergedSample("A", domain.PriorityLow, 1, 1, 1, 1),
		mergedSample("B", domain.PriorityLow, 2, 2, 2, 2),
		mergedSample("C", domain.PriorityLow, 2, 2, 2, 2),
	}

	stats := Stats(discussions)

	if stats.AvgComplexity != 1.67 {
		t.Errorf("AvgComplexity = %v, want 1.67", stats.AvgComplexity)
	}

	if stats.AvgPracticalValue != 1.67 {
		t.Errorf("AvgPracticalValue = %v, want 1.67", stats.AvgPracticalValue)
	}
}

func TestStats_TopKeywordsTruncatedToFive(t *testing.T) {
	discussions := []domain.MergedDiscussion{
		mergedSample("A", domain.PriorityLow, 1, 1, 1, 1, "a", "b", "c", "d"),
		mergedSample("B", domain.PriorityLow, 1, 1, 1, 1, "e", "f", "b"),
	}

	stats := Stats(discussions)

	want := []string{"b", "a", "c", "d", "e"}
	if !reflect.DeepEqual(stats.TopKeywords, want) {
		t.Errorf("TopKeywords = %v, want %v", stats.TopKeywords, want)
	}
}

func TestStats_Empty(t *testing.T) {
	stats := Stats(nil)

	if stats.TotalDiscussions != 0 {
		t.Errorf("TotalDiscussions = %d, want 0", stats.TotalDiscussions)
	}

	if stats.ByPriority == nil || stats.ByComplexity == nil || stats.BySentiment == nil {
		t.Error("stats maps should be initialized for an empty report")
	}

	if stats.AvgPracticalValue != 0 {
		t.Errorf("AvgPracticalValue = %v, want 0", stats.AvgPracticalValue)
	}

	if len(stats.TopKeywords) != 0 {
		t.Errorf("TopKeywords = %v, want empty", stats.TopKeywords)
	}
}
