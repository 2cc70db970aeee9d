package merge

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/discusslab/chat-analyzer/internal/core/domain"
)

func sample(batch int, topic string, value int) TaggedDiscussion {
	return TaggedDiscussion{
		Discussion: domain.Discussion{
			Topic:        topic,
			Keywords:     []string{"python"},
			Participants: []string{fmt.Sprintf("user-%d", batch)},
			Summary:      fmt.Sprintf("summary from batch %d", batch),
			ExpertComment: domain.ExpertComment{
				ProblemAnalysis:   fmt.Sprintf("analysis from batch %d", batch),
				LearningResources: []string{"https://docs.python.org"},
			},
			MessageLinks:   []string{fmt.Sprintf("https://t.me/chat/%d", 100+batch)},
			Complexity:     3,
			Sentiment:      domain.SentimentNeutral,
			PracticalValue: value,
		},
		Batch: batch,
	}
}

func TestMerge_Empty(t *testing.T) {
	if got := Merge(nil); len(got) != 0 {
		t.Errorf("Merge(nil) = %v, want empty", got)
	}

	if got := Merge([]TaggedDiscussion{}); len(got) != 0 {
		t.Errorf("Merge([]) = %v, want empty", got)
	}
}

func TestMerge_FoldsTopicAcrossBatches(t *testing.T) {
	first := sample(0, "Async Patterns", 6)
	second := sample(1, "async patterns ", 4)

	merged := Merge([]TaggedDiscussion{first, second})

	if len(merged) != 1 {
		t.Fatalf("len(merged) = %d, want 1", len(merged))
	}

	got := merged[0]

	if got.Topic != "Async Patterns" {
		t.Errorf("Topic = %q, want first-seen form", got.Topic)
	}

	wantParticipants := []string{"user-0", "user-1"}
	if !reflect.DeepEqual(got.Participants, wantParticipants) {
		t.Errorf("Participants = %v, want %v", got.Participants, wantParticipants)
	}

	wantLinks := []string{"https://t.me/chat/100", "https://t.me/chat/101"}
	if !reflect.DeepEqual(got.MessageLinks, wantLinks) {
		t.Errorf("MessageLinks = %v, want %v", got.MessageLinks, wantLinks)
	}

	if got.ParticipantCount != 2 || got.MessageCount != 2 {
		t.Errorf("counts = (%d, %d), want (2, 2)", got.ParticipantCount, got.MessageCount)
	}

	if got.PracticalValue != 6 {
		t.Errorf("PracticalValue = %d, want max 6", got.PracticalValue)
	}

	if got.Summary != "summary from batch 0" {
		t.Errorf("Summary = %q, want the higher-valued member's", got.Summary)
	}
}

func TestMerge_SingleDiscussionRecomputesOnly(t *testing.T) {
	in := sample(0, "Goroutine Leaks", 7)

	merged := Merge([]TaggedDiscussion{in})

	if len(merged) != 1 {
		t.Fatalf("len(merged) = %d, want 1", len(merged))
	}

	got := merged[0]

	if !reflect.DeepEqual(got.Discussion, in.Discussion) {
		t.Errorf("Discussion fields changed:\ngot  %+v\nwant %+v", got.Discussion, in.Discussion)
	}

	if got.ParticipantCount != 1 || got.MessageCount != 1 {
		t.Errorf("counts = (%d, %d), want (1, 1)", got.ParticipantCount, got.MessageCount)
	}

	if got.Priority != domain.PriorityMedium {
		t.Errorf("Priority = %q, want medium for value 7", got.Priority)
	}
}

func TestMerge_DuplicateUnionValuesDropped(t *testing.T) {
	first := sample(0, "Docker", 5)
	second := sample(1, "docker", 5)
	second.Participants = []string{"user-0"}
	second.MessageLinks = []string{"https://t.me/chat/100"}

	merged := Merge([]TaggedDiscussion{first, second})

	if len(merged) != 1 {
		t.Fatalf("len(merged) = %d, want 1", len(merged))
	}

	if merged[0].ParticipantCount != 1 || merged[0].MessageCount != 1 {
		t.Errorf("counts = (%d, %d), want deduplicated (1, 1)",
			merged[0].ParticipantCount, merged[0].MessageCount)
	}
}

func TestMerge_SummaryFromHighestValue(t *testing.T) {
	low := sample(0, "Testing", 4)
	high := sample(1, "testing", 9)
	mid := sample(2, "TESTING", 7)
	mid.Complexity = 5

	merged := Merge([]TaggedDiscussion{low, high, mid})

	if len(merged) != 1 {
		t.Fatalf("len(merged) = %d, want 1", len(merged))
	}

	got := merged[0]

	if got.Summary != "summary from batch 1" {
		t.Errorf("Summary = %q, want the batch 1 member's", got.Summary)
	}

	if got.ExpertComment.ProblemAnalysis != "analysis from batch 1" {
		t.Errorf("ExpertComment.ProblemAnalysis = %q, want the batch 1 member's",
			got.ExpertComment.ProblemAnalysis)
	}

	if got.PracticalValue != 9 {
		t.Errorf("PracticalValue = %d, want 9", got.PracticalValue)
	}

	if got.Complexity != 5 {
		t.Errorf("Complexity = %d, want max 5", got.Complexity)
	}
}

func TestMerge_ValueTieKeepsEarliestBatch(t *testing.T) {
	first := sample(0, "Linting", 6)
	second := sample(1, "linting", 6)

	merged := Merge([]TaggedDiscussion{first, second})

	if merged[0].Summary != "summary from batch 0" {
		t.Errorf("Summary = %q, want the earliest equally valued member's", merged[0].Summary)
	}
}

func TestMerge_KeywordsTopFiveByFrequency(t *testing.T) {
	a := sample(0, "Generics", 5)
	a.Keywords = []string{"any", "constraints", "types", "inference", "unions", "monomorphization"}
	b := sample(1, "generics", 5)
	b.Keywords = []string{"constraints", "inference", "monomorphization"}
	c := sample(2, "generics", 5)
	c.Keywords = []string{"monomorphization", "monomorphization"}

	merged := Merge([]TaggedDiscussion{a, b, c})

	// monomorphization is mentioned by all three members (the repeat inside
	// one member does not double-count), constraints and inference by two.
	want := []string{"monomorphization", "constraints", "inference", "any", "types"}
	if !reflect.DeepEqual(merged[0].Keywords, want) {
		t.Errorf("Keywords = %v, want %v", merged[0].Keywords, want)
	}
}

func TestMerge_SentimentMajority(t *testing.T) {
	a := sample(0, "Deploy", 3)
	a.Sentiment = domain.SentimentPositive
	b := sample(1, "deploy", 4)
	b.Sentiment = domain.SentimentPositive
	c := sample(2, "deploy", 9)
	c.Sentiment = domain.SentimentNegative

	merged := Merge([]TaggedDiscussion{a, b, c})

	if merged[0].Sentiment != domain.SentimentPositive {
		t.Errorf("Sentiment = %q, want majority positive", merged[0].Sentiment)
	}
}

func TestMerge_SentimentTieUsesHighestValueMember(t *testing.T) {
	a := sample(0, "Caching", 4)
	a.Sentiment = domain.SentimentPositive
	b := sample(1, "caching", 9)
	b.Sentiment = domain.SentimentNegative

	merged := Merge([]TaggedDiscussion{a, b})

	if merged[0].Sentiment != domain.SentimentNegative {
		t.Errorf("Sentiment = %q, want the higher-valued member's negative", merged[0].Sentiment)
	}
}

func TestMerge_DropsDiscussionsWithoutLearningResources(t *testing.T) {
	kept := sample(0, "Kept", 5)
	dropped := sample(0, "Dropped", 9)
	dropped.ExpertComment.LearningResources = nil

	merged := Merge([]TaggedDiscussion{dropped, kept})

	if len(merged) != 1 {
		t.Fatalf("len(merged) = %d, want 1", len(merged))
	}

	if merged[0].Topic != "Kept" {
		t.Errorf("Topic = %q, want Kept", merged[0].Topic)
	}
}

func TestMerge_SortsByValueAndTruncatesToFive(t *testing.T) {
	values := []int{3, 9, 5, 9, 7, 2, 8}

	var raws []TaggedDiscussion
	for i, v := range values {
		raws = append(raws, sample(0, fmt.Sprintf("Topic %d", i), v))
	}

	merged := Merge(raws)

	if len(merged) != 5 {
		t.Fatalf("len(merged) = %d, want 5", len(merged))
	}

	gotValues := make([]int, len(merged))
	for i, m := range merged {
		gotValues[i] = m.PracticalValue
	}

	want := []int{9, 9, 8, 7, 5}
	if !reflect.DeepEqual(gotValues, want) {
		t.Errorf("values = %v, want %v", gotValues, want)
	}

	// Stable sort keeps the first-seen nine ahead of the later one.
	if merged[0].Topic != "Topic 1" || merged[1].Topic != "Topic 3" {
		t.Errorf("tie order = (%q, %q), want (Topic 1, Topic 3)", merged[0].Topic, merged[1].Topic)
	}
}

func TestMerge_GroupOrderIsFirstSeen(t *testing.T) {
	raws := []TaggedDiscussion{
		sample(0, "Alpha", 5),
		sample(0, "Beta", 5),
		sample(1, "alpha", 5),
	}

	merged := Merge(raws)

	if len(merged) != 2 {
		t.Fatalf("len(merged) = %d, want 2", len(merged))
	}

	if merged[0].Topic != "Alpha" || merged[1].Topic != "Beta" {
		t.Errorf("order = (%q, %q), want (Alpha, Beta)", merged[0].Topic, merged[1].Topic)
	}
}

func TestPriorityFor(t *testing.T) {
	tests := []struct {
		name         string
		participants int
		messages     int
		value        int
		want         domain.Priority
	}{
		{name: "high by participants", participants: 5, messages: 1, value: 1, want: domain.PriorityHigh},
		{name: "high by messages", participants: 1, messages: 10, value: 1, want: domain.PriorityHigh},
		{name: "high by value", participants: 1, messages: 1, value: 8, want: domain.PriorityHigh},
		{name: "medium by participants", participants: 3, messages: 1, value: 1, want: domain.PriorityMedium},
		{name: "medium by messages", participants: 1, messages: 5, value: 1, want: domain.PriorityMedium},
		{name: "medium by value", participants: 1, messages: 1, value: 5, want: domain.PriorityMedium},
		{name: "low", participants: 2, messages: 4, value: 4, want: domain.PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := priorityFor(tt.participants, tt.messages, tt.value); got != tt.want {
				t.Errorf("priorityFor(%d, %d, %d) = %q, want %q",
					tt.participants, tt.messages, tt.value, got, tt.want)
			}
		})
	}
}

func TestMerge_PriorityUsesRecomputedCounts(t *testing.T) {
	// Five distinct participants arrive across two batches of the same
	// topic; only the union crosses the high tier.
	first := sample(0, "Scaling", 2)
	first.Participants = []string{"a", "b", "c"}
	second := sample(1, "scaling", 2)
	second.Participants = []string{"c", "d", "e"}

	merged := Merge([]TaggedDiscussion{first, second})

	if merged[0].ParticipantCount != 5 {
		t.Fatalf("ParticipantCount = %d, want 5", merged[0].ParticipantCount)
	}

	if merged[0].Priority != domain.PriorityHigh {
		t.Errorf("Priority = %q, want high", merged[0].Priority)
	}
}
