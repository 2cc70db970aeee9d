// Package merge consolidates per-batch discussions into the final report
// list. The same topic often surfaces in several batches of one day; the
// merge is deterministic so reprocessing a day reproduces the same report.
package merge

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/discusslab/chat-analyzer/internal/core/domain"
)

const (
	maxKeywords          = 5
	maxReportDiscussions = 5

	highParticipants = 5
	highMessages     = 10
	highValue        = 8

	mediumParticipants = 3
	mediumMessages     = 5
	mediumValue        = 5
)

// TaggedDiscussion is a raw discussion annotated with the index of the
// batch that produced it. Batch order drives every tie-break below.
type TaggedDiscussion struct {
	domain.Discussion

	Batch int
}

// Merge groups discussions by normalized topic in first-seen order,
// consolidates each group, drops entries without learning resources and
// returns at most five discussions sorted by practical value.
func Merge(raws []TaggedDiscussion) []domain.MergedDiscussion {
	if len(raws) == 0 {
		return nil
	}

	index := make(map[string]int, len(raws))
	groups := make([][]TaggedDiscussion, 0, len(raws))

	for _, raw := range raws {
		key := mergeKey(raw.Topic)

		at, ok := index[key]
		if !ok {
			at = len(groups)
			index[key] = at
			groups = append(groups, nil)
		}

		groups[at] = append(groups[at], raw)
	}

	merged := make([]domain.MergedDiscussion, 0, len(groups))

	for _, members := range groups {
		discussion := mergeGroup(members)
		if len(discussion.ExpertComment.LearningResources) == 0 {
			continue
		}

		merged = append(merged, discussion)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PracticalValue > merged[j].PracticalValue
	})

	if len(merged) > maxReportDiscussions {
		merged = merged[:maxReportDiscussions]
	}

	return merged
}

// mergeKey folds case and trims whitespace so "Async Patterns" and
// "async patterns " land in one group.
func mergeKey(topic string) string {
	return cases.Fold().String(strings.TrimSpace(topic))
}

func mergeGroup(members []TaggedDiscussion) domain.MergedDiscussion {
	// Members arrive in batch order, so a strict comparison keeps the
	// earliest of equally valued members.
	best := members[0]
	complexity := members[0].Complexity

	for _, m := range members[1:] {
		if m.PracticalValue > best.PracticalValue {
			best = m
		}

		if m.Complexity > complexity {
			complexity = m.Complexity
		}
	}

	participants := unionInOrder(members, func(d TaggedDiscussion) []string { return d.Participants })
	links := unionInOrder(members, func(d TaggedDiscussion) []string { return d.MessageLinks })

	participantCount := len(participants)
	messageCount := len(links)

	return domain.MergedDiscussion{
		Discussion: domain.Discussion{
			Topic:          members[0].Topic,
			Keywords:       topKeywords(members),
			Participants:   participants,
			Summary:        best.Summary,
			ExpertComment:  best.ExpertComment,
			MessageLinks:   links,
			Complexity:     complexity,
			Sentiment:      majoritySentiment(members, best.Sentiment),
			PracticalValue: best.PracticalValue,
		},
		Priority:         priorityFor(participantCount, messageCount, best.PracticalValue),
		ParticipantCount: participantCount,
		MessageCount:     messageCount,
	}
}

func unionInOrder(members []TaggedDiscussion, field func(TaggedDiscussion) []string) []string {
	seen := make(map[string]struct{})

	var out []string

	for _, m := range members {
		for _, v := range field(m) {
			if _, ok := seen[v]; ok {
				continue
			}

			seen[v] = struct{}{}
			out = append(out, v)
		}
	}

	return out
}

// topKeywords ranks the group's keywords by how many members mention
// them and keeps the five most frequent. Ties stay in first-seen order.
func topKeywords(members []TaggedDiscussion) []string {
	counts := make(map[string]int)

	var order []string

	for _, m := range members {
		mentioned := make(map[string]struct{}, len(m.Keywords))

		for _, kw := range m.Keywords {
			if _, dup := mentioned[kw]; dup {
				continue
			}

			mentioned[kw] = struct{}{}

			if counts[kw] == 0 {
				order = append(order, kw)
			}

			counts[kw]++
		}
	}

	return rankByCount(order, counts, maxKeywords)
}

// rankByCount stable-sorts first-seen-ordered keys by count descending
// and truncates to limit.
func rankByCount(order []string, counts map[string]int, limit int) []string {
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > limit {
		order = order[:limit]
	}

	return order
}

// majoritySentiment returns the most common sentiment across the group.
// A tie falls back to the sentiment of the highest-valued member.
func majoritySentiment(members []TaggedDiscussion, fallback domain.Sentiment) domain.Sentiment {
	counts := make(map[domain.Sentiment]int, len(members))

	var order []domain.Sentiment

	for _, m := range members {
		if counts[m.Sentiment] == 0 {
			order = append(order, m.Sentiment)
		}

		counts[m.Sentiment]++
	}

	top := 0

	for _, c := range counts {
		if c > top {
			top = c
		}
	}

	var winner domain.Sentiment

	for _, s := range order {
		if counts[s] != top {
			continue
		}

		if winner != "" {
			return fallback
		}

		winner = s
	}

	return winner
}

// priorityFor applies the tier rules in order; the first match wins.
func priorityFor(participants, messages, value int) domain.Priority {
	switch {
	case participants >= highParticipants || messages >= highMessages || value >= highValue:
		return domain.PriorityHigh
	case participants >= mediumParticipants || messages >= mediumMessages || value >= mediumValue:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}
