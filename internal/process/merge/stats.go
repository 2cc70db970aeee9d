package merge

import (
	"math"
	"strconv"

	"github.com/discusslab/chat-analyzer/internal/core/domain"
)

// Stats aggregates the report-level statistics block. Maps only carry
// observed keys, averages are rounded to two decimals.
func Stats(discussions []domain.MergedDiscussion) domain.DiscussionStats {
	stats := domain.DiscussionStats{
		TotalDiscussions: len(discussions),
		ByPriority:       make(map[string]int),
		ByComplexity:     make(map[string]int),
		BySentiment:      make(map[string]int),
	}

	if len(discussions) == 0 {
		return stats
	}

	var participants, messages, complexity, value int

	counts := make(map[string]int)

	var order []string

	for _, d := range discussions {
		stats.ByPriority[string(d.Priority)]++
		stats.ByComplexity[strconv.Itoa(d.Complexity)]++
		stats.BySentiment[string(d.Sentiment)]++

		participants += d.ParticipantCount
		messages += d.MessageCount
		complexity += d.Complexity
		value += d.PracticalValue

		for _, kw := range d.Keywords {
			if counts[kw] == 0 {
				order = append(order, kw)
			}

			counts[kw]++
		}
	}

	total := float64(len(discussions))
	stats.AvgParticipants = round2(float64(participants) / total)
	stats.AvgMessages = round2(float64(messages) / total)
	stats.AvgComplexity = round2(float64(complexity) / total)
	stats.AvgPracticalValue = round2(float64(value) / total)
	stats.TopKeywords = rankByCount(order, counts, maxKeywords)

	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
