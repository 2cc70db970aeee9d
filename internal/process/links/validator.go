// Package links verifies that every message link in a merged discussion
// resolves to a message that was actually analyzed. The model is free to
// hallucinate references; anything it invents must not reach the report.
package links

import (
	"strconv"
	"strings"

	"github.com/discusslab/chat-analyzer/internal/core/domain"
)

// Violation reasons.
const (
	ReasonWrongChat   = "link outside chat"
	ReasonMalformedID = "malformed message id"
	ReasonUnknownID   = "unknown message id"
)

// Violation records one invalid link and the discussion it dropped.
type Violation struct {
	Topic  string
	Link   string
	Reason string
}

// Filter drops every discussion holding at least one link that does not
// have the <baseURL>/<id> shape with an id from the analyzed set. The
// relative order of surviving discussions is preserved.
func Filter(discussions []domain.MergedDiscussion, valid map[int64]struct{}, baseURL string) ([]domain.MergedDiscussion, []Violation) {
	prefix := strings.TrimRight(baseURL, "/") + "/"

	kept := make([]domain.MergedDiscussion, 0, len(discussions))

	var dropped []Violation

	for _, d := range discussions {
		violations := checkLinks(d, valid, prefix)
		if len(violations) > 0 {
			dropped = append(dropped, violations...)

			continue
		}

		kept = append(kept, d)
	}

	return kept, dropped
}

func checkLinks(d domain.MergedDiscussion, valid map[int64]struct{}, prefix string) []Violation {
	var violations []Violation

	for _, link := range d.MessageLinks {
		if reason := checkLink(link, valid, prefix); reason != "" {
			violations = append(violations, Violation{Topic: d.Topic, Link: link, Reason: reason})
		}
	}

	return violations
}

func checkLink(link string, valid map[int64]struct{}, prefix string) string {
	rest, ok := strings.CutPrefix(link, prefix)
	if !ok {
		return ReasonWrongChat
	}

	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return ReasonMalformedID
	}

	if _, ok := valid[id]; !ok {
		return ReasonUnknownID
	}

	return ""
}
