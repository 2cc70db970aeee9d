package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Time is a timestamp as fetcher dumps carry it: RFC 3339, or an ISO
// form without offset (assumed UTC), or "YYYY-MM-DD HH:MM:SS".
type Time struct {
	time.Time
}

var dumpTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}

		return nil
	}

	for _, layout := range dumpTimeLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed

			return nil
		}
	}

	return fmt.Errorf("unsupported timestamp %q", s)
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

// Reaction is an emoji reaction attached to a message.
type Reaction struct {
	Emoji string  `json:"emoji"`
	Count int     `json:"count"`
	Users []int64 `json:"users,omitempty"`
}

// Comment is a reply in a channel post's comment thread.
// Comments never nest further.
type Comment struct {
	ID           int64      `json:"id"`
	Date         Time       `json:"date"`
	Text         string     `json:"text,omitempty"`
	SenderID     int64      `json:"sender_id"`
	ReplyToMsgID *int64     `json:"reply_to_msg_id,omitempty"`
	ForwardFrom  string     `json:"forward_from,omitempty"`
	Reactions    []Reaction `json:"reactions,omitempty"`
}

// Message is a single chat message from a fetcher dump. Immutable once
// loaded; identity is ID, unique within one (chat, date) set.
type Message struct {
	ID           int64      `json:"id"`
	Date         Time       `json:"date"`
	Text         string     `json:"text,omitempty"`
	SenderID     int64      `json:"sender_id"`
	ReplyToMsgID *int64     `json:"reply_to_msg_id,omitempty"`
	ForwardFrom  string     `json:"forward_from,omitempty"`
	Reactions    []Reaction `json:"reactions,omitempty"`
	Comments     []Comment  `json:"comments,omitempty"`
}

// IsReply reports whether the message replies to another message.
func (m *Message) IsReply() bool {
	return m.ReplyToMsgID != nil
}

// HasThread reports whether the message carries a comment thread.
func (m *Message) HasThread() bool {
	return len(m.Comments) > 0
}

// SourceInfo describes the chat or channel a dump was fetched from.
type SourceInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

// Source type constants.
const (
	SourceTypeChannel    = "channel"
	SourceTypeChat       = "chat"
	SourceTypeSupergroup = "supergroup"
)

// IsChannel reports whether the source is a channel (supports comment threads).
func (s *SourceInfo) IsChannel() bool {
	return s.Type == SourceTypeChannel
}

// MessageDump is one day's message set for one chat, as produced by the
// fetcher service.
type MessageDump struct {
	Version    string            `json:"version"`
	SourceInfo SourceInfo        `json:"source_info"`
	Senders    map[string]string `json:"senders"`
	Messages   []Message         `json:"messages"`
}

const unknownSender = "Unknown"

// SenderName resolves a sender ID to a display name.
func (d *MessageDump) SenderName(senderID int64) string {
	name, ok := d.Senders[strconv.FormatInt(senderID, 10)]
	if !ok || name == "" {
		return unknownSender
	}

	return name
}

// MessageURL builds the public link for a message in this dump's source.
func (d *MessageDump) MessageURL(messageID int64) string {
	return strings.TrimRight(d.SourceInfo.URL, "/") + "/" + strconv.FormatInt(messageID, 10)
}

// Username extracts the chat username from the source URL,
// e.g. "https://t.me/ru_python" -> "ru_python".
func (d *MessageDump) Username() string {
	trimmed := strings.TrimRight(d.SourceInfo.URL, "/")

	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return trimmed
	}

	return trimmed[idx+1:]
}

// IDSet returns the set of message IDs in the dump.
func (d *MessageDump) IDSet() map[int64]struct{} {
	ids := make(map[int64]struct{}, len(d.Messages))
	for i := range d.Messages {
		ids[d.Messages[i].ID] = struct{}{}
	}

	return ids
}
