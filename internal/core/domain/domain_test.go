package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTime_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{
			name:  "rfc3339_utc",
			input: `"2025-11-05T10:30:00Z"`,
			want:  time.Date(2025, 11, 5, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "rfc3339_offset",
			input: `"2025-11-05T10:30:00+03:00"`,
			want:  time.Date(2025, 11, 5, 10, 30, 0, 0, time.FixedZone("", 3*3600)),
		},
		{
			name:  "iso_no_offset",
			input: `"2025-11-05T10:30:00"`,
			want:  time.Date(2025, 11, 5, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "iso_fractional",
			input: `"2025-11-05T10:30:00.123456"`,
			want:  time.Date(2025, 11, 5, 10, 30, 0, 123456000, time.UTC),
		},
		{
			name:  "space_separated",
			input: `"2025-11-08 00:00:00"`,
			want:  time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Time
			if err := json.Unmarshal([]byte(tt.input), &got); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.input, err)
			}

			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got.Time, tt.want)
			}
		})
	}
}

func TestTime_UnmarshalJSON_Garbage(t *testing.T) {
	var got Time
	if err := json.Unmarshal([]byte(`"yesterday"`), &got); err == nil {
		t.Fatal("expected error for non-timestamp input")
	}
}

func TestMessageDump_SenderName(t *testing.T) {
	dump := &MessageDump{Senders: map[string]string{"42": "Alice", "7": ""}}

	if got := dump.SenderName(42); got != "Alice" {
		t.Errorf("SenderName(42) = %q", got)
	}

	if got := dump.SenderName(7); got != "Unknown" {
		t.Errorf("SenderName(7) = %q, want fallback for empty name", got)
	}

	if got := dump.SenderName(999); got != "Unknown" {
		t.Errorf("SenderName(999) = %q, want fallback for missing id", got)
	}
}

func TestMessageDump_MessageURL(t *testing.T) {
	dump := &MessageDump{SourceInfo: SourceInfo{URL: "https://t.me/ru_python/"}}

	if got := dump.MessageURL(2641549); got != "https://t.me/ru_python/2641549" {
		t.Errorf("MessageURL() = %q", got)
	}
}

func TestMessageDump_Username(t *testing.T) {
	dump := &MessageDump{SourceInfo: SourceInfo{URL: "https://t.me/ru_python"}}

	if got := dump.Username(); got != "ru_python" {
		t.Errorf("Username() = %q", got)
	}
}

func TestMessageDump_IDSet(t *testing.T) {
	dump := &MessageDump{Messages: []Message{{ID: 1}, {ID: 5}, {ID: 9}}}

	ids := dump.IDSet()
	if len(ids) != 3 {
		t.Fatalf("IDSet() size = %d, want 3", len(ids))
	}

	for _, id := range []int64{1, 5, 9} {
		if _, ok := ids[id]; !ok {
			t.Errorf("IDSet() missing %d", id)
		}
	}
}

func TestMessage_IsReply(t *testing.T) {
	reply := int64(10)

	m := Message{ReplyToMsgID: &reply}
	if !m.IsReply() {
		t.Error("IsReply() = false for reply message")
	}

	m = Message{}
	if m.IsReply() {
		t.Error("IsReply() = true for top-level message")
	}
}

func TestParseSentiment(t *testing.T) {
	for _, valid := range []string{"positive", "negative", "neutral", "mixed"} {
		if _, ok := ParseSentiment(valid); !ok {
			t.Errorf("ParseSentiment(%q) not recognized", valid)
		}
	}

	if _, ok := ParseSentiment("enthusiastic"); ok {
		t.Error("ParseSentiment accepted unknown value")
	}
}
