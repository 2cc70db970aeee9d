package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/discusslab/chat-analyzer/internal/core/domain"
)

// defaultAnalysisPrompt is the built-in template. Placeholders mirror the
// fetcher-side contract: ChatName, ChatUsername, Date, MessageCount,
// MessagesJSON.
const defaultAnalysisPrompt = `You are an expert analyst of technical group chats. Return STRICT JSON ONLY.

Below are {{.MessageCount}} messages from the chat "{{.ChatName}}" (@{{.ChatUsername}}) for {{.Date}}, as a JSON array with id, timestamp, sender, text and reply_to fields:

{{.MessagesJSON}}

Your task: identify the significant discussions (a discussion is a topic several participants engaged with, not a lone message). For each discussion provide:
- topic: string, a short descriptive name of the discussion
- keywords: array of up to 5 keyword strings
- participants: array of sender names involved
- summary: string, what was discussed and what was concluded
- expert_comment: object with:
  - problem_analysis: string, the core problem behind the discussion
  - common_mistakes: array of strings
  - best_practices: array of strings
  - actionable_insights: array of strings
  - learning_resources: array of strings (may be empty)
- message_links: array of links to the key messages in the form https://t.me/{{.ChatUsername}}/<id>; use ONLY ids present in the input
- complexity: integer 1-5
  - 1-2 = beginner questions, 3 = practical engineering, 4-5 = deep internals or architecture
- sentiment: one of "positive", "negative", "neutral", "mixed"
- practical_value: integer 1-10, how useful the discussion is to a reader
  - 1-3 = chatter, 4-6 = situational, 7-8 = broadly useful, 9-10 = must-read

Output must be a single JSON object: {"discussions": [...]}. Use double quotes. No trailing commas. No markdown. No extra keys. If there are no meaningful discussions, return {"discussions": []}.`

// promptMessage is the per-message shape rendered into the prompt.
type promptMessage struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	ReplyTo   *int64 `json:"reply_to"`
}

type promptData struct {
	ChatName     string
	ChatUsername string
	Date         string
	MessageCount int
	MessagesJSON string
}

// PromptBuilder renders analysis prompts from a template.
type PromptBuilder struct {
	tmpl *template.Template
}

// NewPromptBuilder compiles the built-in template, or the file at path
// when non-empty.
func NewPromptBuilder(path string) (*PromptBuilder, error) {
	text := defaultAnalysisPrompt

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompt template: %w", err)
		}

		text = string(raw)
	}

	tmpl, err := template.New("analysis").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}

	return &PromptBuilder{tmpl: tmpl}, nil
}

// Build renders the prompt for one batch of messages from dump.
func (b *PromptBuilder) Build(dump *domain.MessageDump, date string, messages []domain.Message) (string, error) {
	rendered, err := formatMessagesJSON(dump, messages)
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	err = b.tmpl.Execute(&sb, promptData{
		ChatName:     dump.SourceInfo.Title,
		ChatUsername: dump.Username(),
		Date:         date,
		MessageCount: len(messages),
		MessagesJSON: rendered,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	return sb.String(), nil
}

func formatMessagesJSON(dump *domain.MessageDump, messages []domain.Message) (string, error) {
	formatted := make([]promptMessage, 0, len(messages))

	for _, msg := range messages {
		formatted = append(formatted, promptMessage{
			ID:        msg.ID,
			Timestamp: msg.Date.UTC().Format(time.RFC3339),
			Sender:    dump.SenderName(msg.SenderID),
			Text:      msg.Text,
			ReplyTo:   msg.ReplyToMsgID,
		})
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(formatted); err != nil {
		return "", fmt.Errorf("marshal messages: %w", err)
	}

	return strings.TrimRight(buf.String(), "\n"), nil
}
