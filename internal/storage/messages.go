// Package storage reads fetcher message dumps and persists analysis
// reports. Both sides of the exchange are plain JSON files laid out as
// <root>/<chat>/<YYYY-MM-DD>.json.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/discusslab/chat-analyzer/internal/core/domain"
	coreerrors "github.com/discusslab/chat-analyzer/internal/core/errors"
)

const dateLayout = "2006-01-02"

// NormalizeChat strips the leading "@" so identifiers from events and
// CLI flags resolve to the fetcher's directory layout.
func NormalizeChat(chat string) string {
	return strings.TrimPrefix(chat, "@")
}

// ValidateDate rejects anything that is not a strict YYYY-MM-DD day.
func ValidateDate(date string) error {
	t, err := time.Parse(dateLayout, date)
	if err != nil || t.Format(dateLayout) != date {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
	}

	return nil
}

// MessageSource reads message dumps written by the fetcher service.
type MessageSource struct {
	dataDir string
	logger  *zerolog.Logger
}

func NewMessageSource(dataDir string, logger *zerolog.Logger) *MessageSource {
	return &MessageSource{dataDir: dataDir, logger: logger}
}

// Load reads the dump for one (chat, date). A missing chat directory or
// day file is reported as ErrNotFound.
func (s *MessageSource) Load(chat, date string) (*domain.MessageDump, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}

	path := filepath.Join(s.dataDir, NormalizeChat(chat), date+".json")

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: messages for %s/%s (%s)", coreerrors.ErrNotFound, chat, date, path)
		}

		return nil, fmt.Errorf("read message dump %s: %w", path, err)
	}

	var dump domain.MessageDump
	if err := json.Unmarshal(raw, &dump); err != nil {
		return nil, fmt.Errorf("decode message dump %s: %w", path, err)
	}

	s.logger.Info().
		Str("chat", chat).
		Str("date", date).
		Int("messages", len(dump.Messages)).
		Str("source", dump.SourceInfo.Title).
		Msg("Loaded message dump")

	return &dump, nil
}

// ListDates returns the available days for a chat, newest first.
// A missing chat directory yields an empty list.
func (s *MessageSource) ListDates(chat string) ([]string, error) {
	dates, err := listDayFiles(filepath.Join(s.dataDir, NormalizeChat(chat)))
	if err != nil {
		return nil, err
	}

	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	return dates, nil
}

// ListChats returns the chats present under the data directory, sorted.
func (s *MessageSource) ListChats() ([]string, error) {
	return listChatDirs(s.dataDir)
}

func listDayFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var dates []string

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		date := strings.TrimSuffix(name, ".json")
		if ValidateDate(date) != nil {
			continue
		}

		dates = append(dates, date)
	}

	return dates, nil
}

func listChatDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var chats []string

	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			chats = append(chats, entry.Name())
		}
	}

	sort.Strings(chats)

	return chats, nil
}
