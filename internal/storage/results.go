package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/discusslab/chat-analyzer/internal/core/domain"
	coreerrors "github.com/discusslab/chat-analyzer/internal/core/errors"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// ResultStore persists analysis reports. Writes are atomic: the report
// is staged in a temp file next to the target and renamed over it, so
// readers never observe a partially written day.
type ResultStore struct {
	outputDir string
	logger    *zerolog.Logger
}

func NewResultStore(outputDir string, logger *zerolog.Logger) *ResultStore {
	return &ResultStore{outputDir: outputDir, logger: logger}
}

// Path returns where the report for (chat, date) lives or would live.
func (s *ResultStore) Path(chat, date string) string {
	return filepath.Join(s.outputDir, NormalizeChat(chat), date+".json")
}

func (s *ResultStore) Exists(chat, date string) bool {
	info, err := os.Stat(s.Path(chat, date))

	return err == nil && !info.IsDir()
}

// Save writes the report and returns its path.
func (s *ResultStore) Save(chat, date string, result *domain.AnalysisResult) (string, error) {
	path := s.Path(chat, date)
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("create output dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+date+"-*.json.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file in %s: %w", dir, err)
	}

	tmpPath := tmp.Name()

	if err := writeResult(tmp, result); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return "", fmt.Errorf("encode result %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)

		return "", fmt.Errorf("close temp file %s: %w", tmpPath, err)
	}

	if err := os.Chmod(tmpPath, filePerm); err != nil {
		os.Remove(tmpPath)

		return "", fmt.Errorf("chmod temp file %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)

		return "", fmt.Errorf("rename %s to %s: %w", tmpPath, path, err)
	}

	s.logger.Info().
		Str("chat", chat).
		Str("date", date).
		Int("discussions", len(result.Discussions)).
		Str("path", path).
		Msg("Saved analysis result")

	return path, nil
}

// Load reads a stored report. Missing reports yield ErrNotFound.
func (s *ResultStore) Load(chat, date string) (*domain.AnalysisResult, error) {
	path := s.Path(chat, date)

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: analysis for %s/%s (%s)", coreerrors.ErrNotFound, chat, date, path)
		}

		return nil, fmt.Errorf("read analysis result %s: %w", path, err)
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode analysis result %s: %w", path, err)
	}

	return &result, nil
}

// Delete removes a stored report, reporting whether it existed.
func (s *ResultStore) Delete(chat, date string) (bool, error) {
	err := os.Remove(s.Path(chat, date))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("delete analysis result: %w", err)
	}

	return true, nil
}

// ListDates returns the days with stored reports, oldest first.
func (s *ResultStore) ListDates(chat string) ([]string, error) {
	dates, err := listDayFiles(filepath.Join(s.outputDir, NormalizeChat(chat)))
	if err != nil {
		return nil, err
	}

	sort.Strings(dates)

	return dates, nil
}

// ListChats returns the chats with at least one stored report, sorted.
func (s *ResultStore) ListChats() ([]string, error) {
	return listChatDirs(s.outputDir)
}

// Latest loads the most recent report for a chat.
func (s *ResultStore) Latest(chat string) (*domain.AnalysisResult, string, error) {
	dates, err := s.ListDates(chat)
	if err != nil {
		return nil, "", err
	}

	if len(dates) == 0 {
		return nil, "", fmt.Errorf("%w: no analyses for %s", coreerrors.ErrNotFound, chat)
	}

	date := dates[len(dates)-1]

	result, err := s.Load(chat, date)
	if err != nil {
		return nil, "", err
	}

	return result, date, nil
}

func writeResult(f *os.File, result *domain.AnalysisResult) error {
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	return enc.Encode(result)
}
