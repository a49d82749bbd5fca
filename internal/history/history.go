// Package history maintains the append-only processed-history log and the
// tier-aware already-covered predicate that suppresses redundant work.
package history

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"scribe/internal/models"
	"scribe/internal/services"
)

// Record is one processed item: which model produced output for which item.
type Record struct {
	ItemID string
	Model  string
}

// Store owns the history file. Records load once at open; appends update the
// in-memory view and the file together.
type Store struct {
	path string

	mu      sync.Mutex
	records []Record
}

// Open reads the history log at path, creating an empty store when the file
// does not exist yet. Unreadable content is a state-corruption error; the
// file is never truncated or rewritten.
func Open(path string) (*Store, error) {
	store := &Store{path: path}

	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStateCorruption, "history", "open", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		store.records = append(store.records, Record{ItemID: fields[0], Model: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrStateCorruption, "history", "read", path, err)
	}
	return store, nil
}

// Append records a completed (itemID, model) pair. Duplicates are tolerated;
// the log is strictly append-only.
func (s *Store) Append(itemID, model string) error {
	itemID = strings.TrimSpace(itemID)
	model = strings.TrimSpace(model)
	if itemID == "" || model == "" {
		return services.Wrap(services.ErrInputInvalid, "history", "append", "item ID and model required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%s %s\n", itemID, model); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync history: %w", err)
	}

	s.records = append(s.records, Record{ItemID: itemID, Model: model})
	return nil
}

// Len returns the number of loaded records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Covered reports whether itemID has already been processed with a model at
// least as good as current.
//
// In strict mode only records from the same English-only block participate,
// compared by raw index. In cross-tier mode all records participate with
// normalized indices, so a multilingual pass can supersede an English-only
// one and vice versa.
func (s *Store) Covered(itemID, currentModel string, crossTier bool) bool {
	current, ok := models.Lookup(currentModel)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.records {
		if record.ItemID != itemID {
			continue
		}
		recorded, ok := models.Lookup(record.Model)
		if !ok {
			continue
		}
		if crossTier {
			if models.NormalizedIndex(record.Model) >= models.NormalizedIndex(currentModel) {
				return true
			}
			continue
		}
		if recorded.EnglishOnly != current.EnglishOnly {
			continue
		}
		if models.RawIndex(record.Model) >= models.RawIndex(currentModel) {
			return true
		}
	}
	return false
}
