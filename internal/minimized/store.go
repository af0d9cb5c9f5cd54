// Package minimized holds the process-wide set of card identifiers that
// are currently collapsed into the icon bar. The set is the source of
// truth for minimized state: card controllers rederive their ephemeral
// animation variables from it on every mount and focus regain.
package minimized

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/prospectly/leaddeck/internal/logging"
)

// maxBackupGenerations is the number of rolling backups to keep.
const maxBackupGenerations = 3

// Entry is one minimized card in the persisted set.
type Entry struct {
	ID          string    `json:"id"`
	MinimizedAt time.Time `json:"minimized_at"`
}

// fileData is the JSON structure for persistence.
type fileData struct {
	Minimized []Entry   `json:"minimized"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the shared minimized-set with per-card subscriptions.
//
// Reads are cheap and never touch disk. Writes update memory, notify
// subscribers synchronously, and persist asynchronously so a store
// write can never stall frame production. A failed persist is logged
// and reconciled by the next successful load; it is never surfaced.
type Store struct {
	mu   sync.RWMutex
	path string
	set  map[string]time.Time

	subs    map[string]map[int]func(bool)
	nextSub int

	saveMu     sync.Mutex
	saveNotify func()

	// Background persists are coalesced into a single writer goroutine
	// that always saves the latest set; Flush drains it before writing.
	persistMu  sync.Mutex
	persistWG  sync.WaitGroup
	dirty      bool
	persisting bool

	log *slog.Logger
}

// Open loads (or initializes) the store backed by the given file. A
// missing file yields an empty set. A corrupted file falls back to the
// rolling backups before giving up.
func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		set:  make(map[string]time.Time),
		subs: make(map[string]map[int]func(bool)),
		log:  logging.ForComponent(logging.CompStore),
	}

	// Clean up any leftover temp files from a previous crash.
	if stale, err := filepath.Glob(path + ".tmp*"); err == nil {
		for _, p := range stale {
			if err := os.Remove(p); err != nil {
				s.log.Warn("failed to clean up temp file", "path", p, "error", err)
			}
		}
	}

	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the file path this store persists to.
func (s *Store) Path() string { return s.path }

// SetSaveNotifier registers a callback invoked right before each
// persist, so a file watcher can ignore the store's own writes.
func (s *Store) SetSaveNotifier(fn func()) {
	s.saveMu.Lock()
	s.saveNotify = fn
	s.saveMu.Unlock()
}

// IsMinimized reports membership. Safe to call before any card has
// registered; unknown ids are simply not minimized.
func (s *Store) IsMinimized(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.set[id]
	return ok
}

// Minimize adds the card to the set. Idempotent.
func (s *Store) Minimize(id string) {
	s.mu.Lock()
	if _, ok := s.set[id]; ok {
		s.mu.Unlock()
		return
	}
	s.set[id] = time.Now()
	subs := s.subscribersLocked(id)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(true)
	}
	s.schedulePersist()
}

// Restore removes the card from the set. Idempotent.
func (s *Store) Restore(id string) {
	s.mu.Lock()
	if _, ok := s.set[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.set, id)
	subs := s.subscribersLocked(id)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(false)
	}
	s.schedulePersist()
}

// Subscribe registers a callback for membership changes of one card id,
// so a mounted card instance reacts only to its own entry. The returned
// function cancels the subscription.
func (s *Store) Subscribe(id string, fn func(minimized bool)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs[id] == nil {
		s.subs[id] = make(map[int]func(bool))
	}
	key := s.nextSub
	s.nextSub++
	s.subs[id][key] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if m := s.subs[id]; m != nil {
			delete(m, key)
			if len(m) == 0 {
				delete(s.subs, id)
			}
		}
	}
}

// Snapshot returns the minimized entries ordered by when they were
// minimized, which is the icon bar's display order.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.set))
	for id, at := range s.set {
		entries = append(entries, Entry{ID: id, MinimizedAt: at})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].MinimizedAt.Equal(entries[j].MinimizedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].MinimizedAt.Before(entries[j].MinimizedAt)
	})
	return entries
}

// Reload re-reads the file and notifies subscribers of any cards whose
// membership changed. Used when the file watcher reports an external
// edit (CLI subcommand, another process).
func (s *Store) Reload() error {
	s.mu.Lock()
	before := make(map[string]bool, len(s.set))
	for id := range s.set {
		before[id] = true
	}
	if err := s.loadLocked(); err != nil {
		s.mu.Unlock()
		return err
	}

	type change struct {
		fns       []func(bool)
		minimized bool
	}
	var changes []change
	for id := range s.set {
		if !before[id] {
			changes = append(changes, change{s.subscribersLocked(id), true})
		}
	}
	for id := range before {
		if _, ok := s.set[id]; !ok {
			changes = append(changes, change{s.subscribersLocked(id), false})
		}
	}
	s.mu.Unlock()

	for _, ch := range changes {
		for _, fn := range ch.fns {
			fn(ch.minimized)
		}
	}
	return nil
}

// Flush drains any in-flight background persist and writes the current
// set synchronously. After Flush returns, no write scheduled before it
// can land on the file. Used on shutdown and by tests.
func (s *Store) Flush() error {
	s.persistWG.Wait()
	return s.save()
}

// subscribersLocked snapshots the callbacks for an id; caller holds mu.
// Callbacks run outside the lock so a subscriber may re-enter the store.
func (s *Store) subscribersLocked(id string) []func(bool) {
	m := s.subs[id]
	if len(m) == 0 {
		return nil
	}
	fns := make([]func(bool), 0, len(m))
	for _, fn := range m {
		fns = append(fns, fn)
	}
	return fns
}

// schedulePersist is the async save path. Writes mark the set dirty and
// at most one writer goroutine runs at a time, looping until the set is
// clean again; since save snapshots the set at write time, the file
// always converges on the latest membership. Failures are logged, never
// returned: the in-memory set stays authoritative and the discrepancy
// is reconciled on the next successful load.
func (s *Store) schedulePersist() {
	s.persistMu.Lock()
	s.dirty = true
	if s.persisting {
		s.persistMu.Unlock()
		return
	}
	s.persisting = true
	s.persistWG.Add(1)
	s.persistMu.Unlock()

	go func() {
		defer s.persistWG.Done()
		for {
			s.persistMu.Lock()
			if !s.dirty {
				s.persisting = false
				s.persistMu.Unlock()
				return
			}
			s.dirty = false
			s.persistMu.Unlock()

			if err := s.save(); err != nil {
				s.log.Warn("persist failed, keeping optimistic in-memory state",
					"path", s.path, "error", err)
			}
		}
	}()
}

// save writes the set using the atomic write pattern: temp file, fsync,
// rotate backups, rename.
func (s *Store) save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	data := fileData{
		Minimized: make([]Entry, 0, len(s.set)),
		UpdatedAt: time.Now(),
	}
	for id, at := range s.set {
		data.Minimized = append(data.Minimized, Entry{ID: id, MinimizedAt: at})
	}
	notify := s.saveNotify
	s.mu.RUnlock()

	sort.Slice(data.Minimized, func(i, j int) bool {
		return data.Minimized[i].ID < data.Minimized[j].ID
	})

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if notify != nil {
		notify()
	}

	// A unique temp name per write: two handles on the same file must
	// not race on a shared temp path.
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(jsonData); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// fsync before rename; without it a crash can lose the write even
	// though the rename itself is atomic.
	if err := tmp.Sync(); err != nil {
		s.log.Warn("fsync failed", "path", tmpPath, "error", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		s.rotateBackups()
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to finalize save: %w", err)
	}
	return nil
}

// loadLocked replaces the in-memory set from disk; caller holds mu (or
// is the constructor). Falls back to backups when the main file is
// corrupted.
func (s *Store) loadLocked() error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		s.set = make(map[string]time.Time)
		return nil
	}

	data, err := loadFromFile(s.path)
	if err != nil {
		s.log.Warn("main store file corrupted, attempting backup recovery", "error", err)
		data, err = s.recoverFromBackups()
		if err != nil {
			return fmt.Errorf("failed to load and no valid backup found: %w", err)
		}
		s.log.Info("recovered minimized set from backup")
	}

	set := make(map[string]time.Time, len(data.Minimized))
	for _, e := range data.Minimized {
		if e.ID == "" {
			return fmt.Errorf("entry has empty id")
		}
		set[e.ID] = e.MinimizedAt
	}
	s.set = set
	return nil
}

func loadFromFile(path string) (*fileData, error) {
	jsonData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	var data fileData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return &data, nil
}

// recoverFromBackups tries backups in order: .bak, .bak.1, .bak.2
func (s *Store) recoverFromBackups() (*fileData, error) {
	bakPath := s.path + ".bak"
	backupPaths := []string{bakPath}
	for i := 1; i < maxBackupGenerations; i++ {
		backupPaths = append(backupPaths, fmt.Sprintf("%s.%d", bakPath, i))
	}

	for _, tryPath := range backupPaths {
		if _, err := os.Stat(tryPath); os.IsNotExist(err) {
			continue
		}
		data, err := loadFromFile(tryPath)
		if err != nil {
			s.log.Warn("backup also corrupted", "path", tryPath, "error", err)
			continue
		}
		return data, nil
	}
	return nil, fmt.Errorf("all backups corrupted or missing")
}

// rotateBackups maintains rolling backups: .bak, .bak.1, .bak.2
func (s *Store) rotateBackups() {
	bakPath := s.path + ".bak"

	for i := maxBackupGenerations - 1; i > 0; i-- {
		oldPath := fmt.Sprintf("%s.%d", bakPath, i-1)
		if i == 1 {
			oldPath = bakPath
		}
		newPath := fmt.Sprintf("%s.%d", bakPath, i)

		if i == maxBackupGenerations-1 {
			os.Remove(newPath)
		}
		if _, err := os.Stat(oldPath); err == nil {
			if err := os.Rename(oldPath, newPath); err != nil {
				s.log.Warn("failed to rotate backup", "from", oldPath, "to", newPath, "error", err)
			}
		}
	}

	if err := copyFile(s.path, bakPath); err != nil {
		s.log.Warn("failed to create backup file", "path", bakPath, "error", err)
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0600)
}

