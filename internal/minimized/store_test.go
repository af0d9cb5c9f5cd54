package minimized

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func tempStorePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "minimized.json")
}

func TestOpenMissingFileYieldsEmptySet(t *testing.T) {
	s, err := Open(tempStorePath(t))
	require.NoError(t, err)
	require.False(t, s.IsMinimized("anything"))
	require.Empty(t, s.Snapshot())
}

func TestMinimizeRestoreRoundtrip(t *testing.T) {
	path := tempStorePath(t)
	s, err := Open(path)
	require.NoError(t, err)

	s.Minimize("lead-acme")
	s.Minimize("digest-weekly")
	require.True(t, s.IsMinimized("lead-acme"))
	require.True(t, s.IsMinimized("digest-weekly"))
	require.NoError(t, s.Flush())

	// A fresh store sees the persisted membership.
	reopened, err := Open(path)
	require.NoError(t, err)
	require.True(t, reopened.IsMinimized("lead-acme"))
	require.True(t, reopened.IsMinimized("digest-weekly"))
	require.False(t, reopened.IsMinimized("followup-nimbus"))

	reopened.Restore("lead-acme")
	require.NoError(t, reopened.Flush())

	again, err := Open(path)
	require.NoError(t, err)
	require.False(t, again.IsMinimized("lead-acme"))
	require.True(t, again.IsMinimized("digest-weekly"))
}

func TestMinimizeIdempotent(t *testing.T) {
	s, err := Open(tempStorePath(t))
	require.NoError(t, err)

	notifications := 0
	cancel := s.Subscribe("card-1", func(bool) { notifications++ })
	defer cancel()

	s.Minimize("card-1")
	s.Minimize("card-1")
	require.Equal(t, 1, notifications, "re-minimizing a member must not re-notify")

	s.Restore("card-1")
	s.Restore("card-1")
	require.Equal(t, 2, notifications)
	require.NoError(t, s.Flush())
}

func TestSubscribeDeliversPerCard(t *testing.T) {
	s, err := Open(tempStorePath(t))
	require.NoError(t, err)

	var got []bool
	cancel := s.Subscribe("card-1", func(minimized bool) { got = append(got, minimized) })

	s.Minimize("card-2") // different card, no delivery
	s.Minimize("card-1")
	s.Restore("card-1")
	require.Equal(t, []bool{true, false}, got)

	cancel()
	s.Minimize("card-1")
	require.Equal(t, []bool{true, false}, got, "cancelled subscription must not fire")
	require.NoError(t, s.Flush())
}

func TestSnapshotOrderedByMinimizedAt(t *testing.T) {
	s, err := Open(tempStorePath(t))
	require.NoError(t, err)

	s.Minimize("zulu")
	time.Sleep(2 * time.Millisecond)
	s.Minimize("alpha")
	time.Sleep(2 * time.Millisecond)
	s.Minimize("mike")

	entries := s.Snapshot()
	require.Len(t, entries, 3)
	require.Equal(t, "zulu", entries[0].ID)
	require.Equal(t, "alpha", entries[1].ID)
	require.Equal(t, "mike", entries[2].ID)
	require.NoError(t, s.Flush())
}

func TestReloadNotifiesChangedCards(t *testing.T) {
	path := tempStorePath(t)
	s, err := Open(path)
	require.NoError(t, err)
	s.Minimize("card-1")
	require.NoError(t, s.Flush())

	// A second handle mutates the file, as the CLI subcommands would.
	other, err := Open(path)
	require.NoError(t, err)
	other.Restore("card-1")
	other.Minimize("card-2")
	require.NoError(t, other.Flush())

	var events []string
	c1 := s.Subscribe("card-1", func(m bool) {
		if !m {
			events = append(events, "card-1:restored")
		}
	})
	defer c1()
	c2 := s.Subscribe("card-2", func(m bool) {
		if m {
			events = append(events, "card-2:minimized")
		}
	})
	defer c2()

	require.NoError(t, s.Reload())
	require.ElementsMatch(t, []string{"card-1:restored", "card-2:minimized"}, events)
	require.False(t, s.IsMinimized("card-1"))
	require.True(t, s.IsMinimized("card-2"))
}

func TestBackupRecoveryAfterCorruption(t *testing.T) {
	path := tempStorePath(t)
	s, err := Open(path)
	require.NoError(t, err)
	s.Minimize("card-1")
	require.NoError(t, s.Flush())
	// A second save rotates the first file into .bak.
	s.Minimize("card-2")
	require.NoError(t, s.Flush())

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	recovered, err := Open(path)
	require.NoError(t, err)
	// .bak holds the set as of the first flush.
	require.True(t, recovered.IsMinimized("card-1"))
}

func TestOpenFailsWhenAllCopiesCorrupted(t *testing.T) {
	path := tempStorePath(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := Open(path)
	require.Error(t, err)
}

func TestOpenRemovesStaleTempFile(t *testing.T) {
	path := tempStorePath(t)
	tmpPath := path + ".tmp"
	require.NoError(t, os.WriteFile(tmpPath, []byte("partial"), 0600))

	_, err := Open(path)
	require.NoError(t, err)

	_, statErr := os.Stat(tmpPath)
	require.True(t, os.IsNotExist(statErr))
}

func TestWriteFailureKeepsOptimisticMemory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "minimized.json")
	s, err := Open(path)
	require.NoError(t, err)

	// Make the directory unwritable so every persist fails.
	require.NoError(t, os.Chmod(dir, 0500))
	t.Cleanup(func() { os.Chmod(dir, 0700) })

	s.Minimize("card-1")
	require.True(t, s.IsMinimized("card-1"), "memory stays authoritative on write failure")
	require.Error(t, s.Flush())
}

func TestFlushDrainsPendingPersists(t *testing.T) {
	path := tempStorePath(t)
	s, err := Open(path)
	require.NoError(t, err)

	// A burst of writes leaves background persists in flight; Flush
	// must drain them so none can land after it and resurrect old state.
	for i := 0; i < 25; i++ {
		s.Minimize(fmt.Sprintf("card-%d", i))
	}
	s.Restore("card-3")
	require.NoError(t, s.Flush())

	other, err := Open(path)
	require.NoError(t, err)
	other.Restore("card-7")
	require.NoError(t, other.Flush())

	// Give any stray goroutine from the first handle a chance to do
	// damage before checking the file.
	time.Sleep(50 * time.Millisecond)

	again, err := Open(path)
	require.NoError(t, err)
	require.False(t, again.IsMinimized("card-3"))
	require.False(t, again.IsMinimized("card-7"))
	require.True(t, again.IsMinimized("card-1"))
	require.True(t, again.IsMinimized("card-24"))
}

func TestParallelHandleSavesDoNotCollide(t *testing.T) {
	path := tempStorePath(t)
	s1, err := Open(path)
	require.NoError(t, err)
	s1.Minimize("card-1")
	require.NoError(t, s1.Flush())

	s2, err := Open(path)
	require.NoError(t, err)

	// Two handles saving the same file concurrently must both succeed;
	// each write uses its own temp file.
	errs := make(chan error, 40)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- s1.Flush()
		}()
		go func() {
			defer wg.Done()
			errs <- s2.Flush()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestSaveNotifierFiresBeforePersist(t *testing.T) {
	s, err := Open(tempStorePath(t))
	require.NoError(t, err)

	notified := 0
	s.SetSaveNotifier(func() { notified++ })

	s.Minimize("card-1")
	require.NoError(t, s.Flush())
	require.GreaterOrEqual(t, notified, 1)
}
