package cli

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/cryptkeep/cryptkeep/internal/logging"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// The online-status watcher flips the mode from its own goroutine while the
// REPL reads it for the prompt; both must go through the guarded accessors.
func TestAppMode_ConcurrentReadsAndWrites(t *testing.T) {
	a := &App{log: testLogger(), mode: ModeOffline}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				a.setMode(ModeOnline)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = a.Mode()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, ModeOnline, a.Mode())
}

func TestAppSetMode_Idempotent(t *testing.T) {
	a := &App{log: testLogger(), mode: ModeOffline}

	a.setMode(ModeOnline)
	a.setMode(ModeOnline)
	require.Equal(t, ModeOnline, a.Mode())

	a.setMode(ModeOffline)
	require.Equal(t, ModeOffline, a.Mode())
}
