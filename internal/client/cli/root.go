package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cryptkeep/cryptkeep/internal/client/session"
)

func (a *App) getStatus() string {
	parts := []string{}
	if account, ok := a.session.Account(); ok {
		parts = append(parts, account.Username)
	}
	if a.session.Status() == session.StatusUnlocked {
		parts = append(parts, "unlocked")
	} else {
		parts = append(parts, "locked")
	}
	if mode := a.Mode(); mode != "" {
		parts = append(parts, string(mode))
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, " "))
}

func (a *App) Root(ctx context.Context) {
	fmt.Println("Welcome to the vault CLI (type 'help' for commands)")

	go func() {
		a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}()
	go func() {
		a.StartAutoLockWatcher(ctx)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
