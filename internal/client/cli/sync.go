package cli

import (
	"context"
	"fmt"
)

// Sync pulls the shared directory. Remote failures leave the local copy as
// it was and are only logged.
func (a *App) Sync(ctx context.Context) error {
	fmt.Fprintln(a.out, "Syncing...")
	a.mirror.Pull(ctx)
	fmt.Fprintf(a.out, "Directory has %d user(s)\n", len(a.dir.List()))
	return nil
}
