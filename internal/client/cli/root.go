package cli

import (
	"context"
	"fmt"
)

func (a *App) getStatus() string {
	s, err := a.flow.Current(context.Background())
	if err != nil || s == nil || !a.isLoggedIn() {
		return ""
	}
	return fmt.Sprintf("(%s %s)", s.Username, s.Role)
}

// Root greets the user and runs the REPL on the app's input.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to TeamDesk CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}
