package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/teamdesk/internal/client/models"
	"github.com/dmitrijs2005/teamdesk/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errNotLoggedIn = errors.New("not logged in")

// Login prompts for credentials and runs them through the auth flow.
func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		fmt.Fprintln(a.out, "Already logged in, logout first")
		return common.ErrAlreadyLoggedIn
	}

	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.reader, "Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.flow.Login(ctx, userName, string(password))
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			fmt.Fprintln(a.out, "Invalid username or password")
		} else {
			fmt.Fprintf(a.out, "Login failed: %v\n", err)
		}
		return err
	}

	fmt.Fprintf(a.out, "Welcome, %s (%s)\n", s.DisplayName, s.Role)
	return nil
}

// Logout clears the session. The directory stays as it is.
func (a *App) Logout(ctx context.Context) error {
	if err := a.flow.Logout(ctx); err != nil {
		fmt.Fprintf(a.out, "Logout failed: %v\n", err)
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// WhoAmI prints the session and the permissions its role grants.
func (a *App) WhoAmI(ctx context.Context) error {
	s, err := a.currentSession(ctx)
	if err != nil {
		return err
	}

	perms := models.Permissions(s.Role)
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, string(p))
	}

	fmt.Fprintf(a.out, "%s (%s), role %s\n", s.Username, s.DisplayName, s.Role)
	fmt.Fprintf(a.out, "Permissions: %s\n", strings.Join(names, ", "))
	return nil
}

func (a *App) currentSession(ctx context.Context) (*models.Session, error) {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Please login first")
		return nil, errNotLoggedIn
	}
	s, err := a.flow.Current(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "Session unavailable: %v\n", err)
		return nil, err
	}
	if s == nil {
		fmt.Fprintln(a.out, "Please login first")
		return nil, errNotLoggedIn
	}
	return s, nil
}
