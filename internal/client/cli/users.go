package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/teamdesk/internal/client/models"
	"github.com/dmitrijs2005/teamdesk/internal/common"
)

var errForbidden = errors.New("permission denied")

// requireManager returns the session if its role may manage users.
func (a *App) requireManager(ctx context.Context) (*models.Session, error) {
	s, err := a.currentSession(ctx)
	if err != nil {
		return nil, err
	}
	if !s.Role.Can(models.PermManageUsers) {
		fmt.Fprintf(a.out, "Role %s cannot manage users\n", s.Role)
		return nil, errForbidden
	}
	return s, nil
}

// Users prints the directory sorted by username.
func (a *App) Users(ctx context.Context) error {
	if _, err := a.currentSession(ctx); err != nil {
		return err
	}

	users := a.dir.List()
	sort.Slice(users, func(i, j int) bool {
		return strings.ToLower(users[i].Username) < strings.ToLower(users[j].Username)
	})

	legacy := make(map[string]bool)
	for _, name := range a.dir.LegacyCredentials() {
		legacy[name] = true
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tNAME\tROLE\t")
	for _, u := range users {
		note := ""
		if legacy[u.Username] {
			note = "legacy password"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.Username, u.DisplayName, u.Role, note)
	}
	return tw.Flush()
}

func (a *App) readRole(prompt string, allowEmpty bool) (*models.Role, error) {
	for {
		text, err := getSimpleText(a.reader, prompt, a.out)
		if err != nil {
			return nil, err
		}
		if text == "" && allowEmpty {
			return nil, nil
		}
		r, err := models.ParseRole(text)
		if err == nil {
			return &r, nil
		}
		fmt.Fprintln(a.out, "Role must be one of: admin, manager, engineer")
	}
}

// readNewPassword asks twice and returns the password once both entries match.
func (a *App) readNewPassword() (string, error) {
	first, err := getPassword(a.reader, "Enter password", a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(first)

	second, err := getPassword(a.reader, "Repeat password", a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(second)

	if len(first) == 0 {
		fmt.Fprintln(a.out, "Password must not be empty")
		return "", errors.New("empty password")
	}
	if string(first) != string(second) {
		fmt.Fprintln(a.out, "Passwords do not match")
		return "", errors.New("password mismatch")
	}
	return string(first), nil
}

// AddUser prompts for a new directory record.
func (a *App) AddUser(ctx context.Context) error {
	if _, err := a.requireManager(ctx); err != nil {
		return err
	}

	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	if _, exists := a.dir.Find(username); exists {
		fmt.Fprintf(a.out, "User %q already exists\n", username)
		return common.ErrDuplicateUsername
	}

	displayName, err := getSimpleText(a.reader, "Enter display name", a.out)
	if err != nil {
		return err
	}
	role, err := a.readRole("Enter role (admin, manager, engineer)", false)
	if err != nil {
		return err
	}
	password, err := a.readNewPassword()
	if err != nil {
		return err
	}

	if err := a.dir.Add(ctx, username, displayName, *role, password); err != nil {
		fmt.Fprintf(a.out, "Could not add user: %v\n", err)
		return err
	}
	fmt.Fprintf(a.out, "User %s added\n", username)
	return nil
}

// EditUser updates display name, role and optionally the password. Blank
// answers keep the current value.
func (a *App) EditUser(ctx context.Context) error {
	if _, err := a.requireManager(ctx); err != nil {
		return err
	}

	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	u, ok := a.dir.Find(username)
	if !ok {
		fmt.Fprintf(a.out, "User %q not found\n", username)
		return common.ErrUserNotFound
	}

	var patch models.UserPatch

	name, err := getSimpleText(a.reader, fmt.Sprintf("Display name (blank keeps %q)", u.DisplayName), a.out)
	if err != nil {
		return err
	}
	if name != "" {
		patch.DisplayName = &name
	}

	patch.Role, err = a.readRole(fmt.Sprintf("Role (blank keeps %s)", u.Role), true)
	if err != nil {
		return err
	}

	change, err := Confirm(a.reader, "Change password?", a.out)
	if err != nil {
		return err
	}
	if change {
		pw, err := a.readNewPassword()
		if err != nil {
			return err
		}
		patch.Password = &pw
	}

	if patch.DisplayName == nil && patch.Role == nil && patch.Password == nil {
		fmt.Fprintln(a.out, "Nothing to change")
		return nil
	}

	if err := a.dir.Update(ctx, u.Username, patch); err != nil {
		fmt.Fprintf(a.out, "Could not update user: %v\n", err)
		return err
	}
	fmt.Fprintf(a.out, "User %s updated\n", u.Username)
	return nil
}

// DelUser removes a user after confirmation. Sessions already open for that
// user stay open until logout.
func (a *App) DelUser(ctx context.Context) error {
	if _, err := a.requireManager(ctx); err != nil {
		return err
	}

	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	if _, ok := a.dir.Find(username); !ok {
		fmt.Fprintf(a.out, "User %q not found, nothing to delete\n", username)
		return nil
	}

	ok, err := Confirm(a.reader, fmt.Sprintf("Delete %s?", username), a.out)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}

	if err := a.dir.Remove(ctx, username); err != nil {
		fmt.Fprintf(a.out, "Could not delete user: %v\n", err)
		return err
	}
	fmt.Fprintf(a.out, "User %s deleted\n", username)
	return nil
}
