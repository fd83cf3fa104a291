package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/famwealth/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errNotLoggedIn = errors.New("not logged in, run `famwealth login` first")

// Login authenticates with email, prompting for it when empty, and a
// password read without echo. The password is wiped before returning.
func (a *App) Login(ctx context.Context, email string) error {
	var err error
	if email == "" {
		if email, err = getSimpleText(a.reader, "Enter email", a.out); err != nil {
			return err
		}
	}

	password, err := getPassword("Password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.sessions.Login(ctx, email, string(password)); err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			return fmt.Errorf("login rejected: %w", err)
		}
		return fmt.Errorf("login failed: %w", err)
	}

	p, _ := a.sessions.CurrentPrincipal()
	fmt.Fprintln(a.out, okStyle.Render("Logged in as "+p.Email))
	return nil
}

// Logout ends the session locally and, best effort, on the server.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	}
	if err := a.sessions.Logout(ctx); err != nil {
		fmt.Fprintln(a.out, warnStyle.Render("Warning: the stored session could not be removed and will be restored on the next start. Run `famwealth logout` again."))
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

// ChangePassword prompts for the current and new password and submits them.
func (a *App) ChangePassword(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}

	current, err := getPassword("Current password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(current)

	next, err := getPassword("New password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(next)

	if strings.TrimSpace(string(next)) == "" {
		return errors.New("new password must not be empty")
	}

	if err := a.api.ChangePassword(ctx, string(current), string(next)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, okStyle.Render("Password changed."))
	return nil
}
