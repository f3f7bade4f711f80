package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ngenohkevin/libcatalog/internal/config"
	"github.com/ngenohkevin/libcatalog/internal/models"
)

const (
	sessionKeyFile   = "session.key"
	sessionTokenFile = "session.token"
)

var errNotLoggedIn = errors.New("not logged in")

// loadSessionSecret prefers auth.session_secret and otherwise reads, or
// creates, the key file in the data directory.
func loadSessionSecret(cfg *config.Config) ([]byte, error) {
	if cfg.Auth.SessionSecret != "" {
		return []byte(cfg.Auth.SessionSecret), nil
	}

	path := filepath.Join(cfg.Storage.DataDir, sessionKeyFile)
	data, err := os.ReadFile(path)
	if err == nil && len(strings.TrimSpace(string(data))) > 0 {
		return []byte(strings.TrimSpace(string(data))), nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read session key: %w", err)
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}
	encoded := hex.EncodeToString(key)
	if err := os.WriteFile(path, []byte(encoded+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write session key: %w", err)
	}
	return []byte(encoded), nil
}

func (a *app) tokenPath() string {
	return filepath.Join(a.cfg.Storage.DataDir, sessionTokenFile)
}

// sessionUser returns the user id of a valid saved session.
func (a *app) sessionUser() (string, error) {
	data, err := os.ReadFile(a.tokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return "", errNotLoggedIn
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session: %w", err)
	}
	claims, err := a.sessions.Validate(strings.TrimSpace(string(data)))
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// userOrSession resolves the --user flag, falling back to the logged-in user.
func (a *app) userOrSession(flagValue string) (string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return strings.TrimSpace(flagValue), nil
	}
	userID, err := a.sessionUser()
	if errors.Is(err, errNotLoggedIn) {
		return "", models.NewValidationError("user", models.RuleRequired, "--user is required when nobody is logged in")
	}
	return userID, err
}

// promptPassword masks input on a terminal and reads one line otherwise.
func (a *app) promptPassword(prompt string) (string, error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.errOut, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.errOut)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && line == "" {
		return "", models.NewValidationError("password", models.RuleRequired, "password is required")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// passwordFrom uses the flag when given and prompts otherwise.
func (a *app) passwordFrom(flagValue, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return a.password(prompt)
}

func newLoginCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <user-id>",
		Short: "Authenticate and start a session",
		Args:  exactArgs(1, "user-id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := a.passwordFrom(password, "Password: ")
			if err != nil {
				return err
			}
			account, err := a.members.Login(cmd.Context(), models.LoginRequest{UserID: args[0], Password: pw})
			if err != nil {
				return err
			}

			token, expires, err := a.sessions.Issue(account.UserID)
			if err != nil {
				return err
			}
			if err := os.WriteFile(a.tokenPath(), []byte(token+"\n"), 0o600); err != nil {
				return fmt.Errorf("failed to save session: %w", err)
			}

			return a.print(map[string]any{"user_id": account.UserID, "expires_at": expires}, func() {
				fmt.Fprintf(a.out, "Logged in as %s until %s\n", account.Name, expires.Format("2006-01-02 15:04"))
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := os.Remove(a.tokenPath())
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to remove session: %w", err)
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in member",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.sessionUser()
			if err != nil {
				return err
			}
			account, err := a.members.GetAccount(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return a.print(account, func() {
				fmt.Fprintf(a.out, "%s (%s)\n", account.UserID, account.Name)
			})
		},
	}
}
