package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"podwatch/internal/ipc"
	"podwatch/internal/session"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the backend and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			email = strings.TrimSpace(email)
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")
				reader := bufio.NewReader(cmd.InOrStdin())
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("password is required")
			}

			client, err := session.NewClient(cfg)
			if err != nil {
				return err
			}
			sess, err := client.Login(cmd.Context(), email, password)
			if errors.Is(err, session.ErrInvalidCredentials) {
				return errors.New("login rejected: check email and password")
			}
			if err != nil {
				return err
			}

			if err := installSession(ctx, cfg.SessionDBPath(), sess); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", sess.Email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (prompted when omitted)")
	return cmd
}

// installSession hands the fresh session to a running watcher over IPC, or
// persists it directly when no watcher is up. The watcher reads the database
// on its next start.
func installSession(ctx *commandContext, dbPath string, sess session.Session) error {
	err := ctx.withClient(func(client *ipc.Client) error {
		_, err := client.SignIn(sess.Email, sess.Token, sess.DeviceID)
		return err
	})
	if err == nil {
		return nil
	}

	store, openErr := session.OpenStore(dbPath)
	if openErr != nil {
		return fmt.Errorf("store session: %w", openErr)
	}
	defer store.Close()
	if saveErr := store.Save(context.Background(), sess); saveErr != nil {
		return fmt.Errorf("store session: %w", saveErr)
	}
	return nil
}
