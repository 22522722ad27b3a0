package commands

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/edgehub/edgehub/internal/config"
	"github.com/edgehub/edgehub/internal/httpapi"
)

// loginCmd authenticates against the hub and stores the session token.
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with the hub and store a session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(cmd)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Password for %s: ", client.baseURL)
		pw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		var resp httpapi.LoginResponse
		if err := client.do("POST", "/login", httpapi.LoginRequest{Password: string(pw)}, &resp); err != nil {
			return err
		}

		client.cfg.ServerURL = client.baseURL
		ttl := time.Until(resp.ExpiresAt)
		if err := client.cfg.SetSession(resp.Token, ttl); err != nil {
			return err
		}

		fmt.Printf("Logged in to %s (session valid until %s)\n",
			client.baseURL, resp.ExpiresAt.Local().Format(time.RFC822))
		return nil
	},
}

// logoutCmd revokes the stored session.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the stored session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(cmd)
		if err != nil {
			return err
		}

		// Best effort: the local token is cleared even if the server is
		// unreachable.
		if client.token != "" {
			client.do("POST", "/logout", nil, nil)
		}

		cfg, err := config.LoadCLI()
		if err != nil {
			return err
		}
		if err := cfg.ClearSession(); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}
