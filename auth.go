package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/castwork/slidecast/internal/config"
	"github.com/castwork/slidecast/internal/graph"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate with Microsoft using the device code flow",
		RunE:  runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved authentication token",
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the authenticated user",
		RunE:  runWhoami,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	flow := graph.NewDeviceFlow(resolvedCfg.ClientID, resolvedCfg.TenantID, logger)

	prompt, err := flow.Initiate(ctx)
	if err != nil {
		return err
	}

	// The sign-in prompt must always be visible — not suppressed by --quiet
	// or redirection.
	fmt.Fprintln(os.Stderr, prompt.Message())

	if _, err := flow.Complete(ctx); err != nil {
		return err
	}

	if err := flow.Save(config.TokenPath()); err != nil {
		return err
	}

	statusf("Login successful.\n")

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	if err := graph.Logout(config.TokenPath(), logger); err != nil {
		return err
	}

	statusf("Logged out.\n")

	return nil
}

// savedTokenSource loads the saved token for API commands, translating the
// not-logged-in case into an actionable message.
func savedTokenSource(ctx context.Context) (graph.TokenSource, error) {
	logger := buildLogger()

	ts, err := graph.TokenSourceFromPath(ctx, config.TokenPath(), resolvedCfg.ClientID, resolvedCfg.TenantID, logger)
	if err != nil {
		if errors.Is(err, graph.ErrNotLoggedIn) {
			return nil, fmt.Errorf("not logged in — run 'slidecast login' first")
		}

		return nil, err
	}

	return ts, nil
}

// whoamiOutput is the JSON schema for `whoami --json`.
type whoamiOutput struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	ts, err := savedTokenSource(ctx)
	if err != nil {
		return err
	}

	client := graph.NewClient(graph.DefaultBaseURL, defaultHTTPClient(), ts, buildLogger())

	user, err := client.Me(ctx)
	if err != nil {
		return fmt.Errorf("fetching user profile: %w", err)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if err := enc.Encode(whoamiOutput{
			ID:          user.ID,
			DisplayName: user.DisplayName,
			Email:       user.Email,
		}); err != nil {
			return fmt.Errorf("encoding JSON output: %w", err)
		}

		return nil
	}

	fmt.Printf("User:  %s (%s)\n", user.DisplayName, user.Email)
	fmt.Printf("ID:    %s\n", user.ID)

	return nil
}
