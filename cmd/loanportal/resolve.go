package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"loanportal/internal/backend"
	"loanportal/internal/models"
	"loanportal/internal/resolver"
	"loanportal/internal/services"
)

var (
	resolveKind     string
	resolveID       int
	resolveTarget   string
	resolveToken    string
	resolveUser     string
	resolvePassword string
	resolveMFACode  string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the related records of one entity and print them as JSON",
	Long: `resolve runs the relationship resolver once against the backend and
prints the matches with the strategy that found them, for example:

  loanportal resolve --kind asset --id 7 --target loan --token $TOKEN`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveKind, "kind", "", "Source entity kind (account, contact, loan, asset, case)")
	resolveCmd.Flags().IntVar(&resolveID, "id", 0, "Source entity id")
	resolveCmd.Flags().StringVar(&resolveTarget, "target", "", "Kind of the related records to find")
	_ = resolveCmd.MarkFlagRequired("kind")
	_ = resolveCmd.MarkFlagRequired("id")
	_ = resolveCmd.MarkFlagRequired("target")
	resolveCmd.Flags().StringVar(&resolveToken, "token", os.Getenv("LOANPORTAL_TOKEN"), "Backend bearer token")
	resolveCmd.Flags().StringVar(&resolveUser, "username", "", "Log in with this user instead of --token")
	resolveCmd.Flags().StringVar(&resolvePassword, "password", os.Getenv("LOANPORTAL_PASSWORD"), "Password for --username")
	resolveCmd.Flags().StringVar(&resolveMFACode, "mfa-code", "", "One-time code when the user has MFA enabled")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	kind, err := models.ParseKind(resolveKind)
	if err != nil {
		return err
	}
	if resolveID <= 0 {
		return fmt.Errorf("invalid id %d", resolveID)
	}
	target, err := models.ParseKind(resolveTarget)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	client := backend.NewClient(cfg.Backend, logger, nil)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := principal(ctx, client)
	if err != nil {
		return err
	}
	res := resolver.New(client, resolver.ConfigFrom(cfg.Backend, cfg.Resolver), logger, nil)
	details := services.NewDetailService(client, res, logger)

	out, err := details.Related(ctx, p, kind, resolveID, target)
	if err != nil {
		if errors.Is(err, services.ErrReauthenticate) {
			return errors.New("the backend rejected the token")
		}
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func principal(ctx context.Context, client *backend.Client) (*models.Principal, error) {
	if resolveUser == "" {
		if strings.TrimSpace(resolveToken) == "" {
			return nil, errors.New("either --token or --username is required")
		}
		return &models.Principal{Token: strings.TrimSpace(resolveToken)}, nil
	}
	login, err := client.Login(ctx, resolveUser, resolvePassword)
	if err != nil {
		return nil, fmt.Errorf("login: %s", backend.Detail(err, err.Error()))
	}
	if !login.RequiresMFA {
		return login.Principal, nil
	}
	if resolveMFACode == "" {
		return nil, errors.New("this user has MFA enabled; pass --mfa-code")
	}
	p, err := client.VerifyMFA(ctx, login.Principal.Token, resolveMFACode)
	if err != nil {
		return nil, fmt.Errorf("mfa: %s", backend.Detail(err, err.Error()))
	}
	return p, nil
}
