package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/touristsafety/internal/infrastructure/crypto"
	"github.com/turtacn/touristsafety/pkg/constants"
)

func newTokenCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage admin tokens",
	}

	var (
		subject string
		role    string
		ttl     time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue an admin JWT signed with auth.jwt_secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			tokens, err := crypto.NewJWTManager(cfg.Auth)
			if err != nil {
				return err
			}
			token, err := tokens.Issue(subject, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(opts.out, token)
			return nil
		},
	}
	issue.Flags().StringVar(&subject, "subject", "", "token subject, e.g. an operator e-mail")
	issue.Flags().StringVar(&role, "role", constants.AdminRole, "role claim")
	issue.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default auth.token_ttl)")
	_ = issue.MarkFlagRequired("subject")

	cmd.AddCommand(issue)
	return cmd
}

func newVersionCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(opts.out, "safety-admin %s (service %s, model %s)\n", Version, constants.ServiceVersion, constants.ModelVersion)
		},
	}
}
