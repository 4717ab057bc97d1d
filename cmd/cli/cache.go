package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/touristsafety/internal/bootstrap"
)

func newCacheCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the crime and weather report caches",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Drop cached provider reports, including the shared Redis tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withComponents(cmd.Context(), bootstrap.Options{SkipChain: true}, func(c *bootstrap.Components) error {
				removed, err := c.PurgeReportCaches(cmd.Context())
				if err != nil {
					return err
				}
				return opts.printJSON(map[string]interface{}{"status": "purged", "removed": removed})
			})
		},
	})
	return cmd
}
