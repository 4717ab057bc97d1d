package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/touristsafety/internal/bootstrap"
)

func newTripCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trip",
		Short: "Register, inspect and delete trips",
	}

	var (
		data  string
		hours int
	)
	register := &cobra.Command{
		Use:   "register",
		Short: "Register a trip and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dec := json.NewDecoder(strings.NewReader(data))
			dec.UseNumber()
			var tripData map[string]interface{}
			if err := dec.Decode(&tripData); err != nil {
				return fmt.Errorf("--data must be a JSON object: %w", err)
			}
			if hours < 0 {
				return fmt.Errorf("--hours must not be negative")
			}
			return opts.withComponents(cmd.Context(), bootstrap.Options{}, func(c *bootstrap.Components) error {
				reg, err := c.Trips.Register(cmd.Context(), tripData, time.Duration(hours)*time.Hour)
				if err != nil {
					return err
				}
				return opts.printJSON(reg)
			})
		},
	}
	register.Flags().StringVar(&data, "data", "", "trip data as a JSON object")
	register.Flags().IntVar(&hours, "hours", 0, "validity in hours (default trips.default_duration)")
	_ = register.MarkFlagRequired("data")

	status := &cobra.Command{
		Use:   "status TRIP_ID",
		Short: "Show whether a trip is active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withComponents(cmd.Context(), bootstrap.Options{}, func(c *bootstrap.Components) error {
				state, err := c.Trips.Status(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return opts.printJSON(state)
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete TRIP_ID",
		Short: "Delete a trip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withComponents(cmd.Context(), bootstrap.Options{}, func(c *bootstrap.Components) error {
				res, err := c.Trips.Delete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return opts.printJSON(res)
			})
		},
	}

	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete every expired trip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withComponents(cmd.Context(), bootstrap.Options{}, func(c *bootstrap.Components) error {
				res, err := c.Trips.CleanupExpired(cmd.Context())
				if err != nil {
					return err
				}
				return opts.printJSON(res)
			})
		},
	}

	cmd.AddCommand(register, status, del, cleanup)
	return cmd
}
