package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/greenthumb-app/greenthumb/pkg/careguide"
	"github.com/greenthumb-app/greenthumb/pkg/kvstore"
)

// ============================================================================
// remind
// ============================================================================

func (a *app) remindCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Print watering and fertilizing reminders for every plant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := kvstore.Open(ctx, &a.cfg.Storage, a.logger)
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() {
				if err := store.Close(); err != nil {
					a.logger.Error("Failed to close storage", zap.Error(err))
				}
			}()

			garden, err := a.gardenService(store)
			if err != nil {
				return err
			}
			all, err := garden.AllReminders(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, all)
			}
			if len(all) == 0 {
				_, err := fmt.Fprintln(out, "No plants in the garden.")
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PLANT\tACTION\tREMINDER")
			for _, plant := range all {
				for _, r := range plant.Reminders {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", plant.PlantName, r.Action, r.Text)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print reminders as JSON")
	return cmd
}

// ============================================================================
// parse-guide
// ============================================================================

// parseGuideCmd parses a heading-convention guide offline. It needs no
// configuration.
func parseGuideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse-guide [file]",
		Short: "Parse a free-text care guide into summary and instructions",
		Long: `Reads a care guide written with "### Topic:" headings from file, or from
stdin when no file is given, and prints the parsed guide as JSON.`,
		Args:              cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				text []byte
				err  error
			)
			if len(args) == 1 && args[0] != "-" {
				text, err = os.ReadFile(args[0])
			} else {
				text, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read guide: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), careguide.Parse(string(text)))
		},
	}
}

// ============================================================================
// config
// ============================================================================

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML (secrets omitted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(a.cfg); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return enc.Close()
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
