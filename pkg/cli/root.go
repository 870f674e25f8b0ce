// Package cli implements the timebook command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/timebook/pkg/config"
	"github.com/harrisonrobin/timebook/pkg/session"
	"github.com/harrisonrobin/timebook/pkg/util"
)

var (
	dateArg    string
	configPath string
	newSession bool
	rootCmd    *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "timebook",
		Short: "Reconcile tracked time and book it",
		Long: `timebook reads the time you tracked for a day, attributes every entry to
a ticket and a billing project, lets you review the result in an editor and
books it to Harvest, Redmine and Jira.

Without a subcommand the bookings are opened in the editor.`,
		RunE:          runEdit,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&dateArg, "date", "d", "", "day to book: today, an offset like -1, YYYYMMDD or YYYY-MM-DD")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (default $XDG_CONFIG_HOME/timebook/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&newSession, "new-session", "n", false, "discard an existing session and fetch the bookings again")
}

// Execute runs the root command.
func Execute(version string) error {
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(totalCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(bookCmd)
	rootCmd.AddCommand(flushCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(authCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		return err
	}
	return nil
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ResolveSecrets(ctx); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSession loads the configuration and wires the session for the
// requested day.
func openSession(cmd *cobra.Command) (*session.Session, *config.Config, error) {
	ctx := cmd.Context()
	spentOn, err := util.ParseSpentOn(dateArg, time.Now())
	if err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	s, err := Build(ctx, cfg, spentOn, newSession)
	if err != nil {
		return nil, nil, err
	}
	return s, cfg, nil
}
