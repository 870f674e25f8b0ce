package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/timebook/pkg/config"
	"github.com/harrisonrobin/timebook/pkg/model"
	"github.com/harrisonrobin/timebook/pkg/session"
	"github.com/harrisonrobin/timebook/pkg/util"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the session bookings and their total",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openSession(cmd)
		if err != nil {
			return err
		}
		return printSummary(cmd, s)
	},
}

var totalCmd = &cobra.Command{
	Use:   "total",
	Short: "Print the raw tracked time of the day",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openSession(cmd)
		if err != nil {
			return err
		}
		total, err := s.Total(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), util.FormatSpentTime(total))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:       "list [show|save] [file]",
	Short:     "Print the bookings through the list template or save them to a file",
	Args:      cobra.MaximumNArgs(2),
	ValidArgs: []string{"show", "save"},
	RunE:      runList,
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Review and correct the bookings in the editor",
	Args:  cobra.NoArgs,
	RunE:  runEdit,
}

var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Book the session to all configured backends",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openSession(cmd)
		if err != nil {
			return err
		}
		return book(cmd, s)
	},
}

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Summarize, book, save the list and close the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, err := openSession(cmd)
		if err != nil {
			return err
		}
		if err := printSummary(cmd, s); err != nil {
			return err
		}
		bookings, err := s.Bookings(cmd.Context())
		if err != nil {
			return err
		}
		if !warnIncomplete(cmd, bookings) {
			return errors.New("refusing to flush incomplete entries, fix them with edit")
		}
		if err := book(cmd, s); err != nil {
			return err
		}
		if cfg.ListFile != "" {
			if err := saveList(cmd, s, cfg, config.ExpandHome(cfg.ListFile)); err != nil {
				return err
			}
		}
		return s.Close()
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openSession(cmd)
		if err != nil {
			return err
		}
		return s.Close()
	},
}

func runEdit(cmd *cobra.Command, args []string) error {
	s, _, err := openSession(cmd)
	if err != nil {
		return err
	}
	bookings, err := s.Edit(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderBookings(bookings))
	warnIncomplete(cmd, bookings)
	return nil
}

func printSummary(cmd *cobra.Command, s *session.Session) error {
	bookings, err := s.Bookings(cmd.Context())
	if err != nil {
		return err
	}
	summary, err := s.Summary(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderBookings(bookings))
	fmt.Fprintln(cmd.OutOrStdout(), summary)
	return nil
}

func book(cmd *cobra.Command, s *session.Session) error {
	bookings, err := s.Bookings(cmd.Context())
	if err != nil {
		return err
	}
	if len(s.Backends) == 0 {
		return errors.New("no booking backend configured")
	}
	if err := s.Book(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("Booked %d entries for %s", len(bookings), s.SpentOn.Format("2006-01-02"))))
	return nil
}

// warnIncomplete reports bookings without an issue or comment and returns
// whether there were none.
func warnIncomplete(cmd *cobra.Command, bookings []model.Booking) bool {
	incomplete := session.CheckIssueAndComment(bookings)
	if len(incomplete) == 0 {
		return true
	}
	fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("Warning: No issue id and/or comments for the following entries:"))
	fmt.Fprintln(cmd.ErrOrStderr(), renderBookings(incomplete))
	return false
}

func runList(cmd *cobra.Command, args []string) error {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}
	var filename string
	if len(args) > 1 {
		filename = args[1]
	}
	switch sub {
	case "show":
		if filename != "" {
			return fmt.Errorf("subcommand '%s' takes no arguments", sub)
		}
	case "save":
	default:
		return fmt.Errorf("unknown subcommand %s", sub)
	}

	s, cfg, err := openSession(cmd)
	if err != nil {
		return err
	}
	if sub == "show" {
		tmpl, err := listTemplate(cfg)
		if err != nil {
			return err
		}
		return s.List(cmd.Context(), cmd.OutOrStdout(), tmpl)
	}
	if filename == "" {
		filename = cfg.ListFile
	}
	if filename == "" {
		return errors.New("file name is required")
	}
	return saveList(cmd, s, cfg, config.ExpandHome(filename))
}

func saveList(cmd *cobra.Command, s *session.Session, cfg *config.Config, filename string) error {
	tmpl, err := listTemplate(cfg)
	if err != nil {
		return err
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", filename, err)
	}
	if err := s.List(cmd.Context(), f, tmpl); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Printed to %s\n", filename)
	return nil
}

func listTemplate(cfg *config.Config) (*session.ListTemplate, error) {
	if cfg.ListTemplateFile != "" {
		return session.LoadListTemplate(config.ExpandHome(cfg.ListTemplateFile))
	}
	text := cfg.ListItemTemplate
	if text == "" {
		text = session.DefaultListItemTemplate
	}
	return session.NewItemTemplate(text)
}
