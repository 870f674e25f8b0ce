package session

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cbroglie/mustache"

	"github.com/harrisonrobin/timebook/pkg/model"
	"github.com/harrisonrobin/timebook/pkg/util"
)

// DefaultListItemTemplate renders one line per booking.
const DefaultListItemTemplate = "- {{{comments}}}\n"

// ListTemplate is a mustache template for the booking list. A list
// template is rendered once with {"bookings": [...]}; an item template is
// rendered once per booking.
type ListTemplate struct {
	tmpl *mustache.Template
	list bool
}

// NewItemTemplate compiles a per-booking template.
func NewItemTemplate(text string) (*ListTemplate, error) {
	tmpl, err := mustache.ParseString(text)
	if err != nil {
		return nil, fmt.Errorf("invalid list item template: %w", err)
	}
	return &ListTemplate{tmpl: tmpl}, nil
}

// LoadListTemplate compiles the whole-list template in path.
func LoadListTemplate(path string) (*ListTemplate, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read list template: %w", err)
	}
	tmpl, err := mustache.ParseString(string(b))
	if err != nil {
		return nil, fmt.Errorf("invalid list template %s: %w", path, err)
	}
	return &ListTemplate{tmpl: tmpl, list: true}, nil
}

// List renders the bookings with tmpl, DefaultListItemTemplate if nil.
func (s *Session) List(ctx context.Context, w io.Writer, tmpl *ListTemplate) error {
	bookings, err := s.Bookings(ctx)
	if err != nil {
		return err
	}
	if tmpl == nil {
		if tmpl, err = NewItemTemplate(DefaultListItemTemplate); err != nil {
			return err
		}
	}

	if tmpl.list {
		entries := make([]map[string]any, len(bookings))
		for i, b := range bookings {
			entries[i] = listEntry(b)
		}
		if err := tmpl.tmpl.FRender(w, map[string]any{"bookings": entries}); err != nil {
			return fmt.Errorf("error when using list template: %w", err)
		}
		return nil
	}
	for _, b := range bookings {
		if err := tmpl.tmpl.FRender(w, listEntry(b)); err != nil {
			return fmt.Errorf("error when using list item template: %w", err)
		}
	}
	return nil
}

// listEntry exposes a booking to templates under snake_case keys.
func listEntry(b model.Booking) map[string]any {
	return map[string]any{
		"issue_id":    b.IssueID,
		"issue_title": b.IssueTitle,
		"spent_on":    b.SpentOn.Format("2006-01-02"),
		"time":        b.Time,
		"spent_time":  util.FormatSpentTime(b.Time),
		"description": b.Description,
		"activity":    b.Activity,
		"comments":    b.Comments,
		"category":    b.Category,
		"tags":        b.Tags,
		"project":     b.Project,
	}
}
