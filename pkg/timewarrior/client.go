// Package timewarrior reads tracked intervals from Timewarrior.
package timewarrior

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"time"
)

type Client struct {
	// Command is the timew binary. Defaults to "timew" on the PATH.
	Command string
}

func NewClient(command string) *Client {
	if command == "" {
		command = "timew"
	}
	return &Client{Command: command}
}

// Intervals exports the intervals overlapping [from, to).
func (c *Client) Intervals(ctx context.Context, from, to time.Time) ([]Interval, error) {
	const layout = "2006-01-02T15:04:05"
	cmd := exec.CommandContext(ctx, c.Command, "export", "from", from.Format(layout), "to", to.Format(layout))

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("timewarrior command failed: exit code %d, %s, stderr: %s",
				exitErr.ExitCode(), err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("timewarrior command failed: %w", err)
	}

	var intervals []Interval
	if err := json.Unmarshal(output, &intervals); err != nil {
		return nil, fmt.Errorf("failed to unmarshal timewarrior output: %w", err)
	}
	return intervals, nil
}

// ParseIntervals parses an export document from r.
func ParseIntervals(r io.Reader) ([]Interval, error) {
	var intervals []Interval
	if err := json.NewDecoder(r).Decode(&intervals); err != nil {
		return nil, fmt.Errorf("failed to decode interval json: %w", err)
	}
	return intervals, nil
}
