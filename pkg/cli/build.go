package cli

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/harrisonrobin/timebook/pkg/auth"
	"github.com/harrisonrobin/timebook/pkg/clockwork"
	"github.com/harrisonrobin/timebook/pkg/config"
	"github.com/harrisonrobin/timebook/pkg/google"
	"github.com/harrisonrobin/timebook/pkg/hamster"
	"github.com/harrisonrobin/timebook/pkg/harvest"
	"github.com/harrisonrobin/timebook/pkg/history"
	"github.com/harrisonrobin/timebook/pkg/orgmode"
	"github.com/harrisonrobin/timebook/pkg/session"
	"github.com/harrisonrobin/timebook/pkg/target"
	"github.com/harrisonrobin/timebook/pkg/timewarrior"
	"github.com/harrisonrobin/timebook/pkg/tracker"
	"github.com/harrisonrobin/timebook/pkg/vcs"
)

// Build wires a session from cfg.
func Build(ctx context.Context, cfg *config.Config, spentOn time.Time, fresh bool) (*session.Session, error) {
	s := &session.Session{
		SearchBack: cfg.SearchBack,
		Editor:     cfg.Editor,
		New:        fresh,
		SpentOn:    spentOn,
		File:       config.ExpandHome(cfg.SessionFile),
	}
	if s.File == "" {
		file, err := session.DefaultFile()
		if err != nil {
			return nil, err
		}
		s.File = file
	}

	var trackers []tracker.Tracker
	var jira *tracker.Jira
	var redmine *tracker.Redmine
	if cfg.Jira.Enabled() {
		jira = tracker.NewJira(cfg.Jira.URL, cfg.Jira.User, cfg.Jira.Password)
		if cfg.Jira.ContractsField != "" {
			jira.ContractsField = cfg.Jira.ContractsField
		}
		trackers = append(trackers, jira)
	}
	if cfg.Redmine.Enabled() {
		redmine = tracker.NewRedmine(cfg.Redmine.URL, cfg.Redmine.User, cfg.Redmine.Password)
		redmine.APIKey = cfg.Redmine.APIKey
		trackers = append(trackers, redmine)
	}
	if cfg.GitHub.Enabled() {
		trackers = append(trackers, tracker.NewGitHub(ctx, cfg.GitHub.Token, cfg.GitHub.Organization, cfg.GitHub.ProjectNum))
	}
	patterns := tracker.Patterns(trackers)

	source, err := buildSource(ctx, cfg, patterns)
	if err != nil {
		return nil, err
	}
	s.Source = source

	for _, v := range cfg.VCS {
		repos := make([]string, len(v.Repos))
		for i, repo := range v.Repos {
			repos[i] = config.ExpandHome(repo)
		}
		switch v.Type {
		case "git":
			s.VCS = append(s.VCS, vcs.NewGitLog(v.Executable, v.Author, repos, patterns, nil))
		case "svn":
			s.VCS = append(s.VCS, vcs.NewSvnLog(v.Executable, v.Author, repos, patterns, nil))
		}
	}

	historyPath := config.ExpandHome(cfg.HistoryFile)
	if historyPath == "" {
		if historyPath, err = history.DefaultPath(); err != nil {
			return nil, err
		}
	}
	store := history.NewFileStore(historyPath)

	resolver := tracker.NewResolver(trackers, nil)
	s.Titles = resolver
	guesser := &target.Guesser{
		ProjectMapping: config.Mappings(cfg.ProjectMapping),
		DefaultTask:    cfg.DefaultTask,
		History:        store,
	}
	for _, m := range cfg.TaskMapping {
		guesser.TaskRules = append(guesser.TaskRules, target.TaskRule{Keyword: m.From, Task: m.To})
	}
	s.Targeter = target.NewTargeter(resolver, guesser, nil)

	if redmine != nil {
		s.Activity = append(s.Activity, redmine)
		s.Backends = append(s.Backends, session.Backend{Name: "redmine", Booker: redmine})
	}
	if jira != nil {
		s.Backends = append(s.Backends, session.Backend{Name: "jira", Booker: jira})
	}
	if cfg.Harvest.Enabled() {
		h := harvest.NewClient(ctx, cfg.Harvest.URL, cfg.Harvest.AccountID, cfg.Harvest.Token)
		h.History = store
		s.Projects = h
		s.Activity = append(s.Activity, h)
		s.Backends = append(s.Backends, session.Backend{Name: "harvest", Booker: h})
	}
	return s, nil
}

func buildSource(ctx context.Context, cfg *config.Config, patterns []*regexp.Regexp) (session.Source, error) {
	switch cfg.Source {
	case "plaintext":
		return clockwork.NewLog(config.ExpandHome(cfg.Plaintext.LogPath), &clockwork.Parser{Patterns: patterns}), nil
	case "orgmode":
		if cfg.Orgmode.Filename == "" {
			return nil, fmt.Errorf("orgmode source needs orgmode.filename")
		}
		return orgmode.NewLog(config.ExpandHome(cfg.Orgmode.Filename)), nil
	case "hamster":
		path := config.ExpandHome(cfg.Hamster.Database)
		if path == "" {
			var err error
			if path, err = hamster.DefaultPath(); err != nil {
				return nil, err
			}
		}
		return hamster.NewLog(path, patterns), nil
	case "timewarrior":
		return timewarrior.NewLog(timewarrior.NewClient(cfg.Timewarrior.Executable), patterns), nil
	case "gcal":
		dir, err := auth.GetXdgHome()
		if err != nil {
			return nil, err
		}
		calendarLog, err := google.NewClient(ctx, dir, cfg.Gcal.Calendar, patterns)
		if err != nil {
			return nil, err
		}
		return calendarLog, nil
	}
	return nil, fmt.Errorf("unknown source %q", cfg.Source)
}
