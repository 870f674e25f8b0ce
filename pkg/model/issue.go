package model

// Issue is the normalized metadata a tracker returns for a ticket.
type Issue struct {
	Tracker   string // tracker or issue type, e.g. "Bug", "Support"
	Title     string
	Project   string // tracker side project identifier
	Contracts []string
}

// Project is a billing project.
type Project struct {
	ID   int64
	Code string
	Name string
}

// Task is a billing task a project accepts time for.
type Task struct {
	ID   int64
	Name string
}

// Activity is a selectable booking activity. Exactly one activity of a
// backend is usually flagged as default.
type Activity struct {
	ID        int64
	Name      string
	IsDefault bool
}

// DefaultActivity returns the first activity flagged as default, or the zero
// Activity if there is none.
func DefaultActivity(activities []Activity) Activity {
	for _, act := range activities {
		if act.IsDefault {
			return act
		}
	}
	return Activity{}
}
