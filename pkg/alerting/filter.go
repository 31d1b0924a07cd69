package alerting

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"factorydash.xyz/alert-engine/pkg/models"
)

const (
	ReasonChannelDisabled   = "channel_disabled"
	ReasonChannelOptedOut   = "channel_opted_out"
	ReasonCategoryOptedOut  = "category_opted_out"
	ReasonPriorityOptedOut  = "priority_opted_out"
	ReasonOutsideSchedule   = "outside_schedule"
	ReasonNoContact         = "no_contact"
	ReasonUnknownChannel    = "unknown_channel"
	ReasonDispatcherStopped = "dispatcher_stopped"
)

type Decision struct {
	Deliver bool   `json:"deliver"`
	Reason  string `json:"reason,omitempty"`
}

// Workday is the [Start, End) span of a working day as offsets from midnight.
type Workday struct {
	Start time.Duration
	End   time.Duration
}

var DefaultWorkday = Workday{Start: 8 * time.Hour, End: 18 * time.Hour}

// ParseWorkday reads "HH:MM" bounds.
func ParseWorkday(start, end string) (Workday, error) {
	s, err := parseClock(start)
	if err != nil {
		return Workday{}, fmt.Errorf("workday start: %w", err)
	}
	e, err := parseClock(end)
	if err != nil {
		return Workday{}, fmt.Errorf("workday end: %w", err)
	}
	if e <= s {
		return Workday{}, fmt.Errorf("workday end %s must be after start %s", end, start)
	}
	return Workday{Start: s, End: e}, nil
}

func parseClock(v string) (time.Duration, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(v), ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock %q, want HH:MM", v)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid hour in %q", v)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid minute in %q", v)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// PreferenceFilter decides per (notification, channel) whether a recipient
// should be contacted at a given instant.
type PreferenceFilter struct {
	Workday Workday

	mu        sync.Mutex
	locations map[string]*time.Location
}

func NewPreferenceFilter(workday Workday) *PreferenceFilter {
	return &PreferenceFilter{Workday: workday, locations: make(map[string]*time.Location)}
}

func (f *PreferenceFilter) location(name string) *time.Location {
	if name == "" || name == "UTC" {
		return time.UTC
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if loc, ok := f.locations[name]; ok {
		return loc
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc = time.UTC
	}
	f.locations[name] = loc
	return loc
}

// Bypasses reports whether n skips the schedule gate.
func Bypasses(n *models.Notification) bool {
	return n.Priority == models.LevelCritical && n.Category == models.CategoryEmergency
}

func (f *PreferenceFilter) ShouldDeliver(n *models.Notification, prefs models.RecipientPreferences, channel models.Channel, at time.Time) Decision {
	if !channel.Enabled {
		return Decision{Reason: ReasonChannelDisabled}
	}
	if !slices.Contains(prefs.EnabledChannels, channel.ID) && !slices.Contains(prefs.EnabledChannels, string(channel.Type)) {
		return Decision{Reason: ReasonChannelOptedOut}
	}
	if !slices.Contains(prefs.EnabledCategories, n.Category) {
		return Decision{Reason: ReasonCategoryOptedOut}
	}
	if !slices.Contains(prefs.EnabledPriorities, n.Priority) {
		return Decision{Reason: ReasonPriorityOptedOut}
	}
	if !Bypasses(n) && !f.InSchedule(prefs, at) {
		return Decision{Reason: ReasonOutsideSchedule}
	}
	return Decision{Deliver: true}
}

// InSchedule checks at, in the recipient's timezone, against the enabled windows.
func (f *PreferenceFilter) InSchedule(prefs models.RecipientPreferences, at time.Time) bool {
	local := at.In(f.location(prefs.Timezone))
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return prefs.ScheduleWindows.Weekends
	}
	workday := f.Workday
	if workday.End <= workday.Start {
		workday = DefaultWorkday
	}
	sinceMidnight := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second
	if sinceMidnight >= workday.Start && sinceMidnight < workday.End {
		return prefs.ScheduleWindows.WorkHours
	}
	return prefs.ScheduleWindows.AfterHours
}
