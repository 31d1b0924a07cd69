package alerting

import (
	"time"

	apperrors "factorydash.xyz/alert-engine/pkg/errors"
	"factorydash.xyz/alert-engine/pkg/models"
)

type Action string

const (
	ActionRead        Action = "read"
	ActionAcknowledge Action = "acknowledge"
	ActionResolve     Action = "resolve"
	ActionArchive     Action = "archive"
)

// forward lists the non-archive moves of each profile. Archive is allowed from
// any state except archived itself.
var forward = map[models.Profile]map[models.Status]map[Action]models.Status{
	models.ProfileSimple: {
		models.StatusUnread: {ActionRead: models.StatusRead},
	},
	models.ProfileExtended: {
		models.StatusNew:          {ActionAcknowledge: models.StatusAcknowledged},
		models.StatusAcknowledged: {ActionResolve: models.StatusResolved},
	},
}

// LifecycleProfiles picks the lifecycle vocabulary for new notifications.
// ByCategory overrides the default choice (extended iff action is required).
type LifecycleProfiles struct {
	ByCategory map[models.Category]models.Profile
}

func (p LifecycleProfiles) ProfileFor(category models.Category, actionRequired bool) models.Profile {
	if profile, ok := p.ByCategory[category]; ok {
		return profile
	}
	if actionRequired {
		return models.ProfileExtended
	}
	return models.ProfileSimple
}

func InitialStatus(profile models.Profile) models.Status {
	if profile == models.ProfileExtended {
		return models.StatusNew
	}
	return models.StatusUnread
}

// Transition applies action to n in place. On error n is left untouched.
// ReadAt is stamped by the first move out of unread/new, archive included.
func Transition(n *models.Notification, action Action, at time.Time) error {
	if n.Status == models.StatusArchived {
		return apperrors.NewInvalidTransition(string(n.Status), string(action))
	}

	var next models.Status
	if action == ActionArchive {
		next = models.StatusArchived
	} else {
		to, ok := forward[n.Profile][n.Status][action]
		if !ok {
			return apperrors.NewInvalidTransition(string(n.Status), string(action))
		}
		next = to
	}

	if n.ReadAt == nil {
		readAt := at
		n.ReadAt = &readAt
	}
	n.Status = next
	return nil
}
