package alerting

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "factorydash.xyz/alert-engine/pkg/errors"
	"factorydash.xyz/alert-engine/pkg/models"
)

func newNotification(profile models.Profile) *models.Notification {
	return &models.Notification{ID: "n-1", Profile: profile, Status: InitialStatus(profile)}
}

func TestTransition_Simple(t *testing.T) {
	n := newNotification(models.ProfileSimple)
	assert.Equal(t, models.StatusUnread, n.Status)

	require.NoError(t, Transition(n, ActionRead, wednesday10))
	assert.Equal(t, models.StatusRead, n.Status)
	require.NotNil(t, n.ReadAt)
	assert.Equal(t, wednesday10, *n.ReadAt)

	err := Transition(n, ActionRead, wednesday10.Add(time.Minute))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))

	require.NoError(t, Transition(n, ActionArchive, wednesday10.Add(time.Hour)))
	assert.Equal(t, models.StatusArchived, n.Status)
	assert.Equal(t, wednesday10, *n.ReadAt, "readAt keeps the first move")
}

func TestTransition_Extended(t *testing.T) {
	n := newNotification(models.ProfileExtended)
	assert.Equal(t, models.StatusNew, n.Status)

	assert.Error(t, Transition(n, ActionResolve, wednesday10), "resolve needs acknowledge first")
	assert.Error(t, Transition(n, ActionRead, wednesday10), "read is not an extended action")
	assert.Nil(t, n.ReadAt, "refused transitions leave the notification untouched")

	var seen []models.Status
	for _, action := range []Action{ActionAcknowledge, ActionResolve, ActionArchive} {
		require.NoError(t, Transition(n, action, wednesday10))
		seen = append(seen, n.Status)

		// each move is accepted exactly once
		if action != ActionArchive {
			assert.Error(t, Transition(n, action, wednesday10))
		}
	}
	assert.Equal(t, []models.Status{models.StatusAcknowledged, models.StatusResolved, models.StatusArchived}, seen)
}

func TestTransition_ArchivedIsTerminal(t *testing.T) {
	for _, profile := range []models.Profile{models.ProfileSimple, models.ProfileExtended} {
		n := newNotification(profile)
		require.NoError(t, Transition(n, ActionArchive, wednesday10))
		assert.NotNil(t, n.ReadAt, "archiving an unread notification stamps readAt")

		for _, action := range []Action{ActionRead, ActionAcknowledge, ActionResolve, ActionArchive} {
			err := Transition(n, action, wednesday10)
			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr), "%s on archived %s", action, profile)
			assert.Equal(t, apperrors.CodeInvalidTransition, appErr.Code)
		}
	}
}

func TestLifecycleProfiles_ProfileFor(t *testing.T) {
	var defaults LifecycleProfiles
	assert.Equal(t, models.ProfileExtended, defaults.ProfileFor(models.CategoryQuality, true))
	assert.Equal(t, models.ProfileSimple, defaults.ProfileFor(models.CategoryQuality, false))

	overridden := LifecycleProfiles{ByCategory: map[models.Category]models.Profile{
		models.CategorySafety:     models.ProfileExtended,
		models.CategoryAssignment: models.ProfileSimple,
	}}
	assert.Equal(t, models.ProfileExtended, overridden.ProfileFor(models.CategorySafety, false))
	assert.Equal(t, models.ProfileSimple, overridden.ProfileFor(models.CategoryAssignment, true))
}
