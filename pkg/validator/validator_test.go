package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type channelRecord struct {
	ID      string   `json:"id" validate:"required"`
	Type    string   `json:"type" validate:"required,oneof=email sms push desktop"`
	Targets []string `json:"targets" validate:"dive,required"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(channelRecord{ID: "ops-email", Type: "email"}))

	err := ValidateStruct(channelRecord{Type: "fax", Targets: []string{"a", ""}})
	require.Error(t, err)

	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"id", "targets[1]", "type"}, ve.Fields())
	assert.Contains(t, ve.Error(), "type failed on oneof=email sms push desktop")
}
