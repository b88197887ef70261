package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type windowInput struct {
	DayOfWeek *int    `json:"day_of_week" validate:"required,gte=0,lte=6"`
	StartTime string  `json:"start_time" validate:"required,timeofday"`
	BreakEnd  *string `json:"break_end" validate:"omitempty,timeofday"`
}

func TestValidate_TimeOfDay(t *testing.T) {
	v := NewValidator()
	day := 1

	assert.NoError(t, v.Validate(windowInput{DayOfWeek: &day, StartTime: "09:00"}))

	bad := "24:00"
	err := v.Validate(windowInput{DayOfWeek: &day, StartTime: "9:00", BreakEnd: &bad})
	require.Error(t, err)

	msgs := v.FormatValidationErrors(err)
	assert.Equal(t, "StartTime must be a time of day in HH:MM format", msgs["StartTime"])
	assert.Equal(t, "BreakEnd must be a time of day in HH:MM format", msgs["BreakEnd"])
}

func TestValidate_Required(t *testing.T) {
	v := NewValidator()

	err := v.Validate(windowInput{StartTime: "09:00"})
	require.Error(t, err)
	assert.Equal(t, "DayOfWeek is required", v.FormatValidationErrors(err)["DayOfWeek"])
}
