package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type routeBody struct {
	Input    string   `json:"input" validate:"required"`
	Models   []string `json:"models" validate:"required,dive,required"`
	K        int      `json:"k" validate:"gte=0"`
	Strategy string   `json:"strategy" validate:"omitempty,oneof=cascade nn modelmap"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		body      routeBody
		wantField string
	}{
		{
			name: "valid body",
			body: routeBody{Input: "hi", Models: []string{"a"}, Strategy: "nn"},
		},
		{
			name:      "missing input",
			body:      routeBody{Models: []string{"a"}},
			wantField: "input",
		},
		{
			name:      "empty model key",
			body:      routeBody{Input: "hi", Models: []string{""}},
			wantField: "models[0]",
		},
		{
			name:      "negative k",
			body:      routeBody{Input: "hi", Models: []string{"a"}, K: -1},
			wantField: "k",
		},
		{
			name:      "unknown strategy",
			body:      routeBody{Input: "hi", Models: []string{"a"}, Strategy: "random"},
			wantField: "strategy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.body)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsValidationError(err))
			assert.Contains(t, GetValidationFields(err), tt.wantField)
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Message: "Validation failed", Fields: map[string]string{"input": "input is required"}}
	assert.Equal(t, "Validation failed: input is required", err.Error())

	assert.Equal(t, "Validation failed", (&ValidationError{Message: "Validation failed"}).Error())
}

func TestGetValidationFields_NonValidationError(t *testing.T) {
	assert.Nil(t, GetValidationFields(assert.AnError))
	assert.False(t, IsValidationError(assert.AnError))
}

func TestValidateOneOf(t *testing.T) {
	assert.NoError(t, ValidateOneOf("nn", "strategy", []string{"cascade", "nn"}))
	assert.Error(t, ValidateOneOf("x", "strategy", []string{"cascade", "nn"}))
}
