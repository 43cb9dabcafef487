package ordering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kg(v float64) *float64 { return &v }

func TestValidateAttemptWeight(t *testing.T) {
	tests := []struct {
		name     string
		weight   float64
		previous *float64
		attempt  int
		wantCode ValidationCode
	}{
		{"opener below minimum", 19, nil, 1, ErrCodeBelowMinimum},
		{"opener at minimum", 20, nil, 1, ""},
		{"increment too small", 101, kg(100), 2, ErrCodeIncrementTooSmall},
		{"minimum increment", 102.5, kg(100), 2, ""},
		{"repeat attempt", 100, kg(100), 2, ""},
		{"decrease", 95, kg(100), 2, ErrCodeDecrease},
		{"large jump", 110, kg(100), 3, ""},
		{"missing previous", 110, nil, 2, ErrCodeMissingPrevious},
		{"missing previous third", 110, nil, 3, ErrCodeMissingPrevious},
		{"attempt zero", 100, nil, 0, ErrCodeInvalidAttempt},
		{"attempt four", 100, kg(90), 4, ErrCodeInvalidAttempt},
		{"fractional increment", 102.75, kg(100.25), 2, ""},
		{"just under increment", 102.74, kg(100.25), 2, ErrCodeIncrementTooSmall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAttemptWeight(tt.weight, tt.previous, tt.attempt)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, CodeOf(err))
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestValidateAttemptWeight_ReasonMentionsMinimum(t *testing.T) {
	err := ValidateAttemptWeight(19, nil, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minimum opening attempt")
}

func TestCanChangeAttempt(t *testing.T) {
	order := make([]Entry, 8)
	for i := range order {
		order[i] = Entry{AthleteID: string(rune('a' + i))}
	}

	tests := []struct {
		athlete  string
		current  int
		wantCode ValidationCode
	}{
		{"a", 0, ErrCodeTooClose},
		{"b", 0, ErrCodeTooClose},
		{"d", 0, ErrCodeTooClose},
		{"e", 0, ""},
		{"h", 0, ""},
		{"f", 2, ErrCodeTooClose},
		{"g", 2, ""},
		{"a", 2, ErrCodeTooClose},
		{"zz", 0, ErrCodeNotInOrder},
	}

	for _, tt := range tests {
		err := CanChangeAttempt(tt.athlete, order, tt.current)
		if tt.wantCode == "" {
			assert.NoError(t, err, "athlete=%s current=%d", tt.athlete, tt.current)
			continue
		}
		assert.Equal(t, tt.wantCode, CodeOf(err), "athlete=%s current=%d", tt.athlete, tt.current)
	}
}

func TestCodeOf_NonValidationError(t *testing.T) {
	assert.Equal(t, ValidationCode(""), CodeOf(assert.AnError))
	assert.False(t, IsValidationError(nil))
}
