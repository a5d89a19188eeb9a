package errors

import (
	"strings"
	"testing"
)

func TestValidateSeedCount(t *testing.T) {
	tests := []struct {
		n       int
		wantErr bool
	}{
		{2, true},
		{3, false},
		{4, false},
		{5, true},
		{0, true},
	}

	for _, tt := range tests {
		err := ValidateSeedCount(tt.n)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateSeedCount(%d) error = %v, wantErr %v", tt.n, err, tt.wantErr)
		}
		if err != nil && !Is(err, ErrCodeInvalidConfiguration) {
			t.Errorf("ValidateSeedCount(%d) code = %v, want %v", tt.n, GetCode(err), ErrCodeInvalidConfiguration)
		}
	}
}

func TestValidateMaxDepth(t *testing.T) {
	tests := []struct {
		name    string
		depth   int
		limit   int
		wantErr bool
	}{
		{"zero", 0, 15, true},
		{"negative", -3, 15, true},
		{"lower bound", 1, 15, false},
		{"upper bound", 15, 15, false},
		{"over limit", 16, 15, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMaxDepth(tt.depth, tt.limit)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMaxDepth(%d, %d) error = %v, wantErr %v", tt.depth, tt.limit, err, tt.wantErr)
			}
		})
	}
}

func TestValidateNumberString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"integer", "3", false},
		{"negative", "-1", false},
		{"fraction", "1/2", false},
		{"tagged int", "int:6", false},
		{"tagged frac", "frac:-7/3", false},
		{"tagged sym", "sym:3 + 2*sqrt(3)", false},

		{"empty", "", true},
		{"blank", "   ", true},
		{"too long", strings.Repeat("9", 300), true},
		{"control char", "1\x002", true},
		{"newline", "1\n2", true},
		{"decimal point", "1.5", true},
		{"letters", "pi", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNumberString(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNumberString(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
