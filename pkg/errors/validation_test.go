package errors

import (
	"math"
	"testing"
)

func TestValidatePartName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "lid", false},
		{"valid with dash", "front-cover", false},
		{"valid with dot", "gear.small", false},
		{"valid with space", "main board", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
		{"leading space", " lid", true},
		{"trailing space", "lid ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePartName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePartName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateWeightFraction(t *testing.T) {
	tests := []struct {
		name    string
		input   float64
		wantErr bool
	}{
		{"zero", 0, false},
		{"half", 0.5, false},
		{"one", 1, false},
		{"negative", -0.1, true},
		{"above one", 1.01, true},
		{"NaN", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWeightFraction(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateWeightFraction(%v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidRequest) {
				t.Errorf("expected INVALID_REQUEST code, got %v", GetCode(err))
			}
		})
	}
}

func TestValidateMongoURI(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"standard", "mongodb://localhost:27017", false},
		{"srv", "mongodb+srv://cluster.example.com", false},
		{"empty", "", true},
		{"http", "http://localhost", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMongoURI(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMongoURI(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
