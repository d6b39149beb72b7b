package errors

import (
	"math"
	"strings"
	"unicode"
)

// maxPartNameLength bounds part names accepted from assembly files and the API.
const maxPartNameLength = 256

// ValidatePartName validates a part name for safety and correctness.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or null bytes
//   - No leading or trailing whitespace
//   - Maximum length of 256 characters
func ValidatePartName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "part name cannot be empty")
	}

	if len(name) > maxPartNameLength {
		return New(ErrCodeInvalidInput, "part name too long (max %d characters)", maxPartNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "part name contains invalid control characters")
		}
	}

	if strings.TrimSpace(name) != name {
		return New(ErrCodeInvalidInput, "part name has surrounding whitespace: %q", name)
	}

	return nil
}

// ValidateWeightFraction checks that a request's global weight scale lies in [0, 1].
func ValidateWeightFraction(wf float64) error {
	if math.IsNaN(wf) || wf < 0 || wf > 1 {
		return New(ErrCodeInvalidRequest, "weight fraction must be within [0, 1], got %v", wf)
	}
	return nil
}

// ValidateMongoURI validates a MongoDB connection string for safety.
// It ensures the URI uses a mongodb scheme.
func ValidateMongoURI(uri string) error {
	if uri == "" {
		return New(ErrCodeInvalidConfig, "mongo URI cannot be empty")
	}

	if !strings.HasPrefix(uri, "mongodb://") && !strings.HasPrefix(uri, "mongodb+srv://") {
		return New(ErrCodeInvalidConfig, "mongo URI must use mongodb or mongodb+srv scheme")
	}

	return nil
}
