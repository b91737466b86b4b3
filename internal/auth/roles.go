package auth

import "github.com/adriaticbluegrowth/portal/internal/models"

// HasRole reports whether actual meets or exceeds required.
func HasRole(actual, required models.Role) bool {
	if !required.Valid() {
		return false
	}
	return actual.Rank() >= required.Rank()
}
