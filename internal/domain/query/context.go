package query

import (
	"fmt"
	"regexp"

	"github.com/kailas-cloud/contextq/internal/domain"
)

var identifierRegex = regexp.MustCompile(`^[A-Za-z0-9_.@-]+$`)

// MaxIdentifierLength bounds role, user and account identifiers.
const MaxIdentifierLength = 128

// Context is the caller-supplied query: the question plus the identity it is asked as.
type Context struct {
	Question string
	Role     string
	User     string
	Account  string
}

// Validate checks that all four fields are present and that the identifiers
// are safe to use as single path segments.
func (c Context) Validate() error {
	if c.Question == "" {
		return fmt.Errorf("%w: question is required", domain.ErrInvalidQuery)
	}
	for _, f := range []struct{ name, value string }{
		{"role", c.Role},
		{"user", c.User},
		{"account", c.Account},
	} {
		if f.value == "" {
			return fmt.Errorf("%w: %s is required", domain.ErrInvalidQuery, f.name)
		}
		if err := ValidateIdentifier(f.value); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return nil
}

// ValidateIdentifier accepts [A-Za-z0-9_.@-]+ except "." and "..".
func ValidateIdentifier(id string) error {
	if len(id) > MaxIdentifierLength {
		return fmt.Errorf("%w: too long (max %d)", domain.ErrInvalidIdentifier, MaxIdentifierLength)
	}
	if id == "." || id == ".." || !identifierRegex.MatchString(id) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidIdentifier, id)
	}
	return nil
}
