package services

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100

	DefaultListingLimit = 100
	MaxListingLimit     = 1000
)

// Page selects a window of an ordered result.
type Page struct {
	Limit  int
	Offset int
}

func DefaultPage() Page {
	return Page{Limit: DefaultPageLimit}
}

// Validate rejects windows outside the accepted bounds rather than clamping them.
func (p Page) Validate() error {
	if p.Limit < 1 || p.Limit > MaxPageLimit {
		return newValidationError("limit", "must be between 1 and %d, got %d", MaxPageLimit, p.Limit)
	}
	if p.Offset < 0 {
		return newValidationError("offset", "must not be negative, got %d", p.Offset)
	}
	return nil
}

func validateListingLimit(limit int) error {
	if limit < 1 || limit > MaxListingLimit {
		return newValidationError("limit", "must be between 1 and %d, got %d", MaxListingLimit, limit)
	}
	return nil
}
