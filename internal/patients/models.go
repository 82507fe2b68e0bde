package patients

import (
	"hospital-management/internal/apierrors"
	"hospital-management/internal/civil"
	"net/mail"
	"strings"
	"time"
)

var genders = map[string]bool{"male": true, "female": true, "other": true}

type Patient struct {
	ID          string     `json:"id" dbfield:"id"`
	Name        string     `json:"name" dbfield:"name"`
	Email       *string    `json:"email,omitempty" dbfield:"email"`
	Phone       string     `json:"phone" dbfield:"phone"`
	DateOfBirth civil.Date `json:"dateOfBirth" dbfield:"date_of_birth"`
	Gender      string     `json:"gender" dbfield:"gender"`
	Address     *string    `json:"address,omitempty" dbfield:"address"`
	CreatedAt   time.Time  `json:"createdAt" dbfield:"created_at"`
}

// Validate checks if the patient has the fields required to be registered.
func (p Patient) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return apierrors.NewValidationError("name", "required")
	}
	if strings.TrimSpace(p.Phone) == "" {
		return apierrors.NewValidationError("phone", "required")
	}
	if p.DateOfBirth.IsZero() {
		return apierrors.NewValidationError("dateOfBirth", "required")
	}
	if p.DateOfBirth.Time().After(time.Now()) {
		return apierrors.NewValidationError("dateOfBirth", "cannot be in the future")
	}
	if !genders[strings.ToLower(p.Gender)] {
		return apierrors.NewValidationError("gender", "must be one of male, female, other")
	}
	if p.Email != nil && *p.Email != "" {
		if _, err := mail.ParseAddress(*p.Email); err != nil {
			return apierrors.NewValidationError("email", "invalid")
		}
	}
	return nil
}
