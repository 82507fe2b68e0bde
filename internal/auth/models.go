package auth

import (
	"hospital-management/internal/apierrors"

	"github.com/google/uuid"
)

type Role string

const (
	AdminRole        Role = "ADMIN"
	DoctorRole       Role = "DOCTOR"
	ReceptionistRole Role = "RECEPTIONIST"
)

// StaffRoles are the roles allowed to operate the front desk features.
var StaffRoles = []Role{AdminRole, DoctorRole, ReceptionistRole}

type Credentials struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// Validate validates if the credentials given are valid.
func (c Credentials) Validate() error {
	if c.Email == "" {
		return apierrors.NewValidationError("email", "required")
	}
	if c.Password == "" {
		return apierrors.NewValidationError("password", "required")
	}
	return nil
}

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	GrantType    string `json:"grantType,omitempty"`
}

// Validate validates if the tokens given are valid.
func (c Tokens) Validate() error {
	if c.AccessToken == "" {
		return apierrors.NewValidationError("accessToken", "required")
	}
	if c.RefreshToken == "" {
		return apierrors.NewValidationError("refreshToken", "required")
	}
	if c.GrantType == "" {
		return apierrors.NewValidationError("grantType", "required")
	}
	if c.GrantType != "refresh_token" {
		return apierrors.NewValidationError("grantType", "invalid")
	}
	return nil
}

type User struct {
	ID       int64     `json:"-" dbfield:"id"`
	UUID     uuid.UUID `json:"uuid" dbfield:"uuid"`
	Email    string    `json:"email" dbfield:"email"`
	Password string    `json:"-" dbfield:"password"`
	Role     Role      `json:"role" dbfield:"role"`
}
