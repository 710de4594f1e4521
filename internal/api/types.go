package api

import (
	"net/mail"
	"strings"

	"tenant-registry/internal/model"
)

const minPasswordLen = 8

// OrganizationRequest is the body of create and update.
type OrganizationRequest struct {
	OrganizationName string `json:"organization_name" example:"Acme Corp"`
	Email            string `json:"email" example:"admin@acme.com"`
	Password         string `json:"password" example:"s3cretpass"`
}

func (req *OrganizationRequest) validate() error {
	req.OrganizationName = strings.TrimSpace(req.OrganizationName)
	if req.OrganizationName == "" {
		return invalid("organization_name is required")
	}
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	if len(req.Password) < minPasswordLen {
		return invalid("password must be at least 8 characters")
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email" example:"admin@acme.com"`
	Password string `json:"password" example:"s3cretpass"`
}

func (req *LoginRequest) validate() error {
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	if req.Password == "" {
		return invalid("password is required")
	}
	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("email must be a valid address")
	}
	return nil
}

type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	AdminID          string `json:"admin_id"`
	OrganizationID   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
}

type DocumentPage struct {
	Documents  []model.Document `json:"documents"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

type ConcurrencyConfig struct {
	Workers int `json:"workers" example:"8"`
}
