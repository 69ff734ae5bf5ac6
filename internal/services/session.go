package services

import "tienda/internal/models"

// Session is the identity a request acts as. The zero value is a guest.
type Session struct {
	UserID   string
	Username string
	Role     string
}

func (s Session) IsGuest() bool {
	return s.UserID == ""
}

func (s Session) IsAdmin() bool {
	return s.UserID != "" && s.Role == models.RoleAdmin
}

func (s Session) requireUser() error {
	if s.IsGuest() {
		return ErrUnauthenticated
	}
	return nil
}

func (s Session) requireAdmin() error {
	if s.IsGuest() {
		return ErrUnauthenticated
	}
	if !s.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
