package models

import "time"

// Address is a shipping address saved on a user's profile.
type Address struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string    `json:"user_id" gorm:"type:varchar(36);index;not null"`
	Recipient  string    `json:"recipient" validate:"required,max=150"`
	Street     string    `json:"street" validate:"required,max=200"`
	City       string    `json:"city" validate:"required,max=100"`
	State      string    `json:"state" validate:"required,max=100"`
	PostalCode string    `json:"postal_code" gorm:"type:varchar(10)" validate:"required,postal_code"`
	Phone      string    `json:"phone" gorm:"type:varchar(20)" validate:"required,phone"`
	Notes      string    `json:"notes" validate:"omitempty,max=300"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AddressSnapshot is the copy of an address stored on the order itself.
type AddressSnapshot struct {
	Recipient  string `json:"recipient"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone"`
}

// Snapshot copies the fields an order keeps after the address is edited or removed.
func (a Address) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		Recipient:  a.Recipient,
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Phone:      a.Phone,
	}
}
