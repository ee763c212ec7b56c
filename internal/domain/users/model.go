package users

import (
	"strings"
	"time"
)

// Access is the flat permission level compared per route.
type Access string

const (
	AccessAdmin      Access = "admin"
	AccessStaff      Access = "staff"
	AccessTechnician Access = "technician"
)

func (a Access) Valid() bool {
	switch a {
	case AccessAdmin, AccessStaff, AccessTechnician:
		return true
	}
	return false
}

type User struct {
	ID           int64     `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Access       Access    `json:"access"`
	Code         string    `json:"code"` // 2-char actor code written to audit rows
	CreatedAt    time.Time `json:"date_created"`
}

// Technician is the dropdown entry for assigning work order items.
type Technician struct {
	ID   int64  `json:"user_id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
