package customers

import (
	"strings"
	"time"
)

type Customer struct {
	ID        int64     `json:"customer_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"date_created"`
}

func (c Customer) Missing() []string {
	if strings.TrimSpace(c.Name) == "" {
		return []string{"name"}
	}
	return nil
}
