package removalists

import "strings"

// Removalist is a carrier referenced by deliveries and collections.
type Removalist struct {
	ID    int64  `json:"removalist_id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Notes string `json:"notes"`
}

func (r Removalist) Missing() []string {
	if strings.TrimSpace(r.Name) == "" {
		return []string{"name"}
	}
	return nil
}
