package domain

import "time"

const (
	RolePharmacy  = "pharmacy"
	RoleWarehouse = "warehouse"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"password,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
