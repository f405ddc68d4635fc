package domain

import "time"

// Chef request states.
const (
	ChefRequestNone     = "none"
	ChefRequestPending  = "pending"
	ChefRequestApproved = "approved"
	ChefRequestRejected = "rejected"
)

// User represents a user entity.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	ChefRequest string    `json:"chef_request"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
