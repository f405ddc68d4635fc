package domain

// Roles.
const (
	RoleUser  = "user"
	RoleChef  = "chef"
	RoleAdmin = "admin"
)

// Identity is the authenticated user behind a connection or request.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// IsChef reports whether the identity may publish cooking steps.
func (i Identity) IsChef() bool {
	return i.Role == RoleChef
}

// IsAdmin reports whether the identity may moderate any recipe.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// IdentityOf projects a stored user to an Identity.
func IdentityOf(u *User) Identity {
	return Identity{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}
