package model

// User is the person operating this device.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"createdAt"`
	Disabled  bool   `json:"disabled,omitempty"`
}

// Roles.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleWorker  = "worker"
)

// Session identifies who is making changes on this device. It is built
// once at startup and passed explicitly to everything that stamps operations.
type Session struct {
	SiteID string
	UserID string
}
