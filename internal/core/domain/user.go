package domain

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Region carries the locale preferences of a user or client.
type Region struct {
	Timezone string `json:"timezone"`
	Currency string `json:"currency"`
	Country  string `json:"country"`
}

// DefaultRegion is applied to password registrations that omit a region.
var DefaultRegion = Region{Timezone: "Asia/Kolkata", Currency: "INR", Country: "India"}

// IdentityRegion is applied to accounts created through an external identity provider.
var IdentityRegion = Region{Timezone: "UTC", Currency: "USD", Country: "International"}

// User models an authenticated account holder.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	GoogleID     string     `json:"-"`
	Name         string     `json:"name"`
	CompanyName  string     `json:"company_name"`
	Role         string     `json:"role"`
	Region       Region     `json:"region"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	Clients      []string   `json:"clients"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ExternalIdentity is the profile returned by an OAuth provider after a
// completed handshake.
type ExternalIdentity struct {
	Provider   string
	ProviderID string
	Email      string
	Name       string
}
