package domain

import "time"

// Role is the marketplace role carried into access-token claims.
type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
	RoleAdmin      Role = "admin"
)

// Account is the credential record consulted at login. Registration, field
// validation, and verification flows live elsewhere; this core only reads.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	Verified     bool
	CreatedAt    time.Time
}
