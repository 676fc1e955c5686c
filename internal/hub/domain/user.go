package domain

import "time"

// User is an identity provisioned from the corporate IdP on first sign-in.
// SSOID is the stable subject identifier from the directory; everything else
// is refreshed from IdP claims on each login.
type User struct {
	ID          string
	SSOID       string
	Email       string
	Name        string // display name
	FirstName   string
	LastName    string
	MiddleName  string
	Department  string
	JobTitle    string
	ADGroups    []string // directory group names as asserted by the IdP
	Active      bool
	Admin       bool
	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
