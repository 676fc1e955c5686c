package domain

import "time"

// Subject types for access grants.
const (
	GrantSubjectUser  = "user"
	GrantSubjectGroup = "group"
)

// AccessGrant entitles a user or a group to a non-public application.
// Public applications need no grants at all.
type AccessGrant struct {
	ID            string
	ApplicationID string
	SubjectType   string // GrantSubjectUser or GrantSubjectGroup
	SubjectID     string
	GrantedBy     string // admin user ID, empty for seeded grants
	CreatedAt     time.Time
}
