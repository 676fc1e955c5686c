package domain

import "time"

// Group is a hub-managed access group. Membership is maintained by admins
// and is independent of the directory groups asserted by the IdP.
type Group struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}
