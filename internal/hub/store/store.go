package store

import (
	"context"
	"errors"

	"github.com/severindevelopment/hub/internal/hub/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and to stop callers accidentally nesting transactions.
type Store interface {
	Users() Users
	Applications() Applications
	Groups() Groups
	AccessGrants() AccessGrants
	AuthorizationCodes() AuthorizationCodes
	OAuthTokens() OAuthTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed. This is the
	// recommended way to handle multi-step writes.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserBySSOID returns a user by the stable IdP subject identifier.
	GetUserBySSOID(ctx context.Context, ssoID string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUserProfile refreshes email/name/job title/groups from IdP claims
	// and bumps updated_at. Blank claim values must not clobber stored ones;
	// the service layer enforces that before calling this.
	UpdateUserProfile(ctx context.Context, u domain.User) error

	// TouchLastLogin sets last_login_at to now.
	TouchLastLogin(ctx context.Context, userID string) error

	// SetActive flips the active flag.
	SetActive(ctx context.Context, userID string, active bool) error

	// ListUsers returns all users ordered by creation date (newest first).
	ListUsers(ctx context.Context) ([]domain.User, error)
}

type Applications interface {
	// GetApplicationByID fetches an application by its internal id.
	GetApplicationByID(ctx context.Context, id string) (domain.Application, error)

	// GetApplicationByClientID fetches an application by OAuth2 client_id.
	GetApplicationByClientID(ctx context.Context, clientID string) (domain.Application, error)

	// GetApplicationBySlug fetches an application by its URL slug.
	GetApplicationBySlug(ctx context.Context, slug string) (domain.Application, error)

	// ListApplications returns all applications ordered by name.
	ListApplications(ctx context.Context) ([]domain.Application, error)

	// CreateApplication inserts a new application (id is ULID).
	CreateApplication(ctx context.Context, a domain.Application) error

	// UpdateApplication replaces the mutable fields and bumps updated_at.
	UpdateApplication(ctx context.Context, a domain.Application) error

	// DeleteApplication cascades to grants, codes and tokens (per schema).
	DeleteApplication(ctx context.Context, id string) error
}

type Groups interface {
	// GetGroupByID fetches a group by id.
	GetGroupByID(ctx context.Context, id string) (domain.Group, error)

	// GetGroupByName fetches a group by its unique name.
	GetGroupByName(ctx context.Context, name string) (domain.Group, error)

	// ListGroups returns all groups ordered by name.
	ListGroups(ctx context.Context) ([]domain.Group, error)

	// CreateGroup inserts a new group (id is ULID).
	CreateGroup(ctx context.Context, g domain.Group) error

	// DeleteGroup removes a group and its memberships.
	DeleteGroup(ctx context.Context, id string) error

	// AddMember adds a user to a group. Adding an existing member is a no-op.
	AddMember(ctx context.Context, groupID, userID string) error

	// RemoveMember removes a user from a group.
	RemoveMember(ctx context.Context, groupID, userID string) error

	// ListMemberGroupIDs returns the ids of all groups the user belongs to.
	ListMemberGroupIDs(ctx context.Context, userID string) ([]string, error)
}

type AccessGrants interface {
	// CreateAccessGrant inserts a new grant (id is ULID).
	CreateAccessGrant(ctx context.Context, g domain.AccessGrant) error

	// GetAccessGrantByID fetches a grant by id.
	GetAccessGrantByID(ctx context.Context, id string) (domain.AccessGrant, error)

	// DeleteAccessGrant removes a grant.
	DeleteAccessGrant(ctx context.Context, id string) error

	// ListGrantsForApplication returns all grants for an application.
	ListGrantsForApplication(ctx context.Context, applicationID string) ([]domain.AccessGrant, error)

	// HasGrant reports whether a grant exists for the application and any of
	// the given (subjectType, subjectID) pairs. Used for entitlement checks:
	// one call covers the direct user grant and all group grants.
	HasGrant(ctx context.Context, applicationID, subjectType string, subjectIDs []string) (bool, error)

	// ListEntitledApplicationIDs returns ids of applications the subject set
	// is granted, without considering the public flag.
	ListEntitledApplicationIDs(ctx context.Context, userID string, groupIDs []string) ([]string, error)
}

type AuthorizationCodes interface {
	// CreateAuthorizationCode stores a freshly minted authorization code.
	CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error

	// GetAuthorizationCodeByHash fetches a code by its hashed value.
	GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error)

	// ConsumeAuthorizationCode atomically marks an unused code as redeemed.
	// Returns ErrNotFound if the code does not exist or was already consumed,
	// so exactly one of any concurrent redeemers wins.
	ConsumeAuthorizationCode(ctx context.Context, id string) error

	// DeleteExpiredAuthorizationCodes removes codes past expiry (housekeeping).
	DeleteExpiredAuthorizationCodes(ctx context.Context) error
}

type OAuthTokens interface {
	// CreateOAuthToken stores a new access/refresh token pair record.
	CreateOAuthToken(ctx context.Context, t domain.OAuthToken) error

	// GetOAuthTokenByAccessHash fetches a pair by access token fingerprint.
	GetOAuthTokenByAccessHash(ctx context.Context, hash string) (domain.OAuthToken, error)

	// GetOAuthTokenByRefreshHash fetches a pair by refresh token fingerprint.
	GetOAuthTokenByRefreshHash(ctx context.Context, hash string) (domain.OAuthToken, error)

	// RevokeOAuthToken sets revoked_at on the pair. Idempotent.
	RevokeOAuthToken(ctx context.Context, id string) error

	// RevokeAllUserApplicationTokens bulk-revokes all live pairs for a
	// user+application (e.g. when an entitlement is withdrawn).
	RevokeAllUserApplicationTokens(ctx context.Context, userID, applicationID string) error

	// DeleteExpiredOAuthTokens removes pairs whose refresh expiry has passed
	// (housekeeping).
	DeleteExpiredOAuthTokens(ctx context.Context) error
}
