package service

import (
	"context"
	"time"

	"github.com/severindevelopment/hub/internal/hub/domain"
	"github.com/severindevelopment/hub/internal/hub/store"
	"github.com/severindevelopment/hub/pkg/cryptox"
	"github.com/severindevelopment/hub/pkg/idx"
	"github.com/severindevelopment/hub/pkg/slogx"
)

// ClientIDPrefix marks hub-issued client identifiers.
const ClientIDPrefix = "hub_"

// ApplicationService manages the application registry and its access grants.
// All operations here are admin-facing.
type ApplicationService struct {
	Store store.Store
}

// RegisterApplicationRequest holds the fields an admin supplies when
// registering a new downstream application.
type RegisterApplicationRequest struct {
	Slug         string
	Name         string
	Description  string
	URL          string
	IconURL      string
	RedirectURIs []string
	Public       bool
}

// RegisteredApplication is the one-time registration result. ClientSecret is
// plaintext here and nowhere else; only its argon2id hash is persisted.
type RegisteredApplication struct {
	Application  domain.Application
	ClientSecret string
}

// Register creates a new application with a freshly minted client_id and
// client_secret.
func (s *ApplicationService) Register(ctx context.Context, req RegisterApplicationRequest) (*RegisteredApplication, error) {
	log := slogx.FromContext(ctx)

	if req.Slug == "" || req.Name == "" {
		return nil, ErrInvalidRequest
	}
	if !req.Public && len(req.RedirectURIs) == 0 {
		// A non-public app with no redirect URIs could never complete a flow.
		return nil, ErrInvalidRequest
	}

	clientPart, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return nil, err
	}
	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	secretHash, err := cryptox.HashSecret(secret)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	app := domain.Application{
		ID:               idx.New().String(),
		Slug:             req.Slug,
		Name:             req.Name,
		Description:      req.Description,
		URL:              req.URL,
		IconURL:          req.IconURL,
		ClientID:         ClientIDPrefix + clientPart,
		ClientSecretHash: secretHash,
		RedirectURIs:     req.RedirectURIs,
		Public:           req.Public,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.Store.Applications().CreateApplication(ctx, app); err != nil {
		return nil, err
	}

	log.Info("application registered", "slug", app.Slug, "client_id", app.ClientID)
	return &RegisteredApplication{Application: app, ClientSecret: secret}, nil
}

// RotateSecret mints a new client secret for an application and returns the
// plaintext once. Existing tokens stay valid; only future client
// authentication is affected.
func (s *ApplicationService) RotateSecret(ctx context.Context, applicationID string) (string, error) {
	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}
	secretHash, err := cryptox.HashSecret(secret)
	if err != nil {
		return "", err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		app, err := tx.Applications().GetApplicationByID(ctx, applicationID)
		if err != nil {
			return err
		}
		app.ClientSecretHash = secretHash
		app.UpdatedAt = time.Now().UTC()
		return tx.Applications().UpdateApplication(ctx, app)
	})
	if err != nil {
		return "", err
	}

	slogx.FromContext(ctx).Info("application secret rotated", "application_id", applicationID)
	return secret, nil
}

// SetActive enables or disables an application. Disabling bounces every
// request involving the app: authorize, token, and entitlement all check
// the flag.
func (s *ApplicationService) SetActive(ctx context.Context, applicationID string, active bool) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		app, err := tx.Applications().GetApplicationByID(ctx, applicationID)
		if err != nil {
			return err
		}
		app.Active = active
		app.UpdatedAt = time.Now().UTC()
		return tx.Applications().UpdateApplication(ctx, app)
	})
}

// Get returns an application by id.
func (s *ApplicationService) Get(ctx context.Context, applicationID string) (domain.Application, error) {
	return s.Store.Applications().GetApplicationByID(ctx, applicationID)
}

// List returns every registered application, active or not.
func (s *ApplicationService) List(ctx context.Context) ([]domain.Application, error) {
	return s.Store.Applications().ListApplications(ctx)
}

// GrantUser entitles a single user to the application.
func (s *ApplicationService) GrantUser(ctx context.Context, applicationID, userID, grantedBy string) (domain.AccessGrant, error) {
	return s.createGrant(ctx, applicationID, domain.GrantSubjectUser, userID, grantedBy)
}

// GrantGroup entitles every member of a group to the application.
func (s *ApplicationService) GrantGroup(ctx context.Context, applicationID, groupID, grantedBy string) (domain.AccessGrant, error) {
	return s.createGrant(ctx, applicationID, domain.GrantSubjectGroup, groupID, grantedBy)
}

func (s *ApplicationService) createGrant(ctx context.Context, applicationID, subjectType, subjectID, grantedBy string) (domain.AccessGrant, error) {
	if subjectID == "" {
		return domain.AccessGrant{}, ErrInvalidRequest
	}

	grant := domain.AccessGrant{
		ID:            idx.New().String(),
		ApplicationID: applicationID,
		SubjectType:   subjectType,
		SubjectID:     subjectID,
		GrantedBy:     grantedBy,
		CreatedAt:     time.Now().UTC(),
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Applications().GetApplicationByID(ctx, applicationID); err != nil {
			return err
		}
		switch subjectType {
		case domain.GrantSubjectUser:
			if _, err := tx.Users().GetUserByID(ctx, subjectID); err != nil {
				return err
			}
		case domain.GrantSubjectGroup:
			if _, err := tx.Groups().GetGroupByID(ctx, subjectID); err != nil {
				return err
			}
		}
		return tx.AccessGrants().CreateAccessGrant(ctx, grant)
	})
	if err != nil {
		return domain.AccessGrant{}, err
	}

	slogx.FromContext(ctx).Info("access grant created",
		"application_id", applicationID,
		"subject_type", subjectType,
		"subject_id", subjectID,
	)
	return grant, nil
}

// RevokeGrant removes a grant. For direct user grants the user's live token
// pairs on the application are revoked immediately; group-based withdrawals
// take effect at the next refresh when entitlement is re-checked.
func (s *ApplicationService) RevokeGrant(ctx context.Context, grantID string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		grant, err := tx.AccessGrants().GetAccessGrantByID(ctx, grantID)
		if err != nil {
			return err
		}

		if err := tx.AccessGrants().DeleteAccessGrant(ctx, grantID); err != nil {
			return err
		}

		if grant.SubjectType == domain.GrantSubjectUser {
			return tx.OAuthTokens().RevokeAllUserApplicationTokens(ctx, grant.SubjectID, grant.ApplicationID)
		}
		return nil
	})
}

// ListGrants returns all grants for an application.
func (s *ApplicationService) ListGrants(ctx context.Context, applicationID string) ([]domain.AccessGrant, error) {
	return s.Store.AccessGrants().ListGrantsForApplication(ctx, applicationID)
}
