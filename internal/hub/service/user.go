package service

import (
	"context"
	"errors"
	"time"

	"github.com/severindevelopment/hub/internal/hub/domain"
	"github.com/severindevelopment/hub/internal/hub/store"
	"github.com/severindevelopment/hub/pkg/idx"
	"github.com/severindevelopment/hub/pkg/slogx"
)

// UserService provisions and maintains user records from IdP claims.
type UserService struct {
	Store store.Store
}

// GetOrCreateFromSSO upserts a user keyed by the stable IdP subject. On
// repeat logins the profile is refreshed from the new claims, except that a
// blank claim never clobbers a stored value: ADFS omits attributes
// depending on which farm handled the request.
//
// Returns ErrUserInactive for deactivated users; they stay in the store but
// cannot sign in.
func (s *UserService) GetOrCreateFromSSO(ctx context.Context, claims domain.SSOClaims) (domain.User, error) {
	log := slogx.FromContext(ctx)

	var out domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		user, err := tx.Users().GetUserBySSOID(ctx, claims.Subject)
		switch {
		case errors.Is(err, store.ErrNotFound):
			now := time.Now().UTC()
			user = domain.User{
				ID:         idx.New().String(),
				SSOID:      claims.Subject,
				Email:      claims.Email,
				Name:       claims.Name,
				FirstName:  claims.FirstName,
				LastName:   claims.LastName,
				MiddleName: claims.MiddleName,
				Department: claims.Department,
				JobTitle:   claims.JobTitle,
				ADGroups:   claims.Groups,
				Active:     true,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.Users().CreateUser(ctx, user); err != nil {
				return err
			}
			log.Info("provisioned user from sso", "user_id", user.ID)

		case err != nil:
			return err

		default:
			if !user.Active {
				return ErrUserInactive
			}

			if claims.Email != "" {
				user.Email = claims.Email
			}
			if claims.Name != "" {
				user.Name = claims.Name
			}
			if claims.FirstName != "" {
				user.FirstName = claims.FirstName
			}
			if claims.LastName != "" {
				user.LastName = claims.LastName
			}
			if claims.MiddleName != "" {
				user.MiddleName = claims.MiddleName
			}
			if claims.Department != "" {
				user.Department = claims.Department
			}
			if claims.JobTitle != "" {
				user.JobTitle = claims.JobTitle
			}
			if claims.Groups != nil {
				user.ADGroups = claims.Groups
			}
			if err := tx.Users().UpdateUserProfile(ctx, user); err != nil {
				return err
			}
		}

		if err := tx.Users().TouchLastLogin(ctx, user.ID); err != nil {
			return err
		}

		out = user
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return out, nil
}

// GetByID fetches a user record.
func (s *UserService) GetByID(ctx context.Context, id string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, id)
}

// Deactivate flips the user inactive and revokes every live token pair they
// hold, so API access dies with the next introspection rather than at
// token expiry.
func (s *UserService) Deactivate(ctx context.Context, userID string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetActive(ctx, userID, false); err != nil {
			return err
		}

		apps, err := tx.Applications().ListApplications(ctx)
		if err != nil {
			return err
		}
		for _, app := range apps {
			if err := tx.OAuthTokens().RevokeAllUserApplicationTokens(ctx, userID, app.ID); err != nil {
				return err
			}
		}
		return nil
	})
}
