package service

import (
	"context"
	"slices"

	"github.com/severindevelopment/hub/internal/hub/domain"
	"github.com/severindevelopment/hub/internal/hub/store"
)

// AccessService answers the entitlement question: may this user use this
// application? A user is entitled when any of three sources says so: the
// application is public, the user holds a direct grant, or one of the
// user's groups holds a grant.
type AccessService struct {
	Store store.Store
}

// IsEntitled evaluates entitlement for a user and application. Inactive
// users and inactive applications are never entitled, regardless of grants.
func (s *AccessService) IsEntitled(ctx context.Context, user domain.User, app domain.Application) (bool, error) {
	if !user.Active || !app.Active {
		return false, nil
	}

	if app.Public {
		return true, nil
	}

	ok, err := s.Store.AccessGrants().HasGrant(ctx, app.ID, domain.GrantSubjectUser, []string{user.ID})
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	groupIDs, err := s.Store.Groups().ListMemberGroupIDs(ctx, user.ID)
	if err != nil {
		return false, err
	}
	if len(groupIDs) == 0 {
		return false, nil
	}

	return s.Store.AccessGrants().HasGrant(ctx, app.ID, domain.GrantSubjectGroup, groupIDs)
}

// AccessibleApplications returns the active applications the user may use,
// for the hub's landing-page catalogue. Public apps always appear; private
// apps appear when a user or group grant exists.
func (s *AccessService) AccessibleApplications(ctx context.Context, user domain.User) ([]domain.Application, error) {
	if !user.Active {
		return nil, nil
	}

	apps, err := s.Store.Applications().ListApplications(ctx)
	if err != nil {
		return nil, err
	}

	groupIDs, err := s.Store.Groups().ListMemberGroupIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	entitledIDs, err := s.Store.AccessGrants().ListEntitledApplicationIDs(ctx, user.ID, groupIDs)
	if err != nil {
		return nil, err
	}

	var out []domain.Application
	for _, app := range apps {
		if !app.Active {
			continue
		}
		if app.Public || slices.Contains(entitledIDs, app.ID) {
			out = append(out, app)
		}
	}
	return out, nil
}
