package service

import (
	"context"
	"time"

	"github.com/severindevelopment/hub/internal/hub/domain"
	"github.com/severindevelopment/hub/internal/hub/store"
	"github.com/severindevelopment/hub/pkg/idx"
)

// GroupService manages hub access groups and their membership.
type GroupService struct {
	Store store.Store
}

// Create adds a new group with a unique name.
func (s *GroupService) Create(ctx context.Context, name, description string) (domain.Group, error) {
	if name == "" {
		return domain.Group{}, ErrInvalidRequest
	}
	g := domain.Group{
		ID:          idx.New().String(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Store.Groups().CreateGroup(ctx, g); err != nil {
		return domain.Group{}, err
	}
	return g, nil
}

// Delete removes a group, its memberships and its grants.
func (s *GroupService) Delete(ctx context.Context, groupID string) error {
	return s.Store.Groups().DeleteGroup(ctx, groupID)
}

// List returns every group.
func (s *GroupService) List(ctx context.Context) ([]domain.Group, error) {
	return s.Store.Groups().ListGroups(ctx)
}

// AddMember puts a user in a group. Idempotent.
func (s *GroupService) AddMember(ctx context.Context, groupID, userID string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Groups().GetGroupByID(ctx, groupID); err != nil {
			return err
		}
		if _, err := tx.Users().GetUserByID(ctx, userID); err != nil {
			return err
		}
		return tx.Groups().AddMember(ctx, groupID, userID)
	})
}

// RemoveMember takes a user out of a group. Tokens issued via a group grant
// stay valid until their next refresh, when entitlement is re-checked.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, userID string) error {
	return s.Store.Groups().RemoveMember(ctx, groupID, userID)
}
