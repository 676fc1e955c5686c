package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/severindevelopment/hub/internal/hub/store"
)

func TestGroupLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &GroupService{Store: st}

	user := seedUser(t, st, true)

	group, err := svc.Create(ctx, "engineering", "The builders")
	require.NoError(t, err)
	require.NotEmpty(t, group.ID)

	_, err = svc.Create(ctx, "", "no name")
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Create(ctx, "engineering", "duplicate")
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	t.Run("membership", func(t *testing.T) {
		require.NoError(t, svc.AddMember(ctx, group.ID, user.ID))
		// Re-adding is a no-op.
		require.NoError(t, svc.AddMember(ctx, group.ID, user.ID))

		ids, err := st.Groups().ListMemberGroupIDs(ctx, user.ID)
		require.NoError(t, err)
		require.Contains(t, ids, group.ID)

		require.ErrorIs(t, svc.AddMember(ctx, group.ID, "missing-user"), store.ErrNotFound)
		require.ErrorIs(t, svc.AddMember(ctx, "missing-group", user.ID), store.ErrNotFound)

		require.NoError(t, svc.RemoveMember(ctx, group.ID, user.ID))
		ids, err = st.Groups().ListMemberGroupIDs(ctx, user.ID)
		require.NoError(t, err)
		require.NotContains(t, ids, group.ID)
	})

	t.Run("delete cascades membership", func(t *testing.T) {
		require.NoError(t, svc.AddMember(ctx, group.ID, user.ID))
		require.NoError(t, svc.Delete(ctx, group.ID))

		ids, err := st.Groups().ListMemberGroupIDs(ctx, user.ID)
		require.NoError(t, err)
		require.Empty(t, ids)

		groups, err := svc.List(ctx)
		require.NoError(t, err)
		require.Empty(t, groups)
	})
}
