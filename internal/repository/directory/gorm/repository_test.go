package gorm

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/sharetube/watchroom/internal/repository/directory"
	"github.com/sharetube/watchroom/pkg/dbclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectory(t *testing.T) {
	db, err := dbclient.Open(&dbclient.Config{
		Dialect: "sqlite",
		DSN:     "file:directory?mode=memory&cache=shared",
	})
	require.NoError(t, err)

	ctx := context.Background()
	r := NewRepo(db, slog.Default())
	require.NoError(t, r.Migrate(ctx))

	require.NoError(t, db.Create(&directory.User{ID: 1, Username: "host"}).Error)
	require.NoError(t, db.Create(&directory.Video{ID: 7, Title: "clip"}).Error)
	require.NoError(t, db.Create(&directory.RoomMember{UserID: 1, RoomID: 3, Role: directory.RoleHost, JoinedAt: time.Now()}).Error)

	role, err := r.MembershipRole(ctx, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, directory.RoleHost, role)
	assert.True(t, role.CanModerate())

	_, err = r.MembershipRole(ctx, 3, 2)
	require.ErrorIs(t, err, directory.ErrNoMembership)

	exists, err := r.VideoExists(ctx, 7)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = r.VideoExists(ctx, 8)
	require.NoError(t, err)
	assert.False(t, exists)

	name, err := r.UserDisplayName(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "host", name)

	_, err = r.UserDisplayName(ctx, 2)
	require.ErrorIs(t, err, directory.ErrUserNotFound)
}
