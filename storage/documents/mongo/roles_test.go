package mongodocs

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutortrack/core"
	"github.com/trezcool/tutortrack/core/user"
)

func Test_roleStore(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	conf := core.NewTestConfig()
	conf.Mongo.URI = uri

	client, err := Connect(ctx, conf)
	require.NoError(t, err)
	dbName := "tutortrack_test_" + uuid.NewString()[:8]
	t.Cleanup(func() {
		_ = client.Database(dbName).Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	store := NewRoleStore(client, dbName)
	uid := uuid.NewString()

	_, err = store.GetRole(ctx, uid)
	assert.Equal(t, user.ErrRoleNotFound, err)

	_, err = store.SetRole(ctx, uid, user.RoleStudent)
	require.NoError(t, err)

	// idempotent
	doc, err := store.SetRole(ctx, uid, user.RoleStudent)
	require.NoError(t, err)

	got, err := store.GetRole(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, user.RoleStudent, got.Role)
	assert.Equal(t, uid, got.UserID)
	assert.WithinDuration(t, doc.UpdatedAt, got.UpdatedAt, 0)

	n, err := client.Database(dbName).Collection(usersCollection).CountDocuments(ctx, map[string]string{"_id": uid})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
