package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keepstack/keepstack-server/internal/domain"
	"github.com/keepstack/keepstack-server/internal/store"
)

const svcOwnerID = "usr_service_test"

// seedOwner creates the owner account the resource rows hang off.
func seedOwner(t *testing.T, s store.Store) {
	t.Helper()
	require.NoError(t, s.CreateUser(context.Background(), &domain.User{
		ID:    svcOwnerID,
		Email: "svc@example.com",
	}))
}

func newTestResourceService(t *testing.T) (*ResourceService, store.Store) {
	t.Helper()
	s, logger := newTestDeps(t)
	seedOwner(t, s)
	return NewResourceService(s, logger), s
}

func TestResourceService_CreateAndGet(t *testing.T) {
	svc, _ := newTestResourceService(t)
	ctx := context.Background()

	url := "https://go.dev/blog/error-handling"
	created, err := svc.Create(ctx, svcOwnerID, CreateResourceRequest{
		Type:  "link",
		Title: "Error handling",
		URL:   &url,
		Tags:  []string{"Go", "errors "},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"errors", "go"}, created.Tags)

	got, err := svc.Get(ctx, svcOwnerID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Error handling", got.Title)
}

func TestResourceService_CreateUnknownType(t *testing.T) {
	svc, _ := newTestResourceService(t)

	_, err := svc.Create(context.Background(), svcOwnerID, CreateResourceRequest{
		Type:  "bookmark",
		Title: "nope",
	})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestResourceService_UpdatePatch(t *testing.T) {
	svc, _ := newTestResourceService(t)
	ctx := context.Background()

	content := "snippet body"
	created, err := svc.Create(ctx, svcOwnerID, CreateResourceRequest{
		Type:    "snippet",
		Title:   "Snippet",
		Content: &content,
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, svcOwnerID, created.ID, UpdateResourceRequest{
		Description: domain.Set("now described"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "now described", *updated.Description)

	cleared, err := svc.Update(ctx, svcOwnerID, created.ID, UpdateResourceRequest{
		Description: domain.Cleared[string](),
	})
	require.NoError(t, err)
	assert.Nil(t, cleared.Description)
}

func TestResourceService_DeleteAndVisit(t *testing.T) {
	svc, _ := newTestResourceService(t)
	ctx := context.Background()

	url := "https://example.com/a"
	created, err := svc.Create(ctx, svcOwnerID, CreateResourceRequest{
		Type: "link", Title: "A", URL: &url,
	})
	require.NoError(t, err)

	require.NoError(t, svc.RecordVisit(ctx, svcOwnerID, created.ID))
	got, err := svc.Get(ctx, svcOwnerID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.VisitCount)

	require.NoError(t, svc.Delete(ctx, svcOwnerID, created.ID))
	_, err = svc.Get(ctx, svcOwnerID, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResourceService_ListAndBatch(t *testing.T) {
	svc, _ := newTestResourceService(t)
	ctx := context.Background()

	var ids []int64
	for _, title := range []string{"One", "Two", "Three"} {
		u := "https://example.com/" + title
		created, err := svc.Create(ctx, svcOwnerID, CreateResourceRequest{
			Type: "link", Title: title, URL: &u,
		})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	list, err := svc.List(ctx, svcOwnerID, &store.ResourceFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Pagination.Total)

	result, err := svc.Batch(ctx, svcOwnerID, &store.BatchRequest{
		Action: store.BatchSetFavorite,
		IDs:    append(ids, 424242),
		Flag:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Processed)
	assert.Equal(t, []int64{424242}, result.Skipped)

	favorite := true
	list, err = svc.List(ctx, svcOwnerID, &store.ResourceFilter{Favorite: &favorite})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Pagination.Total)
}
