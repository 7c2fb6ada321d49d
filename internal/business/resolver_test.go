package business

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lealta/gateway/internal/cache"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) FindByIdentifier(ctx context.Context, identifier string) (*Business, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Business), args.Error(1)
}

func newTestResolver(repo Repository) *Resolver {
	return NewResolver(
		repo,
		cache.New[*Business](2*time.Minute, 1000, 5*time.Minute),
		cache.New[*Business](5*time.Minute, 1000, 5*time.Minute),
	)
}

func acme() *Business {
	return &Business{
		ID:        "biz-1",
		Name:      "Acme Grill",
		Slug:      "acme",
		Subdomain: "acme",
		IsActive:  true,
	}
}

func TestExtractIdentifier(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/acme/admin", "acme"},
		{"/acme", "acme"},
		{"/a/cliente", "a"},
		{"/la-cevicheria/cliente", "la-cevicheria"},
		{"/", ""},
		{"", ""},
		{"/login", ""},
		{"/signup/step2", ""},
		{"/api/clients", ""},
		{"/dashboard", ""},
		{"/admin", ""},
		{"/_next/static/x.js", ""},
		{"/favicon.ico", ""},
		{"/-acme/admin", ""},
		{"/acme-/admin", ""},
		{"/ac_me/admin", ""},
		{"/ACME/admin", "acme"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractIdentifier(tt.path), tt.path)
	}
}

func TestResolveNoTenantSegment(t *testing.T) {
	repo := new(mockRepo)
	r := newTestResolver(repo)

	ctx, err := r.Resolve(context.Background(), "/login")
	require.NoError(t, err)
	assert.Nil(t, ctx)
	repo.AssertNotCalled(t, "FindByIdentifier")
}

func TestResolveStoreHitBuildsContext(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindByIdentifier", mock.Anything, "acme").Return(acme(), nil)
	r := newTestResolver(repo)

	bctx, err := r.Resolve(context.Background(), "/acme/admin/users")
	require.NoError(t, err)
	require.NotNil(t, bctx)
	assert.Equal(t, "biz-1", bctx.BusinessID)
	assert.Equal(t, "acme", bctx.Subdomain)
	assert.Equal(t, "/admin/users", bctx.RemainingPath)
	assert.Equal(t, "Acme Grill", bctx.Business.Name)
}

func TestResolveCachesAfterFirstStoreHit(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindByIdentifier", mock.Anything, "acme").Return(acme(), nil).Once()
	r := newTestResolver(repo)

	_, err := r.Resolve(context.Background(), "/acme/admin")
	require.NoError(t, err)

	// Second resolution within TTL must not re-query the store.
	bctx, err := r.Resolve(context.Background(), "/acme/cliente")
	require.NoError(t, err)
	assert.Equal(t, "/cliente", bctx.RemainingPath)
	repo.AssertNumberOfCalls(t, "FindByIdentifier", 1)
}

func TestResolveCrossPopulatesIDCache(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindByIdentifier", mock.Anything, "acme").Return(acme(), nil).Once()
	r := newTestResolver(repo)

	_, err := r.Resolve(context.Background(), "/acme/admin")
	require.NoError(t, err)

	// Lookup by raw id is now a cache hit.
	biz, err := r.ByID(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Equal(t, "acme", biz.Slug)
	repo.AssertNumberOfCalls(t, "FindByIdentifier", 1)
}

func TestResolveNotFound(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindByIdentifier", mock.Anything, "ghost").Return(nil, ErrBusinessNotFound)
	r := newTestResolver(repo)

	bctx, err := r.Resolve(context.Background(), "/ghost/admin")
	assert.Nil(t, bctx)
	assert.ErrorIs(t, err, ErrBusinessNotFound)
}

func TestResolveStoreError(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindByIdentifier", mock.Anything, "acme").Return(nil, errors.New("connection reset"))
	r := newTestResolver(repo)

	bctx, err := r.Resolve(context.Background(), "/acme/admin")
	assert.Nil(t, bctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBusinessNotFound)
}

func TestRemainingPathBareTenant(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindByIdentifier", mock.Anything, "acme").Return(acme(), nil)
	r := newTestResolver(repo)

	bctx, err := r.Resolve(context.Background(), "/acme")
	require.NoError(t, err)
	assert.Equal(t, "/", bctx.RemainingPath)
}
