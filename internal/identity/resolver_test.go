package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/safevoice/incident-intake/internal/models"
	"github.com/safevoice/incident-intake/internal/storage"
)

// MockStore is a mock implementation of the storage contract
type MockStore struct {
	mock.Mock
}

func (m *MockStore) LookupByHash(ctx context.Context, contactHash string) (string, error) {
	args := m.Called(ctx, contactHash)
	return args.String(0), args.Error(1)
}

func (m *MockStore) LookupByUsernames(ctx context.Context, handles []string) ([]models.UsernameMatch, error) {
	args := m.Called(ctx, handles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UsernameMatch), args.Error(1)
}

func (m *MockStore) VerifyIdentifiers(ctx context.Context, uins []string) ([]string, error) {
	args := m.Called(ctx, uins)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) InsertReport(ctx context.Context, report *models.Report) (*models.ReportReceipt, error) {
	args := m.Called(ctx, report)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReportReceipt), args.Error(1)
}

func (m *MockStore) GetReportByToken(ctx context.Context, token string) (*models.Report, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockStore) CountReportsByStatus(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func TestResolver_HashContact(t *testing.T) {
	resolver := NewResolver(&MockStore{}, "test-secret")

	t.Run("Same address always hashes to the same value", func(t *testing.T) {
		assert.Equal(t, resolver.HashContact("jane@example.com"), resolver.HashContact("jane@example.com"))
	})

	t.Run("Normalization folds case and whitespace", func(t *testing.T) {
		assert.Equal(t, resolver.HashContact("jane@example.com"), resolver.HashContact("  Jane@Example.COM "))
	})

	t.Run("Different addresses hash differently", func(t *testing.T) {
		assert.NotEqual(t, resolver.HashContact("jane@example.com"), resolver.HashContact("john@example.com"))
	})

	t.Run("Secret keys the hash", func(t *testing.T) {
		other := NewResolver(&MockStore{}, "other-secret")
		assert.NotEqual(t, resolver.HashContact("jane@example.com"), other.HashContact("jane@example.com"))
	})
}

func TestResolver_ResolveReporter(t *testing.T) {
	mockStore := &MockStore{}
	resolver := NewResolver(mockStore, "test-secret")

	hash := resolver.HashContact("jane@example.com")
	mockStore.On("LookupByHash", mock.Anything, hash).Return("100", nil)

	uin, err := resolver.ResolveReporter(context.Background(), "jane@example.com")

	assert.NoError(t, err)
	assert.Equal(t, "100", uin)
	mockStore.AssertExpectations(t)
}

func TestResolver_ResolveReporter_NotFound(t *testing.T) {
	mockStore := &MockStore{}
	resolver := NewResolver(mockStore, "test-secret")

	mockStore.On("LookupByHash", mock.Anything, mock.Anything).Return("", storage.ErrNotFound)

	_, err := resolver.ResolveReporter(context.Background(), "stranger@example.com")

	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestResolver_VerifyStructured(t *testing.T) {
	t.Run("Preserves input order regardless of store order", func(t *testing.T) {
		mockStore := &MockStore{}
		resolver := NewResolver(mockStore, "test-secret")

		mockStore.On("VerifyIdentifiers", mock.Anything, []string{"7", "42", "99"}).
			Return([]string{"42", "7"}, nil)

		verified := resolver.VerifyStructured(context.Background(), []string{"7", "42", "99"})

		assert.Equal(t, []string{"7", "42"}, verified)
	})

	t.Run("Directory fault degrades to zero candidates", func(t *testing.T) {
		mockStore := &MockStore{}
		resolver := NewResolver(mockStore, "test-secret")

		mockStore.On("VerifyIdentifiers", mock.Anything, mock.Anything).
			Return(nil, errors.New("directory unavailable"))

		verified := resolver.VerifyStructured(context.Background(), []string{"7"})

		assert.Nil(t, verified)
	})

	t.Run("Empty input makes no store call", func(t *testing.T) {
		mockStore := &MockStore{}
		resolver := NewResolver(mockStore, "test-secret")

		verified := resolver.VerifyStructured(context.Background(), nil)

		assert.Nil(t, verified)
		mockStore.AssertNotCalled(t, "VerifyIdentifiers", mock.Anything, mock.Anything)
	})
}

func TestResolver_ResolvePlain(t *testing.T) {
	t.Run("Matches usernames case-insensitively, drops the rest", func(t *testing.T) {
		mockStore := &MockStore{}
		resolver := NewResolver(mockStore, "test-secret")

		mockStore.On("LookupByUsernames", mock.Anything, []string{"jane", "ghost"}).
			Return([]models.UsernameMatch{{Username: "Jane", UIN: "9"}}, nil)

		resolved := resolver.ResolvePlain(context.Background(), []string{"jane", "ghost"})

		assert.Equal(t, []PlainMatch{{Handle: "jane", UIN: "9"}}, resolved)
	})

	t.Run("Store fault degrades to zero matches", func(t *testing.T) {
		mockStore := &MockStore{}
		resolver := NewResolver(mockStore, "test-secret")

		mockStore.On("LookupByUsernames", mock.Anything, mock.Anything).
			Return(nil, errors.New("connection reset"))

		resolved := resolver.ResolvePlain(context.Background(), []string{"jane"})

		assert.Nil(t, resolved)
	})

	t.Run("Empty input makes no store call", func(t *testing.T) {
		mockStore := &MockStore{}
		resolver := NewResolver(mockStore, "test-secret")

		resolved := resolver.ResolvePlain(context.Background(), nil)

		assert.Nil(t, resolved)
		mockStore.AssertNotCalled(t, "LookupByUsernames", mock.Anything, mock.Anything)
	})
}
