package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/wealthflow-recurring/internal/adapter/repository/storetest"
	"github.com/simaogato/wealthflow-recurring/internal/domain"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "recurring.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) (domain.RuleStore, domain.TransactionStore) {
		s := openTemp(t)
		return s, s
	})
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "recurring.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	rule := storetest.NewRule(uuid.New(), "2024-02-01")
	require.NoError(t, s.Save(ctx, rule))
	require.NoError(t, s.Close())

	// Migrations are idempotent
	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, rule.Description, got.Description)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, rule.CreatedAt.UnixNano(), got.CreatedAt.UnixNano())
}

func TestStore_ErrorsNameTheFailedOperation(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "recurring.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	owner := uuid.New()
	tests := []struct {
		name   string
		call   func() error
		errMsg string
	}{
		{
			name:   "list owners",
			call:   func() error { _, err := s.ListOwners(ctx); return err },
			errMsg: "failed to list owners",
		},
		{
			name:   "list due rules",
			call:   func() error { _, err := s.ListActiveDue(ctx, owner, domain.MustParseDate("2024-01-01")); return err },
			errMsg: "failed to query rules",
		},
		{
			name:   "get rule",
			call:   func() error { _, err := s.Get(ctx, uuid.New()); return err },
			errMsg: "failed to get rule",
		},
		{
			name:   "insert rule",
			call:   func() error { return s.Save(ctx, storetest.NewRule(owner, "2024-01-01")) },
			errMsg: "failed to insert rule",
		},
		{
			name:   "delete rule",
			call:   func() error { return s.Delete(ctx, uuid.New()) },
			errMsg: "failed to delete rule",
		},
		{
			name:   "count transactions",
			call:   func() error { _, err := s.Count(ctx, owner); return err },
			errMsg: "failed to count transactions",
		},
		{
			name:   "list transactions",
			call:   func() error { _, err := s.List(ctx, owner, 10, 0); return err },
			errMsg: "failed to list transactions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.NotErrorIs(t, err, domain.ErrRuleNotFound)
		})
	}
}
