package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

func TestSQLiteStorage_RuleLifecycle(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	coffee := &model.CategoryRule{
		UserID:     testUser,
		Pattern:    "  starbucks ",
		CategoryID: "sys-coffee",
		MatchType:  model.MatchContains,
		Enabled:    true,
	}
	gas := &model.CategoryRule{
		UserID:     testUser,
		Pattern:    "shell fuel",
		CategoryID: "sys-transportation",
		MatchType:  model.MatchKeyword,
		Enabled:    true,
	}
	require.NoError(t, store.CreateRule(ctx, coffee))
	require.NoError(t, store.CreateRule(ctx, gas))
	assert.Equal(t, "starbucks", coffee.Pattern)

	got, err := store.GetRule(ctx, testUser, coffee.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchContains, got.MatchType)
	assert.True(t, got.Enabled)

	// Other users cannot see the rule.
	_, err = store.GetRule(ctx, "intruder", coffee.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, store.SetRuleEnabled(ctx, testUser, coffee.ID, false))

	all, err := store.ListRules(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, coffee.ID, all[0].ID)
	assert.False(t, all[0].Enabled)

	enabled, err := store.ListEnabledRules(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, gas.ID, enabled[0].ID)

	require.NoError(t, store.DeleteRule(ctx, testUser, gas.ID))
	assert.ErrorIs(t, store.DeleteRule(ctx, testUser, gas.ID), common.ErrNotFound)
	assert.ErrorIs(t, store.SetRuleEnabled(ctx, "intruder", coffee.ID, true), common.ErrNotFound)
}

func TestSQLiteStorage_CreateRule_Validation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		rule    *model.CategoryRule
		wantErr error
		name    string
	}{
		{
			name:    "nil rule",
			wantErr: ErrNilParameter,
		},
		{
			name:    "blank pattern",
			rule:    &model.CategoryRule{UserID: testUser, Pattern: "   ", CategoryID: "sys-other", MatchType: model.MatchExact},
			wantErr: ErrInvalidRule,
		},
		{
			name:    "unknown match type",
			rule:    &model.CategoryRule{UserID: testUser, Pattern: "x", CategoryID: "sys-other", MatchType: "regex"},
			wantErr: ErrInvalidRule,
		},
		{
			name:    "missing owner",
			rule:    &model.CategoryRule{Pattern: "x", CategoryID: "sys-other", MatchType: model.MatchExact},
			wantErr: ErrInvalidRule,
		},
		{
			name:    "unknown category",
			rule:    &model.CategoryRule{UserID: testUser, Pattern: "x", CategoryID: "missing", MatchType: model.MatchExact},
			wantErr: common.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.CreateRule(ctx, tt.rule)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
