package dao

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	permcheck_errors "github.com/dev-mohitbeniwal/permcheck/errors"
	"github.com/dev-mohitbeniwal/permcheck/model"
)

func report(id string, at time.Time) *model.CheckReport {
	return &model.CheckReport{
		CheckID: id,
		ReconciliationResult: model.ReconciliationResult{
			RedundantRule: []model.ImplementedPermission{{Role: "ADMIN", Action: "PUT", Resource: "account"}},
			LackRule:      []model.PolicyRule{{Role: "USER", Action: "GET", Resource: "account"}, {Role: "USER", Action: "POST", Resource: "transaction"}},
		},
		RequestedBy: "alice",
		CreatedAt:   at,
	}
}

func TestMemoryReportStore_SaveAndGet(t *testing.T) {
	store := NewMemoryReportStore(10)
	ctx := context.Background()

	require.NoError(t, store.SaveReport(ctx, report("a", time.Now())))

	got, err := store.GetReport(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.RequestedBy)

	_, err = store.GetReport(ctx, "missing")
	assert.ErrorIs(t, err, permcheck_errors.ErrReportNotFound)
}

func TestMemoryReportStore_ListNewestFirstWithPaging(t *testing.T) {
	store := NewMemoryReportStore(10)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.SaveReport(ctx, report(fmt.Sprintf("r%d", i), base.Add(time.Duration(i)*time.Hour))))
	}

	page, err := store.ListReports(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "r4", page[0].CheckID)
	assert.Equal(t, "r3", page[1].CheckID)
	assert.Equal(t, 1, page[0].RedundantCount)
	assert.Equal(t, 2, page[0].LackCount)

	page, err = store.ListReports(ctx, 10, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "r0", page[0].CheckID)

	page, err = store.ListReports(ctx, 10, 9)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestMemoryReportStore_EvictsOldest(t *testing.T) {
	store := NewMemoryReportStore(2)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.SaveReport(ctx, report("first", now)))
	require.NoError(t, store.SaveReport(ctx, report("second", now)))
	require.NoError(t, store.SaveReport(ctx, report("third", now)))

	_, err := store.GetReport(ctx, "first")
	assert.ErrorIs(t, err, permcheck_errors.ErrReportNotFound)
	_, err = store.GetReport(ctx, "third")
	assert.NoError(t, err)
}
