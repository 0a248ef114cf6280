package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/secpulse/secpulse/internal/filing"
)

func record(acc string, segment filing.Segment, impact int, processedAt time.Time) filing.Record {
	return filing.Record{
		Filing: filing.Filing{
			AccessionID: acc,
			FormType:    "8-K",
			Segment:     segment,
			CompanyName: "Example Corp",
		},
		Summary:     "summary",
		Impact:      impact,
		ProcessedAt: processedAt,
	}
}

func TestStoreInsertAndExists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewStore()

	ok, err := store.Exists(ctx, "0001193125-26-000001")
	require.NoError(t, err)
	require.False(t, ok)

	id, err := store.Insert(ctx, record("0001193125-26-000001", filing.SegmentCatalyst, 40, time.Now()))
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	ok, err = store.Exists(ctx, "0001193125-26-000001")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = store.Insert(ctx, record("0001193125-26-000001", filing.SegmentCatalyst, 40, time.Now()))
	require.ErrorIs(t, err, filing.ErrDuplicate)

	id, err = store.Insert(ctx, record("0001193125-26-000002", filing.SegmentWhale, -10, time.Now()))
	require.NoError(t, err)
	require.Equal(t, int64(2), id)
}

func TestStoreLedger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewStore()

	seen, err := store.LedgerContainsAny(ctx, []string{"a", "b"})
	require.NoError(t, err)
	require.Empty(t, seen)

	first := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.LedgerInsert(ctx, []string{"a", "b"}, first))

	// Re-inserting keeps the original seen-at time.
	require.NoError(t, store.LedgerInsert(ctx, []string{"b", "c"}, first.Add(time.Hour)))

	seen, err = store.LedgerContainsAny(ctx, []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	require.Equal(t, map[string]struct{}{"a": {}, "b": {}, "c": {}}, seen)
	require.Equal(t, first, store.ledger["b"])
}

func TestStoreListFilings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	_, err := store.Insert(ctx, record("acc-1", filing.SegmentCatalyst, 30, base))
	require.NoError(t, err)
	_, err = store.Insert(ctx, record("acc-2", filing.SegmentPulse, -5, base.Add(time.Minute)))
	require.NoError(t, err)
	_, err = store.Insert(ctx, record("acc-3", filing.SegmentCatalyst, 10, base.Add(2*time.Minute)))
	require.NoError(t, err)

	all, err := store.ListFilings(ctx, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "acc-3", all[0].Filing.AccessionID)
	require.Equal(t, "acc-1", all[2].Filing.AccessionID)

	catalyst, err := store.ListFilings(ctx, filing.SegmentCatalyst, 0, 0)
	require.NoError(t, err)
	require.Len(t, catalyst, 2)
	require.Equal(t, "acc-3", catalyst[0].Filing.AccessionID)

	limited, err := store.ListFilings(ctx, "", 1, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, "acc-2", limited[0].Filing.AccessionID)

	past, err := store.ListFilings(ctx, "", 10, 99)
	require.NoError(t, err)
	require.Empty(t, past)
}

func TestStoreStats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewStore()
	now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	_, err := store.Insert(ctx, record("acc-1", filing.SegmentCatalyst, 60, now))
	require.NoError(t, err)
	_, err = store.Insert(ctx, record("acc-2", filing.SegmentCatalyst, -20, now))
	require.NoError(t, err)
	_, err = store.Insert(ctx, record("acc-3", filing.SegmentWhale, 0, now))
	require.NoError(t, err)
	// Outside the aggregation window.
	_, err = store.Insert(ctx, record("acc-4", filing.SegmentCatalyst, 90, now.Add(-48*time.Hour)))
	require.NoError(t, err)

	stats, err := store.Stats(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, []filing.SegmentStats{
		{Segment: filing.SegmentCatalyst, Count: 2, AvgImpact: 20, Bullish: 1, Bearish: 1},
		{Segment: filing.SegmentWhale, Count: 1, AvgImpact: 0, Bullish: 0, Bearish: 0},
	}, stats)
}
