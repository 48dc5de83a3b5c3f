package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/store"
)

func testSink(t *testing.T) store.Sink {
	t.Helper()
	sink, err := store.NewSQLite(filepath.Join(t.TempDir(), "state_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	require.NoError(t, sink.Migrate(context.Background()))
	return sink
}

func TestNextWindow(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		watermark *int
		reqStart  int
		reqEnd    int
		forceFull bool
		wantStart int
		wantEnd   int
	}{
		{"no prior state", nil, 2010, 2024, false, 2010, 2024},
		{"resumes from watermark minus one", iptr(2020), 2010, 2024, false, 2019, 2024},
		{"watermark at requested start", iptr(2010), 2010, 2024, false, 2010, 2024},
		{"watermark below requested start", iptr(2005), 2010, 2024, false, 2010, 2024},
		{"watermark at requested end", iptr(2024), 2010, 2024, false, 2023, 2024},
		{"force full ignores watermark", iptr(2020), 2010, 2024, true, 2010, 2024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := testSink(t)
			if tt.watermark != nil {
				require.NoError(t, sink.SetWatermark(ctx, store.Dataset, *tt.watermark))
			}

			tracker := NewTracker(sink, store.Dataset)
			start, end, err := tracker.NextWindow(ctx, tt.reqStart, tt.reqEnd, tt.forceFull)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestAdvancePersistsWatermark(t *testing.T) {
	ctx := context.Background()
	sink := testSink(t)
	tracker := NewTracker(sink, store.Dataset)

	require.NoError(t, tracker.Advance(ctx, 2024))

	got, err := sink.Watermark(ctx, store.Dataset)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2024, *got)

	// The next incremental window re-fetches the final processed year.
	start, end, err := tracker.NextWindow(ctx, 2010, 2025, false)
	require.NoError(t, err)
	assert.Equal(t, 2023, start)
	assert.Equal(t, 2025, end)
}

func iptr(v int) *int { return &v }
