package views_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelview/internal/config"
	"pixelview/internal/testsupport"
	"pixelview/internal/views"
)

func TestGetViewPageOrdering(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	// Insert out of chronological order; the page must come back sorted
	for _, offset := range []int{3, 0, 2, 1} {
		testsupport.CreateView(t, db, views.View{
			Path: "ordered",
			IP:   fmt.Sprintf("93.184.216.%d", offset+1),
			Date: base.Add(time.Duration(offset) * time.Hour),
		})
	}

	page, err := views.GetViewPage(db, "ordered", 0)
	require.NoError(t, err)
	assert.True(t, page.Finished)
	require.Len(t, page.Data, 4)

	for i := 1; i < len(page.Data); i++ {
		assert.False(t, page.Data[i].Date.Before(page.Data[i-1].Date),
			"page must be ordered by date ascending")
	}
}

func TestGetViewPagePagination(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	cfg := config.GetConfig()
	originalSize := cfg.ViewsPageSize
	cfg.ViewsPageSize = 3
	t.Cleanup(func() { cfg.ViewsPageSize = originalSize })

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		testsupport.CreateView(t, db, views.View{
			Path: "paged",
			IP:   "93.184.216.34",
			Date: base.Add(time.Duration(i) * time.Minute),
		})
	}

	var collected []views.View
	for page := 0; ; page++ {
		result, err := views.GetViewPage(db, "paged", page)
		require.NoError(t, err)

		if page < 2 {
			assert.False(t, result.Finished)
			assert.Len(t, result.Data, 3)
		} else {
			assert.True(t, result.Finished)
			assert.Len(t, result.Data, 1)
		}

		collected = append(collected, result.Data...)
		if result.Finished {
			break
		}
	}

	// No overlap, no gap: ids are distinct and the walk saw every row
	require.Len(t, collected, 7)
	seen := make(map[uint]bool)
	for _, v := range collected {
		assert.False(t, seen[v.ID], "page walk must not repeat rows")
		seen[v.ID] = true
	}

	all, err := views.GetAllViews(db, "paged")
	require.NoError(t, err)
	assert.Len(t, all, 7)
}

func TestGetAllViewsKeysetTiebreak(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	cfg := config.GetConfig()
	originalSize := cfg.ViewsPageSize
	cfg.ViewsPageSize = 2
	t.Cleanup(func() { cfg.ViewsPageSize = originalSize })

	// Identical dates force the cursor onto the id tiebreak at every
	// batch boundary
	stamp := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		testsupport.CreateView(t, db, views.View{Path: "tied", IP: "93.184.216.34", Date: stamp})
	}

	all, err := views.GetAllViews(db, "tied")
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i].ID, all[i-1].ID)
	}
}

func TestGetAllViewsAfterRetentionDeletes(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	cfg := config.GetConfig()
	originalSize := cfg.ViewsPageSize
	cfg.ViewsPageSize = 2
	t.Cleanup(func() { cfg.ViewsPageSize = originalSize })

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	var oldest []uint
	for i := 0; i < 6; i++ {
		v := testsupport.CreateView(t, db, views.View{
			Path: "pruned",
			IP:   "93.184.216.34",
			Date: base.Add(time.Duration(i) * time.Hour),
		})
		if i < 2 {
			oldest = append(oldest, v.ID)
		}
	}

	// Retention removes the oldest rows; a keyset walk over what remains
	// must not skip any surviving view
	require.NoError(t, db.Delete(&views.View{}, oldest).Error)

	all, err := views.GetAllViews(db, "pruned")
	require.NoError(t, err)
	require.Len(t, all, 4)
	for _, v := range all {
		assert.NotContains(t, oldest, v.ID)
	}
}

func TestGetViewPageEmptyPath(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	page, err := views.GetViewPage(db, "never-tracked", 0)
	require.NoError(t, err)
	assert.True(t, page.Finished)
	assert.Empty(t, page.Data)
}

func TestGetViewPageNegativePage(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CreateView(t, db, views.View{Path: "neg", IP: "93.184.216.34"})

	page, err := views.GetViewPage(db, "neg", -5)
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
}

func TestGetViewPageIsolatedPerPath(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CreateView(t, db, views.View{Path: "alpha", IP: "93.184.216.34"})
	testsupport.CreateView(t, db, views.View{Path: "beta", IP: "93.184.216.34"})

	page, err := views.GetViewPage(db, "alpha", 0)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "alpha", page.Data[0].Path)
}

func TestGetViewCountMissingPath(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	count, err := views.GetViewCount(db, "never-tracked")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
