package stats_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelview/internal/stats"
	"pixelview/internal/views"
)

func cityView(id uint, city string) views.View {
	return views.View{ID: id, City: city, Date: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestSortByFrequency(t *testing.T) {
	list := []views.View{
		cityView(1, "Berlin"),
		cityView(2, "Madrid"),
		cityView(3, "Madrid"),
		cityView(4, "Berlin"),
		cityView(5, "Madrid"),
	}

	sorted := stats.SortByFrequency(list)

	require.Len(t, sorted, 5)
	// Madrid (3) before Berlin (2), events keep relative order inside groups
	assert.Equal(t, []uint{2, 3, 5, 1, 4}, idsOf(sorted))
}

func TestSortByFrequencyTiesKeepEncounterOrder(t *testing.T) {
	list := []views.View{
		cityView(1, "Berlin"),
		cityView(2, "Madrid"),
		cityView(3, "Berlin"),
		cityView(4, "Madrid"),
	}

	sorted := stats.SortByFrequency(list)
	assert.Equal(t, []uint{1, 3, 2, 4}, idsOf(sorted))
}

func TestSortByFrequencyIdempotent(t *testing.T) {
	list := []views.View{
		cityView(1, "Berlin"),
		cityView(2, "Madrid"),
		cityView(3, "Madrid"),
		cityView(4, "Lima"),
	}

	once := stats.SortByFrequency(list)
	twice := stats.SortByFrequency(once)
	assert.Equal(t, idsOf(once), idsOf(twice))
}

func TestSortByFrequencyEmpty(t *testing.T) {
	assert.Empty(t, stats.SortByFrequency(nil))
}

func TestDedupUniquePerDay(t *testing.T) {
	day1 := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)

	list := []views.View{
		{ID: 1, IP: "1.1.1.1", Date: day1},
		{ID: 2, IP: "1.1.1.1", Date: day1.Add(2 * time.Hour)}, // same day, same IP: dropped
		{ID: 3, IP: "2.2.2.2", Date: day1},
		{ID: 4, IP: "1.1.1.1", Date: day2}, // new day, counts again
	}

	deduped := stats.DedupUniquePerDay(list)
	assert.Equal(t, []uint{1, 3, 4}, idsOf(deduped))
}

func TestDedupUniquePerDayKeepsFirstEncounter(t *testing.T) {
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	list := []views.View{
		{ID: 7, IP: "1.1.1.1", City: "Lima", Date: day.Add(5 * time.Hour)},
		{ID: 8, IP: "1.1.1.1", City: "Quito", Date: day.Add(1 * time.Hour)},
	}

	deduped := stats.DedupUniquePerDay(list)
	require.Len(t, deduped, 1)
	assert.Equal(t, uint(7), deduped[0].ID)
}

func TestFilterRecent(t *testing.T) {
	now := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)

	list := []views.View{
		{ID: 1, Date: now.AddDate(0, 0, -5)},
		{ID: 2, Date: now.AddDate(0, 0, -45)},
		{ID: 3, Date: now.AddDate(0, 0, -29)},
	}

	recent := stats.FilterRecent(list, stats.RecentWindowDays, now)
	assert.Equal(t, []uint{1, 3}, idsOf(recent))
}

func TestForMode(t *testing.T) {
	now := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)
	oldDay := now.AddDate(0, 0, -60)
	recentDay := now.AddDate(0, 0, -3)

	list := []views.View{
		{ID: 1, IP: "1.1.1.1", City: "Berlin", Date: oldDay},
		{ID: 2, IP: "1.1.1.1", City: "Berlin", Date: oldDay.Add(time.Hour)},
		{ID: 3, IP: "2.2.2.2", City: "Madrid", Date: recentDay},
		{ID: 4, IP: "2.2.2.2", City: "Madrid", Date: recentDay.Add(time.Hour)},
	}

	assert.Len(t, stats.ForMode(list, stats.ModeAll, now), 4)
	assert.Equal(t, []uint{1, 3}, idsOf(stats.ForMode(list, stats.ModeUnique, now)))
	assert.Equal(t, []uint{3, 4}, idsOf(stats.ForMode(list, stats.ModeRecent, now)))
	assert.Equal(t, []uint{3}, idsOf(stats.ForMode(list, stats.ModeUniqueRecent, now)))
}

func TestForModeUniqueRecentKeepsEventWithOutOfWindowDuplicate(t *testing.T) {
	now := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)
	cutoff := now.AddDate(0, 0, -stats.RecentWindowDays)

	// Same IP, same calendar day, straddling the window cutoff. The
	// in-window event must survive; deduping first would keep the earlier
	// out-of-window representative and lose the day entirely.
	list := []views.View{
		{ID: 1, IP: "1.1.1.1", City: "Lima", Date: cutoff.Add(-30 * time.Second)},
		{ID: 2, IP: "1.1.1.1", City: "Lima", Date: cutoff.Add(30 * time.Second)},
	}

	got := stats.ForMode(list, stats.ModeUniqueRecent, now)
	require.Len(t, got, 1)
	assert.Equal(t, uint(2), got[0].ID)
}

func TestUniqueViewers(t *testing.T) {
	list := []views.View{
		{IP: "1.1.1.1"},
		{IP: "1.1.1.1"},
		{IP: "2.2.2.2"},
	}
	assert.Equal(t, 2, stats.UniqueViewers(list))
	assert.Equal(t, 0, stats.UniqueViewers(nil))
}

func TestCountBy(t *testing.T) {
	list := []views.View{
		{City: "Berlin", Country: "de"},
		{City: "Madrid", Country: "es"},
		{City: "Berlin", Country: "de"},
	}

	labels, counts := stats.CountBy(list, "city")
	assert.Equal(t, []string{"Berlin", "Madrid"}, labels)
	assert.Equal(t, []int{2, 1}, counts)

	labels, counts = stats.CountBy(list, "country")
	assert.Equal(t, []string{"de", "es"}, labels)
	assert.Equal(t, []int{2, 1}, counts)
}

func TestCountryLabels(t *testing.T) {
	labels := stats.CountryLabels([]string{"us", "de", "", "zz"})

	assert.Equal(t, "United States", labels[0])
	assert.Equal(t, "Germany", labels[1])
	assert.Equal(t, "Unknown", labels[2])
	assert.Equal(t, "ZZ", labels[3])
}

func idsOf(list []views.View) []uint {
	ids := make([]uint, len(list))
	for i, v := range list {
		ids[i] = v.ID
	}
	return ids
}
