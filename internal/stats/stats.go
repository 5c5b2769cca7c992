// Package stats derives chart-ready slices from flat view lists: frequency
// ordering, unique-per-day deduplication, recency windows and field counts.
// Every function is pure; callers compose them per request.
package stats

import (
	"time"

	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pixelview/internal/views"
)

// Mode selects one of the dashboard's stat buckets.
type Mode string

const (
	ModeAll          Mode = "all"
	ModeUnique       Mode = "unique"
	ModeRecent       Mode = "recent"
	ModeUniqueRecent Mode = "unique-recent"
)

// RecentWindowDays is the size of the "recent" window.
const RecentWindowDays = 30

// dayKey buckets a timestamp into its local calendar day. The string form
// (not a 24h range) is deliberate: two events a minute apart across midnight
// belong to different days.
func dayKey(t time.Time) string {
	return t.Local().Format("Mon Jan 2 2006")
}

// SortByFrequency groups views by city and concatenates the groups largest
// first. Grouping is stable: views keep their relative order inside a group,
// and equally-sized groups stay in first-encounter order, which makes the
// function idempotent.
func SortByFrequency(list []views.View) []views.View {
	groups := make(map[string][]views.View)
	var order []string

	for _, v := range list {
		if _, ok := groups[v.City]; !ok {
			order = append(order, v.City)
		}
		groups[v.City] = append(groups[v.City], v)
	}

	// Insertion sort keeps the first-encounter order among equal sizes.
	sorted := make([]string, 0, len(order))
	for _, city := range order {
		pos := len(sorted)
		for pos > 0 && len(groups[sorted[pos-1]]) < len(groups[city]) {
			pos--
		}
		sorted = append(sorted, "")
		copy(sorted[pos+1:], sorted[pos:])
		sorted[pos] = city
	}

	result := make([]views.View, 0, len(list))
	for _, city := range sorted {
		result = append(result, groups[city]...)
	}
	return result
}

// DedupUniquePerDay keeps, for each calendar day, the first view per distinct
// IP. The same IP reappearing on a later day counts again. Day groups
// concatenate in first-encounter order.
func DedupUniquePerDay(list []views.View) []views.View {
	type dayGroup struct {
		seen  map[string]bool
		views []views.View
	}

	days := make(map[string]*dayGroup)
	var order []string

	for _, v := range list {
		day := dayKey(v.Date)
		group, ok := days[day]
		if !ok {
			group = &dayGroup{seen: make(map[string]bool)}
			days[day] = group
			order = append(order, day)
		}
		if group.seen[v.IP] {
			continue
		}
		group.seen[v.IP] = true
		group.views = append(group.views, v)
	}

	result := make([]views.View, 0, len(list))
	for _, day := range order {
		result = append(result, days[day].views...)
	}
	return result
}

// FilterRecent keeps views dated after now minus the window, preserving order.
func FilterRecent(list []views.View, windowDays int, now time.Time) []views.View {
	cutoff := now.Add(-time.Duration(windowDays) * 24 * time.Hour)
	result := make([]views.View, 0, len(list))
	for _, v := range list {
		if v.Date.After(cutoff) {
			result = append(result, v)
		}
	}
	return result
}

// ForMode applies one of the stat buckets to a view list, returning it in
// frequency order.
func ForMode(list []views.View, mode Mode, now time.Time) []views.View {
	switch mode {
	case ModeUnique:
		return SortByFrequency(DedupUniquePerDay(list))
	case ModeRecent:
		return SortByFrequency(FilterRecent(list, RecentWindowDays, now))
	case ModeUniqueRecent:
		// Window before dedup: an in-window event must survive even when an
		// earlier same-day duplicate sits just outside the cutoff.
		return SortByFrequency(DedupUniquePerDay(FilterRecent(list, RecentWindowDays, now)))
	default:
		return SortByFrequency(list)
	}
}

// UniqueViewers counts distinct source IPs across the whole list.
func UniqueViewers(list []views.View) int {
	seen := make(map[string]bool)
	for _, v := range list {
		seen[v.IP] = true
	}
	return len(seen)
}

// CountBy produces the distinct values of a field in first-encounter order,
// paired with their occurrence counts. Supported fields: city, country,
// region, isp.
func CountBy(list []views.View, field string) ([]string, []int) {
	selector := fieldSelector(field)

	counts := make(map[string]int)
	var labels []string

	for _, v := range list {
		value := selector(v)
		if _, ok := counts[value]; !ok {
			labels = append(labels, value)
		}
		counts[value]++
	}

	result := make([]int, len(labels))
	for i, label := range labels {
		result[i] = counts[label]
	}
	return labels, result
}

func fieldSelector(field string) func(views.View) string {
	switch field {
	case "country":
		return func(v views.View) string { return v.Country }
	case "region":
		return func(v views.View) string { return v.Region }
	case "isp":
		return func(v views.View) string { return v.ISP }
	default:
		return func(v views.View) string { return v.City }
	}
}

// CountryLabels resolves ISO country codes to display names for chart
// legends. Unresolvable codes are upper-cased as-is; empty codes become
// "Unknown".
func CountryLabels(codes []string) []string {
	caser := cases.Upper(language.AmericanEnglish)
	countries := gountries.New()

	result := make([]string, len(codes))
	for i, code := range codes {
		if code == "" {
			result[i] = "Unknown"
			continue
		}
		country, err := countries.FindCountryByAlpha(code)
		if err != nil {
			result[i] = caser.String(code)
			continue
		}
		result[i] = country.Name.Common
	}
	return result
}
