package v1

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"pixelview/internal/pathtree"
	"pixelview/internal/stats"
	"pixelview/internal/views"
)

// GetViewsHandler serves one page of the raw event log for a path as
// {finished, data}. Clients walk pages upward from 0 until finished.
func GetViewsHandler(ctx *cartridge.Context) error {
	path := trackedPathParam(ctx)
	page, err := strconv.Atoi(ctx.Query("page", "0"))
	if err != nil || page < 0 {
		page = 0
	}

	db := ctx.DBManager.GetConnection()
	result, err := views.GetViewPage(db, path, page)
	if err != nil {
		ctx.Logger.Error("Failed to query views",
			slog.String("path", path),
			slog.Int("page", page),
			slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to query views",
		})
	}

	return ctx.Status(http.StatusOK).JSON(result)
}

// GetTreeHandler serves the referrer hierarchy for a path. Repeated `segment`
// query parameters drill into the tree; a final "/" segment selects a node's
// own pages without its subdirectories.
func GetTreeHandler(ctx *cartridge.Context) error {
	path := trackedPathParam(ctx)

	db := ctx.DBManager.GetConnection()
	all, err := views.GetAllViews(db, path)
	if err != nil {
		ctx.Logger.Error("Failed to load views for tree",
			slog.String("path", path),
			slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to build tree",
		})
	}

	tree := pathtree.Select(pathtree.Build(all), segmentParams(ctx))
	return ctx.Status(http.StatusOK).JSON(tree)
}

// GetStatsHandler serves a chart feed for a path: distinct labels with
// occurrence counts under the selected mode, plus overall totals.
// mode: all | unique | recent | unique-recent, by: city | country.
func GetStatsHandler(ctx *cartridge.Context) error {
	path := trackedPathParam(ctx)
	mode := stats.Mode(ctx.Query("mode", string(stats.ModeAll)))
	by := ctx.Query("by", "city")

	db := ctx.DBManager.GetConnection()
	all, err := views.GetAllViews(db, path)
	if err != nil {
		ctx.Logger.Error("Failed to load views for stats",
			slog.String("path", path),
			slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to compute stats",
		})
	}

	series := stats.ForMode(all, mode, time.Now())
	labels, counts := stats.CountBy(series, by)
	if by == "country" {
		labels = stats.CountryLabels(labels)
	}

	return ctx.Status(http.StatusOK).JSON(fiber.Map{
		"labels": labels,
		"counts": counts,
		"total":  len(all),
		"unique": stats.UniqueViewers(all),
	})
}

func segmentParams(ctx *cartridge.Context) []string {
	raw := ctx.Ctx.Context().QueryArgs().PeekMulti("segment")
	segments := make([]string, 0, len(raw))
	for _, value := range raw {
		if len(value) > 0 {
			segments = append(segments, string(value))
		}
	}
	return segments
}
