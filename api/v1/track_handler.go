package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"pixelview/internal/views"
)

// pixelGIF is the 1x1 transparent GIF served for every tracking request.
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, // GIF89a
	0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, // 1x1, global color table
	0x00, 0x00, 0x00, 0xFF, 0xFF, 0xFF,
	0x21, 0xF9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, // graphic control, transparent
	0x2C, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00,
	0x02, 0x02, 0x44, 0x01, 0x00, 0x3B,
}

// TrackViewHandler records a view for the path parameter and returns the
// pixel. The image is returned even when recording fails: the embedding page
// must never show a broken artifact because of analytics trouble. Appending
// ?format=json swaps the image for the recording outcome.
func TrackViewHandler(ctx *cartridge.Context) error {
	path := trackedPathParam(ctx)

	ctx.Logger.Debug("Received tracking request",
		slog.String("path", path),
		slog.String("method", ctx.Method()))

	userAgent := ctx.Get("User-Agent")
	if forwardedUA := ctx.Get("X-Forwarded-User-Agent"); forwardedUA != "" {
		userAgent = forwardedUA
	}

	input := &views.RecordInput{
		Path:        path,
		IP:          getClientIP(ctx.Ctx),
		UserAgent:   userAgent,
		ReferrerURL: ctx.Get("Referer"),
	}

	result, err := views.RecordView(ctx.DBManager, ctx.Logger, input)
	if err != nil && !errors.Is(err, views.ErrInvalidPath) {
		ctx.Logger.Error("Failed to record view",
			slog.String("path", path),
			slog.Any("error", err))
	}

	if ctx.Query("format") == "json" {
		return trackJSONResponse(ctx, result, err)
	}

	return sendPixel(ctx)
}

func trackJSONResponse(ctx *cartridge.Context, result views.RecordResult, err error) error {
	if errors.Is(err, views.ErrInvalidPath) {
		return ctx.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "invalid path",
		})
	}
	if err != nil {
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to record view",
		})
	}

	return ctx.Status(http.StatusOK).JSON(fiber.Map{
		"count":    result.Count,
		"recorded": result.Recorded,
	})
}

func sendPixel(ctx *cartridge.Context) error {
	ctx.Set("Content-Type", "image/gif")
	ctx.Set("Cache-Control", "no-store, no-cache, must-revalidate")
	ctx.Set("Pragma", "no-cache")
	ctx.Set("Expires", "0")
	return ctx.Status(http.StatusOK).Send(pixelGIF)
}

// trackedPathParam decodes the :path route parameter. Fiber hands the
// parameter over percent-encoded; undecodable values are kept verbatim so
// the view is still attributed somewhere visible.
func trackedPathParam(ctx *cartridge.Context) string {
	raw := ctx.Params("path")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}
