package views

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"pixelview/internal/config"
	"pixelview/internal/pkg/geoip"
)

// ErrInvalidPath is returned for an empty or oversized tracked path,
// before any I/O happens.
var ErrInvalidPath = errors.New("invalid tracked path")

const maxPathLength = 512

// RecordInput defines the input required to record a view.
type RecordInput struct {
	Path        string
	IP          string
	UserAgent   string
	ReferrerURL string
	Timestamp   time.Time
}

// RecordResult reports the outcome of RecordView. Recorded is false when the
// referrer was blacklisted; Count is only meaningful when Recorded is true.
type RecordResult struct {
	Count    int64
	Recorded bool
}

// referrerData holds parsed referrer URL components
type referrerData struct {
	host     string
	pathname string
}

// RecordView validates and enriches a pixel hit, then persists the view row
// and increments the per-path counter in a single write transaction. The
// counter update is one conditional upsert so that N concurrent calls for the
// same path always land on exactly N, with the new value returned by the
// statement itself rather than by a separate read.
func RecordView(dbManager cartridge.DBManager, logger *slog.Logger, input *RecordInput) (RecordResult, error) {
	path := strings.TrimSpace(input.Path)
	if path == "" || len(path) > maxPathLength {
		return RecordResult{}, ErrInvalidPath
	}

	ref := parseReferrer(input.ReferrerURL, logger)

	cfg := config.GetConfig()
	if isBlacklistedReferrer(ref.host, cfg.BlacklistedReferrerHosts()) {
		logger.Debug("Skipping view for blacklisted referrer",
			slog.String("path", path),
			slog.String("referrer_host", ref.host))
		return RecordResult{Recorded: false}, nil
	}

	// Best-effort enrichment: a failed lookup leaves the geo fields empty
	// instead of losing the view.
	location := geoip.Lookup(input.IP)

	timestamp := input.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	view := &View{
		Path:      path,
		IP:        input.IP,
		Country:   location.Country,
		Region:    location.Region,
		City:      location.City,
		Latitude:  location.Latitude,
		Longitude: location.Longitude,
		ISP:       location.ISP,
		UserAgent: input.UserAgent,
		Host:      ref.host,
		Pathname:  ref.pathname,
		Date:      timestamp,
	}

	var count int64
	db := dbManager.GetConnection()
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		if err := tx.Create(view).Error; err != nil {
			return err
		}
		return tx.Raw(`
			INSERT INTO view_counts (path, count) VALUES (?, 1)
			ON CONFLICT(path) DO UPDATE SET count = view_counts.count + 1
			RETURNING count
		`, path).Scan(&count).Error
	})
	if err != nil {
		logger.Error("Failed to record view",
			slog.String("path", path),
			slog.Any("error", err))
		return RecordResult{}, fmt.Errorf("failed to record view: %w", err)
	}

	return RecordResult{Count: count, Recorded: true}, nil
}

// parseReferrer extracts host and pathname from a referrer URL. A missing or
// unparseable referrer yields empty components, which attributes the view to
// the "Unknown source" bucket downstream.
func parseReferrer(referrerURL string, logger *slog.Logger) referrerData {
	if referrerURL == "" {
		return referrerData{}
	}

	parsed, err := url.Parse(referrerURL)
	if err != nil || parsed.Hostname() == "" {
		logger.Debug("Failed to parse referrer URL", slog.String("referrer", referrerURL))
		return referrerData{}
	}

	pathname := parsed.Path
	if pathname == "" {
		pathname = "/"
	}

	return referrerData{
		host:     parsed.Hostname(),
		pathname: pathname,
	}
}

func isBlacklistedReferrer(host string, blacklist []string) bool {
	if host == "" {
		return false
	}
	lowerHost := strings.ToLower(host)
	for _, blocked := range blacklist {
		if lowerHost == blocked {
			return true
		}
	}
	return false
}
