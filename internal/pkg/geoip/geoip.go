// Package geoip resolves IP addresses to location data using MaxMind databases.
// The City database provides country/region/city/coordinates; an optional ISP
// database adds the provider name. All lookups are best-effort: a missing
// database or an unresolvable IP yields an empty Location, never an error the
// ingestion path has to handle.
package geoip

import (
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/oschwald/geoip2-golang"

	"pixelview/internal/config"
)

// Location holds the geolocation fields attached to a recorded view.
// Latitude and Longitude are decimal-degree strings to match the stored
// column types; all fields are empty when the lookup failed.
type Location struct {
	Country   string
	Region    string
	City      string
	Latitude  string
	Longitude string
	ISP       string
}

var (
	geoDB  *geoip2.Reader
	ispDB  *geoip2.Reader
	once   sync.Once
	mu     sync.RWMutex
	logger *slog.Logger
)

// InitLogger sets the logger for the geoip package.
func InitLogger(l *slog.Logger) {
	logger = l
}

// openReader opens a MaxMind database file, returning nil when the path is
// unset or the file is missing (GeoIP is optional).
func openReader(path, kind string) *geoip2.Reader {
	if path == "" {
		if logger != nil {
			logger.Debug("GeoIP database path not configured - lookups disabled",
				slog.String("kind", kind))
		}
		return nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if logger != nil {
			logger.Info("GeoIP database not found - lookups disabled",
				slog.String("kind", kind),
				slog.String("path", path),
				slog.String("hint", "Download from https://www.maxmind.com/en/geolite2/signup"))
		}
		return nil
	} else if err != nil {
		if logger != nil {
			logger.Warn("Error checking GeoIP database file",
				slog.String("kind", kind),
				slog.String("path", path),
				slog.Any("error", err))
		}
		return nil
	}

	db, err := geoip2.Open(path)
	if err != nil {
		if logger != nil {
			logger.Error("Failed to open GeoIP database",
				slog.String("kind", kind),
				slog.String("path", path),
				slog.Any("error", err))
		}
		return nil
	}

	if logger != nil {
		logger.Info("GeoIP database initialized successfully",
			slog.String("kind", kind),
			slog.String("path", path))
	}
	return db
}

// InitGeoDB initializes the GeoLite2 City database (and the ISP database when
// configured). Returns nil if the City database is not available.
func InitGeoDB() *geoip2.Reader {
	cfg := config.GetConfig()
	ispDB = openReader(cfg.GeoISPDBPath, "isp")
	return openReader(cfg.GeoDBPath, "city")
}

// GetGeoDB returns the GeoLite2 City database reader, initializing it if necessary.
func GetGeoDB() *geoip2.Reader {
	once.Do(func() {
		mu.Lock()
		geoDB = InitGeoDB()
		mu.Unlock()
	})
	mu.RLock()
	defer mu.RUnlock()
	return geoDB
}

// ReloadGeoDB reloads the GeoIP databases from disk.
// Call this after downloading new database files.
func ReloadGeoDB() {
	mu.Lock()
	defer mu.Unlock()

	if geoDB != nil {
		geoDB.Close()
	}
	if ispDB != nil {
		ispDB.Close()
	}

	geoDB = InitGeoDB()

	if geoDB != nil && logger != nil {
		logger.Info("GeoIP databases reloaded successfully")
	}
}

// Lookup resolves an IP address string to a Location. Private, invalid and
// unknown addresses produce an empty Location.
func Lookup(ipAddress string) Location {
	var loc Location

	db := GetGeoDB()
	if db == nil {
		return loc
	}

	ip := net.ParseIP(ipAddress)
	if ip == nil {
		if logger != nil {
			logger.Debug("Failed to parse IP address for geo lookup",
				slog.String("ip_address", ipAddress))
		}
		return loc
	}

	record, err := db.City(ip)
	if err != nil {
		if logger != nil {
			logger.Warn("GeoIP city lookup failed",
				slog.String("ip_address", ipAddress),
				slog.Any("error", err))
		}
		return loc
	}

	if record.Country.IsoCode != "" && record.Country.IsoCode != "--" {
		loc.Country = strings.ToLower(record.Country.IsoCode)
	}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].Names["en"]
	}
	loc.City = record.City.Names["en"]
	if record.Location.Latitude != 0 || record.Location.Longitude != 0 {
		loc.Latitude = strconv.FormatFloat(record.Location.Latitude, 'f', 4, 64)
		loc.Longitude = strconv.FormatFloat(record.Location.Longitude, 'f', 4, 64)
	}

	mu.RLock()
	isp := ispDB
	mu.RUnlock()
	if isp != nil {
		if ispRecord, err := isp.ISP(ip); err == nil {
			loc.ISP = ispRecord.ISP
		}
	}

	return loc
}
