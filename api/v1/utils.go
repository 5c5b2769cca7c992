package v1

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
	"log/slog"

	"pixelview/internal/config"
	"pixelview/internal/views"
)

func getClientIP(c *fiber.Ctx) string {
	strategy := config.GetConfig().ClientIPStrategy

	// Try standard headers first
	if ip := views.ExtractClientIP(c.Get("X-Forwarded-For"), strategy); ip != "" {
		return ip
	}

	// Other reverse-proxy headers
	for _, header := range []string{
		"X-Real-IP",
		"CF-Connecting-IP",
		"True-Client-IP",
		"X-Client-IP",
	} {
		if value := c.Get(header); value != "" {
			if ip := views.SelectPreferredIP([]string{value}); ip != "" {
				return ip
			}
		}
	}

	if forwarded := c.Get("Forwarded"); forwarded != "" {
		if ip := views.SelectPreferredIP(views.ParseForwardedHeader(forwarded)); ip != "" {
			return ip
		}
	}

	// Try the remote address from the request directly
	remoteAddr := c.Context().RemoteAddr().String()
	if remoteAddr != "" {
		// Extract IP from IP:port format
		host, _, err := net.SplitHostPort(remoteAddr)
		if err == nil && host != "" {
			parsedIP := net.ParseIP(host)
			if parsedIP != nil && !views.IsPrivateIP(parsedIP) {
				return host
			}
		} else {
			// Try to use the address directly if SplitHostPort fails
			parsedIP := net.ParseIP(remoteAddr)
			if parsedIP != nil && !views.IsPrivateIP(parsedIP) {
				return remoteAddr
			}
		}
	}

	// Finally, use Fiber's built-in method
	ip := c.IP()
	if ip != "" && ip != "0.0.0.0" && ip != "::" {
		parsedIP := net.ParseIP(strings.TrimSpace(ip))
		if parsedIP != nil && !views.IsPrivateIP(parsedIP) {
			return ip
		}
	}

	// If we get here, we couldn't determine a public IP
	slog.Default().Info("Fallback to loopback IP for request",
		slog.String("path", c.Path()),
		slog.Any("headers", c.GetReqHeaders()))
	return "127.0.0.1"
}

// generateETag creates a strong ETag from content using SHA-256
func generateETag(content []byte) string {
	hash := sha256.Sum256(content)
	return `"` + hex.EncodeToString(hash[:]) + `"` // Quoted for strong ETag
}
