package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var scannerPrefixes = []string{
	"/admin",
	"/phpmyadmin",
	"/wp-admin",
	"/wp-login",
	"/.env",
	"/.git",
	"/.aws",
	"/cgi-bin",
	"/actuator",
	"/console",
	"/favicon.ico",
	"/robots.txt",
}

var scannerSuffixes = []string{".php", ".asp", ".aspx", ".jsp", ".bak", ".sql", ".zip"}

// NoiseFilter marks unauthenticated probe traffic so Logging drops it.
// Must be registered after Logging.
func NoiseFilter() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.GetBool(AuthenticatedKey) {
			return
		}

		status := c.Writer.Status()
		if status == http.StatusMethodNotAllowed || (status >= 400 && isScannerPath(c.Request.URL.Path)) {
			c.Set(SkipLoggingKey, true)
		}
	}
}

func isScannerPath(path string) bool {
	lower := strings.ToLower(path)
	for _, prefix := range scannerPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	for _, suffix := range scannerSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
