// file: internal/server/middleware/basicauth.go
// version: 2.1.0
// guid: a1b2c3d4-e5f6-7a8b-9c0d-1e2f3a4b5c6d

package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DS09AT/Shelvance-sub001/internal/config"
)

const basicAuthRealm = `Basic realm="Shelvance"`

// BasicAuth enforces HTTP Basic Authentication when
// config.AppConfig.BasicAuthEnabled is set. Requests for the exempt paths
// pass through so probes keep working.
func BasicAuth(exempt ...string) gin.HandlerFunc {
	open := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		open[p] = true
	}

	return func(c *gin.Context) {
		cfg := config.AppConfig
		if !cfg.BasicAuthEnabled || open[c.Request.URL.Path] {
			c.Next()
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if !ok || !credentialsMatch(user, pass, cfg.BasicAuthUsername, cfg.BasicAuthPassword) {
			c.Header("WWW-Authenticate", basicAuthRealm)
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":  "authentication required",
				"code":   "UNAUTHORIZED",
				"status": http.StatusUnauthorized,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// credentialsMatch compares both fields in constant time, always checking
// the password so timing does not reveal a valid username.
func credentialsMatch(user, pass, wantUser, wantPass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(wantUser))
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(wantPass))
	return userOK&passOK == 1
}
