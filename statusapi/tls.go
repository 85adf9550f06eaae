package statusapi

import (
	"github.com/caddyserver/certmagic"
	"github.com/labstack/echo/v4"
)

// startManagedTLS serves e over HTTPS for domain using a certmagic-
// managed certificate issued through Let's Encrypt under email, the same
// pattern the teacher repo used for its own optional TLS status surface.
// addr is accepted for interface parity with Start but certmagic.HTTPS
// always binds the standard HTTPS port.
func startManagedTLS(e *echo.Echo, addr, domain, email string) error {
	certmagic.DefaultACME.Email = email
	return certmagic.HTTPS([]string{domain}, e)
}
