package middleware

import (
	"net/http"
	"net/url"
	"regexp"
)

var (
	appOrigin      = regexp.MustCompile(`^(tauri|app)://localhost$`)
	loopbackOrigin = regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1|\[::1\])(:\d+)?$`)
)

// AllowOrigin reports whether a cross-origin request may reach the host. The
// packaged UI window uses an app scheme; dev builds also allow a UI served
// from a local dev server.
func AllowOrigin(dev bool) func(r *http.Request, origin string) bool {
	return func(r *http.Request, origin string) bool {
		if origin == "" {
			return false
		}

		parsed, err := url.Parse(origin)
		if err != nil {
			return false
		}

		switch parsed.Scheme {
		case "tauri", "app":
			return parsed.Hostname() == "localhost"
		case "http", "https":
			if !dev {
				return false
			}
			switch parsed.Hostname() {
			case "localhost", "127.0.0.1", "::1":
				return true
			}
		}

		return false
	}
}

// SocketOrigins lists the same origins in the form the Socket.IO server takes.
func SocketOrigins(dev bool) []any {
	origins := []any{appOrigin}
	if dev {
		origins = append(origins, loopbackOrigin)
	}
	return origins
}
