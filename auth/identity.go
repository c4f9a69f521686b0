package auth

import (
	"net"
	"net/http"
	"strings"

	"github.com/Alegandi83/webdemocracy/survey"
	"github.com/google/uuid"
)

const voterSessionName = "voter-session"

// ResolveIdentity turns the request's cookies, remote address and optional
// authenticated user into a voter identity. When no voter session exists
// yet, a fresh opaque token is minted and saved as a cookie so the same
// anonymous voter is recognized on later requests. Never fails: a broken
// cookie simply yields a fresh token.
func ResolveIdentity(w http.ResponseWriter, r *http.Request) survey.Identity {
	identity := survey.Identity{IP: ClientIP(r)}

	if userID, ok := r.Context().Value("userID").(uint); ok {
		identity.UserID = &userID
	}

	session, err := Store.Get(r, voterSessionName)
	if err == nil {
		if token, ok := session.Values["token"].(string); ok && token != "" {
			identity.Session = token
			return identity
		}
	} else {
		session, _ = Store.New(r, voterSessionName)
	}

	token := uuid.NewString()
	session.Values["token"] = token
	session.Options.MaxAge = 60 * 60 * 24 * 365
	session.Options.HttpOnly = true
	session.Options.Path = "/"
	if err := session.Save(r, w); err != nil {
		// The vote still records under the minted token; the client just
		// won't present it again.
		identity.Session = token
		return identity
	}
	identity.Session = token
	return identity
}

// ClientIP extracts the voter's address, preferring the first hop of
// X-Forwarded-For when the server sits behind a proxy.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
