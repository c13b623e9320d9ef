// Package flash carries one-shot notices from the response that produced them
// to the next page the browser renders. Nothing is kept server side: the
// notices ride in a short-lived cookie that is cleared the moment it is read.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Ryan-Har/truckbook/pkg/models"
)

const (
	DefaultCookieName = "flash"

	// cookies are capped around 4KiB by browsers
	maxEncodedLen = 3072
	cookieMaxAge  = 5 * time.Minute
)

// Notices is the ordered list of messages attached to one response.
type Notices []models.Flash

// Success appends a success notice.
func (n *Notices) Success(text string) {
	*n = append(*n, models.Flash{Kind: models.FlashSuccess, Text: text})
}

// Error appends an error notice.
func (n *Notices) Error(text string) {
	*n = append(*n, models.Flash{Kind: models.FlashError, Text: text})
}

// Of returns the notices of the given kind.
func (n Notices) Of(kind models.FlashKind) Notices {
	var out Notices
	for _, f := range n {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// Carrier moves Notices across a redirect.
type Carrier struct {
	Name   string
	Secure bool
}

// NewCarrier returns a Carrier using the default cookie name.
func NewCarrier(secure bool) *Carrier {
	return &Carrier{Name: DefaultCookieName, Secure: secure}
}

func (c *Carrier) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Set attaches notices to the next request from this client. An empty list
// is a no-op. Notices that do not fit in a cookie are dropped from the end.
func (c *Carrier) Set(w http.ResponseWriter, notices Notices) {
	for len(notices) > 0 {
		raw, err := json.Marshal(notices)
		if err != nil {
			return
		}
		enc := base64.RawURLEncoding.EncodeToString(raw)
		if len(enc) <= maxEncodedLen {
			http.SetCookie(w, c.cookie(enc, int(cookieMaxAge.Seconds())))
			return
		}
		notices = notices[:len(notices)-1]
	}
}

// Pop returns the carried notices and clears the cookie. A missing or
// tampered cookie yields no notices; the cookie is cleared either way.
func (c *Carrier) Pop(w http.ResponseWriter, r *http.Request) Notices {
	ck, err := r.Cookie(c.Name)
	if err != nil {
		return nil
	}
	http.SetCookie(w, c.cookie("", -1))

	raw, err := base64.RawURLEncoding.DecodeString(ck.Value)
	if err != nil {
		return nil
	}
	var notices Notices
	if err := json.Unmarshal(raw, &notices); err != nil {
		return nil
	}

	// FlashKind.UnmarshalText rejects unknown kinds, drop empty text too
	out := notices[:0]
	for _, f := range notices {
		if f.Text != "" {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
