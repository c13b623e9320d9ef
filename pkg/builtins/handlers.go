package builtins

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Ryan-Har/truckbook/internal/tokenstore"
	"github.com/Ryan-Har/truckbook/pkg/credential"
	"github.com/Ryan-Har/truckbook/pkg/flash"
	"github.com/Ryan-Har/truckbook/pkg/models"
	"github.com/Ryan-Har/truckbook/web/templates"
	"github.com/a-h/templ"
	"github.com/google/uuid"
)

// Authority is the part of *credential.Authority the handlers drive.
type Authority interface {
	Register(ctx context.Context, email, password string) (uuid.UUID, error)
	Authenticate(ctx context.Context, email, password string) (credential.Result, error)
	SignUp(ctx context.Context, email, password string, client credential.Client) (*models.Session, error)
	Login(ctx context.Context, email, password string, client credential.Client) (*models.Session, credential.Result, error)
	Logout(ctx context.Context, sessionID string) error
	LogoutEverywhere(ctx context.Context, accountID uuid.UUID) error
}

// CookieConfig shapes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

type Handler struct {
	auth    Authority
	tokens  tokenstore.TokenStore
	flashes *flash.Carrier
	cookie  CookieConfig
	log     *slog.Logger
}

func newHandler(logger *slog.Logger, auth Authority, tokens tokenstore.TokenStore, flashes *flash.Carrier, cookie CookieConfig) *Handler {
	if cookie.Name == "" {
		cookie.Name = "session_token"
	}
	if cookie.TTL <= 0 {
		cookie.TTL = models.DefaultSessionTTL
	}
	if flashes == nil {
		flashes = flash.NewCarrier(cookie.Secure)
	}
	return &Handler{
		auth:    auth,
		tokens:  tokens,
		flashes: flashes,
		cookie:  cookie,
		log:     logger,
	}
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, sesh *models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    sesh.ID,
		Path:     "/",
		Expires:  sesh.ExpiresAt,
		MaxAge:   int(time.Until(sesh.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clientOf(r *http.Request) credential.Client {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return credential.Client{IPAddress: ip, UserAgent: r.UserAgent()}
}

// outcome maps an Authority error to the status and text shown to the
// client. Only validation and duplicate errors carry specific text.
func outcome(err error) (int, string) {
	var (
		vErr   *models.ValidationError
		dup    *models.DuplicateAccountError
		nf     *models.NotFoundError
		badPwd *models.InvalidCredentialsError
	)
	switch {
	case errors.As(err, &vErr):
		return http.StatusUnprocessableEntity, vErr.Error()
	case errors.As(err, &dup):
		return http.StatusConflict, dup.Error()
	case errors.As(err, &nf), errors.As(err, &badPwd):
		return http.StatusUnauthorized, models.PublicCredentialsMessage
	default:
		return http.StatusInternalServerError, models.PublicPersistenceMessage
	}
}

// render writes page inside the layout with status.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, title string, notices flash.Notices, page templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.Layout(title, notices, page).Render(r.Context(), w); err != nil {
		h.log.ErrorContext(r.Context(), "unable to render page", "title", title, "err", err)
	}
}
