// Package credential decides whether a submitted email and password become a
// signed-in session. It owns registration, password verification and session
// issue, and leaves storage to the ports it is constructed with.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Ryan-Har/truckbook/internal/db"
	"github.com/Ryan-Har/truckbook/internal/logutil"
	"github.com/Ryan-Har/truckbook/internal/sessionstore"
	"github.com/Ryan-Har/truckbook/pkg/models"
	"github.com/Ryan-Har/truckbook/pkg/models/passwd"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Ryan-Har/truckbook/pkg/credential"

// dummyPassword is hashed once at construction; unknown accounts are verified
// against the result so both rejection paths cost one full hash.
const dummyPassword = "truckbook-timing-equaliser"

// AccountStore is the persistence port. Implementations signal a taken email
// with *db.DuplicateKeyError and a missing account with *models.NotFoundError.
type AccountStore interface {
	CreateAccount(ctx context.Context, args models.CreateAccountParams) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// SessionStore is the session/cookie port.
type SessionStore interface {
	Create(ctx context.Context, accountID uuid.UUID, ipAddress, userAgent *string) (*models.Session, error)
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteAccount(ctx context.Context, accountID uuid.UUID) error
}

// Client describes the browser a session is issued to. Both fields are optional.
type Client struct {
	IPAddress string
	UserAgent string
}

func (c Client) ptrs() (*string, *string) {
	var ip, ua *string
	if c.IPAddress != "" {
		ip = &c.IPAddress
	}
	if c.UserAgent != "" {
		ua = &c.UserAgent
	}
	return ip, ua
}

// Authority registers accounts, verifies credentials and issues sessions.
// It holds no global state and is safe for concurrent use.
type Authority struct {
	accounts  AccountStore
	sessions  SessionStore
	hasher    passwd.Hasher
	dummyHash string
	log       *slog.Logger
	tracer    trace.Tracer
	observer  Observer
}

type Option func(*Authority)

func WithLogger(log *slog.Logger) Option {
	return func(a *Authority) { a.log = log }
}

func WithTracer(tp trace.TracerProvider) Option {
	return func(a *Authority) { a.tracer = tp.Tracer(tracerName) }
}

func WithObserver(o Observer) Option {
	return func(a *Authority) { a.observer = o }
}

// New builds an Authority. It derives the timing dummy with hasher, so it
// costs one hash.
func New(accounts AccountStore, sessions SessionStore, hasher passwd.Hasher, opts ...Option) (*Authority, error) {
	a := &Authority{
		accounts: accounts,
		sessions: sessions,
		hasher:   hasher,
		log:      slog.Default(),
		tracer:   otel.Tracer(tracerName),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(a)
	}

	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("derive timing hash: %w", err)
	}
	a.dummyHash = dummy
	return a, nil
}

func (a *Authority) hash(password string) (string, error) {
	start := time.Now()
	h, err := a.hasher.Hash(password)
	a.observer.ObserveHash(time.Since(start))
	return h, err
}

func (a *Authority) verify(password, hash string) (bool, error) {
	start := time.Now()
	ok, err := a.hasher.Verify(password, hash)
	a.observer.ObserveHash(time.Since(start))
	return ok, err
}

func endSpan(span trace.Span, outcome string, err error) {
	span.SetAttributes(attribute.String("credential.outcome", outcome))
	if err != nil {
		span.SetStatus(codes.Error, outcome)
	}
	span.End()
}

// Register creates an account for email with a freshly salted hash of
// password and returns its id.
//
// Errors: *models.ValidationError for missing or malformed input,
// *models.DuplicateAccountError when the email is taken, and
// *models.PersistenceError for any other store failure.
func (a *Authority) Register(ctx context.Context, email, password string) (id uuid.UUID, err error) {
	ctx, span := a.tracer.Start(ctx, "credential.Register")
	outcome := OutcomeSuccess
	defer func() {
		a.observer.ObserveRegister(outcome)
		endSpan(span, outcome, err)
	}()

	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		outcome = OutcomeInvalid
		return uuid.Nil, models.NewValidationError("please specify an email and password")
	}
	if err := models.ValidateEmail(email); err != nil {
		outcome = OutcomeInvalid
		return uuid.Nil, err
	}

	hash, err := a.hash(password)
	if errors.Is(err, passwd.ErrPasswordTooLong) {
		outcome = OutcomeInvalid
		return uuid.Nil, models.NewValidationError(fmt.Sprintf("password must be at most %d bytes", passwd.MaxPasswordLen))
	}
	if err != nil {
		outcome = OutcomeError
		return uuid.Nil, models.NewPersistenceError(logutil.LogAndWrapErr(ctx, a.log, "failed to hash password", err))
	}

	account, err := a.accounts.CreateAccount(ctx, models.CreateAccountParams{Email: email, PasswordHash: hash})
	if err != nil {
		var dup *db.DuplicateKeyError
		if errors.As(err, &dup) {
			outcome = OutcomeDuplicate
			return uuid.Nil, models.NewDuplicateAccountError(email)
		}
		outcome = OutcomeError
		return uuid.Nil, models.NewPersistenceError(logutil.LogAndWrapErr(ctx, a.log, "failed to register account", err))
	}

	a.log.InfoContext(ctx, "registered account", "account_id", account.ID.String())
	return account.ID, nil
}

// Authenticate checks password against the account stored for email.
//
// An unknown email yields *models.NotFoundError and a wrong password yields
// *models.InvalidCredentialsError. Both carry the same message and both pay
// for one hash verification. Store failures yield *models.PersistenceError.
// The returned Result always reflects the final state of the attempt.
func (a *Authority) Authenticate(ctx context.Context, email, password string) (res Result, err error) {
	ctx, span := a.tracer.Start(ctx, "credential.Authenticate")
	outcome := OutcomeSuccess
	defer func() {
		a.observer.ObserveAuthenticate(outcome)
		endSpan(span, outcome, err)
	}()

	att := &attempt{state: Unauthenticated}
	if err := att.transition(Validating); err != nil {
		outcome = OutcomeError
		return Result{State: att.state, Err: err}, err
	}

	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		outcome = OutcomeInvalid
		res = att.reject(models.NewValidationError("please specify an email and password"))
		return res, res.Err
	}

	account, err := a.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		var nf *models.NotFoundError
		if !errors.As(err, &nf) {
			outcome = OutcomeError
			res = att.reject(models.NewPersistenceError(logutil.LogAndWrapErr(ctx, a.log, "failed to look up account", err)))
			return res, res.Err
		}
		// Same work as a real check, result ignored
		_, _ = a.verify(password, a.dummyHash)
		outcome = OutcomeUnknownAccount
		res = att.reject(models.NewNotFoundError(email))
		return res, res.Err
	}

	ok, err := a.verify(password, account.PasswordHash)
	if err != nil {
		outcome = OutcomeError
		res = att.reject(models.NewPersistenceError(logutil.LogAndWrapErr(ctx, a.log, "stored password hash is unusable",
			err, "account_id", account.ID.String())))
		return res, res.Err
	}
	if !ok {
		outcome = OutcomeBadPassword
		res = att.reject(models.NewInvalidCredentialsError())
		return res, res.Err
	}

	if a.hasher.NeedsRehash(account.PasswordHash) {
		a.upgradeHash(ctx, account.ID, password)
	}

	return att.accept(account.ID, account.Email), nil
}

// upgradeHash re-derives a weaker stored secret with the current settings.
// Failure is logged and otherwise ignored; the sign-in has already succeeded.
func (a *Authority) upgradeHash(ctx context.Context, id uuid.UUID, password string) {
	hash, err := a.hash(password)
	if err != nil {
		a.log.WarnContext(ctx, "failed to rehash password", "account_id", id.String(), "err", err)
		return
	}
	if err := a.accounts.UpdatePasswordHash(ctx, id, hash); err != nil {
		a.log.WarnContext(ctx, "failed to store rehashed password", "account_id", id.String(), "err", err)
		return
	}
	a.log.InfoContext(ctx, "upgraded password hash", "account_id", id.String())
}

// Establish issues a new session for accountID.
func (a *Authority) Establish(ctx context.Context, accountID uuid.UUID, client Client) (*models.Session, error) {
	ip, ua := client.ptrs()
	sesh, err := a.sessions.Create(ctx, accountID, ip, ua)
	if err != nil {
		return nil, models.NewPersistenceError(logutil.LogAndWrapErr(ctx, a.log, "failed to establish session", err))
	}
	return sesh, nil
}

// SignUp registers an account and signs it straight in.
func (a *Authority) SignUp(ctx context.Context, email, password string, client Client) (*models.Session, error) {
	id, err := a.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return a.Establish(ctx, id, client)
}

// Login authenticates and, on success, issues a session.
func (a *Authority) Login(ctx context.Context, email, password string, client Client) (*models.Session, Result, error) {
	res, err := a.Authenticate(ctx, email, password)
	if err != nil {
		return nil, res, err
	}
	sesh, err := a.Establish(ctx, res.AccountID, client)
	if err != nil {
		return nil, res, err
	}
	return sesh, res, nil
}

// Logout revokes sessionID. It is idempotent: empty, unknown, expired and
// already revoked tokens all succeed. Only a store failure is an error.
func (a *Authority) Logout(ctx context.Context, sessionID string) (err error) {
	ctx, span := a.tracer.Start(ctx, "credential.Logout")
	defer func() {
		outcome := OutcomeSuccess
		if err != nil {
			outcome = OutcomeError
		}
		a.observer.ObserveLogout(outcome)
		endSpan(span, outcome, err)
	}()

	if sessionID == "" {
		return nil
	}
	if err := a.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, sessionstore.ErrSessionExpired) {
		return models.NewPersistenceError(logutil.LogAndWrapErr(ctx, a.log, "failed to revoke session", err))
	}
	return nil
}

// LogoutEverywhere revokes every session of the account.
func (a *Authority) LogoutEverywhere(ctx context.Context, accountID uuid.UUID) error {
	if err := a.sessions.DeleteAccount(ctx, accountID); err != nil {
		return models.NewPersistenceError(logutil.LogAndWrapErr(ctx, a.log, "failed to revoke account sessions",
			err, "account_id", accountID.String()))
	}
	a.log.InfoContext(ctx, "revoked all sessions", "account_id", accountID.String())
	return nil
}

// Resolve returns the account behind a live session. Unknown or expired
// sessions yield *sessionstore.SessionExpiredError.
func (a *Authority) Resolve(ctx context.Context, sessionID string) (*models.Account, *models.Session, error) {
	sesh, err := a.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sessionstore.ErrSessionExpired) {
			return nil, nil, err
		}
		return nil, nil, models.NewPersistenceError(logutil.LogAndWrapErr(ctx, a.log, "failed to load session", err))
	}

	account, err := a.accounts.GetAccountByID(ctx, sesh.AccountID)
	if err != nil {
		var nf *models.NotFoundError
		if errors.As(err, &nf) {
			// Account vanished under a live session
			_ = a.sessions.Delete(ctx, sessionID)
			return nil, nil, sessionstore.ErrSessionExpired
		}
		return nil, nil, models.NewPersistenceError(logutil.LogAndWrapErr(ctx, a.log, "failed to load session account", err))
	}
	return account, sesh, nil
}
