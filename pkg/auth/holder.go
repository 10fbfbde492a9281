// Package auth holds the client's authentication state: the current session,
// its persisted copy in local storage, and the register/login/logout
// operations that change it.
package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/me/startupval/pkg/api"
	"github.com/me/startupval/pkg/model"
	"github.com/me/startupval/pkg/storage"
)

// SessionKey is the storage key holding the serialized session.
const SessionKey = "user"

// Backend endpoints.
const (
	RegisterPath = "/api/auth/register"
	LoginPath    = "/api/auth/login"
)

// Holder is the auth state machine. It is Anonymous when Session() is nil
// and Authenticated otherwise. The stored blob and the in-memory session are
// updated together under mu and never diverge.
type Holder struct {
	retrier *api.Retrier
	store   storage.Storage
	logger  *slog.Logger

	mu       sync.RWMutex
	session  *model.Session
	lastErr  string
	inFlight int
}

// Restore builds a Holder from whatever session the store holds. A missing,
// unreadable or corrupt blob leaves the holder Anonymous; a corrupt blob is
// also removed.
func Restore(ctx context.Context, store storage.Storage, retrier *api.Retrier, logger *slog.Logger) *Holder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &Holder{
		retrier: retrier,
		store:   store,
		logger:  logger.With("component", "auth"),
	}

	data, err := store.GetItem(ctx, SessionKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return h
	case err != nil:
		h.logger.Warn("could not read stored session", "error", err)
		return h
	}

	session, err := model.ParseSession(data)
	if err != nil {
		h.logger.Warn("discarding stored session", "error", err)
		if rerr := store.RemoveItem(ctx, SessionKey); rerr != nil {
			h.logger.Warn("could not remove stored session", "error", rerr)
		}
		return h
	}
	if session.IsExpired() {
		h.logger.Info("stored token has expired; the backend will reject it", "expired_at", session.ExpiresAt())
	}

	h.session = session
	h.logger.Debug("session restored", "user", session.Email, "role", session.Role)
	return h
}

// Session returns the current session, or nil when Anonymous.
func (h *Holder) Session() *model.Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.session
}

// IsAuthenticated reports whether a session is present.
func (h *Holder) IsAuthenticated() bool {
	return h.Session() != nil
}

// IsAdmin reports whether the current session has the admin role.
func (h *Holder) IsAdmin() bool {
	s := h.Session()
	return s != nil && s.IsAdmin()
}

// AuthHeader returns "Bearer <token>" for the current session, or "".
func (h *Holder) AuthHeader() string {
	s := h.Session()
	if s == nil {
		return ""
	}
	return s.BearerToken()
}

// LastError returns the user-facing message of the last failed register or
// login, or "" after a success.
func (h *Holder) LastError() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastErr
}

// Loading reports whether a register or login call is in flight.
func (h *Holder) Loading() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.inFlight > 0
}

// Send issues req through the retrier with the current session's
// authorization attached.
func (h *Holder) Send(ctx context.Context, req api.Request) (*api.Response, error) {
	req.Authorization = h.AuthHeader()
	return h.retrier.Do(ctx, req)
}

// Register creates an account and, on success, makes it the current session.
func (h *Holder) Register(ctx context.Context, reg model.Registration) (*model.Session, error) {
	if err := reg.Validate(); err != nil {
		return nil, h.fail(&Error{Op: OpRegister, Kind: KindValidation, UserMessage: err.Error(), Err: err})
	}
	return h.authenticate(ctx, OpRegister, RegisterPath, reg)
}

// Login authenticates and, on success, replaces the current session.
func (h *Holder) Login(ctx context.Context, creds model.Credentials) (*model.Session, error) {
	if err := creds.Validate(); err != nil {
		return nil, h.fail(&Error{Op: OpLogin, Kind: KindValidation, UserMessage: err.Error(), Err: err})
	}
	return h.authenticate(ctx, OpLogin, LoginPath, creds)
}

// Logout drops the session from storage and memory. It never contacts the
// backend. The in-memory session is cleared even if storage fails.
func (h *Holder) Logout(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.session = nil
	if err := h.store.RemoveItem(ctx, SessionKey); err != nil {
		h.logger.Warn("could not remove stored session", "error", err)
		return &Error{Op: OpLogout, Kind: KindStorage, UserMessage: "Could not clear the saved session.", Err: err}
	}
	h.logger.Info("logged out")
	return nil
}

func (h *Holder) authenticate(ctx context.Context, op, path string, body any) (*model.Session, error) {
	h.setInFlight(1)
	defer h.setInFlight(-1)

	resp, err := h.Send(ctx, api.Request{Method: http.MethodPost, Path: path, Body: body})
	if err != nil {
		return nil, h.fail(classify(op, err))
	}

	session, err := model.ParseSession(resp.Data)
	if err != nil {
		perr := &api.ParseError{StatusCode: resp.Status, Body: string(resp.Data), Err: err}
		return nil, h.fail(classify(op, perr))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.store.SetItem(ctx, SessionKey, session.Raw()); err != nil {
		e := &Error{Op: op, Kind: KindStorage, UserMessage: MsgStorage, Err: err}
		h.lastErr = e.UserMessage
		h.logger.Warn(op+" failed", "kind", e.Kind, "error", err)
		return nil, e
	}
	h.session = session
	h.lastErr = ""
	h.logger.Info(op+" succeeded", "user", session.Email, "role", session.Role)
	return session, nil
}

func (h *Holder) fail(e *Error) error {
	h.mu.Lock()
	h.lastErr = e.UserMessage
	h.mu.Unlock()
	h.logger.Warn(e.Op+" failed", "kind", e.Kind, "message", e.UserMessage, "error", e.Err)
	return e
}

func (h *Holder) setInFlight(delta int) {
	h.mu.Lock()
	h.inFlight += delta
	h.mu.Unlock()
}
