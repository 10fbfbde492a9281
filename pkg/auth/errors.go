package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/me/startupval/pkg/api"
)

// Operations reported in Error.Op.
const (
	OpRegister = "register"
	OpLogin    = "login"
	OpLogout   = "logout"
)

// Kind classifies a register/login failure for display.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindServerStarting Kind = "server_starting"
	KindNetwork        Kind = "network"
	KindNotFound       Kind = "not_found"
	KindRejected       Kind = "rejected"
	KindServer         Kind = "server"
	KindStorage        Kind = "storage"
	KindOther          Kind = "other"
)

// User-facing messages.
const (
	MsgServerStarting      = "Server is starting up. Please wait a moment and try again."
	MsgNetwork             = "Network error. Please check your internet connection and try again."
	MsgEndpointNotFound    = "API endpoint not found. Please check the server configuration."
	MsgServerError         = "Server error. Please try again later."
	MsgInvalidRegistration = "Invalid registration details. Please check the form and try again."
	MsgUserExists          = "An account with this email already exists."
	MsgInvalidCredentials  = "Invalid email or password."
	MsgStorage             = "Signed in, but the session could not be saved on this device."
	MsgRegisterFailed      = "Registration failed"
	MsgLoginFailed         = "Login failed"
)

// Error is returned by Register and Login. UserMessage is safe to show to
// the user; Err is the original failure, so the raw backend response is
// reachable through errors.As(err, &*api.HTTPError).
type Error struct {
	Op          string
	Kind        Kind
	UserMessage string
	Err         error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.UserMessage)
}

// Unwrap returns the original failure.
func (e *Error) Unwrap() error {
	return e.Err
}

// Response returns the backend's HTTP error response, if the failure had one.
func (e *Error) Response() *api.HTTPError {
	var herr *api.HTTPError
	if errors.As(e.Err, &herr) {
		return herr
	}
	return nil
}

// classify maps a failure from the retrier to a user-facing Error. Checks run
// in priority order: aborted, unreachable, 404, rejected input, 5xx, then the
// raw message.
func classify(op string, err error) *Error {
	e := &Error{Op: op, Err: err}
	status := api.StatusCode(err)

	switch {
	case api.IsAborted(err):
		e.Kind, e.UserMessage = KindServerStarting, MsgServerStarting
	case api.IsUnreachable(err):
		e.Kind, e.UserMessage = KindNetwork, MsgNetwork
	case status == http.StatusNotFound:
		e.Kind, e.UserMessage = KindNotFound, MsgEndpointNotFound
	case rejectedDefault(op, status) != "":
		e.Kind = KindRejected
		e.UserMessage = serverMessage(err)
		if e.UserMessage == "" {
			e.UserMessage = rejectedDefault(op, status)
		}
	case status >= http.StatusInternalServerError:
		e.Kind, e.UserMessage = KindServer, MsgServerError
	default:
		e.Kind, e.UserMessage = KindOther, err.Error()
		if e.UserMessage == "" {
			e.UserMessage = fallbackMessage(op)
		}
	}
	return e
}

// rejectedDefault returns the default message for statuses that mean the
// backend rejected the submitted data, or "" if status is not one of them.
func rejectedDefault(op string, status int) string {
	switch {
	case op == OpRegister && status == http.StatusBadRequest:
		return MsgInvalidRegistration
	case op == OpRegister && status == http.StatusConflict:
		return MsgUserExists
	case op == OpLogin && status == http.StatusUnauthorized:
		return MsgInvalidCredentials
	}
	return ""
}

func serverMessage(err error) string {
	var herr *api.HTTPError
	if errors.As(err, &herr) {
		return herr.Message
	}
	return ""
}

func fallbackMessage(op string) string {
	if op == OpRegister {
		return MsgRegisterFailed
	}
	return MsgLoginFailed
}
