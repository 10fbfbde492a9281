package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/me/startupval/pkg/api"
)

func TestClassify(t *testing.T) {
	aborted := &api.TransportError{Kind: api.KindAborted, Method: "POST", URL: "/x", Err: context.DeadlineExceeded}
	unreachable := &api.TransportError{Kind: api.KindUnreachable, Method: "POST", URL: "/x", Err: errors.New("connection refused")}

	tests := []struct {
		name     string
		op       string
		err      error
		wantKind Kind
		wantMsg  string
	}{
		{"aborted", OpLogin, aborted, KindServerStarting, MsgServerStarting},
		{"unreachable", OpRegister, unreachable, KindNetwork, MsgNetwork},
		{"not found", OpLogin, &api.HTTPError{StatusCode: 404, Message: "Cannot POST"}, KindNotFound, MsgEndpointNotFound},
		{"login 401 with message", OpLogin, &api.HTTPError{StatusCode: 401, Message: "Invalid email or password"}, KindRejected, "Invalid email or password"},
		{"login 401 default", OpLogin, &api.HTTPError{StatusCode: 401}, KindRejected, MsgInvalidCredentials},
		{"register 400 default", OpRegister, &api.HTTPError{StatusCode: 400}, KindRejected, MsgInvalidRegistration},
		{"register 409 default", OpRegister, &api.HTTPError{StatusCode: 409}, KindRejected, MsgUserExists},
		{"register 409 message", OpRegister, &api.HTTPError{StatusCode: 409, Message: "User already exists"}, KindRejected, "User already exists"},
		{"login 400 is raw", OpLogin, &api.HTTPError{StatusCode: 400, Message: "bad"}, KindOther, "HTTP 400: bad"},
		{"register 401 is raw", OpRegister, &api.HTTPError{StatusCode: 401}, KindOther, "HTTP 401"},
		{"server error", OpLogin, &api.HTTPError{StatusCode: 503, Message: "down"}, KindServer, MsgServerError},
		{"parse error", OpLogin, &api.ParseError{StatusCode: 200, Err: errors.New("missing token")}, KindOther, "parse response (status 200): missing token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.op, tt.err)
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", got.Kind, tt.wantKind)
			}
			if got.UserMessage != tt.wantMsg {
				t.Errorf("UserMessage = %q, want %q", got.UserMessage, tt.wantMsg)
			}
			if !errors.Is(got, tt.err) {
				t.Error("classified error must wrap the original")
			}
		})
	}
}

func TestError_Response(t *testing.T) {
	herr := &api.HTTPError{StatusCode: http.StatusUnauthorized, Body: `{"message":"no"}`, Message: "no"}
	e := classify(OpLogin, herr)
	if e.Response() != herr {
		t.Error("Response() should expose the raw HTTP error")
	}

	e = classify(OpLogin, &api.TransportError{Kind: api.KindUnreachable, Err: errors.New("x")})
	if e.Response() != nil {
		t.Error("transport failures carry no response")
	}
}
