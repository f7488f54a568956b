package core

import (
	"fmt"
)

// AuthError is returned when the portal rejects the credentials.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason == "" {
		return "login rejected"
	}
	return fmt.Sprintf("login rejected: %s", e.Reason)
}

// NetworkError is a failed request, either at the transport level (Err is
// set) or because of a non-2xx status.
type NetworkError struct {
	Url    string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request %s: %s", e.Url, e.Err.Error())
	}
	return fmt.Sprintf("request %s: unexpected status %d", e.Url, e.Status)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

var ErrRefreshLoop = fmt.Errorf("refresh chain is too long")
var ErrNotAuthenticated = fmt.Errorf("no credentials to authenticate with")
