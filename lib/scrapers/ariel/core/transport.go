package core

import (
	"context"
	"net/url"
)

type Credentials struct {
	Username string
	Password string
}

// Document is the final url and body of a page request, after every redirect
// and refresh has been followed.
type Document struct {
	Url  *url.URL
	Body []byte
}

// Transport is the authenticated access to the portal. The session behind a
// Transport belongs to a single flow, implementations are not safe for
// concurrent use.
//
// note: fault injection point
type Transport interface {
	// Authenticate establishes the session. A rejected login is an *AuthError.
	Authenticate(ctx context.Context, creds Credentials) error
	// Reauthenticate logs in again with the last accepted credentials.
	Reauthenticate(ctx context.Context) error
	// Fetch GETs a page following HTTP redirects and refresh markers.
	Fetch(ctx context.Context, target string) (Document, error)
	// Submit POSTs a form, the response is handled like Fetch's.
	Submit(ctx context.Context, target string, form map[string]string) (Document, error)
	// FetchBytes GETs a raw payload, refresh markers are not looked for.
	FetchBytes(ctx context.Context, target string) ([]byte, error)
	// ProbeSize returns the declared length of a payload, or 0 when unknown.
	ProbeSize(ctx context.Context, target string) (int64, error)
}
