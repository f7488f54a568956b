package core

import (
	"context"
	"net/url"
	"sync"
)

type fakeResponse struct {
	body []byte
	err  error
}

// Fake is an in-memory Transport serving fixture bodies. Responses queued
// with ServeOnce or Fail are consumed in order before falling back to the
// body set with Serve, urls without any response answer with a 404
// NetworkError. Refresh markers are not followed.
type Fake struct {
	mutex      sync.Mutex
	persistent map[string][]byte
	queued     map[string][]fakeResponse
	sizes      map[string]int64
	calls      map[string]int

	// RejectLogin makes Authenticate fail with an *AuthError.
	RejectLogin bool

	credentials     *Credentials
	authentications int
}

func NewFake() *Fake {
	return &Fake{
		persistent: map[string][]byte{},
		queued:     map[string][]fakeResponse{},
		sizes:      map[string]int64{},
		calls:      map[string]int{},
	}
}

func (f *Fake) Serve(target string, body []byte) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.persistent[target] = body
}

func (f *Fake) ServeOnce(target string, body []byte) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.queued[target] = append(f.queued[target], fakeResponse{body: body})
}

func (f *Fake) Fail(target string, err error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.queued[target] = append(f.queued[target], fakeResponse{err: err})
}

func (f *Fake) SetSize(target string, size int64) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.sizes[target] = size
}

// Calls returns how many requests were made for a url.
func (f *Fake) Calls(target string) int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.calls[target]
}

// Authentications returns how many times a login was accepted.
func (f *Fake) Authentications() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.authentications
}

func (f *Fake) respond(target string) ([]byte, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.calls[target]++
	if queue := f.queued[target]; len(queue) > 0 {
		f.queued[target] = queue[1:]
		return queue[0].body, queue[0].err
	}
	body, ok := f.persistent[target]
	if !ok {
		return nil, &NetworkError{Url: target, Status: 404}
	}
	return body, nil
}

func (f *Fake) Authenticate(ctx context.Context, creds Credentials) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.RejectLogin {
		return &AuthError{Reason: "invalid credentials"}
	}
	f.credentials = &creds
	f.authentications++
	return nil
}

func (f *Fake) Reauthenticate(ctx context.Context) error {
	f.mutex.Lock()
	creds := f.credentials
	f.mutex.Unlock()
	if creds == nil {
		return ErrNotAuthenticated
	}
	return f.Authenticate(ctx, *creds)
}

func (f *Fake) Fetch(ctx context.Context, target string) (Document, error) {
	err := ctx.Err()
	if err != nil {
		return Document{}, err
	}
	u, err := url.Parse(target)
	if err != nil {
		return Document{}, &NetworkError{Url: target, Err: err}
	}
	body, err := f.respond(target)
	if err != nil {
		return Document{}, err
	}
	return Document{Url: u, Body: body}, nil
}

func (f *Fake) Submit(ctx context.Context, target string, form map[string]string) (Document, error) {
	return f.Fetch(ctx, target)
}

func (f *Fake) FetchBytes(ctx context.Context, target string) ([]byte, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}
	return f.respond(target)
}

func (f *Fake) ProbeSize(ctx context.Context, target string) (int64, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls[target]++
	return f.sizes[target], nil
}
