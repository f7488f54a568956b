package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sebastian/internal/components/telemetry"
	"sync/atomic"
	"testing"

	_ "embed"

	"github.com/stretchr/testify/require"
)

//go:embed testdata/login_failed.html
var loginFailedHtml []byte

const refreshToV5 = `<html><head><META HTTP-EQUIV="REFRESH" CONTENT="0; URL=v5"></head></html>`

func newTestClient(t testing.TB, server *httptest.Server) (*Client, *telemetry.Recorder) {
	t.Helper()

	sitemap := Sitemap{
		LoginUrl:        server.URL + "/login.aspx",
		SearchUrl:       server.URL + "/search",
		HomeUrl:         server.URL + "/",
		SiteHostPattern: `^127\.0\.0\.1$`,
	}
	recorder := &telemetry.Recorder{}
	client, err := NewClient(ClientOptions{
		Sitemap:   sitemap,
		Telemetry: recorder,
	})
	require.NoError(t, err)
	return client, recorder
}

func TestAuthenticate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login.aspx", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "true", r.PostForm.Get("hdnSilent"))

		if r.PostForm.Get("tbLogin") != "student" || r.PostForm.Get("tbPassword") != "secret" {
			w.Write(loginFailedHtml)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "valid", Path: "/"})
		w.Write([]byte("<html>welcome</html>"))
	})
	mux.HandleFunc("/protected", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("session")
		if err != nil || cookie.Value != "valid" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte("secret content"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, _ := newTestClient(t, server)
	ctx := context.Background()

	err := client.Reauthenticate(ctx)
	require.ErrorIs(t, err, ErrNotAuthenticated)

	err = client.Authenticate(ctx, Credentials{Username: "student", Password: "wrong"})
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, "Nome utente o password non validi", authErr.Reason)

	_, err = client.Fetch(ctx, server.URL+"/protected")
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Equal(t, http.StatusForbidden, netErr.Status)

	err = client.Authenticate(ctx, Credentials{Username: "student", Password: "secret"})
	require.NoError(t, err)

	doc, err := client.Fetch(ctx, server.URL+"/protected")
	require.NoError(t, err)
	require.Equal(t, "secret content", string(doc.Body))

	require.NoError(t, client.Reauthenticate(ctx))
}

func TestFetchFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/middle", http.StatusFound)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/site/", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/site/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(refreshToV5))
	})
	mux.HandleFunc("/site/v5", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>site</html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, recorder := newTestClient(t, server)
	doc, err := client.Fetch(context.Background(), server.URL+"/start")
	require.NoError(t, err)
	require.Equal(t, server.URL+"/site/v5", doc.Url.String())
	require.Equal(t, "<html>site</html>", string(doc.Body))
	require.Len(t, recorder.Reports("debug", "following refresh"), 1)
}

func TestRefreshLoop(t *testing.T) {
	var hits atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/loop/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		// "v5" resolved against /loop/v5 is /loop/v5 again
		w.Write([]byte(refreshToV5))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, _ := newTestClient(t, server)
	_, err := client.Fetch(context.Background(), server.URL+"/loop/")
	require.ErrorIs(t, err, ErrRefreshLoop)
	require.Equal(t, int64(1+MaxRefreshDepth), hits.Load())

	_, err = client.Submit(context.Background(), server.URL+"/loop/", map[string]string{"keyword": "x"})
	require.ErrorIs(t, err, ErrRefreshLoop)
}

func TestRedirectBound(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Redirect(w, r, r.URL.Path, http.StatusFound)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server)
	_, err := client.Fetch(context.Background(), server.URL+"/again")
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Error(t, netErr.Err)
	require.LessOrEqual(t, hits.Load(), int64(MaxRedirects+1))
}

func TestStatusErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server)
	ctx := context.Background()

	_, err := client.Fetch(ctx, server.URL+"/broken")
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Equal(t, http.StatusInternalServerError, netErr.Status)
	require.Equal(t, server.URL+"/broken", netErr.Url)

	_, err = client.FetchBytes(ctx, server.URL+"/broken")
	require.ErrorAs(t, err, &netErr)

	_, err = client.ProbeSize(ctx, server.URL+"/broken")
	require.ErrorAs(t, err, &netErr)
}

func TestSubmit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		w.Write([]byte("results for " + r.PostForm.Get("keyword")))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server)
	doc, err := client.Submit(context.Background(), server.URL+"/search", map[string]string{"keyword": "analisi"})
	require.NoError(t, err)
	require.Equal(t, "results for analisi", string(doc.Body))
}

func TestFetchBytesIgnoresRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(refreshToV5))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server)
	body, err := client.FetchBytes(context.Background(), server.URL+"/payload")
	require.NoError(t, err)
	require.Equal(t, refreshToV5, string(body))
}

func TestProbeSize(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sized", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Length", "1234")
	})
	mux.HandleFunc("/unsized", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, _ := newTestClient(t, server)
	ctx := context.Background()

	size, err := client.ProbeSize(ctx, server.URL+"/sized")
	require.NoError(t, err)
	require.Equal(t, int64(1234), size)

	size, err = client.ProbeSize(ctx, server.URL+"/unsized")
	require.NoError(t, err)
	require.Equal(t, int64(0), size)
}

func TestCanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Fetch(ctx, server.URL)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSitemapValidate(t *testing.T) {
	require.NoError(t, DefaultSitemap().Validate())

	sitemap := DefaultSitemap()
	sitemap.HomeUrl = "/relative"
	require.Error(t, sitemap.Validate())

	sitemap = DefaultSitemap()
	sitemap.SiteHostPattern = "("
	require.Error(t, sitemap.Validate())

	_, err := NewClient(ClientOptions{Sitemap: sitemap})
	require.Error(t, err)
}

func TestFake(t *testing.T) {
	fake := NewFake()
	ctx := context.Background()

	fake.Serve("https://example.com/a", []byte("persistent"))
	fake.ServeOnce("https://example.com/a", []byte("first"))
	fake.Fail("https://example.com/b", errors.New("boom"))

	doc, err := fake.Fetch(ctx, "https://example.com/a")
	require.NoError(t, err)
	require.Equal(t, "first", string(doc.Body))
	doc, err = fake.Fetch(ctx, "https://example.com/a")
	require.NoError(t, err)
	require.Equal(t, "persistent", string(doc.Body))
	require.Equal(t, 2, fake.Calls("https://example.com/a"))

	_, err = fake.FetchBytes(ctx, "https://example.com/b")
	require.EqualError(t, err, "boom")
	_, err = fake.FetchBytes(ctx, "https://example.com/b")
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Equal(t, 404, netErr.Status)

	require.ErrorIs(t, fake.Reauthenticate(ctx), ErrNotAuthenticated)
	require.NoError(t, fake.Authenticate(ctx, Credentials{Username: "u", Password: "p"}))
	require.NoError(t, fake.Reauthenticate(ctx))
	require.Equal(t, 2, fake.Authentications())

	fake.RejectLogin = true
	var authErr *AuthError
	require.ErrorAs(t, fake.Authenticate(ctx, Credentials{}), &authErr)
}
