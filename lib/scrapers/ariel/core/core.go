package core

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"sebastian/internal/components/telemetry"
	"sebastian/lib/htmlutil"
	"sebastian/lib/restyutil"
	"sebastian/lib/scrapers/ariel/page"
	"strconv"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	// MaxRedirects bounds the HTTP redirects followed by a single request.
	MaxRedirects = 15
	// MaxRefreshDepth bounds the refresh markers followed by a single
	// Fetch or Submit, independently of HTTP redirects.
	MaxRefreshDepth = 5
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type ClientOptions struct {
	Sitemap Sitemap
	// Timeout of every request, defaults to 30 seconds.
	Timeout   time.Duration
	UserAgent string
	// BypassCloudflare wraps the http transport so that it passes
	// cloudflare's browser checks.
	BypassCloudflare bool
	// RequestsPerSecond limits the request rate, 0 means unlimited.
	RequestsPerSecond float64
	// Output receives a dump of every http message when debug logging is
	// enabled, it can be nil.
	Output    restyutil.InstrumentOutput
	Telemetry telemetry.API
}

// Client is the resty implementation of Transport. It owns the session's
// cookie jar, nothing else writes to it.
type Client struct {
	Http *resty.Client

	sitemap     Sitemap
	tel         telemetry.API
	credentials *Credentials
}

func NewClient(opts ClientOptions) (*Client, error) {
	err := opts.Sitemap.Validate()
	if err != nil {
		return nil, err
	}

	client := resty.New()
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	if opts.BypassCloudflare {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(MaxRedirects))
	client.SetTimeout(timeout)

	if opts.RequestsPerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}
	restyutil.InstrumentClient(client, tracer, opts.Output)

	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}

	return &Client{
		Http:    client,
		sitemap: opts.Sitemap,
		tel:     telemetry.NewScopedAPI("ariel_client", tel),
	}, nil
}

func checkResponse(target string, res *resty.Response, err error) error {
	if err != nil {
		status := 0
		if res != nil {
			status = res.StatusCode()
		}
		return &NetworkError{Url: target, Status: status, Err: err}
	}
	if !res.IsSuccess() {
		return &NetworkError{Url: target, Status: res.StatusCode()}
	}
	return nil
}

// the url of the last request in the redirect chain
func finalUrl(target string, res *resty.Response) (*url.URL, error) {
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		return res.RawResponse.Request.URL, nil
	}
	return url.Parse(target)
}

func (c *Client) document(target string, res *resty.Response, err error) (Document, error) {
	err = checkResponse(target, res, err)
	if err != nil {
		return Document{}, err
	}
	u, err := finalUrl(target, res)
	if err != nil {
		return Document{}, err
	}
	return Document{Url: u, Body: res.Body()}, nil
}

func (c *Client) Authenticate(ctx context.Context, creds Credentials) error {
	ctx, span := tracer.Start(ctx, "client:Authenticate")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"hdnSilent":  "true",
			"tbLogin":    creds.Username,
			"tbPassword": creds.Password,
		}).
		Post(c.sitemap.LoginUrl)
	err = checkResponse(c.sitemap.LoginUrl, res, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return err
	}

	reason, failed := page.IsLoginFailure(res.Body())
	if failed {
		span.SetStatus(codes.Error, "login rejected")
		return &AuthError{Reason: reason}
	}

	c.credentials = &creds
	return nil
}

func (c *Client) Reauthenticate(ctx context.Context) error {
	if c.credentials == nil {
		return ErrNotAuthenticated
	}
	c.tel.ReportDebug("session expired, logging in again")
	return c.Authenticate(ctx, *c.credentials)
}

func (c *Client) Fetch(ctx context.Context, target string) (Document, error) {
	ctx, span := tracer.Start(ctx, "client:Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", target))

	res, err := c.Http.R().
		SetContext(ctx).
		Get(target)
	doc, err := c.document(target, res, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return Document{}, err
	}

	doc, err = c.followRefresh(ctx, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to follow refresh")
		return Document{}, err
	}
	return doc, nil
}

func (c *Client) Submit(ctx context.Context, target string, form map[string]string) (Document, error) {
	ctx, span := tracer.Start(ctx, "client:Submit")
	defer span.End()
	span.SetAttributes(attribute.String("url", target))

	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(target)
	doc, err := c.document(target, res, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit")
		return Document{}, err
	}

	doc, err = c.followRefresh(ctx, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to follow refresh")
		return Document{}, err
	}
	return doc, nil
}

// followRefresh keeps fetching the target of the document's refresh marker
// until a document without one is found.
func (c *Client) followRefresh(ctx context.Context, doc Document) (Document, error) {
	for depth := 0; ; depth++ {
		target, ok := page.RefreshTarget(doc.Body)
		if !ok {
			return doc, nil
		}
		if depth >= MaxRefreshDepth {
			return Document{}, fmt.Errorf("%w: stopped at %s after %d refreshes", ErrRefreshLoop, doc.Url, depth)
		}

		next, err := htmlutil.Resolve(doc.Url, target)
		if err != nil {
			return Document{}, fmt.Errorf("resolve refresh target '%s': %w", target, err)
		}
		c.tel.ReportDebug("following refresh", "from", doc.Url.String(), "to", next.String())

		res, err := c.Http.R().
			SetContext(ctx).
			Get(next.String())
		doc, err = c.document(next.String(), res, err)
		if err != nil {
			return Document{}, err
		}
	}
}

func (c *Client) FetchBytes(ctx context.Context, target string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "client:FetchBytes")
	defer span.End()
	span.SetAttributes(attribute.String("url", target))

	res, err := c.Http.R().
		SetContext(ctx).
		Get(target)
	err = checkResponse(target, res, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return nil, err
	}
	span.SetAttributes(attribute.Int("size", len(res.Body())))
	return res.Body(), nil
}

func (c *Client) ProbeSize(ctx context.Context, target string) (int64, error) {
	ctx, span := tracer.Start(ctx, "client:ProbeSize")
	defer span.End()
	span.SetAttributes(attribute.String("url", target))

	res, err := c.Http.R().
		SetContext(ctx).
		Head(target)
	err = checkResponse(target, res, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to probe")
		return 0, err
	}

	length := res.Header().Get("Content-Length")
	if length == "" {
		return 0, nil
	}
	size, err := strconv.ParseInt(length, 10, 64)
	if err != nil || size < 0 {
		c.tel.ReportDebug("unparsable content length", "url", target, "value", length)
		return 0, nil
	}
	return size, nil
}
