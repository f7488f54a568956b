package telemetry

import (
	"fmt"
)

// API is an abstraction over logging/metrics so that components can be tested
// for the things they report.
//
// note: fault injection point
type API interface {
	// ReportBroken reports a component that broke in a way that should be addressed.
	//
	// `id` names the component and method (ex. `client.fetch`, `crawler.expand`), not
	// the specific line that failed. Ids are lowercase, underscores separate words of a
	// component and dashes separate words of a method.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something that is recoverable but may be worth a look,
	// for example a crawl child that was skipped.
	ReportWarning(id string, params ...any)

	// ReportDebug reports information that is only useful while developing.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the current count of an event, counts are points in time
	// and should not be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI attaches a namespace to every id reported through it, like a
// "sub" logger.
type ScopedAPI struct {
	namespace string
	inner     API
}

// NewScopedAPI creates a ScopedAPI out of a given namespace and another api.
func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}
