package chrono

import "time"

// API is the clock every component that records time should depend on.
type API interface {
	Now() time.Time
}

type StandardImpl struct {
	location *time.Location
}

// NewStandardImpl reports time in `location`, a nil location means local time.
func NewStandardImpl(location *time.Location) StandardImpl {
	if location == nil {
		location = time.Local
	}
	return StandardImpl{location: location}
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

// FixedImpl always reports the same instant.
type FixedImpl struct {
	Instant time.Time
}

func (f FixedImpl) Now() time.Time {
	return f.Instant
}
