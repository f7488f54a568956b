package assert

// NotNil panics when `value` is nil, it is meant for constructor arguments
// that the caller can never legitimately omit.
func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
}
