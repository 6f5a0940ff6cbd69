package types

// ExtendedError is the error type returned by namespace middleware. It
// carries an optional Data payload so an ERROR packet can report more than
// a bare string: a rejected admission's ERROR packet carries Data() when it
// is non-nil, else Error().
type ExtendedError struct {
	message string
	data    any
}

func NewExtendedError(message string, data any) *ExtendedError {
	return &ExtendedError{message: message, data: data}
}

func (e *ExtendedError) Error() string {
	return e.message
}

func (e *ExtendedError) Data() any {
	return e.data
}
