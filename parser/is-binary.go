package parser

import "io"

// IsBinary reports whether data is a raw byte buffer or stream that must
// travel as its own transport frame rather than be inlined as JSON.
func IsBinary(data any) bool {
	switch data.(type) {
	case []byte:
		return true
	case io.Reader:
		return true
	}
	return false
}

// HasBinary reports whether data, or anything nested inside it, is binary.
func HasBinary(data any) bool {
	switch o := data.(type) {
	case nil:
		return false
	case []any:
		for _, v := range o {
			if HasBinary(v) {
				return true
			}
		}
		return false
	case map[string]any:
		for _, v := range o {
			if HasBinary(v) {
				return true
			}
		}
		return false
	}
	return IsBinary(data)
}
