package extraction

import "fmt"

// UpstreamError indicates the backend service call itself failed: network,
// auth, quota, or a response with no usable content.
type UpstreamError struct {
	Backend string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream error: %v", e.Backend, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// MalformedResponseError indicates the backend responded, but the response
// text is not valid JSON.
type MalformedResponseError struct {
	Backend string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s returned malformed JSON: %v", e.Backend, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// InvalidStructureError indicates the backend returned valid JSON that is not
// invoice-shaped at all: the top-level vendor or invoice key is missing. This
// is the one condition normalization cannot recover from by defaulting.
type InvalidStructureError struct {
	Missing string
}

func (e *InvalidStructureError) Error() string {
	return fmt.Sprintf("extracted data is missing required %q object", e.Missing)
}
