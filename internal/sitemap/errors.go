package sitemap

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownProvider = errors.New("unknown multi-page provider")
	ErrUnknownResolver = errors.New("unknown route details resolver")
)

// ProviderError is returned when a MultiPageProvider fails while generating
// entries. It aborts the whole document build.
type ProviderError struct {
	Route    string
	Provider string
	Managed  bool
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("multi-page provider %q for route %s: %v", e.Provider, e.Route, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
