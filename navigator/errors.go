package navigator

import (
	"errors"

	"github.com/hazyhaar/patootie/navigator/internal/normalize"
	"github.com/hazyhaar/patootie/navigator/internal/store"
)

// Errors returned by Run, List and Pop. Callers test them with errors.Is.
var (
	// ErrFetch wraps network and browser failures. Fatal for the run.
	ErrFetch = errors.New("navigator: fetch failed")

	// ErrNotCategorizable is the engine's "no usable structure" outcome.
	// Run only returns it when no URL is known to hand to the viewer.
	ErrNotCategorizable = normalize.ErrNotCategorizable

	// ErrCacheCorrupt means a stored parser generation cannot be decoded.
	ErrCacheCorrupt = store.ErrCorrupt

	// ErrNavigation means the selected value is neither an absolute nor a
	// relative URL.
	ErrNavigation = errors.New("navigator: unresolvable navigation value")

	// ErrEngine wraps any other normalization or rendering failure.
	ErrEngine = errors.New("navigator: engine failure")

	// ErrUsage reports a call that is missing required input.
	ErrUsage = errors.New("navigator: usage error")
)
