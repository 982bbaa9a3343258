package loader

import "time"

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithHotReload watches the opened shader file and posts its new contents to the scene on every save.
//
// Parameters:
//   - enabled: true to watch shader files
//
// Returns:
//   - LoaderBuilderOption: a function that applies the hot reload option to a loader
func WithHotReload(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.hotReload = enabled
	}
}

// WithWorkers sets the size of the worker pool that reads and validates reloaded shaders. Defaults to 2.
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = max(n, 1)
	}
}

// WithDebounce sets how long a file must stay quiet before it is reloaded. Defaults to 50ms.
func WithDebounce(d time.Duration) LoaderBuilderOption {
	return func(l *loader) {
		l.debounce = d
	}
}

// WithRejectInvalid validates reloaded shaders before posting them; invalid files are reported and
// never reach the scene. Enabled by default.
func WithRejectInvalid(reject bool) LoaderBuilderOption {
	return func(l *loader) {
		l.rejectInvalid = reject
	}
}

// WithErrorHandler registers fn to receive hot reload failures. Called from a worker goroutine.
//
// Parameters:
//   - fn: receives the file path and the error
//
// Returns:
//   - LoaderBuilderOption: a function that applies the handler to a loader
func WithErrorHandler(fn func(path string, err error)) LoaderBuilderOption {
	return func(l *loader) {
		l.onError = fn
	}
}
