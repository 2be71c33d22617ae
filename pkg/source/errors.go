package source

import "fmt"

// ConfigurationError reports conflicting caller intent, e.g. requesting both
// local-only and force-refresh. Always caller-fixable, never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// RemoteDataError reports a remote response that was received but could not
// be turned into a usable version identifier or download location. The
// identifier pipeline never guesses or falls back to a cached version.
type RemoteDataError struct {
	Source string
	Reason string
	Err    error
}

func (e *RemoteDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Reason)
}

func (e *RemoteDataError) Unwrap() error { return e.Err }
