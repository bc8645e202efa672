package core

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError reports bad or missing arguments and input-shape problems.
// It is always raised before any network activity.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("config: %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// AuthError reports a failure of the external identity command.
// Stderr carries the command's own diagnostics verbatim.
type AuthError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *AuthError) Error() string {
	var b strings.Builder
	b.WriteString("auth: ")
	if e.Command != "" {
		fmt.Fprintf(&b, "command failed:\n  %s\n", e.Command)
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		fmt.Fprintf(&b, "\n\nSTDERR:\n%s", s)
	}
	return b.String()
}

func (e *AuthError) Unwrap() error { return e.Err }

// FetchError reports a failed Bulk query job or an unusable response.
type FetchError struct {
	Stage  string // create, poll, results
	JobID  string
	Status int
	Body   string
	Err    error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fetch (%s)", e.Stage)
	if e.JobID != "" {
		fmt.Fprintf(&b, " job %s", e.JobID)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.Status)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if s := strings.TrimSpace(e.Body); s != "" {
		fmt.Fprintf(&b, "\n%s", s)
	}
	return b.String()
}

func (e *FetchError) Unwrap() error { return e.Err }

// PartialResultError reports that result pagination stopped before the full set
// was retrieved. The run is aborted rather than reporting on partial metadata.
type PartialResultError struct {
	JobID   string
	Pages   int
	Rows    int
	Locator string
	Err     error
}

func (e *PartialResultError) Error() string {
	msg := fmt.Sprintf("partial result: job %s stopped after %d page(s), %d row(s)", e.JobID, e.Pages, e.Rows)
	if e.Locator != "" {
		msg += fmt.Sprintf(" (next locator %s)", e.Locator)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PartialResultError) Unwrap() error { return e.Err }

// WriteError reports a filesystem failure while writing a report.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Process exit codes per error class.
const (
	ExitOK      = 0
	ExitUnknown = 1
	ExitConfig  = 2
	ExitAuth    = 3
	ExitFetch   = 4
	ExitWrite   = 5
)

// ExitCode maps err onto the process exit code for its class.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		cfgErr     *ConfigError
		authErr    *AuthError
		fetchErr   *FetchError
		partialErr *PartialResultError
		writeErr   *WriteError
	)
	switch {
	case errors.As(err, &cfgErr):
		return ExitConfig
	case errors.As(err, &authErr):
		return ExitAuth
	case errors.As(err, &partialErr), errors.As(err, &fetchErr):
		return ExitFetch
	case errors.As(err, &writeErr):
		return ExitWrite
	default:
		return ExitUnknown
	}
}
