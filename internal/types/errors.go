package types

import "errors"

// Error classes for each stage of a run. Every terminal error returned by
// the core wraps exactly one of these.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrCatalog        = errors.New("project catalog unavailable")
	ErrDownload       = errors.New("bundle download failed")
	ErrExtraction     = errors.New("bundle extraction failed")
)

// Stage names used in StageError.
const (
	StageConfig  = "config"
	StageSession = "session"
	StageProject = "project"
	StageFetch   = "fetch"
	StageExtract = "extract"
)

// StageError records which stage of a run failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}
