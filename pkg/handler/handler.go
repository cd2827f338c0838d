package handler

import (
	"context"

	"esghandlers/pkg/metrics"
	"esghandlers/pkg/types"

	"go.uber.org/zap"
)

// File is an opened data file as seen by a handler. The caller owns it for
// the duration of one call.
type File interface {
	Path() string
	HasAttribute(name string) bool
	// GetAttribute returns an error wrapping ErrAttributeNotFound when the
	// global attribute is absent.
	GetAttribute(name string) (string, error)
	Attributes() types.Attributes
}

// Opener opens a sample path and returns its file handle.
type Opener interface {
	Open(path string) (File, error)
}

type OpenerFunc func(path string) (File, error)

func (f OpenerFunc) Open(path string) (File, error) {
	return f(path)
}

// Config is the read-only configuration lookup handlers depend on.
type Config interface {
	Get(section, key, def string) string
	HasSection(section string) bool
	HasOption(section, key string) bool
}

// ProjectHandler is the contract a project plugin implements. The publisher
// calls ValidateFile once per file, then GetContext on a representative
// file of the dataset.
type ProjectHandler interface {
	Name() string
	ValidateFile(ctx context.Context, f File) error
	GetContext(initial types.Context) (types.Context, error)
	ReadContext(f File) (types.Context, error)
	GenerateDerivedContext() error
}

// Options carries what the publisher hands to every handler it builds.
type Options struct {
	Path    string
	Config  Config
	Opener  Opener
	Offline bool
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// ValidatorCommand is the external CV validator executable.
	ValidatorCommand string
}
