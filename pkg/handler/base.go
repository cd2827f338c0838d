package handler

import (
	"context"
	"fmt"
	"io"

	"esghandlers/pkg/config"
	"esghandlers/pkg/metrics"
	"esghandlers/pkg/types"

	"go.uber.org/zap"
)

// contextAttributes maps each standard context field to the global
// attributes it may be read from, in order of preference.
var contextAttributes = []struct {
	field string
	attrs []string
}{
	{"project", []string{"project", "project_id"}},
	{"product", []string{"product"}},
	{"institute", []string{"institute", "institute_id", "institution_id"}},
	{"model", []string{"model", "model_id", "source_id"}},
	{"experiment", []string{"experiment", "experiment_id"}},
	{"time_frequency", []string{"time_frequency", "frequency"}},
	{"realm", []string{"realm", "modeling_realm"}},
	{"cmor_table", []string{"cmor_table", "table_id"}},
	{"ensemble", []string{"ensemble", "variant_label", "realization"}},
}

// BasicHandler implements the default behaviour of a project handler.
// Project handlers embed it and override what they need.
type BasicHandler struct {
	name    string
	path    string
	config  Config
	opener  Opener
	offline bool
	metrics *metrics.Metrics
	logger  *zap.Logger

	context       types.Context
	contextFields []string
}

// NewBasicHandler builds the base handler of project name. A nil logger is
// replaced by a no-op logger.
func NewBasicHandler(name string, opts Options) *BasicHandler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &BasicHandler{
		name:    name,
		path:    opts.Path,
		config:  opts.Config,
		opener:  opts.Opener,
		offline: opts.Offline,
		metrics: opts.Metrics,
		logger:  logger.With(zap.String("project", name)),
		context: make(types.Context),
	}

	if h.config != nil {
		h.contextFields = config.SplitLine(h.config.Get(config.ProjectSection(name), "context_fields", ""))
	}

	return h
}

func (h *BasicHandler) Name() string              { return h.name }
func (h *BasicHandler) Path() string              { return h.path }
func (h *BasicHandler) Config() Config            { return h.config }
func (h *BasicHandler) Offline() bool             { return h.offline }
func (h *BasicHandler) Logger() *zap.Logger       { return h.logger }
func (h *BasicHandler) Metrics() *metrics.Metrics { return h.metrics }

// Context returns the fields accumulated by the last GetContext call.
func (h *BasicHandler) Context() types.Context { return h.context }

// ConfigValue reads key from the handler's project section.
func (h *BasicHandler) ConfigValue(key, def string) string {
	if h.config == nil {
		return def
	}
	return h.config.Get(config.ProjectSection(h.name), key, def)
}

// OpenPath opens a sample path through the configured opener.
func (h *BasicHandler) OpenPath(path string) (File, error) {
	if h.opener == nil {
		return nil, fmt.Errorf("no file opener configured for project %s", h.name)
	}
	f, err := h.opener.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

// ValidateFile accepts every file.
func (h *BasicHandler) ValidateFile(ctx context.Context, f File) error {
	return nil
}

// ReadContext returns the standard context fields found among the file's
// global attributes, plus any fields listed in the project's context_fields
// option.
func (h *BasicHandler) ReadContext(f File) (types.Context, error) {
	result := make(types.Context)

	for _, ca := range contextAttributes {
		for _, attr := range ca.attrs {
			if !f.HasAttribute(attr) {
				continue
			}
			value, err := f.GetAttribute(attr)
			if err != nil {
				return nil, err
			}
			if value != "" {
				result[ca.field] = value
				break
			}
		}
	}

	for _, field := range h.contextFields {
		if !f.HasAttribute(field) {
			continue
		}
		value, err := f.GetAttribute(field)
		if err != nil {
			return nil, err
		}
		result[field] = value
	}

	return result, nil
}

// GetContext reads the handler's sample file and merges its fields into
// initial. Fields already set in initial are never overwritten.
func (h *BasicHandler) GetContext(initial types.Context) (types.Context, error) {
	h.context = initial.Clone()

	if h.path == "" {
		return nil, PublishErrorf("No sample file available for project %s", h.name)
	}

	f, err := h.OpenPath(h.path)
	if err != nil {
		return nil, err
	}
	if c, ok := f.(io.Closer); ok {
		defer c.Close()
	}

	fields, err := h.ReadContext(f)
	if err != nil {
		return nil, err
	}
	h.context.Merge(fields)
	h.metrics.RecordContextRead(h.name)

	h.logger.Debug("Read dataset context",
		zap.String("file", h.path),
		zap.Int("fields", len(h.context)))

	return h.context, nil
}

// GenerateDerivedContext adds nothing by default.
func (h *BasicHandler) GenerateDerivedContext() error {
	return nil
}
