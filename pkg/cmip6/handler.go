// Package cmip6 implements the CMIP6 project handler. Files written by a
// recent enough CMOR are accepted as they are; anything else goes through
// the PrePARE controlled vocabulary check.
package cmip6

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"esghandlers/pkg/config"
	"esghandlers/pkg/handler"
	"esghandlers/pkg/metrics"
	"esghandlers/pkg/utils"

	"go.uber.org/zap"
)

const (
	HandlerName = "cmip6"

	DefaultCMORTablePath  = "/usr/local/cmip6-cmor-tables/Tables"
	DefaultMinCMORVersion = "0.0.0"
)

var errCreateFailure = errors.New("object create failure")

func init() {
	handler.Register(HandlerName, func(project string, opts handler.Options) (handler.ProjectHandler, error) {
		return New(project, opts), nil
	})
}

// Handler is the CMIP6 project handler.
type Handler struct {
	*handler.BasicHandler

	validator   CVValidator
	tables      TableRepo
	specVersion string
}

type Option func(*Handler)

// WithValidator replaces the PrePARE executable.
func WithValidator(v CVValidator) Option {
	return func(h *Handler) { h.validator = v }
}

// WithTableRepo replaces the git backed CMOR table updater.
func WithTableRepo(r TableRepo) Option {
	return func(h *Handler) { h.tables = r }
}

// New builds the CMIP6 handler of project. Options replace the PrePARE
// validator and the git table updater.
func New(project string, opts handler.Options, options ...Option) *Handler {
	h := &Handler{
		BasicHandler: handler.NewBasicHandler(project, opts),
		specVersion:  "0",
	}
	h.validator = NewExecValidator(opts.ValidatorCommand)
	h.tables = NewGitTableRepo(opts.Offline, h.Logger())

	for _, opt := range options {
		opt(h)
	}
	return h
}

// SpecVersion is the data_specs_version the CMOR tables were last switched
// to.
func (h *Handler) SpecVersion() string {
	return h.specVersion
}

// SetSpecVersion records the data_specs_version the tables are at.
func (h *Handler) SetSpecVersion(version string) {
	h.specVersion = version
}

// OpenPath opens a sample path and guarantees the file reports it.
func (h *Handler) OpenPath(path string) (handler.File, error) {
	f, err := h.BasicHandler.OpenPath(path)
	if err != nil {
		return nil, err
	}
	if f.Path() != path {
		return &pathFile{File: f, path: path}, nil
	}
	return f, nil
}

type pathFile struct {
	handler.File
	path string
}

func (f *pathFile) Path() string { return f.path }

// ValidateFile accepts the file when its cmor_version is at least the
// configured min_cmor_version. Otherwise the file must carry
// data_specs_version, table_id and variable_id, and pass the CV check.
func (h *Handler) ValidateFile(ctx context.Context, f handler.File) error {
	path := f.Path()
	logger := h.Logger().With(zap.String("file", path))

	minCMORVersion := h.ConfigValue("min_cmor_version", DefaultMinCMORVersion)

	fileCMORVersion := "0.0.0"
	if v, err := f.GetAttribute("cmor_version"); err != nil {
		logger.Debug("File missing cmor_version attribute; will proceed with PrePARE check")
	} else {
		fileCMORVersion = v
	}

	if utils.CompareLibVersions(minCMORVersion, fileCMORVersion) {
		logger.Debug("File cmor-ized at a sufficient version, passed",
			zap.String("cmor_version", fileCMORVersion),
			zap.String("min_cmor_version", minCMORVersion))
		h.Metrics().RecordValidation(h.Name(), metrics.ResultCMORPassed)
		return nil
	}

	specVersion, err := f.GetAttribute("data_specs_version")
	if err != nil {
		return h.reject(handler.PublishErrorf("File %s missing required data_specs_version global attribute", path))
	}

	table, err := f.GetAttribute("table_id")
	if err != nil {
		return h.reject(handler.PublishErrorf("File %s missing required table_id global attribute", path))
	}

	variableID, err := f.GetAttribute("variable_id")
	if err != nil {
		return h.reject(handler.PublishErrorf("File %s missing required variable_id global attribute", path))
	}

	tablePath := h.cmorTablePath()
	h.updateTables(ctx, tablePath, specVersion)

	args := Args{
		Variable:  variableID,
		TableFile: filepath.Join(tablePath, "CMIP6_"+table+".json"),
		InputFile: path,
	}

	start := time.Now()
	err = h.checkCV(ctx, args)
	duration := time.Since(start)

	if err != nil {
		// Only the debug log keeps the cause.
		logger.Debug("CV check failed", zap.Error(err), zap.Strings("args", args.Argv()))
		result := metrics.ResultFailed
		if errors.Is(err, errCreateFailure) {
			result = metrics.ResultCreateError
		}
		h.Metrics().RecordCVCheck(h.Name(), result, duration)
		return h.reject(handler.PublishErrorf("File %s failed the CV check", path))
	}

	h.Metrics().RecordCVCheck(h.Name(), metrics.ResultPassed, duration)
	h.Metrics().RecordValidation(h.Name(), metrics.ResultPassed)
	logger.Debug("File passed the CV check", zap.Duration("duration", duration))
	return nil
}

func (h *Handler) checkCV(ctx context.Context, args Args) error {
	process, err := h.validator.CheckCMIP6(ctx, args)
	if err != nil {
		return err
	}
	if process == nil {
		return errCreateFailure
	}
	return process.ControlVocab(ctx)
}

func (h *Handler) reject(err error) error {
	h.Metrics().RecordValidation(h.Name(), metrics.ResultFailed)
	return err
}

// cmorTablePath reads cmor_table_path from the project section, then from
// config:cmip6, then falls back to the default install location.
func (h *Handler) cmorTablePath() string {
	path := h.ConfigValue("cmor_table_path", "")
	if path == "" && h.Config() != nil {
		path = h.Config().Get(config.CMIP6Section, "cmor_table_path", "")
	}
	if path == "" {
		h.Logger().Debug("Missing cmor_table_path setting. Using default location",
			zap.String("path", DefaultCMORTablePath))
		path = DefaultCMORTablePath
	}
	return path
}

// updateTables switches the CMOR tables to specVersion when it differs from
// the version last checked out. Failures are not fatal.
func (h *Handler) updateTables(ctx context.Context, tablePath, specVersion string) {
	if specVersion == "" || specVersion == h.specVersion {
		h.Metrics().RecordTableUpdate("skipped")
		return
	}

	if err := h.tables.Checkout(ctx, tablePath, specVersion); err != nil {
		h.Logger().Warn("Failed to update CMOR tables",
			zap.String("path", tablePath),
			zap.String("data_specs_version", specVersion),
			zap.Error(err))
		h.Metrics().RecordTableUpdate("failed")
		return
	}

	h.SetSpecVersion(specVersion)
	h.Metrics().RecordTableUpdate("updated")
}
