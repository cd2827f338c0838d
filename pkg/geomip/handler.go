// Package geomip is the GeoMIP project handler. It checks the project_id
// attribute and otherwise reads context like the base handler.
package geomip

import (
	"context"
	"strings"

	"esghandlers/pkg/handler"
	"esghandlers/pkg/metrics"
	"esghandlers/pkg/types"

	"go.uber.org/zap"
)

const (
	HandlerName = "geomip"

	projectPrefix = "GeoMIP"
)

func init() {
	handler.Register(HandlerName, func(project string, opts handler.Options) (handler.ProjectHandler, error) {
		return New(project, opts), nil
	})
}

// CustomProjectHandler handles GeoMIP files.
type CustomProjectHandler struct {
	*handler.BasicHandler
}

// New builds the GeoMIP handler of project.
func New(project string, opts handler.Options) *CustomProjectHandler {
	return &CustomProjectHandler{BasicHandler: handler.NewBasicHandler(project, opts)}
}

// ValidateFile returns a metadata format error unless the file's project_id
// starts with "GeoMIP".
func (h *CustomProjectHandler) ValidateFile(ctx context.Context, f handler.File) error {
	var message string

	if !f.HasAttribute("project_id") {
		message = "No global attribute: project_id"
	} else if projectID, err := f.GetAttribute("project_id"); err != nil || !strings.HasPrefix(projectID, projectPrefix) {
		message = "project_id should be 'GeoMIP'"
	}

	if message != "" {
		h.Logger().Debug("Rejected file", zap.String("file", f.Path()), zap.String("reason", message))
		h.Metrics().RecordValidation(h.Name(), metrics.ResultInvalid)
		return handler.InvalidMetadataFormatf("%s", message)
	}

	h.Metrics().RecordValidation(h.Name(), metrics.ResultPassed)
	return nil
}

func (h *CustomProjectHandler) GetContext(initial types.Context) (types.Context, error) {
	return h.BasicHandler.GetContext(initial)
}

func (h *CustomProjectHandler) ReadContext(f handler.File) (types.Context, error) {
	return h.BasicHandler.ReadContext(f)
}

// GenerateDerivedContext is a no-op for GeoMIP.
func (h *CustomProjectHandler) GenerateDerivedContext() error {
	return nil
}
