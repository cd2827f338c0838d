package handler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"esghandlers/pkg/config"
	"esghandlers/pkg/metrics"
	"esghandlers/pkg/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeFile struct {
	path  string
	attrs types.Attributes
}

func (f *fakeFile) Path() string                  { return f.path }
func (f *fakeFile) HasAttribute(name string) bool { _, ok := f.attrs[name]; return ok }
func (f *fakeFile) Attributes() types.Attributes  { return f.attrs }
func (f *fakeFile) GetAttribute(name string) (string, error) {
	v, ok := f.attrs[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrAttributeNotFound, name)
	}
	return v, nil
}

func fakeOpener(files map[string]types.Attributes) Opener {
	return OpenerFunc(func(path string) (File, error) {
		attrs, ok := files[path]
		if !ok {
			return nil, errors.New("no such file")
		}
		return &fakeFile{path: path, attrs: attrs}, nil
	})
}

func TestErrorKinds(t *testing.T) {
	pubErr := PublishErrorf("File %s missing required %s global attribute", "/a.nc", "table_id")
	fmtErr := InvalidMetadataFormatf("No global attribute: project_id")

	assert.EqualError(t, pubErr, "File /a.nc missing required table_id global attribute")
	assert.ErrorIs(t, pubErr, ErrPublish)
	assert.NotErrorIs(t, pubErr, ErrInvalidMetadataFormat)
	assert.ErrorIs(t, fmtErr, ErrInvalidMetadataFormat)

	assert.Equal(t, KindPublish, KindOf(pubErr))
	assert.Equal(t, KindInvalidMetadataFormat, KindOf(fmt.Errorf("wrapped: %w", fmtErr)))
	assert.Equal(t, "", KindOf(errors.New("other")))
}

func TestBasicHandlerReadContext(t *testing.T) {
	cfg, err := config.LoadConfigData([]byte("[project:cmip6]\ncontext_fields = grid_label, nominal_resolution\n"))
	require.NoError(t, err)

	h := NewBasicHandler("cmip6", Options{Config: cfg, Logger: zaptest.NewLogger(t)})

	f := &fakeFile{path: "/a.nc", attrs: types.Attributes{
		"project_id":     "CMIP6",
		"institution_id": "NCAR",
		"source_id":      "CESM2",
		"experiment_id":  "historical",
		"frequency":      "mon",
		"variant_label":  "r1i1p1f1",
		"table_id":       "Amon",
		"grid_label":     "gn",
		"realm":          "",
		"modeling_realm": "atmos",
	}}

	result, err := h.ReadContext(f)
	require.NoError(t, err)

	assert.Equal(t, types.Context{
		"project":        "CMIP6",
		"institute":      "NCAR",
		"model":          "CESM2",
		"experiment":     "historical",
		"time_frequency": "mon",
		"ensemble":       "r1i1p1f1",
		"cmor_table":     "Amon",
		"realm":          "atmos",
		"grid_label":     "gn",
	}, result)
}

func TestBasicHandlerGetContext(t *testing.T) {
	opener := fakeOpener(map[string]types.Attributes{
		"/data/a.nc": {"project": "GeoMIP", "model": "CanESM2", "experiment": "G1"},
	})

	t.Run("Does not overwrite initialized fields", func(t *testing.T) {
		h := NewBasicHandler("geomip", Options{Path: "/data/a.nc", Opener: opener})

		ctx, err := h.GetContext(types.Context{"model": "override", "extra": "x"})
		require.NoError(t, err)

		assert.Equal(t, "override", ctx["model"])
		assert.Equal(t, "GeoMIP", ctx["project"])
		assert.Equal(t, "G1", ctx["experiment"])
		assert.Equal(t, "x", ctx["extra"])
		assert.Equal(t, ctx, h.Context())
	})

	t.Run("Nil initial context", func(t *testing.T) {
		h := NewBasicHandler("geomip", Options{Path: "/data/a.nc", Opener: opener})
		ctx, err := h.GetContext(nil)
		require.NoError(t, err)
		assert.Len(t, ctx, 3)
	})

	t.Run("Counts successful reads", func(t *testing.T) {
		m := metrics.New(prometheus.NewRegistry())
		h := NewBasicHandler("geomip", Options{Path: "/data/a.nc", Opener: opener, Metrics: m})

		_, err := h.GetContext(nil)
		require.NoError(t, err)

		failing := NewBasicHandler("geomip", Options{Path: "/data/missing.nc", Opener: opener, Metrics: m})
		_, err = failing.GetContext(nil)
		require.Error(t, err)

		assert.Equal(t, 1.0, testutil.ToFloat64(m.ContextReads.WithLabelValues("geomip")))
	})

	t.Run("No path", func(t *testing.T) {
		h := NewBasicHandler("geomip", Options{Opener: opener})
		_, err := h.GetContext(nil)
		assert.ErrorIs(t, err, ErrPublish)
	})

	t.Run("No opener", func(t *testing.T) {
		h := NewBasicHandler("geomip", Options{Path: "/data/a.nc"})
		_, err := h.GetContext(nil)
		assert.Error(t, err)
	})

	t.Run("Open failure", func(t *testing.T) {
		h := NewBasicHandler("geomip", Options{Path: "/data/missing.nc", Opener: opener})
		_, err := h.GetContext(nil)
		assert.ErrorContains(t, err, "/data/missing.nc")
	})
}

func TestBasicHandlerDefaults(t *testing.T) {
	h := NewBasicHandler("test", Options{Offline: true})

	assert.NoError(t, h.ValidateFile(context.Background(), &fakeFile{}))
	assert.NoError(t, h.GenerateDerivedContext())
	assert.True(t, h.Offline())
	assert.Equal(t, "fallback", h.ConfigValue("missing", "fallback"))
	assert.NotNil(t, h.Logger())
}

func TestRegistry(t *testing.T) {
	factory := func(project string, opts Options) (ProjectHandler, error) {
		return NewBasicHandler(project, opts), nil
	}

	Register("registry-test", factory)
	defer func() {
		registryMu.Lock()
		delete(registry, "registry-test")
		registryMu.Unlock()
	}()

	assert.Contains(t, Names(), "registry-test")
	assert.Panics(t, func() { Register("registry-test", factory) })
	assert.Panics(t, func() { Register("nil-factory", nil) })

	t.Run("Resolves through project_handler", func(t *testing.T) {
		cfg, err := config.LoadConfigData([]byte("[project:mine]\nproject_handler = registry-test\n"))
		require.NoError(t, err)

		h, err := NewProjectHandler("mine", Options{Config: cfg})
		require.NoError(t, err)
		assert.Equal(t, "mine", h.Name())
	})

	t.Run("Falls back to the project name", func(t *testing.T) {
		h, err := NewProjectHandler("registry-test", Options{})
		require.NoError(t, err)
		assert.Equal(t, "registry-test", h.Name())
	})

	t.Run("Unknown handler", func(t *testing.T) {
		_, err := NewProjectHandler("nope", Options{})
		assert.ErrorIs(t, err, ErrUnknownHandler)
	})
}
