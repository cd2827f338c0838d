package service

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	_ "esghandlers/pkg/cmip6"
	"esghandlers/pkg/config"
	_ "esghandlers/pkg/geomip"
	"esghandlers/pkg/handler"
	"esghandlers/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const blockingProject = "blocking-test"

// blockingHandler holds ValidateFile until release is closed.
type blockingHandler struct {
	*handler.BasicHandler
}

var blocking struct {
	sync.Mutex
	started chan struct{}
	release chan struct{}
}

func (h *blockingHandler) ValidateFile(ctx context.Context, f handler.File) error {
	blocking.Lock()
	started, release := blocking.started, blocking.release
	blocking.Unlock()

	close(started)
	select {
	case <-release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func init() {
	handler.Register(blockingProject, func(project string, opts handler.Options) (handler.ProjectHandler, error) {
		return &blockingHandler{BasicHandler: handler.NewBasicHandler(project, opts)}, nil
	})
}

const testIni = `[project:cmip6]
min_cmor_version = 3.3.0

[project:geomip]
project_handler = geomip
`

func startServer(t *testing.T) *grpc.ClientConn {
	t.Helper()

	cfg, err := config.LoadConfigData([]byte(testIni))
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	srv := NewServer(handler.Options{Config: cfg, Logger: logger})

	listener := bufconn.Listen(1024 * 1024)
	gs := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(logger)))
	srv.Register(gs)

	go func() {
		_ = gs.Serve(listener)
	}()
	t.Cleanup(func() {
		srv.Shutdown()
		gs.Stop()
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestValidateFileService(t *testing.T) {
	client := NewClient(startServer(t))
	ctx := context.Background()

	tests := []struct {
		name    string
		project string
		attrs   types.Attributes
		valid   bool
		kind    string
		message string
	}{
		{
			name:    "GeoMIP accepted",
			project: "geomip",
			attrs:   types.Attributes{"project_id": "GeoMIP"},
			valid:   true,
		},
		{
			name:    "GeoMIP rejected",
			project: "geomip",
			attrs:   types.Attributes{"project_id": "CMIP5"},
			kind:    handler.KindInvalidMetadataFormat,
			message: "project_id should be 'GeoMIP'",
		},
		{
			name:    "CMIP6 recent CMOR",
			project: "cmip6",
			attrs:   types.Attributes{"cmor_version": "3.4.0"},
			valid:   true,
		},
		{
			name:    "CMIP6 missing table_id",
			project: "cmip6",
			attrs:   types.Attributes{"cmor_version": "3.2.0", "data_specs_version": "01.00.23"},
			kind:    handler.KindPublish,
			message: "File /data/a.nc missing required table_id global attribute",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := client.ValidateFile(ctx, tt.project, "/data/a.nc", tt.attrs)
			require.NoError(t, err)

			assert.NotEmpty(t, result.RequestID)
			assert.Equal(t, tt.valid, result.Valid)
			assert.Equal(t, tt.kind, result.Kind)
			assert.Equal(t, tt.message, result.Message)
		})
	}
}

func TestValidateFileServiceErrors(t *testing.T) {
	client := NewClient(startServer(t))
	ctx := context.Background()

	_, err := client.ValidateFile(ctx, "", "/data/a.nc", nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.ValidateFile(ctx, "geomip", "", types.Attributes{"project_id": "GeoMIP"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.ValidateFile(ctx, "cordex", "/data/a.nc", nil)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestValidateFileProjectsRunIndependently(t *testing.T) {
	client := NewClient(startServer(t))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	started := make(chan struct{})
	release := make(chan struct{})
	blocking.Lock()
	blocking.started, blocking.release = started, release
	blocking.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := client.ValidateFile(ctx, blockingProject, "/data/slow.nc", nil)
		done <- err
	}()

	select {
	case <-started:
	case <-ctx.Done():
		t.Fatal("blocking validation never started")
	}

	// Another project is served while the first validation is still running.
	result, err := client.ValidateFile(ctx, "geomip", "/data/a.nc", types.Attributes{"project_id": "GeoMIP"})
	require.NoError(t, err)
	assert.True(t, result.Valid)

	close(release)
	require.NoError(t, <-done)
}

func TestGetContextService(t *testing.T) {
	client := NewClient(startServer(t))

	attrs := types.Attributes{
		"project_id":    "GeoMIP",
		"model_id":      "CanESM2",
		"experiment_id": "G1",
	}

	result, err := client.GetContext(context.Background(), "geomip", "/data/a.nc", attrs, types.Context{"model": "HadGEM2-ES"})
	require.NoError(t, err)

	assert.Equal(t, types.Context{
		"project":    "GeoMIP",
		"model":      "HadGEM2-ES",
		"experiment": "G1",
	}, result)

	_, err = client.GetContext(context.Background(), "geomip", "", attrs, nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestHealth(t *testing.T) {
	conn := startServer(t)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
