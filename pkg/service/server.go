package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"esghandlers/pkg/format"
	"esghandlers/pkg/handler"
	"esghandlers/pkg/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Server exposes the registered project handlers over gRPC.
type Server struct {
	opts   handler.Options
	logger *zap.Logger
	health *health.Server

	mu       sync.Mutex
	handlers map[string]*projectEntry
}

// projectEntry is the cached handler of one project. Handlers keep state
// between files (the CMOR tables version), so calls into one are
// serialized by its own lock.
type projectEntry struct {
	mu      sync.Mutex
	handler handler.ProjectHandler
}

// NewServer creates a server that builds handlers from opts. The Path and
// Opener fields of opts are set per request.
func NewServer(opts handler.Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Logger = logger

	return &Server{
		opts:     opts,
		logger:   logger.With(zap.String("component", "service")),
		health:   health.NewServer(),
		handlers: make(map[string]*projectEntry),
	}
}

// Register adds the Validator and health services to gs.
func (s *Server) Register(gs *grpc.Server) {
	RegisterValidatorServer(gs, s)
	healthpb.RegisterHealthServer(gs, s.health)

	st := healthpb.HealthCheckResponse_NOT_SERVING
	if len(handler.Names()) > 0 {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, st)
	s.health.SetServingStatus("", st)
}

// Shutdown marks every service as not serving.
func (s *Server) Shutdown() {
	s.health.Shutdown()
}

func (s *Server) projectHandler(project string) (*projectEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.handlers[project]; ok {
		return e, nil
	}
	h, err := handler.NewProjectHandler(project, s.opts)
	if err != nil {
		return nil, err
	}
	e := &projectEntry{handler: h}
	s.handlers[project] = e
	return e, nil
}

// ValidateFile runs the project handler on the attributes in req. Handler
// rejections are reported in the response, not as RPC errors.
func (s *Server) ValidateFile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	requestID := uuid.NewString()
	project := stringField(req, "project")
	path := stringField(req, "path")

	if project == "" {
		return nil, status.Error(codes.InvalidArgument, "project is required")
	}
	if path == "" {
		return nil, status.Error(codes.InvalidArgument, "path is required")
	}

	logger := s.logger.With(
		zap.String("request_id", requestID),
		zap.String("project", project),
		zap.String("file", path))

	e, err := s.projectHandler(project)
	if err != nil {
		return nil, handlerStatus(err)
	}

	f := format.NewAttributeFile(path, attributesField(req, "attributes"))

	e.mu.Lock()
	verr := e.handler.ValidateFile(ctx, f)
	e.mu.Unlock()

	kind := handler.KindOf(verr)
	if verr != nil && kind == "" {
		logger.Error("Validation failed unexpectedly", zap.Error(verr))
		return nil, status.Errorf(codes.Internal, "validate %s: %v", path, verr)
	}

	message := ""
	if verr != nil {
		message = verr.Error()
		logger.Info("File rejected", zap.String("kind", kind), zap.String("reason", message))
	} else {
		logger.Debug("File accepted")
	}

	return structpb.NewStruct(map[string]interface{}{
		"request_id": requestID,
		"valid":      verr == nil,
		"kind":       kind,
		"message":    message,
	})
}

// GetContext reads the dataset context of the file described in req.
func (s *Server) GetContext(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	project := stringField(req, "project")
	path := stringField(req, "path")

	if project == "" {
		return nil, status.Error(codes.InvalidArgument, "project is required")
	}
	if path == "" {
		return nil, status.Error(codes.InvalidArgument, "path is required")
	}

	f := format.NewAttributeFile(path, attributesField(req, "attributes"))

	opts := s.opts
	opts.Path = path
	opts.Opener = handler.OpenerFunc(func(p string) (handler.File, error) {
		if p != path {
			return nil, fmt.Errorf("no attributes supplied for %s", p)
		}
		return f, nil
	})

	h, err := handler.NewProjectHandler(project, opts)
	if err != nil {
		return nil, handlerStatus(err)
	}

	initial := types.Context(attributesField(req, "initial"))
	result, err := h.GetContext(initial)
	if err != nil {
		return nil, handlerStatus(err)
	}
	if err := h.GenerateDerivedContext(); err != nil {
		return nil, handlerStatus(err)
	}

	fields := make(map[string]interface{}, len(result))
	for k, v := range result {
		fields[k] = v
	}

	return structpb.NewStruct(map[string]interface{}{
		"context": fields,
	})
}

func handlerStatus(err error) error {
	switch {
	case errors.Is(err, handler.ErrUnknownHandler):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, handler.ErrInvalidMetadataFormat), errors.Is(err, handler.ErrPublish):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// LoggingInterceptor logs every unary call with its duration and status
// code.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		logger.Debug("Handled request",
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("code", status.Code(err).String()))
		return resp, err
	}
}

func stringField(s *structpb.Struct, name string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[name].GetStringValue()
}

// attributesField reads a nested struct of name/value pairs. Non-string
// values are rendered with fmt.
func attributesField(s *structpb.Struct, name string) types.Attributes {
	attrs := make(types.Attributes)
	if s == nil {
		return attrs
	}
	nested := s.GetFields()[name].GetStructValue()
	for k, v := range nested.GetFields() {
		switch kind := v.GetKind().(type) {
		case *structpb.Value_StringValue:
			attrs[k] = kind.StringValue
		case *structpb.Value_NullValue:
			attrs[k] = ""
		default:
			attrs[k] = fmt.Sprint(v.AsInterface())
		}
	}
	return attrs
}
