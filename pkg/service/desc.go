package service

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "esghandlers.v1.Validator"

	validateFileMethod = "/" + ServiceName + "/ValidateFile"
	getContextMethod   = "/" + ServiceName + "/GetContext"
)

// ValidatorServer is the server side of the Validator service. Requests and
// responses are structpb.Struct messages.
type ValidatorServer interface {
	ValidateFile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetContext(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var ValidatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ValidatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ValidateFile", Handler: validateFileHandler},
		{MethodName: "GetContext", Handler: getContextHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "esghandlers/v1/validator.proto",
}

// RegisterValidatorServer registers srv as the Validator service.
func RegisterValidatorServer(s grpc.ServiceRegistrar, srv ValidatorServer) {
	s.RegisterService(&ValidatorServiceDesc, srv)
}

func validateFileHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ValidatorServer).ValidateFile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: validateFileMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ValidatorServer).ValidateFile(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getContextHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ValidatorServer).GetContext(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getContextMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ValidatorServer).GetContext(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
