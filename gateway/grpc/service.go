package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/c360/flowgate/envelope"
)

// The service is declared by hand instead of generated from a .proto file:
// the envelope is schemaless JSON, so there is no message schema to compile.
// The descriptor mirrors the shape protoc-gen-go-grpc would emit.
const (
	serviceName       = "flowgate.Gateway"
	processFullMethod = "/flowgate.Gateway/Process"
	callStreamName    = "Call"
)

// gatewayService is the server contract bound to the service descriptor.
type gatewayService interface {
	Process(ctx context.Context, env *envelope.Envelope) (*envelope.Envelope, error)
	Call(stream callStream) error
}

// callStream is the typed view of the bidi request/response stream.
type callStream interface {
	Send(*envelope.Envelope) error
	Recv() (*envelope.Envelope, error)
	Context() context.Context
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*gatewayService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Process",
			Handler:    processHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    callStreamName,
			Handler:       callHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
}

func processHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(envelope.Envelope)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(gatewayService).Process(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: processFullMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(gatewayService).Process(ctx, req.(*envelope.Envelope))
	}
	return interceptor(ctx, in, info, handler)
}

func callHandler(srv any, stream grpc.ServerStream) error {
	return srv.(gatewayService).Call(&gatewayCallStream{stream})
}

type gatewayCallStream struct {
	grpc.ServerStream
}

func (s *gatewayCallStream) Send(env *envelope.Envelope) error {
	return s.ServerStream.SendMsg(env)
}

func (s *gatewayCallStream) Recv() (*envelope.Envelope, error) {
	env := new(envelope.Envelope)
	if err := s.ServerStream.RecvMsg(env); err != nil {
		return nil, err
	}
	return env, nil
}
