// Package rpc serves cipher pipelines over gRPC.
//
// The service is declared by hand rather than generated: both methods carry
// google.protobuf.Struct messages, so the codec needs no .proto of its own.
//
//	service codecs.v1.Codec {
//	  rpc Execute(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc Stream(stream google.protobuf.Struct) returns (stream google.protobuf.Struct);
//	}
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Fully qualified names of the Codec service and its methods.
const (
	ServiceName   = "codecs.v1.Codec"
	ExecuteMethod = "/" + ServiceName + "/Execute"
	StreamMethod  = "/" + ServiceName + "/Stream"
)

// CodecServer is the server API for the Codec service.
type CodecServer interface {
	// Execute runs one pipeline or recipe over one input.
	Execute(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Stream opens a session on its first message and feeds every later
	// input through it, keeping keystream positions between messages.
	Stream(grpc.ServerStream) error
}

// ServiceDesc describes the Codec service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CodecServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Execute",
			Handler:    executeHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Stream",
			Handler:       streamHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "codecs/v1/codec.proto",
}

// RegisterCodecServer attaches srv to s.
func RegisterCodecServer(s grpc.ServiceRegistrar, srv CodecServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func executeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CodecServer).Execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ExecuteMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CodecServer).Execute(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func streamHandler(srv any, stream grpc.ServerStream) error {
	return srv.(CodecServer).Stream(stream)
}
