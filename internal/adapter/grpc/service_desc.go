package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name
const ServiceName = "wealthflow.recurring.v1.RecurringService"

// RecurringServiceServer is the server API for the RecurringService.
// Requests and responses are google.protobuf.Struct documents.
type RecurringServiceServer interface {
	ProcessDue(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateRule(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRule(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateRule(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteRule(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRules(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PreviewOccurrences(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTransactions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Forecast(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ImportRules(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(RecurringServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// ServiceDesc is the grpc.ServiceDesc for the RecurringService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecurringServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method("ProcessDue", RecurringServiceServer.ProcessDue),
		method("CreateRule", RecurringServiceServer.CreateRule),
		method("GetRule", RecurringServiceServer.GetRule),
		method("UpdateRule", RecurringServiceServer.UpdateRule),
		method("DeleteRule", RecurringServiceServer.DeleteRule),
		method("ListRules", RecurringServiceServer.ListRules),
		method("PreviewOccurrences", RecurringServiceServer.PreviewOccurrences),
		method("ListTransactions", RecurringServiceServer.ListTransactions),
		method("Forecast", RecurringServiceServer.Forecast),
		method("ImportRules", RecurringServiceServer.ImportRules),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wealthflow/recurring/v1/recurring.proto",
}

func method(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RecurringServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(RecurringServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Client calls the RecurringService over a client connection
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a RecurringService client
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with req encoded as a Struct and returns the decoded response
func (c *Client) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
