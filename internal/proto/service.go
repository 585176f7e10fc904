package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "bookshelf.Bookshelf"

	ListBooksMethod = "/" + ServiceName + "/ListBooks"
	ListYearsMethod = "/" + ServiceName + "/ListYears"

	TokenMetadataKey = "x-token"
)

// BookshelfServer is the server API of the Bookshelf service. Requests and
// responses are free-form structs.
type BookshelfServer interface {
	ListBooks(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListYears(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterBookshelfServer(s *grpc.Server, srv BookshelfServer) {
	s.RegisterService(&bookshelfServiceDesc, srv)
}

func listBooksHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookshelfServer).ListBooks(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListBooksMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BookshelfServer).ListBooks(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listYearsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookshelfServer).ListYears(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListYearsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BookshelfServer).ListYears(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var bookshelfServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookshelfServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListBooks", Handler: listBooksHandler},
		{MethodName: "ListYears", Handler: listYearsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookshelf.proto",
}

// BookshelfClient calls the Bookshelf service over conn.
type BookshelfClient struct {
	cc grpc.ClientConnInterface
}

func NewBookshelfClient(cc grpc.ClientConnInterface) *BookshelfClient {
	return &BookshelfClient{cc: cc}
}

func (c *BookshelfClient) ListBooks(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ListBooksMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookshelfClient) ListYears(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ListYearsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
