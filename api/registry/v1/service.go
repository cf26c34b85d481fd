package registryv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	platformgrpc "github.com/louisbranch/mutation-registry/internal/platform/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "registry.v1.MutationRegistryService"

const (
	CreateMutationFullMethodName       = "/" + ServiceName + "/CreateMutation"
	UpdateMutationFullMethodName       = "/" + ServiceName + "/UpdateMutation"
	CopyOverridesFullMethodName        = "/" + ServiceName + "/CopyOverrides"
	GetMutationFullMethodName          = "/" + ServiceName + "/GetMutation"
	GetAllMutationsFullMethodName      = "/" + ServiceName + "/GetAllMutations"
	GetMutationsByAuthorFullMethodName = "/" + ServiceName + "/GetMutationsByAuthor"
	ListAuthorsFullMethodName          = "/" + ServiceName + "/ListAuthors"
)

// MutationRegistryServiceServer is the server API for the registry service.
type MutationRegistryServiceServer interface {
	CreateMutation(context.Context, *CreateMutationRequest) (*CreateMutationResponse, error)
	UpdateMutation(context.Context, *UpdateMutationRequest) (*UpdateMutationResponse, error)
	CopyOverrides(context.Context, *CopyOverridesRequest) (*CopyOverridesResponse, error)
	GetMutation(context.Context, *GetMutationRequest) (*GetMutationResponse, error)
	GetAllMutations(context.Context, *GetAllMutationsRequest) (*GetAllMutationsResponse, error)
	GetMutationsByAuthor(context.Context, *GetMutationsByAuthorRequest) (*GetMutationsByAuthorResponse, error)
	ListAuthors(context.Context, *ListAuthorsRequest) (*ListAuthorsResponse, error)
}

// UnimplementedMutationRegistryServiceServer can be embedded to keep
// servers compiling as methods are added.
type UnimplementedMutationRegistryServiceServer struct{}

func (UnimplementedMutationRegistryServiceServer) CreateMutation(context.Context, *CreateMutationRequest) (*CreateMutationResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateMutation not implemented")
}
func (UnimplementedMutationRegistryServiceServer) UpdateMutation(context.Context, *UpdateMutationRequest) (*UpdateMutationResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateMutation not implemented")
}
func (UnimplementedMutationRegistryServiceServer) CopyOverrides(context.Context, *CopyOverridesRequest) (*CopyOverridesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CopyOverrides not implemented")
}
func (UnimplementedMutationRegistryServiceServer) GetMutation(context.Context, *GetMutationRequest) (*GetMutationResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetMutation not implemented")
}
func (UnimplementedMutationRegistryServiceServer) GetAllMutations(context.Context, *GetAllMutationsRequest) (*GetAllMutationsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetAllMutations not implemented")
}
func (UnimplementedMutationRegistryServiceServer) GetMutationsByAuthor(context.Context, *GetMutationsByAuthorRequest) (*GetMutationsByAuthorResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetMutationsByAuthor not implemented")
}
func (UnimplementedMutationRegistryServiceServer) ListAuthors(context.Context, *ListAuthorsRequest) (*ListAuthorsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListAuthors not implemented")
}

// RegisterMutationRegistryServiceServer registers srv on s.
func RegisterMutationRegistryServiceServer(s grpc.ServiceRegistrar, srv MutationRegistryServiceServer) {
	s.RegisterService(&MutationRegistryService_ServiceDesc, srv)
}

// unaryHandler adapts a typed server method to a grpc.MethodHandler.
func unaryHandler[Req, Resp any](fullMethod string, call func(MutationRegistryServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MutationRegistryServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(MutationRegistryServiceServer), ctx, req.(*Req))
		})
	}
}

// MutationRegistryService_ServiceDesc is the grpc.ServiceDesc for the
// registry service.
var MutationRegistryService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MutationRegistryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateMutation", Handler: unaryHandler(CreateMutationFullMethodName, MutationRegistryServiceServer.CreateMutation)},
		{MethodName: "UpdateMutation", Handler: unaryHandler(UpdateMutationFullMethodName, MutationRegistryServiceServer.UpdateMutation)},
		{MethodName: "CopyOverrides", Handler: unaryHandler(CopyOverridesFullMethodName, MutationRegistryServiceServer.CopyOverrides)},
		{MethodName: "GetMutation", Handler: unaryHandler(GetMutationFullMethodName, MutationRegistryServiceServer.GetMutation)},
		{MethodName: "GetAllMutations", Handler: unaryHandler(GetAllMutationsFullMethodName, MutationRegistryServiceServer.GetAllMutations)},
		{MethodName: "GetMutationsByAuthor", Handler: unaryHandler(GetMutationsByAuthorFullMethodName, MutationRegistryServiceServer.GetMutationsByAuthor)},
		{MethodName: "ListAuthors", Handler: unaryHandler(ListAuthorsFullMethodName, MutationRegistryServiceServer.ListAuthors)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "registry/v1/registry.json",
}

// MutationRegistryServiceClient is the client API for the registry service.
type MutationRegistryServiceClient interface {
	CreateMutation(ctx context.Context, in *CreateMutationRequest, opts ...grpc.CallOption) (*CreateMutationResponse, error)
	UpdateMutation(ctx context.Context, in *UpdateMutationRequest, opts ...grpc.CallOption) (*UpdateMutationResponse, error)
	CopyOverrides(ctx context.Context, in *CopyOverridesRequest, opts ...grpc.CallOption) (*CopyOverridesResponse, error)
	GetMutation(ctx context.Context, in *GetMutationRequest, opts ...grpc.CallOption) (*GetMutationResponse, error)
	GetAllMutations(ctx context.Context, in *GetAllMutationsRequest, opts ...grpc.CallOption) (*GetAllMutationsResponse, error)
	GetMutationsByAuthor(ctx context.Context, in *GetMutationsByAuthorRequest, opts ...grpc.CallOption) (*GetMutationsByAuthorResponse, error)
	ListAuthors(ctx context.Context, in *ListAuthorsRequest, opts ...grpc.CallOption) (*ListAuthorsResponse, error)
}

type mutationRegistryServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewMutationRegistryServiceClient returns a client that always sends the
// json content subtype.
func NewMutationRegistryServiceClient(cc grpc.ClientConnInterface) MutationRegistryServiceClient {
	return &mutationRegistryServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	callOpts := append([]grpc.CallOption{grpc.CallContentSubtype(platformgrpc.CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, callOpts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *mutationRegistryServiceClient) CreateMutation(ctx context.Context, in *CreateMutationRequest, opts ...grpc.CallOption) (*CreateMutationResponse, error) {
	return invoke[CreateMutationResponse](ctx, c.cc, CreateMutationFullMethodName, in, opts)
}

func (c *mutationRegistryServiceClient) UpdateMutation(ctx context.Context, in *UpdateMutationRequest, opts ...grpc.CallOption) (*UpdateMutationResponse, error) {
	return invoke[UpdateMutationResponse](ctx, c.cc, UpdateMutationFullMethodName, in, opts)
}

func (c *mutationRegistryServiceClient) CopyOverrides(ctx context.Context, in *CopyOverridesRequest, opts ...grpc.CallOption) (*CopyOverridesResponse, error) {
	return invoke[CopyOverridesResponse](ctx, c.cc, CopyOverridesFullMethodName, in, opts)
}

func (c *mutationRegistryServiceClient) GetMutation(ctx context.Context, in *GetMutationRequest, opts ...grpc.CallOption) (*GetMutationResponse, error) {
	return invoke[GetMutationResponse](ctx, c.cc, GetMutationFullMethodName, in, opts)
}

func (c *mutationRegistryServiceClient) GetAllMutations(ctx context.Context, in *GetAllMutationsRequest, opts ...grpc.CallOption) (*GetAllMutationsResponse, error) {
	return invoke[GetAllMutationsResponse](ctx, c.cc, GetAllMutationsFullMethodName, in, opts)
}

func (c *mutationRegistryServiceClient) GetMutationsByAuthor(ctx context.Context, in *GetMutationsByAuthorRequest, opts ...grpc.CallOption) (*GetMutationsByAuthorResponse, error) {
	return invoke[GetMutationsByAuthorResponse](ctx, c.cc, GetMutationsByAuthorFullMethodName, in, opts)
}

func (c *mutationRegistryServiceClient) ListAuthors(ctx context.Context, in *ListAuthorsRequest, opts ...grpc.CallOption) (*ListAuthorsResponse, error) {
	return invoke[ListAuthorsResponse](ctx, c.cc, ListAuthorsFullMethodName, in, opts)
}
