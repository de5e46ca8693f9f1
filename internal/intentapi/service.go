package intentapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ServiceName          = "nupi.intent.v1.IntentService"
	StreamIntentsMethod  = "/" + ServiceName + "/StreamIntents"
	streamIntentsName    = "StreamIntents"
	serviceMetadataProto = "nupi/intent/v1/intent.proto"
)

// IntentServiceServer is the server API for the intent service.
type IntentServiceServer interface {
	StreamIntents(IntentService_StreamIntentsServer) error
}

// UnimplementedIntentServiceServer can be embedded for forward compatibility.
type UnimplementedIntentServiceServer struct{}

func (UnimplementedIntentServiceServer) StreamIntents(IntentService_StreamIntentsServer) error {
	return status.Error(codes.Unimplemented, "method StreamIntents not implemented")
}

// IntentService_StreamIntentsServer is the server side of a StreamIntents call.
type IntentService_StreamIntentsServer interface {
	Send(*StreamIntentsResponse) error
	Recv() (*StreamIntentsRequest, error)
	grpc.ServerStream
}

type intentServiceStreamIntentsServer struct {
	grpc.ServerStream
}

func (x *intentServiceStreamIntentsServer) Send(m *StreamIntentsResponse) error {
	return x.ServerStream.SendMsg(m)
}

func (x *intentServiceStreamIntentsServer) Recv() (*StreamIntentsRequest, error) {
	m := new(StreamIntentsRequest)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func streamIntentsHandler(srv any, stream grpc.ServerStream) error {
	return srv.(IntentServiceServer).StreamIntents(&intentServiceStreamIntentsServer{stream})
}

// IntentService_ServiceDesc describes the intent service for grpc.Server.
var IntentService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IntentServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    streamIntentsName,
			Handler:       streamIntentsHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: serviceMetadataProto,
}

// RegisterIntentServiceServer registers srv on s.
func RegisterIntentServiceServer(s grpc.ServiceRegistrar, srv IntentServiceServer) {
	s.RegisterService(&IntentService_ServiceDesc, srv)
}

// IntentServiceClient is the client API for the intent service.
type IntentServiceClient interface {
	StreamIntents(ctx context.Context, opts ...grpc.CallOption) (IntentService_StreamIntentsClient, error)
}

// IntentService_StreamIntentsClient is the client side of a StreamIntents call.
type IntentService_StreamIntentsClient interface {
	Send(*StreamIntentsRequest) error
	Recv() (*StreamIntentsResponse, error)
	grpc.ClientStream
}

type intentServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewIntentServiceClient returns a client that always selects the JSON codec.
func NewIntentServiceClient(cc grpc.ClientConnInterface) IntentServiceClient {
	return &intentServiceClient{cc: cc}
}

func (c *intentServiceClient) StreamIntents(ctx context.Context, opts ...grpc.CallOption) (IntentService_StreamIntentsClient, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &IntentService_ServiceDesc.Streams[0], StreamIntentsMethod, opts...)
	if err != nil {
		return nil, err
	}
	return &intentServiceStreamIntentsClient{stream}, nil
}

type intentServiceStreamIntentsClient struct {
	grpc.ClientStream
}

func (x *intentServiceStreamIntentsClient) Send(m *StreamIntentsRequest) error {
	return x.ClientStream.SendMsg(m)
}

func (x *intentServiceStreamIntentsClient) Recv() (*StreamIntentsResponse, error) {
	m := new(StreamIntentsResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
