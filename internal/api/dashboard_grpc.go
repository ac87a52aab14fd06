package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// DashboardServiceName is the fully-qualified gRPC service name.
const DashboardServiceName = "mirador.thermal.v1.Dashboard"

const (
	methodGetSnapshot    = "/" + DashboardServiceName + "/GetSnapshot"
	methodGetTable       = "/" + DashboardServiceName + "/GetTable"
	methodWatchSnapshots = "/" + DashboardServiceName + "/WatchSnapshots"
)

// DashboardServer is the server API for the Dashboard service. Messages are
// well-known types: snapshots travel as google.protobuf.Struct.
type DashboardServer interface {
	GetSnapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetTable(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	WatchSnapshots(*emptypb.Empty, SnapshotStream) error
}

// SnapshotStream is the server side of WatchSnapshots.
type SnapshotStream interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type snapshotStream struct {
	grpc.ServerStream
}

func (s *snapshotStream) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

// RegisterDashboardServer registers srv on s.
func RegisterDashboardServer(s grpc.ServiceRegistrar, srv DashboardServer) {
	s.RegisterService(&dashboardServiceDesc, srv)
}

var dashboardServiceDesc = grpc.ServiceDesc{
	ServiceName: DashboardServiceName,
	HandlerType: (*DashboardServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetSnapshot", Handler: getSnapshotHandler},
		{MethodName: "GetTable", Handler: getTableHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchSnapshots", Handler: watchSnapshotsHandler, ServerStreams: true},
	},
	Metadata: "mirador/thermal/v1/dashboard.proto",
}

func getSnapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DashboardServer).GetSnapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetSnapshot}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DashboardServer).GetSnapshot(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getTableHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DashboardServer).GetTable(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetTable}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DashboardServer).GetTable(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func watchSnapshotsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DashboardServer).WatchSnapshots(in, &snapshotStream{stream})
}
