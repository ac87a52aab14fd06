package api

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-thermal/internal/models"
)

// DashboardClient calls a remote Dashboard service.
type DashboardClient struct {
	cc grpc.ClientConnInterface
}

// NewDashboardClient wraps an established connection.
func NewDashboardClient(cc grpc.ClientConnInterface) *DashboardClient {
	return &DashboardClient{cc: cc}
}

// GetSnapshot fetches the latest page snapshot.
func (c *DashboardClient) GetSnapshot(ctx context.Context, opts ...grpc.CallOption) (models.Snapshot, error) {
	return c.unary(ctx, methodGetSnapshot, opts...)
}

// GetTable fetches the latest device-table snapshot.
func (c *DashboardClient) GetTable(ctx context.Context, opts ...grpc.CallOption) (models.Snapshot, error) {
	return c.unary(ctx, methodGetTable, opts...)
}

// WatchSnapshots calls fn for every streamed snapshot until the stream ends,
// ctx is cancelled or fn returns an error.
func (c *DashboardClient) WatchSnapshots(ctx context.Context, fn func(models.Snapshot) error, opts ...grpc.CallOption) error {
	stream, err := c.cc.NewStream(ctx, &dashboardServiceDesc.Streams[0], methodWatchSnapshots, opts...)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		snap, err := SnapshotFromStruct(msg)
		if err != nil {
			return err
		}
		if err := fn(snap); err != nil {
			return err
		}
	}
}

func (c *DashboardClient) unary(ctx context.Context, method string, opts ...grpc.CallOption) (models.Snapshot, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, &emptypb.Empty{}, out, opts...); err != nil {
		return models.Snapshot{}, err
	}
	return SnapshotFromStruct(out)
}
