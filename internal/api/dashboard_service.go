package api

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-thermal/internal/hub"
	"github.com/miradorstack/mirador-thermal/internal/models"
)

// DashboardGRPC implements DashboardServer on top of the page and table feeds.
type DashboardGRPC struct {
	dash   Dashboard
	page   *hub.Hub
	table  *hub.Hub
	logger *slog.Logger
}

// NewDashboardGRPC constructs the gRPC facade. Hubs may be nil, in which case
// unary calls produce a fresh snapshot and WatchSnapshots is unavailable.
func NewDashboardGRPC(dash Dashboard, page, table *hub.Hub, logger *slog.Logger) *DashboardGRPC {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardGRPC{dash: dash, page: page, table: table, logger: logger}
}

// GetSnapshot returns the latest page snapshot.
func (s *DashboardGRPC) GetSnapshot(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.respond(current(ctx, s.page, s.dash.Snapshot))
}

// GetTable returns the latest device-table snapshot.
func (s *DashboardGRPC) GetTable(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.respond(current(ctx, s.table, s.dash.TableSnapshot))
}

// WatchSnapshots streams every page snapshot until the client goes away.
func (s *DashboardGRPC) WatchSnapshots(_ *emptypb.Empty, stream SnapshotStream) error {
	if s.page == nil {
		return status.Error(codes.FailedPrecondition, "snapshot feed not configured")
	}
	snaps, unsubscribe := s.page.Subscribe()
	defer unsubscribe()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			msg, err := SnapshotStruct(snap)
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}
			if err := stream.Send(msg); err != nil {
				s.logger.Debug("snapshot stream closed", slog.Any("error", err))
				return err
			}
		}
	}
}

func (s *DashboardGRPC) respond(snap models.Snapshot, err error) (*structpb.Struct, error) {
	if err != nil {
		s.logger.Error("snapshot unavailable", slog.Any("error", err))
		return nil, status.Error(codes.Unavailable, "snapshot unavailable")
	}
	msg, err := SnapshotStruct(snap)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return msg, nil
}

// current returns the hub's latest snapshot, producing one when the hub is
// absent or still empty.
func current(ctx context.Context, h *hub.Hub, produce func(context.Context) (models.Snapshot, error)) (models.Snapshot, error) {
	if h != nil {
		if snap, ok := h.Latest(); ok {
			return snap, nil
		}
	}
	return produce(ctx)
}
