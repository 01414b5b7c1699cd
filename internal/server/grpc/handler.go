package grpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	pb "github.com/dmitrijs2005/teamdesk/internal/proto"
)

func (s *GRPCServer) List(ctx context.Context, in *structpb.Struct) (*structpb.ListValue, error) {
	req, err := pb.ParseRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	docs, err := s.store.List(ctx, req.Collection)
	if err != nil {
		s.logger.Error(ctx, "list failed", "collection", req.Collection, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	s.logger.Debug(ctx, "listed", "collection", req.Collection, "count", len(docs))
	return pb.NewDocumentList(docs), nil
}

func (s *GRPCServer) Upsert(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	req, err := pb.ParseRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "missing id")
	}
	if !json.Valid(req.Data) {
		return nil, status.Error(codes.InvalidArgument, "data must be a JSON document")
	}

	if err := s.store.Upsert(ctx, req.Collection, req.ID, req.Data); err != nil {
		s.logger.Error(ctx, "upsert failed", "collection", req.Collection, "id", req.ID, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	deviceID, _ := DeviceIDFromContext(ctx)
	s.logger.Info(ctx, "upserted", "collection", req.Collection, "id", req.ID, "device", deviceID)
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) Delete(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	req, err := pb.ParseRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "missing id")
	}

	if err := s.store.Delete(ctx, req.Collection, req.ID); err != nil {
		s.logger.Error(ctx, "delete failed", "collection", req.Collection, "id", req.ID, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	deviceID, _ := DeviceIDFromContext(ctx)
	s.logger.Info(ctx, "deleted", "collection", req.Collection, "id", req.ID, "device", deviceID)
	return &emptypb.Empty{}, nil
}
