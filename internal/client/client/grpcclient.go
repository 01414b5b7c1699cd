package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/teamdesk/internal/common"
	"github.com/dmitrijs2005/teamdesk/internal/docstore"
	pb "github.com/dmitrijs2005/teamdesk/internal/proto"
	"github.com/dmitrijs2005/teamdesk/internal/token"
)

const (
	// TokenValidity is the lifetime of each access token the client signs.
	TokenValidity = time.Minute

	// SkewTokenValidity is used for the single retry after the hub reports an
	// expired token. It absorbs a hub clock running ahead of this device.
	SkewTokenValidity = 15 * time.Minute
)

var _ docstore.Store = (*GRPCClient)(nil)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      pb.DocumentServiceClient
	deviceID    string
	secret      []byte
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor signs a fresh token for each call. When the hub
// reports it expired the call is retried once with a SkewTokenValidity token.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	tok, err := token.Generate(s.deviceID, s.secret, TokenValidity)
	if err != nil {
		return err
	}

	err = invoker(withAccessToken(ctx, tok), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}

	tok, err = token.Generate(s.deviceID, s.secret, SkewTokenValidity)
	if err != nil {
		return err
	}
	return invoker(withAccessToken(ctx, tok), method, req, reply, cc, opts...)
}

// NewGRPCClient connects to the hub at endpointURL. Extra dial options are
// appended after the defaults (insecure transport, token interceptor).
func NewGRPCClient(endpointURL, deviceID, secret string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, deviceID: deviceID, secret: []byte(secret)}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = pb.NewDocumentServiceClient(conn)
	return c, nil
}

func (s *GRPCClient) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	resp, err := s.client.List(ctx, pb.NewListRequest(collection))
	if err != nil {
		return nil, s.mapError(err)
	}

	docs, err := pb.ParseDocumentList(resp)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *GRPCClient) Upsert(ctx context.Context, collection, id string, data json.RawMessage) error {
	if _, err := s.client.Upsert(ctx, pb.NewDocumentRequest(collection, id, data)); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Delete(ctx, pb.NewDocumentRequest(collection, id, nil)); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
