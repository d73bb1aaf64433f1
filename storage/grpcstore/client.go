package grpcstore

import (
	"context"
	"errors"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/inlinedag/storage"
)

// Client implements storage.CAS over the CAS gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client CASClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

// DialOptions configures Dial.
type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

// Dial connects to a CAS gRPC service without transport security.
func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewCASClient(cc)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

var _ storage.CAS = (*Client)(nil)

func (c *Client) Put(ctx context.Context, id cid.Cid, data []byte) error {
	if c == nil || c.client == nil {
		return errors.New("grpcstore: nil client")
	}
	if err := storage.Verify(id, data); err != nil {
		return err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	reply, err := c.client.Put(ctx, wrapperspb.Bytes(encodeFrame(id, data)))
	if err != nil {
		return mapRPC(err)
	}
	if reply.GetValue() != id.String() {
		return storage.ErrCIDMismatch
	}
	return nil
}

func (c *Client) Resolve(ctx context.Context, id cid.Cid) ([]byte, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("grpcstore: nil client")
	}
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	reply, err := c.client.Get(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return nil, mapRPC(err)
	}
	b := reply.GetValue()
	// Transport is not validity; verify locally.
	if err := storage.Verify(id, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *Client) Has(ctx context.Context, id cid.Cid) bool {
	if c == nil || c.client == nil || !id.Defined() {
		return false
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	reply, err := c.client.Has(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return false
	}
	return reply.GetValue()
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeout(ctx, c.Timeout)
	}
	return ctx, func() {}
}
