// Package externalclient forwards a consensus result to an external
// augmenter service over gRPC for a second opinion, the same role the
// teacher's Python worker bridge played for per-tick strategy signals.
// No .proto-generated package ships with this system, so the wire
// format here rides gRPC's pluggable codec as JSON instead of protobuf
// — the transport, dialing, and per-call timeout all still come from
// google.golang.org/grpc.
package externalclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

const jsonCodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return jsonCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// AugmentRequest carries the consensus engine's vote so far to the
// external service for review.
type AugmentRequest struct {
	Symbol     string             `json:"symbol"`
	Signal     int                `json:"signal"`
	Score      float64            `json:"score"`
	Confidence float64            `json:"confidence"`
	Strategies map[string]float64 `json:"strategies"` // name -> confidence
}

// AugmentResponse is the external service's opinion. Signal may be nil
// to mean "no opinion, keep the local consensus".
type AugmentResponse struct {
	Signal     *int    `json:"signal"`
	Confidence float64 `json:"confidence"`
	Note       string  `json:"note"`
}

// Client dials an augmenter service once and reuses the connection for
// every Augment call.
type Client struct {
	conn *grpc.ClientConn
}

// NewClient dials addr over an insecure gRPC channel. Dialing is
// non-blocking: connection errors surface on the first Augment call.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial consensus augmenter: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Augment asks the external service for a second opinion on a
// consensus result already computed locally.
func (c *Client) Augment(ctx context.Context, req AugmentRequest) (*AugmentResponse, error) {
	if c == nil || c.conn == nil {
		return nil, fmt.Errorf("augmenter client not connected")
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	resp := &AugmentResponse{}
	if err := c.conn.Invoke(ctx, "/consensus.Augmenter/Augment", &req, resp); err != nil {
		return nil, fmt.Errorf("augment rpc: %w", err)
	}
	return resp, nil
}
