package reasoner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/recad/go-engine/internal/feature"
	"github.com/danielpatrickdp/recad/go-engine/internal/pattern"
)

// ProposeMatchMethod is the full gRPC method name served by the reasoner.
const ProposeMatchMethod = "/recad.reasoner.v1.PatternReasoner/ProposeMatch"

// ErrBadResponse is returned when the reasoner reply cannot be read as a match.
var ErrBadResponse = errors.New("malformed reasoner response")

// #region service
// Service is the reasoner RPC surface. Requests and replies are google.protobuf.Struct.
type Service interface {
	ProposeMatch(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type grpcService struct {
	cc grpc.ClientConnInterface
}

func (s grpcService) ProposeMatch(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := s.cc.Invoke(ctx, ProposeMatchMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion service

// #region client-struct
// Client asks an external reasoner to name the pattern behind a feature list.
type Client struct {
	conn    *grpc.ClientConn
	svc     Service
	timeout time.Duration
}

// #endregion client-struct

// #region constructor
// NewClient connects to the reasoner at addr. timeout bounds each call; zero disables it.
func NewClient(addr string, timeout time.Duration) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, svc: grpcService{cc: conn}, timeout: timeout}, nil
}

// NewClientWithService creates a Client with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewClientWithService(svc Service) *Client {
	return &Client{svc: svc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region propose
// Propose sends the catalog, the aggregated features and the transcript.
// An empty pattern_name in the reply means no match and yields (nil, nil).
func (c *Client) Propose(ctx context.Context, catalog []pattern.CatalogEntry, features []feature.AggregatedFeature, transcript string) (*pattern.Match, error) {
	req, err := buildRequest(catalog, features, transcript)
	if err != nil {
		return nil, fmt.Errorf("build reasoner request: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.svc.ProposeMatch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("propose match rpc: %w", err)
	}
	return parseResponse(resp)
}

// #endregion propose

// #region wire
func buildRequest(catalog []pattern.CatalogEntry, features []feature.AggregatedFeature, transcript string) (*structpb.Struct, error) {
	if catalog == nil {
		catalog = []pattern.CatalogEntry{}
	}
	if features == nil {
		features = []feature.AggregatedFeature{}
	}
	cat, err := toPlain(catalog)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	feats, err := toPlain(features)
	if err != nil {
		return nil, fmt.Errorf("features: %w", err)
	}
	return structpb.NewStruct(map[string]any{
		"catalog":    cat,
		"features":   feats,
		"transcript": transcript,
	})
}

// toPlain round-trips through JSON so structpb sees only maps, slices and scalars.
func toPlain(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func parseResponse(resp *structpb.Struct) (*pattern.Match, error) {
	if resp == nil {
		return nil, nil
	}
	fields := resp.GetFields()
	name := fields["pattern_name"].GetStringValue()
	if name == "" {
		return nil, nil
	}

	m := &pattern.Match{
		Pattern:    name,
		Confidence: fields["confidence"].GetNumberValue(),
		Source:     pattern.SourceReasoner,
		Parameters: map[string]float64{},
	}
	if src := fields["source"].GetStringValue(); src != "" {
		m.Source = src
	}
	for k, v := range fields["parameters"].GetStructValue().GetFields() {
		num, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("parameter %q is not a number: %w", k, ErrBadResponse)
		}
		m.Parameters[k] = num.NumberValue
	}
	return m, nil
}

// #endregion wire
