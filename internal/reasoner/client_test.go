package reasoner

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/recad/go-engine/internal/feature"
	"github.com/danielpatrickdp/recad/go-engine/internal/pattern"
)

// #region mock
type mockReasonerService struct {
	resp *structpb.Struct
	err  error
	last *structpb.Struct
}

func (m *mockReasonerService) ProposeMatch(_ context.Context, req *structpb.Struct, _ ...grpc.CallOption) (*structpb.Struct, error) {
	m.last = req
	return m.resp, m.err
}

func mustStruct(t *testing.T, v map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(v)
	if err != nil {
		t.Fatalf("new struct: %v", err)
	}
	return s
}

func sampleFeatures() []feature.AggregatedFeature {
	return []feature.AggregatedFeature{{
		Feature: feature.Feature{
			Type:      feature.Extrude,
			Operation: feature.NewBody,
			Shape:     feature.Shape{Kind: feature.Circle, Diameter: 90},
			Distance:  27,
		},
		SupportCount: 5,
		Agents:       []string{"a1", "a2", "a3", "a4", "a5"},
	}}
}

// #endregion mock

// #region propose-tests
func TestPropose_Match(t *testing.T) {
	mock := &mockReasonerService{resp: mustStruct(t, map[string]any{
		"pattern_name": "chord_cut",
		"confidence":   0.88,
		"parameters":   map[string]any{"diameter": 90.0, "flat_to_flat": 78.0},
	})}
	c := NewClientWithService(mock)
	catalog := []pattern.CatalogEntry{{Name: "chord_cut", Priority: 180}}

	m, err := c.Propose(context.Background(), catalog, sampleFeatures(), "diâmetro 90mm")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if m == nil || m.Pattern != "chord_cut" || m.Confidence != 0.88 {
		t.Fatalf("unexpected match %+v", m)
	}
	if m.Source != pattern.SourceReasoner {
		t.Fatalf("expected reasoner source, got %s", m.Source)
	}
	if m.Parameters["flat_to_flat"] != 78 {
		t.Fatalf("unexpected parameters %v", m.Parameters)
	}

	req := mock.last.GetFields()
	if req["transcript"].GetStringValue() != "diâmetro 90mm" {
		t.Fatalf("transcript not forwarded: %v", req["transcript"])
	}
	if n := len(req["catalog"].GetListValue().GetValues()); n != 1 {
		t.Fatalf("expected 1 catalog entry, got %d", n)
	}
	feats := req["features"].GetListValue().GetValues()
	if len(feats) != 1 || feats[0].GetStructValue().GetFields()["support_count"].GetNumberValue() != 5 {
		t.Fatalf("features not forwarded: %v", feats)
	}
}

func TestPropose_NoMatch(t *testing.T) {
	c := NewClientWithService(&mockReasonerService{resp: mustStruct(t, map[string]any{"pattern_name": ""})})
	m, err := c.Propose(context.Background(), nil, nil, "")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if m != nil {
		t.Fatalf("expected nil match, got %+v", m)
	}
}

func TestPropose_RPCError(t *testing.T) {
	c := NewClientWithService(&mockReasonerService{err: errors.New("unavailable")})
	if _, err := c.Propose(context.Background(), nil, nil, ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestPropose_NonNumericParameter(t *testing.T) {
	c := NewClientWithService(&mockReasonerService{resp: mustStruct(t, map[string]any{
		"pattern_name": "hole",
		"parameters":   map[string]any{"diameter": "eight"},
	})})
	_, err := c.Propose(context.Background(), nil, nil, "")
	if !errors.Is(err, ErrBadResponse) {
		t.Fatalf("expected ErrBadResponse, got %v", err)
	}
}

func TestCloseWithoutConn(t *testing.T) {
	if err := NewClientWithService(&mockReasonerService{}).Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

// #endregion propose-tests

// #region transport-tests
func TestPropose_OverGRPC(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	var gotMethod string
	srv := grpc.NewServer(grpc.UnknownServiceHandler(func(_ any, stream grpc.ServerStream) error {
		gotMethod, _ = grpc.MethodFromServerStream(stream)
		req := new(structpb.Struct)
		if err := stream.RecvMsg(req); err != nil {
			return err
		}
		resp, err := structpb.NewStruct(map[string]any{
			"pattern_name": "hole",
			"confidence":   0.7,
			"source":       "reasoner",
			"parameters":   map[string]any{"diameter": 8.0},
		})
		if err != nil {
			return err
		}
		return stream.SendMsg(resp)
	}))
	go srv.Serve(lis)
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	c := &Client{conn: conn, svc: grpcService{cc: conn}, timeout: 5 * time.Second}
	defer c.Close()

	m, err := c.Propose(context.Background(), nil, sampleFeatures(), "furo de 8mm")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if gotMethod != ProposeMatchMethod {
		t.Fatalf("server saw method %q", gotMethod)
	}
	if m == nil || m.Pattern != "hole" || m.Parameters["diameter"] != 8 {
		t.Fatalf("unexpected match %+v", m)
	}
}

// #endregion transport-tests
