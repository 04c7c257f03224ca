package grpcapi

import (
	"bytes"
	"context"
	"image"
	_ "image/png"
	"math"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/picasso/pkg/api"
	"github.com/lemonberrylabs/picasso/pkg/store"
)

func startTestServer(t *testing.T) (string, *store.Store, func()) {
	t.Helper()
	s := store.New()
	srv := New(s, api.Config{ImagesDir: t.TempDir()})

	lis, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go srv.grpc.Serve(lis)

	return lis.Addr().String(), s, func() {
		srv.grpc.Stop()
	}
}

func dial(t *testing.T, addr string) *grpc.ClientConn {
	t.Helper()
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	return conn
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestParse(t *testing.T) {
	addr, _, cleanup := startTestServer(t)
	defer cleanup()
	conn := dial(t, addr)
	defer conn.Close()
	client := NewClient(conn)

	out, err := client.Parse(context.Background(), mustStruct(t, map[string]interface{}{
		"expression": "a = x\n-a ^ 2",
	}))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := out.GetFields()["tree"].GetStringValue(); got != "(!(x) ^ 2)" {
		t.Errorf("tree = %q", got)
	}
	vars := out.GetFields()["variables"].GetListValue().GetValues()
	if len(vars) != 1 || vars[0].GetStringValue() != "a" {
		t.Errorf("variables = %v", vars)
	}
}

func TestParseInvalidArgument(t *testing.T) {
	addr, _, cleanup := startTestServer(t)
	defer cleanup()
	conn := dial(t, addr)
	defer conn.Close()
	client := NewClient(conn)

	for _, src := range []string{"sin(", "x y )", "nosuch(1)", "x = 1"} {
		_, err := client.Parse(context.Background(), mustStruct(t, map[string]interface{}{"expression": src}))
		if status.Code(err) != codes.InvalidArgument {
			t.Errorf("Parse(%q): code %v, want InvalidArgument (%v)", src, status.Code(err), err)
		}
	}
}

func TestEvaluate(t *testing.T) {
	addr, _, cleanup := startTestServer(t)
	defer cleanup()
	conn := dial(t, addr)
	defer conn.Close()
	client := NewClient(conn)

	out, err := client.Evaluate(context.Background(), mustStruct(t, map[string]interface{}{
		"expression": "x + y + t",
		"x":          0.3,
		"y":          -0.2,
		"t":          0.25,
	}))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for i, v := range out.GetFields()["color"].GetListValue().GetValues() {
		if math.Abs(v.GetNumberValue()-0.35) > 1e-9 {
			t.Errorf("channel %d = %v, want 0.35", i, v.GetNumberValue())
		}
	}
	if !out.GetFields()["finite"].GetBoolValue() {
		t.Error("expected finite result")
	}
}

func TestRenderExpressionAndProgram(t *testing.T) {
	addr, s, cleanup := startTestServer(t)
	defer cleanup()
	conn := dial(t, addr)
	defer conn.Close()
	client := NewClient(conn)
	ctx := context.Background()

	out, err := client.Render(ctx, mustStruct(t, map[string]interface{}{
		"expression": "[1, -1, -1]",
		"width":      3,
		"height":     2,
	}))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	img, format, err := image.Decode(bytes.NewReader(out.GetValue()))
	if err != nil {
		t.Fatal(err)
	}
	if format != "png" || img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Errorf("decoded %s %v", format, img.Bounds())
	}
	if r, g, _, _ := img.At(1, 1).RGBA(); r>>8 != 255 || g>>8 != 0 {
		t.Errorf("pixel = r %d g %d, want pure red", r>>8, g>>8)
	}

	if _, err := s.CreateProgram("dots", "x * y", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Render(ctx, mustStruct(t, map[string]interface{}{
		"program": "dots", "width": 2, "height": 2,
	})); err != nil {
		t.Errorf("Render(program): %v", err)
	}

	_, err = client.Render(ctx, mustStruct(t, map[string]interface{}{"program": "missing"}))
	if status.Code(err) != codes.NotFound {
		t.Errorf("missing program: code %v", status.Code(err))
	}
}

func TestRenderInvalidArguments(t *testing.T) {
	addr, _, cleanup := startTestServer(t)
	defer cleanup()
	conn := dial(t, addr)
	defer conn.Close()
	client := NewClient(conn)

	tests := []struct {
		name string
		req  map[string]interface{}
	}{
		{"empty", map[string]interface{}{}},
		{"both sources", map[string]interface{}{"expression": "x", "program": "p"}},
		{"bad format", map[string]interface{}{"expression": "x", "format": "tiff"}},
		{"bad size", map[string]interface{}{"expression": "x", "width": -4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Render(context.Background(), mustStruct(t, tt.req))
			if status.Code(err) != codes.InvalidArgument {
				t.Errorf("code = %v, want InvalidArgument (%v)", status.Code(err), err)
			}
		})
	}
}
