// Package grpcapi implements the picasso.v1.Renderer gRPC service. Messages
// are well-known protobuf types, so clients need no generated code.
package grpcapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lemonberrylabs/picasso/pkg/api"
	"github.com/lemonberrylabs/picasso/pkg/expr"
	"github.com/lemonberrylabs/picasso/pkg/raster"
	"github.com/lemonberrylabs/picasso/pkg/render"
	"github.com/lemonberrylabs/picasso/pkg/store"
	"github.com/lemonberrylabs/picasso/pkg/types"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "picasso.v1.Renderer"

// RendererServer is the server API for the Renderer service.
//
// Parse takes {expression} and returns {tree, variables}.
// Evaluate takes {expression, x, y, t} and returns {tree, color, finite}.
// Render takes {expression | program, width, height, format, t} and returns
// the encoded image.
type RendererServer interface {
	Parse(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Render(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
}

var rendererServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RendererServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Parse",
			Handler: unaryHandler("Parse", func(s RendererServer, ctx context.Context, in *structpb.Struct) (interface{}, error) {
				return s.Parse(ctx, in)
			}),
		},
		{
			MethodName: "Evaluate",
			Handler: unaryHandler("Evaluate", func(s RendererServer, ctx context.Context, in *structpb.Struct) (interface{}, error) {
				return s.Evaluate(ctx, in)
			}),
		},
		{
			MethodName: "Render",
			Handler: unaryHandler("Render", func(s RendererServer, ctx context.Context, in *structpb.Struct) (interface{}, error) {
				return s.Render(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "picasso/v1/renderer.proto",
}

func unaryHandler(method string, call func(RendererServer, context.Context, *structpb.Struct) (interface{}, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RendererServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(RendererServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RegisterRendererServer registers srv on s.
func RegisterRendererServer(s grpc.ServiceRegistrar, srv RendererServer) {
	s.RegisterService(&rendererServiceDesc, srv)
}

// Server implements RendererServer.
type Server struct {
	store *store.Store
	cfg   api.Config
	grpc  *grpc.Server
}

// New creates a new gRPC server. Render requests naming a program read it
// from s.
func New(s *store.Store, cfg api.Config) *Server {
	if cfg.ImagesDir == "" {
		cfg.ImagesDir = expr.DefaultImageDir
	}
	srv := &Server{store: s, cfg: cfg}
	gs := grpc.NewServer()
	RegisterRendererServer(gs, srv)
	srv.grpc = gs
	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

func (s *Server) newEnv(t float64) *expr.Env {
	env := expr.NewEnv(expr.WithImageDir(s.cfg.ImagesDir))
	env.Clock().Set(t)
	return env
}

func (s *Server) Parse(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	env := s.newEnv(0)
	node, err := env.Parse(stringField(req, "expression"))
	if err != nil {
		return nil, toStatus(err)
	}
	vars := make([]interface{}, 0)
	for _, v := range env.Variables() {
		vars = append(vars, v)
	}
	return newStruct(map[string]interface{}{
		"tree":      node.String(),
		"variables": vars,
	})
}

func (s *Server) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	env := s.newEnv(numberField(req, "t"))
	node, err := env.Parse(stringField(req, "expression"))
	if err != nil {
		return nil, toStatus(err)
	}
	c := node.Evaluate(numberField(req, "x"), numberField(req, "y"))
	out := &structpb.Struct{Fields: map[string]*structpb.Value{
		"tree": structpb.NewStringValue(node.String()),
		"color": structpb.NewListValue(&structpb.ListValue{Values: []*structpb.Value{
			structpb.NewNumberValue(c.R),
			structpb.NewNumberValue(c.G),
			structpb.NewNumberValue(c.B),
		}}),
		"finite": structpb.NewBoolValue(c.IsFinite()),
	}}
	return out, nil
}

func (s *Server) Render(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	src := stringField(req, "expression")
	if name := stringField(req, "program"); name != "" {
		if src != "" {
			return nil, status.Error(codes.InvalidArgument, "set either expression or program, not both")
		}
		p, err := s.store.GetProgram(name)
		if err != nil {
			return nil, toStatus(err)
		}
		src = p.Source
	}
	if src == "" {
		return nil, status.Error(codes.InvalidArgument, "expression or program is required")
	}

	w, h := int(numberField(req, "width")), int(numberField(req, "height"))
	if w == 0 {
		w = render.DefaultWidth
	}
	if h == 0 {
		h = render.DefaultHeight
	}
	format := raster.FormatPNG
	if f := stringField(req, "format"); f != "" {
		var err error
		if format, err = raster.ParseFormat(f); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
	}

	node, err := s.newEnv(numberField(req, "t")).Parse(src)
	if err != nil {
		return nil, toStatus(err)
	}
	img, _, err := render.RenderImage(ctx, node, w, h, s.cfg.Render)
	if err != nil {
		return nil, toStatus(err)
	}
	var buf bytes.Buffer
	if err := img.Encode(&buf, format); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return wrapperspb.Bytes(buf.Bytes()), nil
}

// --- Helpers ---

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func numberField(s *structpb.Struct, key string) float64 {
	return s.GetFields()[key].GetNumberValue()
}

func newStruct(m map[string]interface{}) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// toStatus maps err to a gRPC status error.
func toStatus(err error) error {
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	var pe *expr.ParseError
	var te *expr.TokenizeError
	if errors.As(err, &pe) || errors.As(err, &te) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	var e *types.Error
	if errors.As(err, &e) {
		switch {
		case e.HasTag(types.TagNotFound):
			return status.Error(codes.NotFound, e.Message)
		case e.HasTag(types.TagAlreadyExists):
			return status.Error(codes.AlreadyExists, e.Message)
		case e.HasTag(types.TagInvalidArgument):
			return status.Error(codes.InvalidArgument, e.Message)
		case e.HasTag(types.TagCancelled):
			return status.Error(codes.Canceled, e.Message)
		}
	}
	return status.Error(codes.Internal, err.Error())
}
