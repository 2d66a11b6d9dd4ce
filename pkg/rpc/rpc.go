// Package rpc serves plain Go request/response structs over gRPC using a JSON
// codec, so handlers can be registered without generated stubs. Clients select
// the codec with grpc.CallContentSubtype(rpc.CodecName).
package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-inventory-ledger/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// UnaryMethod adapts fn into a method descriptor of service.
func UnaryMethod[Req, Resp any](service, method string, fn func(context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(ctx, req)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + service + "/" + method,
			}
			return interceptor(ctx, req, info, func(ctx context.Context, req any) (any, error) {
				return fn(ctx, req.(*Req))
			})
		},
	}
}

// ServiceDesc describes a service whose methods close over their handler.
func ServiceDesc(service string, methods ...grpc.MethodDesc) *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: service,
		HandlerType: (*any)(nil),
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
	}
}

// Invoke calls method on conn with the JSON codec.
func Invoke(ctx context.Context, conn grpc.ClientConnInterface, service, method string, req, resp any) error {
	return conn.Invoke(ctx, "/"+service+"/"+method, req, resp, grpc.CallContentSubtype(CodecName))
}

// LoggingInterceptor logs every unary call with its outcome and duration.
func LoggingInterceptor(log logger.ZapLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			log.Warn("gRPC call failed", append(fields, zap.Error(err))...)
			return resp, err
		}
		log.Debug("gRPC call", fields...)
		return resp, nil
	}
}
