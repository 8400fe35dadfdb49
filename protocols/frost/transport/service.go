package transport

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified name of the signer service.
const ServiceName = "frost.Signer"

const (
	methodDkgRound1   = "DkgRound1"
	methodDkgRound2   = "DkgRound2"
	methodDkgFinalize = "DkgFinalize"
	methodSignRound1  = "SignRound1"
	methodSignRound2  = "SignRound2"
)

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// signerService is the handler type of the service, implemented by *Server.
type signerService interface {
	DkgRound1(context.Context, *DkgRound1Request) (*DkgRound1Response, error)
	DkgRound2(context.Context, *DkgRound2Request) (*DkgRound2Response, error)
	DkgFinalize(context.Context, *DkgFinalizeRequest) (*DkgFinalizeResponse, error)
	SignRound1(context.Context, *SignRound1Request) (*SignRound1Response, error)
	SignRound2(context.Context, *SignRound2Request) (*SignRound2Response, error)
}

func unary[Req, Resp any](method string, call func(signerService, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(signerService), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(method),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(signerService), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*signerService)(nil),
	Methods: []grpc.MethodDesc{
		unary(methodDkgRound1, signerService.DkgRound1),
		unary(methodDkgRound2, signerService.DkgRound2),
		unary(methodDkgFinalize, signerService.DkgFinalize),
		unary(methodSignRound1, signerService.SignRound1),
		unary(methodSignRound2, signerService.SignRound2),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "frost/signer",
}
