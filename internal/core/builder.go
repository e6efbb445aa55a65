package core

import "google.golang.org/grpc"

// BuildServerOptions turns the composed unary and stream interceptors into
// grpc.ServerOption values for grpc.NewServer. Nil interceptors are skipped.
func BuildServerOptions(unary grpc.UnaryServerInterceptor, stream grpc.StreamServerInterceptor) []grpc.ServerOption {
	var opts []grpc.ServerOption

	if unary != nil {
		opts = append(opts, grpc.UnaryInterceptor(unary))
	}

	if stream != nil {
		opts = append(opts, grpc.StreamInterceptor(stream))
	}

	return opts
}
