package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthv1 "google.golang.org/grpc/health/grpc_health_v1"
)

// NewServer builds the internal gRPC surface. The worker exposes only the
// standard health service; mesh probes and load balancers consume it.
func NewServer() (*grpc.Server, *health.Server) {
	server := grpc.NewServer()
	healthServer := health.NewServer()
	healthv1.RegisterHealthServer(server, healthServer)
	return server, healthServer
}
