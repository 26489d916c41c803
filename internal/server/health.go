package server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the match cycle worker.
const ServiceName = "muzz.matchcycle.Worker"

// HealthRegistrar exposes grpc.health.v1 for the worker. It starts as
// NOT_SERVING; call SetServing once the scheduler is running.
type HealthRegistrar struct {
	srv *health.Server
}

func NewHealthRegistrar() *HealthRegistrar {
	h := &HealthRegistrar{srv: health.NewServer()}
	h.SetServing(false)
	return h
}

// Register attaches the health service to the gRPC server
func (h *HealthRegistrar) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.srv)
}

// SetServing flips both the overall and the worker status.
func (h *HealthRegistrar) SetServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.srv.SetServingStatus("", status)
	h.srv.SetServingStatus(ServiceName, status)
}
