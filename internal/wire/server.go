package wire

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/attestor-io/core/internal/logging"
)

// serviceName is the fully-qualified gRPC service name reported to the
// standard health-checking protocol, matching api/proto/attestor.proto.
const serviceName = "attestor.v1.AttestorService"

// Server hosts the AttestorService gRPC surface alongside the standard
// health-checking and reflection services, the same shell the teacher's
// HybridServer builds around its ControlService.
type Server struct {
	logger     *logging.ComponentLogger
	dispatcher *Dispatcher
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
}

// NewServer constructs the gRPC server shell. Once api/proto/attestor.proto
// is compiled, the generated pb.RegisterAttestorServiceServer(grpcServer,
// adapter) call belongs here, with adapter forwarding each RPC into
// dispatcher's Execute/Publish/StreamTopic methods.
func NewServer(address string, dispatcher *Dispatcher, logger *logging.ComponentLogger) (*Server, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", address, err)
	}

	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(64*1024*1024),
		grpc.MaxSendMsgSize(64*1024*1024),
	)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	return &Server{
		logger:     logger,
		dispatcher: dispatcher,
		grpcServer: grpcServer,
		health:     healthServer,
		listener:   listener,
	}, nil
}

// Dispatcher returns the underlying Execute/Publish/StreamTopic
// dispatcher, for wiring into a generated service adapter.
func (s *Server) Dispatcher() *Dispatcher { return s.dispatcher }

// Serve blocks, accepting connections until GracefulStop is called.
func (s *Server) Serve() error {
	s.health.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)
	s.logger.Info().Str("address", s.listener.Addr().String()).Msg("attestor gRPC server listening")
	return s.grpcServer.Serve(s.listener)
}

// GracefulStop marks the service not-serving and drains in-flight RPCs.
func (s *Server) GracefulStop() {
	s.health.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	s.grpcServer.GracefulStop()
}
