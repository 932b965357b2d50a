// Package health реализует gRPC-сервис проверки состояния, который отражает
// доступность базы данных.
package health

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
)

// ServiceName имя сервиса в ответах health.
const ServiceName = "buscaaqui"

// Checker проверяет доступность зависимости.
type Checker interface {
	Ready(ctx context.Context) error
}

// Server gRPC-сервер со стандартным сервисом health.
type Server struct {
	grpc     *grpc.Server
	health   *grpchealth.Server
	checker  Checker
	interval time.Duration
	log      *slog.Logger
}

// New создает сервер. Состояние обновляется каждые interval.
func New(checker Checker, interval time.Duration, log *slog.Logger) *Server {
	s := &Server{
		grpc:     grpc.NewServer(),
		health:   grpchealth.NewServer(),
		checker:  checker,
		interval: interval,
		log:      log,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Health возвращает реализацию сервиса health.
func (s *Server) Health() healthpb.HealthServer {
	return s.health
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Check один раз проверяет зависимость и обновляет состояние.
func (s *Server) Check(ctx context.Context) {
	const op = "grpc.health.Check"

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.checker.Ready(ctx); err != nil {
		s.log.Warn("storage is not ready", slog.String("op", op), sl.Err(err))
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
}

// Watch обновляет состояние до отмены контекста.
func (s *Server) Watch(ctx context.Context) {
	s.Check(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Serve принимает соединения на lis до остановки.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop переводит сервис в NOT_SERVING и корректно останавливает сервер.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
