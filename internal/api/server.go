package api

import (
	"Go2MemSpectra/internal/config"
	"Go2MemSpectra/internal/engine/manager"
	"Go2MemSpectra/internal/model"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// StatusSource is the engine view served by the API.
type StatusSource interface {
	Status() manager.Status
	LatestRecord() (model.Record, bool)
}

// Server exposes engine status over HTTP and a gRPC health service.
type Server struct {
	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server
	grpcAddr   string
}

// NewServer creates the servers configured in cfg. An empty address disables that server.
func NewServer(cfg config.APIConfig, src StatusSource) *Server {
	s := &Server{grpcAddr: cfg.GrpcListenAddr}
	if cfg.HttpListenAddr != "" {
		s.httpServer = &http.Server{
			Addr:    cfg.HttpListenAddr,
			Handler: NewRouter(src),
		}
	}
	if cfg.GrpcListenAddr != "" {
		s.grpcServer = grpc.NewServer()
		s.health = health.NewServer()
		healthpb.RegisterHealthServer(s.grpcServer, s.health)
	}
	return s
}

// Start begins serving in the background and marks the engine as serving.
func (s *Server) Start() error {
	if s.grpcServer != nil {
		lis, err := net.Listen("tcp", s.grpcAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", s.grpcAddr, err)
		}
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		go func() {
			log.Printf("gRPC health server starting on %s", s.grpcAddr)
			if err := s.grpcServer.Serve(lis); err != nil {
				log.Printf("gRPC server error: %v", err)
			}
		}()
	}
	if s.httpServer != nil {
		go func() {
			log.Printf("HTTP status server starting on %s", s.httpServer.Addr)
			if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("HTTP server error: %v", err)
			}
		}()
	}
	return nil
}

// MarkStopped reports NOT_SERVING once tracing has ended. Status stays readable.
func (s *Server) MarkStopped() {
	if s.health != nil {
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	}
}

// Shutdown stops both servers.
func (s *Server) Shutdown(ctx context.Context) {
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Printf("HTTP server forced to shutdown: %v", err)
		}
	}
}

// NewRouter builds the HTTP routes.
func NewRouter(src StatusSource) *mux.Router {
	h := &handler{src: src}
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/status", h.status).Methods("GET")
	r.HandleFunc("/api/v1/snapshot/latest", h.latestSnapshot).Methods("GET")
	return r
}

type handler struct {
	src StatusSource
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.src.Status()); err != nil {
		log.Printf("Error encoding status: %v", err)
	}
}

func (h *handler) latestSnapshot(w http.ResponseWriter, r *http.Request) {
	record, ok := h.src.LatestRecord()
	if !ok {
		http.Error(w, "no snapshot has been flushed yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("X-Snapshot-Seq", strconv.FormatUint(record.Seq, 10))
	w.Header().Set("X-Snapshot-Kind", record.Suffix)
	w.Write(record.Body)
}
