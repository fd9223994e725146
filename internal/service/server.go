package service

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// shutdownGrace 关停时等待在途请求的上限
const shutdownGrace = 5 * time.Second

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return &Server{httpServer: s, logger: logger}
}

func (s *Server) Start() error {
	s.logger.Info("Starting parish-data HTTP server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Stop 优雅关停：最多等待shutdownGrace后强制退出
func (s *Server) Stop() error {
	s.logger.Info("Stopping parish-data HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
