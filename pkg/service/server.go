package service

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/gtriggiano/access-authority-service/pkg/access"
	"github.com/gtriggiano/access-authority-service/pkg/config"
	"github.com/gtriggiano/access-authority-service/pkg/transport"
	_ "github.com/gtriggiano/access-authority-service/pkg/transport/jsoncodec"
)

const (
	// Server timeouts
	defaultGracefulShutdownTimeout = 5 * time.Second
)

// Server wraps the authority gRPC server.
type Server struct {
	cfg        config.ServerConfig
	manager    *Manager
	grpcServer *grpc.Server
	logger     *zap.Logger
}

// NewServer constructs the gRPC server and registers handlers.
func NewServer(cfg config.ServerConfig, manager *Manager, logger *zap.Logger) (*Server, error) {
	opts := []grpc.ServerOption{}
	if cfg.TLS != nil {
		tlsConfig, err := buildTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, grpc.Creds(credentials.NewTLS(tlsConfig)))
	}

	grpcServer := grpc.NewServer(opts...)
	reflection.Register(grpcServer)
	svc := &authorityService{manager: manager, logger: logger, maxExpressionBytes: cfg.MaxExpressionBytes}
	grpcServer.RegisterService(&transport.ServiceDesc, svc)

	return &Server{cfg: cfg, manager: manager, grpcServer: grpcServer, logger: logger}, nil
}

// Start begins serving and blocks until context cancellation or server error.
func (s *Server) Start(ctx context.Context, onReady func()) error {
	listener, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on address '%s': %w", s.cfg.Address, err)
	}

	if onReady != nil {
		onReady()
	}

	go func() {
		<-ctx.Done()
		done := make(chan struct{})
		go func() {
			s.grpcServer.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(defaultGracefulShutdownTimeout):
			s.grpcServer.Stop()
		}
	}()

	s.logger.Info("gRPC server listening", zap.String("addr", s.cfg.Address))
	err = s.grpcServer.Serve(listener)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// buildTLSConfig loads TLS assets and returns a server TLS configuration.
func buildTLSConfig(cfg config.ServerConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{}
	if cfg.TLS == nil {
		return tlsCfg, nil
	}

	cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("could not load server certificate: %w", err)
	}
	tlsCfg.Certificates = []tls.Certificate{cert}

	if cfg.TLS.CAFile != "" {
		caData, err := os.ReadFile(cfg.TLS.CAFile)
		if err != nil {
			return nil, fmt.Errorf("could not load CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caData) {
			return nil, fmt.Errorf("CA certificates addition failed")
		}
		tlsCfg.ClientCAs = pool
	}

	if cfg.TLS.RequireClientCert {
		tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return tlsCfg, nil
}

// authorityService adapts Manager to the transport.AuthorityServer
// interface served by the hand-rolled grpc.ServiceDesc.
type authorityService struct {
	manager            *Manager
	logger             *zap.Logger
	maxExpressionBytes int
}

var _ transport.AuthorityServer = (*authorityService)(nil)

func (s *authorityService) checkExpressionSize(expression string) error {
	if s.maxExpressionBytes > 0 && len(expression) > s.maxExpressionBytes {
		return status.Errorf(codes.InvalidArgument, "expression exceeds maximum of %d bytes", s.maxExpressionBytes)
	}
	return nil
}

// CanAccess evaluates expression against each principal's authorization
// sets, granting access only when every set satisfies it.
func (s *authorityService) CanAccess(ctx context.Context, req *transport.CanAccessRequest) (*transport.CanAccessResponse, error) {
	if err := s.checkExpressionSize(req.Expression); err != nil {
		return nil, err
	}
	granted, err := s.manager.CanAccess(ctx, []byte(req.Expression), req.Principals)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &transport.CanAccessResponse{Granted: granted}, nil
}

// Validate checks an expression for well-formedness.
func (s *authorityService) Validate(ctx context.Context, req *transport.ValidateRequest) (*transport.ValidateResponse, error) {
	if err := s.checkExpressionSize(req.Expression); err != nil {
		return nil, err
	}
	if err := s.manager.Validate([]byte(req.Expression)); err != nil {
		return &transport.ValidateResponse{Valid: false}, nil
	}
	return &transport.ValidateResponse{Valid: true}, nil
}

// Parse returns the canonical re-serialization of an expression.
func (s *authorityService) Parse(ctx context.Context, req *transport.ParseRequest) (*transport.ParseResponse, error) {
	if err := s.checkExpressionSize(req.Expression); err != nil {
		return nil, err
	}
	canonical, err := s.manager.Parse([]byte(req.Expression))
	if err != nil {
		return nil, s.mapError(err)
	}
	return &transport.ParseResponse{Canonical: string(canonical)}, nil
}

// FindAuthorizations returns the authorization tokens referenced in an expression.
func (s *authorityService) FindAuthorizations(ctx context.Context, req *transport.FindAuthorizationsRequest) (*transport.FindAuthorizationsResponse, error) {
	if err := s.checkExpressionSize(req.Expression); err != nil {
		return nil, err
	}
	found, err := s.manager.FindAuthorizations([]byte(req.Expression))
	if err != nil {
		return nil, s.mapError(err)
	}
	return &transport.FindAuthorizationsResponse{Authorizations: found}, nil
}

// Quote quotes an authorization term if required.
func (s *authorityService) Quote(ctx context.Context, req *transport.QuoteRequest) (*transport.QuoteResponse, error) {
	quoted, err := s.manager.Quote([]byte(req.Term))
	if err != nil {
		return nil, s.mapError(err)
	}
	return &transport.QuoteResponse{Quoted: string(quoted)}, nil
}

// Unquote strips quoting and escaping from an authorization term.
func (s *authorityService) Unquote(ctx context.Context, req *transport.UnquoteRequest) (*transport.UnquoteResponse, error) {
	unquoted, err := s.manager.Unquote([]byte(req.Term))
	if err != nil {
		return nil, s.mapError(err)
	}
	return &transport.UnquoteResponse{Term: string(unquoted)}, nil
}

// mapError translates domain errors to explicit gRPC status codes: malformed
// expressions are the caller's fault, authority store failures are ours.
func (s *authorityService) mapError(err error) error {
	var invalidExpr *access.InvalidExpressionError
	if errors.As(err, &invalidExpr) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	s.logger.Error("authority service error", zap.Error(err))
	return status.Error(codes.Unavailable, err.Error())
}
