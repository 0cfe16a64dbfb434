package api

import "github.com/okian/skanlab/pkg/logger"

// defaultMaxBodyBytes matches the 16 MiB request cap of the web UI.
const defaultMaxBodyBytes int64 = 16 << 20

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithCORSOrigins sets the allowed CORS origins; "*" allows any.
func WithCORSOrigins(origins []string) ServerOption {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = append([]string(nil), origins...)
		}
	}
}

// WithLogger sets the logger used by the middleware.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
