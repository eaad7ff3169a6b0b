package graphql

import (
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-transport-ws/graphqlws"

	"github.com/librisapp/libris-server/internal/auth"
	"github.com/librisapp/libris-server/internal/ratelimit"
	"github.com/librisapp/libris-server/internal/service"
)

// Server serves the GraphQL API over HTTP POST and WebSocket.
type Server struct {
	schema  *graphql.Schema
	auth    *service.AuthService
	router  chi.Router
	logger  *slog.Logger
	limiter *ratelimit.KeyedRateLimiter
}

// NewServer builds the GraphQL server around the parsed schema.
// Set playground to serve an interactive query page on GET /graphql
// (development only).
func NewServer(resolver *Resolver, authService *service.AuthService, logger *slog.Logger, playground bool) *Server {
	s := &Server{
		schema:  graphql.MustParseSchema(Schema, resolver),
		auth:    authService,
		router:  chi.NewRouter(),
		logger:  logger,
		limiter: ratelimit.New(requestsPerSecond, requestBurst),
	}

	s.setupMiddleware()
	s.setupRoutes(playground)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	s.router.Use(s.rateLimitMiddleware)
	s.router.Use(s.currentUserMiddleware)
}

// Per-client-IP request budget. Generous enough for interactive clients,
// tight enough to slow down credential stuffing against login.
const (
	requestsPerSecond = 25
	requestBurst      = 50
)

// rateLimitMiddleware rejects clients that exceed the per-IP request budget.
// RealIP runs earlier in the chain, so RemoteAddr already holds the client IP.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if i := strings.LastIndex(ip, ":"); i >= 0 {
			ip = ip[:i]
		}

		if !s.limiter.Allow(ip) {
			s.logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"errors":[{"message":"too many requests"}]}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(playground bool) {
	// WebSocket upgrades (subscriptions) are handled by the transport-ws
	// handler; everything else falls through to the POST query handler.
	queryHandler := http.HandlerFunc(s.handleQuery)
	s.router.Handle("/graphql", graphqlws.NewHandlerFunc(s.schema, queryHandler))

	if playground {
		s.router.Get("/playground", s.handlePlayground)
	}

	s.router.Get("/healthz", s.handleHealth)
}

// currentUserMiddleware resolves a Bearer token to the request's current user.
// A missing or invalid token is not an error: the request proceeds
// unauthenticated and protected mutations reject it themselves.
func (s *Server) currentUserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.auth.ResolveToken(r.Context(), authHeader[len("Bearer "):])
		if err != nil {
			s.logger.Debug("ignoring invalid bearer token", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
	})
}

// queryParams is the standard GraphQL-over-HTTP request body.
type queryParams struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// handleQuery executes a query or mutation and writes the GraphQL response.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "GraphQL queries must be sent as POST requests", http.StatusMethodNotAllowed)
		return
	}

	var params queryParams
	if err := json.UnmarshalRead(r.Body, &params); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	response := s.schema.Exec(r.Context(), params.Query, params.OperationName, params.Variables)

	w.Header().Set("Content-Type", "application/json")
	if err := json.MarshalWrite(w, response); err != nil {
		s.logger.Error("failed to write GraphQL response", "error", err)
	}
}

// playgroundPage is a minimal GraphiQL page pointed at this server's
// /graphql endpoint. Served in development only.
const playgroundPage = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8" />
	<title>Libris GraphQL</title>
	<link rel="stylesheet" href="https://unpkg.com/graphiql@3/graphiql.min.css" />
	<style>body { margin: 0; } #graphiql { height: 100vh; }</style>
</head>
<body>
	<div id="graphiql"></div>
	<script src="https://unpkg.com/react@18/umd/react.production.min.js"></script>
	<script src="https://unpkg.com/react-dom@18/umd/react-dom.production.min.js"></script>
	<script src="https://unpkg.com/graphiql@3/graphiql.min.js"></script>
	<script>
		const fetcher = GraphiQL.createFetcher({
			url: "/graphql",
			subscriptionUrl: (location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/graphql",
		});
		ReactDOM.createRoot(document.getElementById("graphiql")).render(
			React.createElement(GraphiQL, { fetcher })
		);
	</script>
</body>
</html>`

func (s *Server) handlePlayground(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(playgroundPage))
}

// handleHealth reports process liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
