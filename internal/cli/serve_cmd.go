package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Server runs the HTTP surface next to the background loops (expiry scan,
// evaluation sweep) until the context is cancelled.
type Server struct {
	Addr            string
	Handler         http.Handler
	Loops           []func(context.Context) error
	Logger          *slog.Logger
	ShutdownTimeout time.Duration
	// OnListen, if set, is called with the bound address once accepting.
	OnListen func(net.Addr)
}

func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.Addr, err)
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := s.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	srv := &http.Server{Handler: s.Handler, ReadHeaderTimeout: 5 * time.Second}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		logger.Info("shutting down", "addr", ln.Addr().String())
		return srv.Shutdown(shutdownCtx)
	})
	for _, loop := range s.Loops {
		g.Go(func() error { return loop(gctx) })
	}

	logger.Info("listening", "addr", ln.Addr().String())
	if s.OnListen != nil {
		s.OnListen(ln.Addr())
	}
	return g.Wait()
}

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the expiry and evaluation loops",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Server == nil {
				return fmt.Errorf("serving is not configured")
			}
			if addr != "" {
				app.Server.Addr = addr
			}
			return app.Server.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides configuration")
	return cmd
}
