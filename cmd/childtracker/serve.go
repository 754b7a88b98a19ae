package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/comalice/childtracker"
	"github.com/comalice/childtracker/internal/bridge"
	"github.com/comalice/childtracker/internal/config"
	"github.com/comalice/childtracker/internal/logging"
)

const shutdownTimeout = 5 * time.Second

var (
	configPath string
	listenAddr string
)

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "listen address, overrides the config file")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the websocket bridge",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath, listenAddr)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func loadConfig(path, listen string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if listen != "" {
		cfg.Listen = listen
	}
	return cfg, errors.Wrap(cfg.Validate(), "config")
}

// newMux routes the bridge and the health check.
func newMux(srv *bridge.Server, log *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", srv)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]interface{}{
			"status":   "ok",
			"sessions": srv.Sessions(),
		})
		if err != nil {
			log.Warn("healthz encode", zap.String("remote", r.RemoteAddr), zap.Error(err))
		}
	})
	return mux
}

func serve(ctx context.Context, cfg config.Config) error {
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	transitions := make(chan childtracker.StateChange, cfg.QueueSize)
	srv := bridge.NewServer(cfg,
		bridge.WithLogger(log),
		bridge.WithPublisher(childtracker.NewChannelPublisher(transitions)),
		bridge.WithOriginPatterns(cfg.Origins...),
	)
	httpSrv := &http.Server{Addr: cfg.Listen, Handler: newMux(srv, log)}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Listen), zap.Strings("elements", cfg.Elements))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrapf(err, "listen on %s", cfg.Listen)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		srv.Close()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Wrap(httpSrv.Shutdown(sctx), "shutdown")
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case tr := <-transitions:
				log.Info("visibility changed",
					zap.String("element", tr.ElementID),
					zap.Stringer("from", tr.From),
					zap.Stringer("state", tr.To),
					zap.Time("at", tr.At))
			}
		}
	})
	return g.Wait()
}
