package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"excalidraw-desktop/bridge"
	"excalidraw-desktop/client"
	"excalidraw-desktop/config"
	"excalidraw-desktop/dialogs"
	"excalidraw-desktop/handlers/api/commands"
	"excalidraw-desktop/handlers/files"
	"excalidraw-desktop/handlers/websocket"
	"excalidraw-desktop/logging"
	"excalidraw-desktop/metrics"
	"excalidraw-desktop/middleware"
	"excalidraw-desktop/stores"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

type routerDeps struct {
	dev        bool
	dispatcher *bridge.Dispatcher
	host       *files.Host
	capability *middleware.Capability
	metrics    *metrics.Metrics
	ioo        *socketio.Server
}

func setupRouter(deps routerDeps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	corsOptions := cors.Options{
		AllowOriginFunc:  middleware.AllowOrigin(deps.dev),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	r.Use(cors.Handler(corsOptions))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	if deps.metrics != nil {
		r.Handle("/metrics", deps.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if deps.capability != nil {
			r.Use(deps.capability.Require)
		}

		r.Post("/api/bridge/{command}", commands.HandleInvoke(deps.dispatcher))
		r.Get("/api/thumbnail", commands.HandleThumbnail())
		r.Get("/api/recent", commands.HandleRecent(deps.host))

		if deps.ioo != nil {
			r.Handle("/socket.io/", deps.ioo.ServeHandler(nil))
		}
	})

	return r
}

func run(ctx context.Context, args []string) error {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	cfg, fs, err := config.FromArgs(args, os.LookupEnv)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		if fs != nil {
			fmt.Fprintln(os.Stderr, fs.FlagUsages())
		}
		return err
	}

	level := cfg.LogLevel
	if cfg.Dev && level == config.Default().LogLevel {
		level = "debug"
	}
	logCloser, err := logging.Configure(logrus.StandardLogger(), level, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	registry, err := stores.GetRegistry(cfg.Storage)
	if err != nil {
		return fmt.Errorf("recent files storage: %w", err)
	}
	if closer, ok := registry.(io.Closer); ok {
		defer closer.Close()
	}
	mirror, err := stores.GetMirror(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("backup mirror: %w", err)
	}

	d, err := dialogs.New(cfg.Dialogs)
	if err != nil {
		return err
	}

	host := files.NewHost(d,
		files.WithRegistry(registry),
		files.WithMirror(mirror),
		files.WithDefaultDirectory(cfg.DefaultDir),
	)
	m := metrics.NewMetrics()
	dispatcher := bridge.NewDispatcher(host, bridge.WithObserver(m))

	var capability *middleware.Capability
	if cfg.Dev {
		logrus.Warn("Development mode: bridge requests are not authenticated")
	} else {
		capability, err = middleware.NewCapability()
		if err != nil {
			return err
		}
	}

	ioo := websocket.SetupSocketIO(dispatcher, middleware.SocketOrigins(cfg.Dev))
	defer ioo.Close(nil)

	r := setupRouter(routerDeps{
		dev:        cfg.Dev,
		dispatcher: dispatcher,
		host:       host,
		capability: capability,
		metrics:    m,
		ioo:        ioo,
	})

	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Listen, err)
	}
	announce(listener.Addr(), capability)

	srv := &http.Server{Handler: r}
	serveErr := make(chan error, 1)
	go func() {
		logrus.WithField("addr", listener.Addr().String()).Info("starting bridge")
		serveErr <- srv.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logrus.Info("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// announce hands the bridge handle to the process launching the UI window,
// one KEY=value per line on stdout.
func announce(addr net.Addr, capability *middleware.Capability) {
	fmt.Printf("%s=http://%s\n", client.EnvBridgeURL, addr.String())
	if capability != nil {
		fmt.Printf("%s=%s\n", client.EnvBridgeToken, capability.Token())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		logrus.WithError(err).Error("excalidraw-desktop failed")
		stop()
		os.Exit(1)
	}
}
