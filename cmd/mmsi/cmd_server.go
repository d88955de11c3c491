package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mmsi/orderdesk/app/routes"
	"github.com/mmsi/orderdesk/internal/kernel"
	"github.com/mmsi/orderdesk/pkg/app"
	"github.com/mmsi/orderdesk/pkg/router"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// boot brings up the infrastructure and the kernel on top of it.
func boot(ctx context.Context) (*kernel.Kernel, error) {
	infra, err := app.Boot(ctx)
	if err != nil {
		return nil, err
	}
	k, err := kernel.New(infra)
	if err != nil {
		infra.Close()
		return nil, err
	}
	return k, nil
}

// mmsi serve
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run"},
	Short:   "Start the HTTP server with its background workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		k, err := boot(ctx)
		if err != nil {
			return err
		}
		defer k.Infra.Close()
		return k.Infra.Serve(ctx, k.Handler())
	},
}

// mmsi route:list
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		passthrough := func(h http.Handler) http.Handler { return h }
		r := app.NewRouter(func(r *router.Router) {
			routes.Register(r, routes.Controllers{GraphQL: http.NotFoundHandler()}, passthrough)
		})
		return app.PrintRoutes(os.Stdout, r.Routes())
	},
}
