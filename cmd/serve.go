package cmd

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/theapemachine/agentdeck/pkg/catalog"
	"github.com/theapemachine/agentdeck/pkg/metrics"
	"github.com/theapemachine/agentdeck/pkg/service"
	"github.com/theapemachine/agentdeck/pkg/stores"
)

const (
	defaultPort            = 8000
	defaultShutdownTimeout = 10 * time.Second
)

var (
	portFlag int
	hostFlag string
	appsFlag []string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the agent catalogue over HTTP",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), listenAddr(cmd))
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&portFlag, "port", "p", defaultPort, "Port to serve on (PORT wins when set)")
	serveCmd.Flags().StringVarP(&hostFlag, "host", "H", "", "Host address to bind to")
	serveCmd.Flags().StringSliceVar(&appsFlag, "apps", nil, "Only build these agents")
}

/*
listenAddr resolves the bind address. PORT wins over the flag, which wins
over the config file.
*/
func listenAddr(cmd *cobra.Command) string {
	host := viper.GetString("server.host")

	if cmd.Flags().Changed("host") {
		host = hostFlag
	}

	port := viper.GetInt("server.port")

	if cmd.Flags().Changed("port") {
		port = portFlag
	}

	if env, err := strconv.Atoi(os.Getenv("PORT")); err == nil && env > 0 {
		port = env
	}

	if port <= 0 {
		port = defaultPort
	}

	return net.JoinHostPort(host, strconv.Itoa(port))
}

func serve(ctx context.Context, addr string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := newDeps(ctx)

	if err != nil {
		return err
	}

	sessions, err := stores.Open(ctx, viper.GetString("server.session_service_uri"))

	if err != nil {
		return err
	}

	defer sessions.Close()

	apps := catalog.Build(ctx, deps, appsFlag...)
	defer apps.Close()

	for name, reason := range apps.Disabled() {
		log.Warn("app unavailable", "name", name, "reason", reason)
	}

	options := []service.ServerOption{service.WithMetrics(metrics.NewRunMetrics())}

	if authService := newAuth(); authService != nil {
		options = append(options, service.WithAuth(authService))
	}

	srv := service.NewServer(apps, sessions, deps.Artifacts, options...)
	errs := make(chan error, 1)

	go func() {
		errs <- srv.Start(addr)
	}()

	select {
	case err = <-errs:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	timeout := viper.GetDuration("server.shutdown_timeout")

	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	shutdown, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return srv.Shutdown(shutdown)
}

var longServe = `
Serve the agent catalogue over HTTP. Sessions live in the store named by
server.session_service_uri (SESSION_SERVICE_URI): memory://, sqlite:// or
postgresql://. Agents whose API keys are missing are left out.

Examples:
  # Serve on the default port
  agentdeck serve

  # Serve two agents on port 9000
  agentdeck serve --port 9000 --apps web_search_agent,mermaid_mcp_agent
`
