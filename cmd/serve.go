package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gooze.dev/pkg/testbench/internal/adapter"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

var serveAddrFlag string

// serveCmd represents the serve command.
var serveCmd = newServeCmd()

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve unit manifests to remote loading contexts",
		Long: `Serve the units of the source directory over HTTP. Clients point
--source-url at this server and --source-key at the printed key.`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			source := adapter.NewFSCodeSource(afero.NewOsFs(), viper.GetString(sourceDirKey))

			ln, err := net.Listen("tcp", viper.GetString(serveAddrKey))
			if err != nil {
				return fmt.Errorf("failed to listen: %w", err)
			}

			cmd.Printf("Serving http://%s (source key %q)\n", ln.Addr(), source.Key())

			return serve(cmd.Context(), ln, adapter.NewCodeServer(source))
		},
	}

	cmd.Flags().StringVar(&serveAddrFlag, addrFlagName, viper.GetString(serveAddrKey), "listen address")
	bindFlagToConfig(cmd.Flags().Lookup(addrFlagName), serveAddrKey)

	return cmd
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// serve runs handler on ln until ctx is done, then shuts the server down.
func serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: readHeaderTimeout}
	errc := make(chan error, 1)

	go func() {
		errc <- srv.Serve(ln)
	}()

	slog.Info("Code server started", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return fmt.Errorf("code server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down code server: %w", err)
	}

	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("code server stopped: %w", err)
	}

	slog.Info("Code server stopped")

	return nil
}
