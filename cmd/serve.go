// file: cmd/serve.go
// version: 1.1.0
// guid: 8b2e4d6f-1a3c-4b5d-9e7f-0a2c4e6b8d1f

package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DS09AT/Shelvance-sub001/internal/config"
	"github.com/DS09AT/Shelvance-sub001/internal/operations"
	"github.com/DS09AT/Shelvance-sub001/internal/server"
	"github.com/DS09AT/Shelvance-sub001/internal/watcher"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API serving provider management, federated lookups,
batch refresh operations and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.AppConfig
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("Using database: %s (%s)\n", cfg.DatabasePath, cfg.DatabaseType)

		if cfg.ProvidersFile != "" {
			if err := importProviderFile(cmd, a, cfg.ProvidersFile); err != nil {
				log.Printf("[WARN] serve: %v", err)
			}
			w, err := watcher.WatchProviderFile(a.registry, cfg.ProvidersFile, watcher.DefaultDebounce)
			if err != nil {
				log.Printf("[WARN] serve: not watching %s: %v", cfg.ProvidersFile, err)
			} else {
				defer w.Stop()
			}
		}

		queue := operations.NewOperationQueue(a.store, cfg.Workers)
		defer func() {
			fmt.Println("Shutting down operation queue...")
			if err := queue.Shutdown(30 * time.Second); err != nil {
				fmt.Printf("Warning: operation queue shutdown error: %v\n", err)
			}
		}()

		srv := server.NewServer(a.engine, queue)
		a.tracker.OnTransition(srv.Events().CircuitTransition)
		return srv.Start(server.ServerConfig{
			Host:         cfg.Host,
			Port:         cfg.Port,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		})
	},
}

func init() {
	serveCmd.Flags().String("port", "8080", "port to run the web server on")
	serveCmd.Flags().String("host", "localhost", "host to bind the web server to")
	serveCmd.Flags().Duration("read-timeout", 15*time.Second, "read timeout (e.g. 15s, 1m)")
	serveCmd.Flags().Duration("write-timeout", 30*time.Second, "write timeout (e.g. 15s, 1m)")
	serveCmd.Flags().Duration("idle-timeout", 60*time.Second, "idle timeout (e.g. 60s, 2m)")
	serveCmd.Flags().Int("workers", 2, "number of background operation workers")

	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("read_timeout", serveCmd.Flags().Lookup("read-timeout"))
	viper.BindPFlag("write_timeout", serveCmd.Flags().Lookup("write-timeout"))
	viper.BindPFlag("idle_timeout", serveCmd.Flags().Lookup("idle-timeout"))
	viper.BindPFlag("workers", serveCmd.Flags().Lookup("workers"))
}
