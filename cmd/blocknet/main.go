package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"blocknet/pkg/api"
	"blocknet/pkg/config"
	"blocknet/pkg/manifest"
	"blocknet/pkg/registry"
	"blocknet/pkg/types"
	"blocknet/pkg/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configFile string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "blocknet",
		Short: "Simulated distributed block-storage network",
		Long: `blocknet splits files into fixed-size blocks, replicates each block
across a pool of virtual storage nodes, and serves them back from any
surviving replica. One process simulates the whole network.`,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(
		serveCmd(),
		statusCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the storage network with its HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			cfg := config.Default()
			if configFile != "" {
				var err error
				cfg, err = config.Load(configFile)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
			}
			if listen != "" {
				cfg.Listen = listen
			}

			network, store, err := buildNetwork(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			server := &http.Server{
				Addr:    cfg.Listen,
				Handler: api.NewServer(network, logger),
			}

			go func() {
				sig := make(chan os.Signal, 1)
				signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
				<-sig
				logger.Info("shutting down")
				server.Close()
			}()

			logger.Info("blocknet serving",
				zap.String("listen", cfg.Listen),
				zap.Int("nodes", len(cfg.Nodes)),
				zap.String("manifest_store", cfg.Manifest.Store))

			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (overrides config)")
	return cmd
}

// buildNetwork assembles the registry from configuration: manifest
// store, chunk size, quota, and the bootstrap node pool.
func buildNetwork(cfg *config.Config, logger *zap.Logger) (*registry.Network, manifest.Store, error) {
	chunkSize, err := cfg.ChunkSizeBytes()
	if err != nil {
		return nil, nil, err
	}
	defaultQuota, err := cfg.DefaultQuotaBytes()
	if err != nil {
		return nil, nil, err
	}

	var store manifest.Store
	switch cfg.Manifest.Store {
	case "bolt":
		store, err = manifest.NewBoltStore(cfg.Manifest.Path)
		if err != nil {
			return nil, nil, err
		}
	default:
		store = manifest.NewMemoryStore()
	}

	network := registry.New(registry.Options{
		BlockSize:    int(chunkSize),
		Replication:  cfg.Replication,
		DefaultQuota: defaultQuota,
	}, store, logger)

	for _, n := range cfg.Nodes {
		capacity, err := utils.ParseDataSize(n.Capacity)
		if err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
		if err := network.AddNodeWithID(types.NodeID(n.ID), capacity); err != nil {
			store.Close()
			return nil, nil, err
		}
	}

	return network, store, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("blocknet v0.3.0")
		},
	}
}

func setupLogger(verbose bool) *zap.Logger {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, _ := config.Build()
	return logger
}
