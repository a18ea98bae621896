package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/gokernel/bootstrap"
	"github.com/kbukum/gokernel/cmd/kernel/demo"
	"github.com/kbukum/gokernel/config"
	"github.com/kbukum/gokernel/status"
	"github.com/kbukum/gokernel/version"
)

var (
	serviceName   string
	blockInterval time.Duration
	gracePeriod   time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Boot the providers and follow the simulated chain",
	Long: `Run loads configuration, boots the demo providers and then applies a
block every --block-interval. Each block re-evaluates every provider.

Examples:
  # Run with configuration from ./config/kernel.yaml
  kernel run

  # Load configuration from CORE_* environment variables only
  CORE_NAME=kernel CORE_STATUS_ENABLED=true kernel run --config-loader env

  # Keep the indexer off
  CORE_PROVIDERS_DISABLED=indexer kernel run --config-loader env`,
	RunE: runNode,
}

func init() {
	runCmd.Flags().StringVar(&serviceName, "name", "kernel", "Service name used for config file lookup")
	runCmd.Flags().DurationVar(&blockInterval, "block-interval", time.Second, "Interval between simulated blocks")
	runCmd.Flags().DurationVar(&gracePeriod, "grace-period", 15*time.Second, "Graceful shutdown timeout")
}

// newApp builds the kernel application from the global flags.
func newApp(name string) *bootstrap.App {
	var loaderOpts []config.LoaderOption
	if cfgFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(cfgFile))
	}
	if envFile != "" {
		loaderOpts = append(loaderOpts, config.WithEnvFile(envFile))
	}

	opts := []bootstrap.Option{
		bootstrap.WithVersion(version.Get().Short()),
		bootstrap.WithConfigManager(config.NewDefaultManager(name, loaderOpts...)),
		bootstrap.WithGracefulTimeout(gracePeriod),
	}
	if configLoader != "" {
		opts = append(opts, bootstrap.WithConfigLoader(configLoader))
	}
	return bootstrap.New(name, opts...)
}

func runNode(cmd *cobra.Command, args []string) error {
	app := newApp(serviceName)
	chain := &demo.Chain{}
	if err := demo.Install(app, chain); err != nil {
		return err
	}

	var srv *status.Server
	produceCtx, stopProducing := context.WithCancel(cmd.Context())
	defer stopProducing()

	app.OnReady(func(ctx context.Context) error {
		if app.Config.Status.Enabled {
			srv = status.New(app.Config.Status.Addr, app.Name, app.Version, app.Providers, app.Logger)
			if err := srv.Start(ctx); err != nil {
				return err
			}
		}
		go chain.Produce(produceCtx, app.Events, blockInterval, app.Logger.WithComponent("chain"))
		return nil
	})

	app.OnStop(func(ctx context.Context) error {
		stopProducing()
		if srv != nil {
			return srv.Stop(ctx)
		}
		return nil
	})

	return app.Run(cmd.Context())
}
