package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/metrics"
	"github.com/spigell/cv-screener/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and web UI",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :8000)")
	viper.BindPFlag("http.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg, config := setup()
	defer lg.Sync()

	lg.Info("starting the cv-screener server", zap.String("version", version))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		lg.Fatal("registering metrics", zap.Error(err))
	}

	st := openStore(ctx, config, lg)
	defer st.Close()

	runner, err := newRunner(ctx, config, st, lg)
	if err != nil {
		lg.Fatal("configuring the model client", zap.Error(err))
	}

	srv := server.New(config.HTTP, server.Deps{
		Store:      st,
		Candidates: candidateSource(config, lg),
		Analyzer:   runner,
		Logger:     lg,
		Metrics:    promhttp.Handler(),
	})

	if err := srv.Run(ctx); err != nil {
		lg.Error("http server stopped", zap.Error(err))
	}

	// A run in flight stops at the next candidate and leaves stored results untouched.
	runner.Wait()
	lg.Info("exiting")
}
