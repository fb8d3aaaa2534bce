package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lavoro-tech/reranker/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the single-pair match API over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address")
	viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	service, err := newMatchService(config, log)
	if err != nil {
		log.Fatal("loading snapshot", zap.Error(err))
	}

	server := httpapi.New(service, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(viper.GetString("serve.addr"))
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		if err := server.Shutdown(); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
		<-errCh
	case err := <-errCh:
		if err != nil {
			log.Fatal("serving", zap.Error(err))
		}
	}
}
