package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edtrack/exercise-xapi/internal/config"
	"github.com/edtrack/exercise-xapi/internal/descriptor"
	"github.com/edtrack/exercise-xapi/internal/gateway"
	"github.com/edtrack/exercise-xapi/internal/outbox"
	"github.com/edtrack/exercise-xapi/internal/transport"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "exercise-xapi",
		Short:         "Exercise telemetry: xAPI statement gateway and content packager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), packageCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var passingGrade float64
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the telemetry gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer log.Sync()

			cfg := config.FromEnv()
			if cmd.Flags().Changed("passing-grade") {
				cfg.PassingGrade = passingGrade
			}

			var store *outbox.Store
			if cfg.OutboxDriver != "" {
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				db, err := outbox.Open(ctx, outbox.Driver(cfg.OutboxDriver), cfg.OutboxDSN)
				cancel()
				if err != nil {
					return fmt.Errorf("open outbox: %w", err)
				}
				defer db.Close()
				store = outbox.NewStore(db)
				log.Info("statement outbox enabled", zap.String("driver", cfg.OutboxDriver))
			}

			srv := gateway.NewServer(cfg, log, store)
			httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Router()}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if store != nil {
				go outbox.NewFlusher(store, transport.NewRedeliverer(), log, time.Minute).Run(ctx)
			}
			go func() {
				<-ctx.Done()
				shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = httpSrv.Shutdown(shutCtx)
			}()

			log.Info("gateway listening", zap.String("addr", cfg.HTTPAddr))
			if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&passingGrade, "passing-grade", 50, "completion success threshold in percent")
	return cmd
}

func packageCmd() *cobra.Command {
	var (
		activityID string
		output     string
	)
	cmd := &cobra.Command{
		Use:   "package <content-dir>",
		Short: "Write activity descriptors next to extracted content and zip it",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			contentDir := args[0]
			meta, err := descriptor.ExtractMeta(contentDir)
			if err != nil {
				return err
			}
			meta.ActivityID = activityID
			if err := descriptor.WriteFiles(contentDir, meta); err != nil {
				return err
			}
			if output != "" {
				if err := descriptor.ZipDir(contentDir, output); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&activityID, "activity-id", "", "activity id for the packaged exercise (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write a zip archive of the content dir")
	_ = cmd.MarkFlagRequired("activity-id")
	return cmd
}
