package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"engdoc-auditor/api/internal/handle"
	"engdoc-auditor/api/internal/session"
)

func NewServeCmd() *cobra.Command {
	var engine string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web auditor",
		Long: `Serve the upload form, the results panel and the JSON API (POST /v1/audit).

Examples:
  GEMINI_API_KEY=... engdoc serve
  engdoc serve --config engdoc.yaml --engine gpt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), engine)
		},
	}
	cmd.Flags().StringVar(&engine, "engine", "", "Audit engine (gemini, gemini-legacy, gpt); default from config")
	return cmd
}

func runServe(ctx context.Context, engine string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := NewClient(cfg, engine)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := session.NewStore()
	go store.RunSweeper(ctx, cfg.SessionIdle())

	mux := http.NewServeMux()
	h := handle.New(store, client, handle.Options{
		Engine:         client.EngineName(),
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Timeout:        cfg.RequestTimeout(),
	})
	h.Register(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	klog.Infof("engdoc listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
