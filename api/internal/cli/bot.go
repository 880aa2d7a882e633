package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"engdoc-auditor/api/internal/handle"
	"engdoc-auditor/api/internal/session"
	"engdoc-auditor/api/internal/telegram"
)

func NewBotCmd() *cobra.Command {
	var (
		engine string
		web    bool
	)
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		Long: `Run the Telegram front end. With WEBHOOK_URL set the bot registers a webhook,
otherwise it falls back to long polling. /healthz is served in both modes.

Examples:
  TELEGRAM_BOT_TOKEN=... GEMINI_API_KEY=... engdoc bot
  engdoc bot --web   # also serve the web form on the same port`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), engine, web)
		},
	}
	cmd.Flags().StringVar(&engine, "engine", "", "Audit engine (gemini, gemini-legacy, gpt); default from config")
	cmd.Flags().BoolVar(&web, "web", false, "Serve the web auditor next to the bot")
	return cmd
}

func runBot(ctx context.Context, engine string, web bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.TelegramBotToken) == "" {
		return errors.New("missing TELEGRAM_BOT_TOKEN")
	}
	client, err := NewClient(cfg, engine)
	if err != nil {
		return err
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := session.NewStore()
	go store.RunSweeper(ctx, cfg.SessionIdle())

	r := &telegram.Router{
		Bot:       bot,
		Store:     store,
		Analyzer:  client,
		Timeout:   cfg.RequestTimeout(),
		MaxUpload: cfg.MaxUploadBytes(),
	}

	// ListenForWebhook регистрирует обработчик на DefaultServeMux, поэтому всё остальное тоже туда.
	mux := http.DefaultServeMux
	if web {
		handle.New(store, client, handle.Options{
			Engine:         client.EngineName(),
			MaxUploadBytes: cfg.MaxUploadBytes(),
			Timeout:        cfg.RequestTimeout(),
		}).Register(mux)
	} else {
		mux.HandleFunc("/healthz", handle.Healthz)
	}

	addr := "0.0.0.0:" + cfg.Port
	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		return startWebhookMode(ctx, addr, bot, r, webhookURL)
	}
	return startPollingMode(ctx, addr, bot, r)
}

func startWebhookMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string) error {
	// секретный путь вебхука
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return err
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	updates := bot.ListenForWebhook(path)
	go func() {
		for upd := range updates {
			r.HandleUpdate(upd)
		}
		klog.Infof("webhook updates channel closed")
	}()

	klog.Infof("webhook listening on %s (path %s)", addr, path)
	return serveDefault(ctx, addr)
}

func startPollingMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router) error {
	errc := make(chan error, 1)
	go func() { errc <- serveDefault(ctx, addr) }()

	// вебхук мешает getUpdates
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		klog.Warningf("delete webhook: %v", err)
	}
	klog.Infof("polling mode; health server on %s/healthz", addr)
	runPolling(ctx, bot, r.HandleUpdate)
	return <-errc
}

func serveDefault(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ---------------- Polling loop -----------------

type updatesGetter interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 от Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

// runPolling: устойчивый поллинг с backoff, без выхода по ошибке.
func runPolling(ctx context.Context, bot updatesGetter, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			klog.Infof("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := retryDelayFromError(err)
			if d < baseDelay {
				d = baseDelay
			}
			if d > maxDelay {
				d = maxDelay
			}
			klog.Warningf("polling error: %v; retry in %v", err, d)
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// shortHash: стабильный FNV-1a токена для пути вебхука.
func shortHash(s string) string {
	h := uint64(14695981039346656037)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
