package handle

import (
	"encoding/json"
	"net/http"
	"time"

	"k8s.io/klog/v2"

	"engdoc-auditor/api/internal/audit"
	"engdoc-auditor/api/internal/session"
)

const (
	cookieName       = "engdoc_sid"
	defaultMaxUpload = 10 << 20
	defaultTimeout   = 300 * time.Second
)

type Handle struct {
	store    *session.Store
	analyzer audit.Analyzer
	engine   string

	maxUpload int64
	timeout   time.Duration
}

type Options struct {
	Engine         string
	MaxUploadBytes int64
	Timeout        time.Duration
}

func New(store *session.Store, analyzer audit.Analyzer, opts Options) *Handle {
	h := &Handle{
		store:     store,
		analyzer:  analyzer,
		engine:    opts.Engine,
		maxUpload: opts.MaxUploadBytes,
		timeout:   opts.Timeout,
	}
	if h.maxUpload <= 0 {
		h.maxUpload = defaultMaxUpload
	}
	if h.timeout <= 0 {
		h.timeout = defaultTimeout
	}
	return h
}

// Register вешает все маршруты на mux.
func (h *Handle) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", Healthz)
	mux.HandleFunc("/", h.Index)
	mux.HandleFunc("/project", h.Project)
	mux.HandleFunc("/references", h.References)
	mux.HandleFunc("/references/remove", h.RemoveReference)
	mux.HandleFunc("/options", h.Options)
	mux.HandleFunc("/analyze", h.Analyze)
	mux.HandleFunc("/reset", h.Reset)
	mux.HandleFunc("/print", h.Print)
	mux.HandleFunc("/v1/audit", h.Audit)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// session находит сессию по cookie или заводит новую.
func (h *Handle) session(w http.ResponseWriter, r *http.Request) *session.Session {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		if s, ok := h.store.Lookup(c.Value); ok {
			return s
		}
	}
	id := session.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	klog.V(2).Infof("new web session %s", id)
	return h.store.Get(id)
}

func postOnly(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
