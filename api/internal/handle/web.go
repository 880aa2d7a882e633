package handle

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"k8s.io/klog/v2"

	"engdoc-auditor/api/internal/audit"
	"engdoc-auditor/api/internal/audit/prompt"
	"engdoc-auditor/api/internal/audit/types"
	"engdoc-auditor/api/internal/report"
	"engdoc-auditor/api/internal/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = template.Must(template.New("web").Funcs(report.Funcs).ParseFS(templatesFS, "templates/*.html"))

type checkRow struct {
	Name    types.CheckName
	Label   string
	Enabled bool
}

type pageText struct {
	Title, Print, Start, StartBusy, Engine string
}

var webText = pageText{
	Title:     report.TitleReport,
	Print:     report.PrintButtonLabel,
	Start:     report.StartButton,
	StartBusy: report.StartButtonBusy,
	Engine:    "Модель",
}

type pageData struct {
	Snapshot    session.Snapshot
	Checks      []checkRow
	Results     template.HTML
	Pending     bool
	CanStart    bool
	Printable   bool
	Notice      string
	Engine      string
	MaxUploadMB int64
	Text        pageText
}

func (h *Handle) pageData(snap session.Snapshot, notice string) (pageData, error) {
	res, err := report.HTML(report.ViewOf(snap.Outcome))
	if err != nil {
		return pageData{}, err
	}
	checks := make([]checkRow, 0, len(types.AllChecks))
	for _, c := range types.AllChecks {
		checks = append(checks, checkRow{Name: c, Label: prompt.LabelFor(c), Enabled: snap.Options.Get(c)})
	}
	return pageData{
		Snapshot:    snap,
		Checks:      checks,
		Results:     res,
		Pending:     snap.Outcome.IsPending(),
		CanStart:    snap.CanStart(),
		Printable:   snap.Outcome.Phase == session.PhaseSucceeded,
		Notice:      notice,
		Engine:      h.engine,
		MaxUploadMB: h.maxUpload >> 20,
		Text:        webText,
	}, nil
}

func (h *Handle) render(w http.ResponseWriter, name string, d pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, d); err != nil {
		klog.Errorf("render %s: %v", name, err)
	}
}

// back: PRG: после POST возвращаемся на главную, сообщение в query.
func back(w http.ResponseWriter, r *http.Request, notice string) {
	target := "/"
	if notice != "" {
		target += "?msg=" + url.QueryEscape(notice)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handle) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	s := h.session(w, r)
	d, err := h.pageData(s.Snapshot(), r.URL.Query().Get("msg"))
	if err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.render(w, "page", d)
}

func (h *Handle) Print(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	d, err := h.pageData(s.Snapshot(), "")
	if err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.render(w, "print", d)
}

func (h *Handle) Project(w http.ResponseWriter, r *http.Request) {
	if !postOnly(w, r) {
		return
	}
	s := h.session(w, r)
	docs, err := h.readPDFs(w, r, "project")
	if err != nil {
		back(w, r, err.Error())
		return
	}
	// один проверяемый документ: берём первый
	s.SetPrimary(&docs[0])
	klog.V(2).Infof("session %s: project %s (%d bytes)", s.ID, docs[0].Name, docs[0].Size)
	back(w, r, "")
}

func (h *Handle) References(w http.ResponseWriter, r *http.Request) {
	if !postOnly(w, r) {
		return
	}
	s := h.session(w, r)
	docs, err := h.readPDFs(w, r, "gost")
	if err != nil {
		back(w, r, err.Error())
		return
	}
	s.AddReferences(docs...)
	klog.V(2).Infof("session %s: +%d references", s.ID, len(docs))
	back(w, r, "")
}

func (h *Handle) RemoveReference(w http.ResponseWriter, r *http.Request) {
	if !postOnly(w, r) {
		return
	}
	s := h.session(w, r)
	i, err := strconv.Atoi(strings.TrimSpace(r.FormValue("index")))
	if err != nil {
		back(w, r, "bad index")
		return
	}
	if err := s.RemoveReference(i); err != nil {
		back(w, r, err.Error())
		return
	}
	back(w, r, "")
}

func (h *Handle) Options(w http.ResponseWriter, r *http.Request) {
	if !postOnly(w, r) {
		return
	}
	s := h.session(w, r)
	if err := applyForm(s, r); err != nil {
		back(w, r, err.Error())
		return
	}
	back(w, r, "")
}

// applyForm переносит шифр, инструкции и чекбоксы формы в сессию.
// Без поля cipher в запросе (запуск не из формы) сессия не меняется.
func applyForm(s *session.Session, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	if _, ok := r.PostForm["cipher"]; !ok {
		return nil
	}
	opts, err := optionsFromForm(r.PostForm["checks"])
	if err != nil {
		return err
	}
	s.SetOptions(opts)
	s.SetProjectCode(r.PostForm.Get("cipher"))
	s.SetInstructions(r.PostForm.Get("instructions"))
	return nil
}

// Analyze запускает анализ в фоне с текущими значениями формы; страница обновляется, пока он идёт.
func (h *Handle) Analyze(w http.ResponseWriter, r *http.Request) {
	if !postOnly(w, r) {
		return
	}
	s := h.session(w, r)
	if s.Snapshot().Outcome.IsPending() {
		back(w, r, session.ErrBusy.Error())
		return
	}
	if err := applyForm(s, r); err != nil {
		back(w, r, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	err := s.Start(ctx, h.analyzer, func(o session.Outcome) {
		cancel()
		klog.Infof("session %s: analysis #%d finished: %s", s.ID, o.RequestID, o.Phase)
	})
	switch {
	case err == nil:
		back(w, r, "")
	case errors.Is(err, audit.ErrNoPrimaryDocument):
		// сообщение уже в панели результатов
		cancel()
		back(w, r, "")
	default:
		cancel()
		back(w, r, err.Error())
	}
}

func (h *Handle) Reset(w http.ResponseWriter, r *http.Request) {
	if !postOnly(w, r) {
		return
	}
	h.session(w, r).Reset()
	back(w, r, "")
}

// optionsFromForm: отмеченные чекбоксы включены, остальные выключены.
func optionsFromForm(values []string) (types.ValidationOptions, error) {
	names := make([]types.CheckName, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := types.ParseCheckName(part)
			if err != nil {
				return types.ValidationOptions{}, err
			}
			names = append(names, n)
		}
	}
	return types.OptionsFromSet(names), nil
}
