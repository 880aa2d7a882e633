package handle

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"k8s.io/klog/v2"

	"engdoc-auditor/api/internal/audit"
	"engdoc-auditor/api/internal/audit/types"
	"engdoc-auditor/api/internal/report"
)

// maxAPIFiles: проект и до семи ГОСТов в одном запросе.
const maxAPIFiles = 8

// Audit: синхронный JSON API: multipart project, gost[], instructions, cipher, checks.
// ?format=yaml отдаёт тот же результат в YAML.
func (h *Handle) Audit(w http.ResponseWriter, r *http.Request) {
	if !postOnly(w, r) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload*maxAPIFiles)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad multipart: " + err.Error()})
		return
	}

	in, err := h.auditInput(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.analyzer.Analyze(ctx, in)
	if err != nil {
		klog.Errorf("v1/audit: %v", err)
		writeJSON(w, statusFor(err), map[string]string{"error": audit.UserMessage(err)})
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "yaml") {
		b, err := report.Marshal(res, "yaml")
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
		return
	}
	b, err := audit.MarshalResult(res)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *Handle) auditInput(r *http.Request) (types.AnalysisInput, error) {
	in := types.AnalysisInput{
		Instructions: r.FormValue("instructions"),
		ProjectCode:  r.FormValue("cipher"),
		Options:      types.DefaultOptions(),
	}
	if _, ok := r.MultipartForm.Value["checks"]; ok {
		opts, err := optionsFromForm(r.MultipartForm.Value["checks"])
		if err != nil {
			return in, err
		}
		in.Options = opts
	}

	projects := r.MultipartForm.File["project"]
	if len(projects) == 0 {
		return in, audit.ErrNoPrimaryDocument
	}
	primary, err := h.checkPDF(projects[0])
	if err != nil {
		return in, err
	}
	in.Primary = &primary

	for _, field := range []string{"gost", "gost[]"} {
		for _, fh := range r.MultipartForm.File[field] {
			doc, err := h.checkPDF(fh)
			if err != nil {
				return in, err
			}
			in.References = append(in.References, doc)
		}
	}
	return in, nil
}

func statusFor(err error) int {
	var se *audit.ServiceError
	switch {
	case errors.Is(err, audit.ErrNoPrimaryDocument):
		return http.StatusBadRequest
	case errors.Is(err, audit.ErrMissingCredential):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &se), errors.Is(err, audit.ErrNoResponse), errors.Is(err, audit.ErrMalformedOutput):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
