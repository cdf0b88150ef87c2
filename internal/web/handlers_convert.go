package web

import (
	"net/http"

	"github.com/JonMunkholm/csvxlsx/internal/logging"
	"github.com/JonMunkholm/csvxlsx/internal/web/templates"
)

func (s *Server) indexData(notice, errText string) templates.IndexData {
	return templates.IndexData{
		Notice:      notice,
		Error:       errText,
		MaxFileSize: s.converter.Options().MaxFileSize,
		MaxFiles:    s.cfg.Upload.MaxFiles,
	}
}

// handleIndex renders the password and upload form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, templates.IndexPage(s.indexData("", "")), http.StatusOK)
}

// handleConvert checks the password, then converts every uploaded file and
// renders the result page. No file is read unless the password matches.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUploadForm(w, r); err != nil {
		respondError(w, r, err, requestStatus(err))
		return
	}
	defer cleanupForm(r)

	decision := s.gate.Evaluate(r.FormValue(formPassword))
	s.metrics.ObserveAccess(decision)
	if !decision.Allowed {
		status := http.StatusOK
		if decision.Attempted {
			logging.FromContext(r.Context()).Warn("convert: incorrect password")
			status = http.StatusForbidden
		}
		renderPage(w, r, templates.IndexPage(s.indexData(decision.Notice(), "")), status)
		return
	}

	headers, err := s.uploadHeaders(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	files, err := s.readUploads(headers)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	batch, err := s.convert(ctx, files)
	if err != nil {
		respondError(w, r, err, convertStatus(err))
		return
	}

	renderPage(w, r, templates.ResultPage(batch), http.StatusOK)
}
