package web

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/csvxlsx/internal/core"
	"github.com/JonMunkholm/csvxlsx/internal/history"
	"github.com/JonMunkholm/csvxlsx/internal/web/middleware"
)

var errHistoryDisabled = errors.New("history disabled")

// BatchResponse is the JSON form of a converted batch.
type BatchResponse struct {
	BatchID      string             `json:"batch_id"`
	StartedAt    time.Time          `json:"started_at"`
	DurationMS   int64              `json:"duration_ms"`
	Converted    int                `json:"converted"`
	Skipped      int                `json:"skipped"`
	Failed       int                `json:"failed"`
	Files        []FileResponse     `json:"files"`
	Archive      *OutputResponse    `json:"archive,omitempty"`
	ArchiveError *FileErrorResponse `json:"archive_error,omitempty"`
}

// FileResponse is one uploaded file's outcome.
type FileResponse struct {
	Name      string             `json:"name"`
	Size      int64              `json:"size"`
	Status    core.Status        `json:"status"`
	Delimiter string             `json:"delimiter,omitempty"`
	Summary   *core.SummaryStats `json:"summary,omitempty"`
	Preview   *PreviewResponse   `json:"preview,omitempty"`
	Output    *OutputResponse    `json:"output,omitempty"`
	Error     *FileErrorResponse `json:"error,omitempty"`
}

// PreviewResponse holds the header and first rows of a file.
type PreviewResponse struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// OutputResponse is a downloadable file with base64 content.
type OutputResponse struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// FileErrorResponse explains why a file was skipped or failed.
type FileErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// HistoryResponse lists recently converted files.
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
}

// HealthResponse reports the conversion slots and history state.
type HealthResponse struct {
	Status  string             `json:"status"`
	Limiter core.LimiterStatus `json:"limiter"`
	History bool               `json:"history"`
}

// handleAPIConvert is the JSON twin of handleConvert. The password comes
// from the X-Access-Password header, falling back to the form field.
func (s *Server) handleAPIConvert(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUploadForm(w, r); err != nil {
		respondError(w, r, err, requestStatus(err))
		return
	}
	defer cleanupForm(r)

	credential := r.Header.Get(middleware.AccessHeader)
	if credential == "" {
		credential = r.FormValue(formPassword)
	}
	decision := s.gate.Evaluate(credential)
	s.metrics.ObserveAccess(decision)
	if !decision.Allowed {
		middleware.DenyAccess(w, r, decision)
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

	render.JSON(w, r, toBatchResponse(batch))
}

// handleHistory lists recent conversions. Access is checked by middleware.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, r, errHistoryDisabled, http.StatusNotFound)
		return
	}

	entries, err := s.history.Recent(r.Context(), parseIntParam(r, "limit", history.DefaultLimit))
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	render.JSON(w, r, HistoryResponse{Entries: entries})
}

// handleHealth reports liveness and the state of the conversion limiter.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:  "ok",
		Limiter: s.limiter.Status(),
		History: s.history != nil,
	})
}

func toBatchResponse(b *core.BatchResult) BatchResponse {
	resp := BatchResponse{
		BatchID:    b.ID.String(),
		StartedAt:  b.StartedAt,
		DurationMS: b.Duration.Milliseconds(),
		Converted:  len(b.Converted()),
		Skipped:    len(b.Skipped()),
		Failed:     len(b.Failed()),
		Files:      make([]FileResponse, 0, len(b.Files)),
		Archive:    toOutput(b.Archive),
	}
	if b.ArchiveErr != nil {
		resp.ArchiveError = toFileError(b.ArchiveErr)
	}

	for _, f := range b.Files {
		fr := FileResponse{
			Name:      f.Name,
			Size:      f.Size,
			Status:    f.Status,
			Delimiter: f.DelimiterName(),
			Output:    toOutput(f.Result),
		}
		if f.Preview != nil {
			summary := f.Summary
			fr.Summary = &summary
			fr.Preview = &PreviewResponse{Columns: f.Preview.Columns, Rows: f.Preview.Rows}
		}
		if f.Err != nil {
			fr.Error = toFileError(f.Err)
		}
		resp.Files = append(resp.Files, fr)
	}
	return resp
}

func toOutput(res *core.ConversionResult) *OutputResponse {
	if res == nil {
		return nil
	}
	return &OutputResponse{
		FileName: res.FileName,
		MimeType: res.MimeType,
		Data:     base64.StdEncoding.EncodeToString(res.Data),
	}
}

func toFileError(fe *core.FileError) *FileErrorResponse {
	msg := core.MapError(fe)
	return &FileErrorResponse{
		Kind:    fe.Kind.String(),
		Message: msg.Message,
		Detail:  fe.Detail(),
		Action:  msg.Action,
		Code:    msg.Code,
	}
}
