package web

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"moncal/internal/calendar"
	"moncal/internal/capture"
	"moncal/internal/ics"
	"moncal/internal/importer"
	appLog "moncal/internal/log"
	"moncal/internal/render"
	"moncal/internal/sheet"
)

const (
	msgReadFailed     = "파일을 읽는 중 오류가 발생했습니다. 올바른 Excel 파일인지 확인해주세요."
	msgUnsupported    = "지원하지 않는 파일 형식입니다. (.xlsx, .xls, .ics)"
	msgNoFile         = "업로드할 파일을 선택해주세요."
	msgTooLarge       = "파일이 너무 큽니다."
	msgFetchFailed    = "캘린더를 가져오는 중 오류가 발생했습니다."
	msgExportFailed   = "이미지 생성 중 오류가 발생했습니다. 다시 시도해주세요."
	templateFilename  = "calendar_template.xlsx"
	multipartMemLimit = 8 << 20
)

// importResponse reports one import batch.
type importResponse struct {
	Added   int      `json:"added"`
	Errors  []string `json:"errors"`
	Message string   `json:"message"`
}

// handleImport accepts a multipart "file" (.xlsx, .xls or .ics), normalizes
// its rows and appends the valid ones in one step.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		appLog.Error("read upload failed", err, "filename", header.Filename)
		writeError(w, http.StatusBadRequest, msgReadFailed)
		return
	}

	var rows []importer.Row
	if strings.EqualFold(filepath.Ext(header.Filename), ".ics") {
		st := s.store.Snapshot()
		rows, err = ics.ImportRows(data, st.Year, st.Month, s.loc)
	} else {
		rows, err = sheet.ReadRows(bytes.NewReader(data), header.Filename)
	}
	if err != nil {
		if errors.Is(err, sheet.ErrUnsupportedFormat) {
			writeError(w, http.StatusBadRequest, msgUnsupported)
			return
		}
		appLog.Warn("import parse failed", "filename", header.Filename, "err", err.Error())
		writeError(w, http.StatusBadRequest, msgReadFailed)
		return
	}

	s.commitRows(w, rows, header.Filename)
}

// handleImportURL imports a remote ICS feed: {"url": "https://..."}.
func (s *Server) handleImportURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, msgFetchFailed)
		return
	}

	body, err := s.fetcher.Fetch(r.Context(), strings.TrimSpace(req.URL))
	if err != nil {
		appLog.Warn("ics fetch failed", "err", err.Error())
		writeError(w, http.StatusBadGateway, msgFetchFailed)
		return
	}

	st := s.store.Snapshot()
	rows, err := ics.ImportRows(body, st.Year, st.Month, s.loc)
	if err != nil {
		appLog.Warn("ics parse failed", "err", err.Error())
		writeError(w, http.StatusBadRequest, msgFetchFailed)
		return
	}
	s.commitRows(w, rows, "url")
}

func (s *Server) commitRows(w http.ResponseWriter, rows []importer.Row, source string) {
	n := importer.Normalizer{NewID: s.store.NewID}
	res := n.Normalize(rows, s.store.Snapshot().EventTypes)
	if len(res.Events) > 0 {
		s.store.AppendEvents(res.Events)
	}

	appLog.Info("import completed",
		"source", source,
		"rows", len(rows),
		"added", len(res.Events),
		"rejected", len(res.Errors),
	)

	errs := res.Errors
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, http.StatusOK, importResponse{
		Added:   len(res.Events),
		Errors:  errs,
		Message: importer.Summary(res),
	})
}

func (s *Server) handleTemplate(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := sheet.WriteTemplate(&buf); err != nil {
		appLog.Error("write template failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", templateFilename)
	_, _ = w.Write(buf.Bytes())
}

// renderHTML renders the displayed month (or the ?year=&month= override).
func (s *Server) renderHTML(r *http.Request) (render.MonthView, []byte, error) {
	st := s.store.Snapshot()
	q := r.URL.Query()
	year := parseIntDefault(q.Get("year"), st.Year)
	month := parseIntDefault(q.Get("month"), st.Month)
	if !validMonth(year, month) {
		year, month = st.Year, st.Month
	}

	view := render.BuildMonthFor(st, year, month, s.now().In(s.loc))
	var buf bytes.Buffer
	if err := render.HTML(&buf, view); err != nil {
		return view, nil, err
	}
	return view, buf.Bytes(), nil
}

func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	_, html, err := s.renderHTML(r)
	if err != nil {
		appLog.Error("render calendar failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(html)
}

// handleExportPNG rasterizes the month view. Failures leave the state
// untouched and report a generic message.
func (s *Server) handleExportPNG(w http.ResponseWriter, r *http.Request) {
	view, html, err := s.renderHTML(r)
	if err != nil {
		appLog.Error("render calendar failed", err)
		writeError(w, http.StatusInternalServerError, msgExportFailed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Capture.Timeout())
	defer cancel()

	png, err := s.raster.Rasterize(ctx, string(html))
	if err != nil {
		appLog.Error("export png failed", err, "year", view.Year, "month", view.Month)
		writeError(w, http.StatusInternalServerError, msgExportFailed)
		return
	}

	attachment(w, "image/png", capture.Filename(view.Year, view.Month))
	_, _ = w.Write(png)
}

func (s *Server) handleExportICS(w http.ResponseWriter, _ *http.Request) {
	st := s.store.Snapshot()

	var buf bytes.Buffer
	if err := ics.Export(&buf, calendar.MonthTitle(st.Year, st.Month), st.Events, st.EventTypes); err != nil {
		appLog.Error("export ics failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	attachment(w, "text/calendar; charset=utf-8", ics.Filename(st.Year, st.Month))
	_, _ = w.Write(buf.Bytes())
}
