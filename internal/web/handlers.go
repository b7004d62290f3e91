package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/hakim/vulntriage/internal/apiclient"
	"github.com/hakim/vulntriage/internal/app"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	page, err := s.app.Dashboard(r.Context(), sessionID(r))
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, "dashboard", "Dashboard", page)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			n = 1
		}
		if _, err := s.app.GoToPage(sid, n); err != nil {
			s.serverError(w, r, err)
			return
		}
	}

	page, err := s.app.Reports(r.Context(), sid)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, "reports", "Reports", page)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r)(s.app.Search(sessionID(r), r.FormValue("search")))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r)(s.app.ResetSearch(sessionID(r)))
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)
	id, ok := reportID(r)
	if !ok {
		s.dispatch(w, r)(s.app.MissingReport(sid))
		return
	}

	page, err := s.app.Detail(r.Context(), sid, id)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	title := "Report"
	if page.Name != "" {
		title = page.Name
	}
	s.render(w, r, "detail", title, page)
}

func (s *Server) handleDetailAction(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)
	id, ok := reportID(r)
	if !ok {
		s.dispatch(w, r)(s.app.MissingReport(sid))
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	done := s.dispatch(w, r)

	switch r.PathValue("action") {
	case "toggle":
		done(s.app.Toggle(sid, id, r.PostFormValue("node")))
	case "expand":
		done(s.app.ExpandAll(sid, id))
	case "collapse":
		done(s.app.CollapseAll(sid, id))
	case "select":
		done(s.app.SelectInstance(sid, id, formInt(r, "instance")))
	case "check":
		done(s.app.Check(sid, id, formInts(r, "instance_ids")))
	case "check-all":
		done(s.app.CheckAll(sid, id, r.PostFormValue("checked") == "on" || r.PostFormValue("checked") == "true"))
	case "status-modal":
		done(s.app.OpenStatusModal(sid, id, formInt(r, "instance")))
	case "status":
		done(s.app.UpdateStatus(ctx, sid, id, formInt(r, "instance"),
			r.PostFormValue("status"), r.PostFormValue("fixed_by"), r.PostFormValue("notes")))
	case "batch":
		done(s.app.BatchUpdate(ctx, sid, id, r.PostFormValue("status")))
	case "notes":
		done(s.app.SaveNotes(ctx, sid, id, r.PostFormValue("notes")))
	case "delete":
		confirmed := r.PostFormValue("confirm") == "yes"
		if r.PostFormValue("from") == "list" {
			done(s.app.DeleteFromList(ctx, sid, id, confirmed))
			return
		}
		done(s.app.DeleteReport(ctx, sid, id, confirmed))
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(r)
	if !ok || s.exporter == nil {
		http.NotFound(w, r)
		return
	}

	includeStatus := r.URL.Query().Get("include_status") != "false"
	dl, err := s.exporter.ExportReport(r.Context(), id, includeStatus)
	if err != nil {
		var reqErr *apiclient.RequestError
		code := http.StatusBadGateway
		if errors.As(err, &reqErr) && reqErr.NotFound() {
			code = http.StatusNotFound
		}
		s.log.WithError(err).WithField("report_id", id).Warn("export failed")
		http.Error(w, apiclient.UserMessage(err), code)
		return
	}
	defer dl.Body.Close()

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.Filename))
	if _, err := io.Copy(w, dl.Body); err != nil {
		s.log.WithError(err).WithField("report_id", id).Warn("export stream interrupted")
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid upload", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := append(r.MultipartForm.File["files"], r.MultipartForm.File["file"]...)
	files := make([]apiclient.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		defer f.Close()
		files = append(files, apiclient.File{Name: fh.Filename, Content: f})
	}

	s.dispatch(w, r)(s.app.Import(r.Context(), sessionID(r), files))
}

func (s *Server) handleImportOpen(w http.ResponseWriter, r *http.Request) {
	if err := s.app.OpenImport(sessionID(r)); err != nil {
		s.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, nextPath(r), http.StatusSeeOther)
}

func (s *Server) handleCloseModals(w http.ResponseWriter, r *http.Request) {
	if err := s.app.CloseModals(sessionID(r)); err != nil {
		s.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, nextPath(r), http.StatusSeeOther)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DismissNotice(sessionID(r), r.PathValue("id")); err != nil {
		s.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, nextPath(r), http.StatusSeeOther)
}

// dispatch finishes an intent: a redirect on success, 500 when the session
// store failed.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) func(app.Outcome, error) {
	return func(out app.Outcome, err error) {
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		target := out.Redirect
		if target == "" {
			target = app.DashboardPath
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

func reportID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func formInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.PostFormValue(key))
	return n
}

func formInts(r *http.Request, key string) []int {
	var out []int
	for _, raw := range r.PostForm[key] {
		if n, err := strconv.Atoi(raw); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// nextPath returns the local page to go back to after a global action.
func nextPath(r *http.Request) string {
	next := r.FormValue("next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return app.DashboardPath
	}
	return next
}
