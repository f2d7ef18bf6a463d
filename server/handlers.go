package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ZaguanLabs/gotlm"
	"github.com/ZaguanLabs/gotlm/content"
	"github.com/ZaguanLabs/gotlm/extract"
	"github.com/ZaguanLabs/gotlm/pofile"
	"github.com/ZaguanLabs/gotlm/segment"
	"github.com/ZaguanLabs/gotlm/store"
	"github.com/ZaguanLabs/gotlm/translation"
)

// poContentType is sent with exported PO files.
const poContentType = "text/x-gettext-translation; charset=utf-8"

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":       gotlm.Name,
		"version":    gotlm.FullVersion(),
		"commit":     gotlm.Commit(),
		"build_date": gotlm.Built(),
	})
}

// extract returns the segments of the posted object without storing them.
func (s *Server) extract(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if !decode(w, r, &raw) {
		return
	}
	obj, err := s.svc.Schema().DecodeObject(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_object", err.Error())
		return
	}
	segs, err := extract.Segments(obj)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	records := make([]segment.Record, len(segs))
	for i, v := range segs {
		records[i] = segment.ToRecord(v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"segments": records})
}

// SubmitRequest is the body of POST /api/v1/sources.
type SubmitRequest struct {
	Object  json.RawMessage   `json:"object"`
	Locales []string          `json:"locales"`
	Related []json.RawMessage `json:"related,omitempty"`
	// Dependencies submits the translatable objects Object refers to first.
	Dependencies bool `json:"dependencies,omitempty"`
}

type translationJSON struct {
	ID           string     `json:"id"`
	SourceID     int64      `json:"source_id"`
	TargetLocale string     `json:"target_locale"`
	CreatedAt    time.Time  `json:"created_at"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
}

func toTranslationJSON(t store.Translation) translationJSON {
	out := translationJSON{
		ID:           t.UUID,
		SourceID:     t.SourceID,
		TargetLocale: t.TargetLocale,
		CreatedAt:    t.CreatedAt,
	}
	if t.PublishedAt.Valid {
		at := t.PublishedAt.Time
		out.PublishedAt = &at
	}
	return out
}

type submissionJSON struct {
	SourceID       int64             `json:"source_id"`
	ContentType    string            `json:"content_type"`
	TranslationKey string            `json:"translation_key"`
	Locale         string            `json:"locale"`
	Segments       int               `json:"segments"`
	Translations   []translationJSON `json:"translations"`
}

func toSubmissionJSON(sub *translation.Submission) submissionJSON {
	out := submissionJSON{
		SourceID:       sub.Source.ID,
		ContentType:    sub.Source.ContentType,
		TranslationKey: sub.Source.TranslationKey,
		Locale:         sub.Source.Locale,
		Segments:       sub.Segments,
		Translations:   make([]translationJSON, 0, len(sub.Translations)),
	}
	for _, t := range sub.Translations {
		out.Translations = append(out.Translations, toTranslationJSON(t))
	}
	return out
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Object) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "object is required")
		return
	}
	if len(req.Locales) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "at least one target locale is required")
		return
	}

	schema := s.svc.Schema()
	obj, err := schema.DecodeObject(req.Object)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_object", err.Error())
		return
	}

	var subs []*translation.Submission
	if req.Dependencies || len(req.Related) > 0 {
		var resolver content.Resolver = s.svc.Resolver()
		if len(req.Related) > 0 {
			reg := content.NewRegistry()
			for i, data := range req.Related {
				rel, err := schema.DecodeObject(data)
				if err != nil {
					writeError(w, http.StatusBadRequest, "bad_object", fmt.Sprintf("related[%d]: %v", i, err))
					return
				}
				reg.Add(rel)
			}
			resolver = reg
		}
		subs, err = s.svc.SubmitWithDependencies(r.Context(), obj, resolver, req.Locales...)
	} else {
		var sub *translation.Submission
		sub, err = s.svc.Submit(r.Context(), obj, req.Locales...)
		subs = []*translation.Submission{sub}
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := make([]submissionJSON, len(subs))
	for i, sub := range subs {
		out[i] = toSubmissionJSON(sub)
	}
	writeJSON(w, http.StatusCreated, map[string]any{"submissions": out})
}

func (s *Server) translation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := s.svc.Translation(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.svc.Progress(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"translation": toTranslationJSON(t),
		"progress":    p,
		"complete":    p.Complete(),
	})
}

func (s *Server) strings(w http.ResponseWriter, r *http.Request) {
	strs, err := s.svc.Strings(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if strs == nil {
		strs = []translation.StringStatus{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"strings": strs})
}

// EditRequest is the body of PUT /api/v1/translations/{id}/strings.
type EditRequest struct {
	Path         string `json:"path"`
	Source       string `json:"source,omitempty"`
	Data         string `json:"data"`
	TranslatedBy string `json:"translated_by,omitempty"`
}

func (s *Server) saveString(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "path is required")
		return
	}

	saved, err := s.svc.SaveString(r.Context(), chi.URLParam(r, "id"), translation.Edit{
		Path:         req.Path,
		Source:       req.Source,
		Data:         req.Data,
		Type:         store.TypeManual,
		ToolName:     "api",
		TranslatedBy: req.TranslatedBy,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path":        req.Path,
		"translation": saved.Data,
		"type":        saved.TranslationType,
		"updated_at":  saved.UpdatedAt,
	})
}

func (s *Server) machineTranslate(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.MachineTranslate(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("user"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) exportPO(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, err := s.svc.ExportPO(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", poContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".po"))
	if err := pofile.Encode(w, f); err != nil {
		s.logger.Error("writing PO file", "translation_id", id, "error", err)
	}
}

// importPO reads a PO file from the request body. A file that leaves
// strings untranslated is still imported; the reply reports what is missing.
func (s *Server) importPO(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, err := pofile.Decode(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.svc.ImportPO(r.Context(), id, f, r.URL.Query().Get("user"))
	if res == nil {
		s.fail(w, r, err)
		return
	}
	out := map[string]any{"result": res}
	if err != nil {
		out["warning"] = err.Error()
	}
	writeJSON(w, http.StatusOK, out)
}

type fieldErrorJSON struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (s *Server) publish(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Publish(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := content.EncodeObject(res.Instance)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	fieldErrors := make([]fieldErrorJSON, 0, len(res.FieldErrors))
	for _, fe := range res.FieldErrors {
		fieldErrors = append(fieldErrors, fieldErrorJSON{Field: fe.Field, Message: fe.Message})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"object":       json.RawMessage(data),
		"field_errors": fieldErrors,
	})
}
