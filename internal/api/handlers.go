package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/FocuswithJustin/Granthalaya/core/corpus"
	"github.com/FocuswithJustin/Granthalaya/core/errors"
	"github.com/FocuswithJustin/Granthalaya/core/flatten"
	"github.com/FocuswithJustin/Granthalaya/core/reference"
	"github.com/FocuswithJustin/Granthalaya/core/search"
	"github.com/FocuswithJustin/Granthalaya/internal/logging"
	"github.com/FocuswithJustin/Granthalaya/internal/prefs"
	"github.com/FocuswithJustin/Granthalaya/internal/server"
	"github.com/FocuswithJustin/Granthalaya/internal/validation"
)

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *APIMeta  `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total      int    `json:"total,omitempty"`
	Generation string `json:"generation,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// Search modes accepted by /api/search.
const (
	ModeSubstring = "substring"
	ModeVerses    = "verses"
	ModeFullText  = "fulltext"
)

// ListingFailureMessage is the user-visible message when the corpus cannot
// be read.
const ListingFailureMessage = "Error loading scriptures"

const (
	clientIDHeader = "X-Client-ID"
	clientCookie   = "granthalaya_client"
	maxPrefsBody   = 4 << 10
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"name":    "Granthalaya",
		"version": Version,
		"endpoints": []string{
			"GET /health",
			"GET /api/scriptures",
			"GET /api/scriptures/{slug}/{chapter}/{verse}",
			"GET /api/search?q=&mode=substring|verses|fulltext",
			"GET /api/categories",
			"GET /api/categories/{category}",
			"GET /api/categories/{category}/{scripture}",
			"GET /api/verse?ref=",
			"GET /api/preferences",
			"PUT /api/preferences",
			"POST /api/admin/reload",
			"WS /ws",
			"GET /metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := HealthInfo{
		Status:   "ok",
		Version:  Version,
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Provider: s.catalog.Provider().Name(),
		Clients:  s.hub.Clients(),
	}

	snap := s.catalog.Current()
	if snap == nil {
		var err error
		if snap, err = s.catalog.Snapshot(r.Context()); err != nil {
			logging.ErrorContext(r.Context(), "health_load_failed", "error", err.Error())
			info.Status = "unavailable"
			respond(w, http.StatusServiceUnavailable, info)
			return
		}
	}

	info.Documents = len(snap.Documents)
	info.Verses = len(snap.Verses)
	info.Generation = snap.Generation
	info.Fingerprint = snap.Fingerprint
	respond(w, http.StatusOK, info)
}

// handleListing returns every flattened verse as a bare JSON array. It is
// the one endpoint that does not use the APIResponse envelope.
func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	snap, err := s.catalog.Snapshot(r.Context())
	if err != nil {
		logging.ErrorContext(r.Context(), "listing_failed", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, ListingError{
			Message: ListingFailureMessage,
			Error:   publicReason(err),
		})
		return
	}

	if snap.Fingerprint != "" {
		etag := `"` + snap.Fingerprint + `"`
		w.Header().Set("ETag", etag)
		if s.cfg.ListingMaxAge > 0 {
			w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(s.cfg.ListingMaxAge.Seconds())))
		}
		if etagMatches(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	} else if s.cfg.ListingMaxAge > 0 {
		w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(s.cfg.ListingMaxAge.Seconds())))
	}

	verses := snap.Verses
	if verses == nil {
		verses = []flatten.SearchableVerse{}
	}
	writeJSON(w, http.StatusOK, verses)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if err := validation.ValidateQuery(q); err != nil {
		s.respondErr(w, r, err)
		return
	}
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = ModeSubstring
	}
	limit, err := validation.ParseLimit("limit", r.URL.Query().Get("limit"), search.DefaultHitLimit, s.maxResults())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	snap, err := s.catalog.Snapshot(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	var results any
	var total int
	switch mode {
	case ModeSubstring:
		res := search.Search(snap.Documents, q)
		if res == nil {
			res = []search.Result{}
		}
		results, total = res, len(res)
	case ModeVerses:
		res := search.FilterVerses(snap.Verses, q)
		if res == nil {
			res = []flatten.SearchableVerse{}
		}
		results, total = res, len(res)
	case ModeFullText:
		if strings.TrimSpace(q) == "" {
			results, total = []search.Hit{}, 0
			break
		}
		idx, err := s.index(snap)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		hits, err := idx.Query(q, limit)
		releaseIndex(idx)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		if hits == nil {
			hits = []search.Hit{}
		}
		results, total = hits, len(hits)
	default:
		s.respondErr(w, r, errors.NewValidation("mode", "must be one of substring, verses, fulltext"))
		return
	}

	s.metrics.ObserveSearch(mode, total)
	respondMeta(w, http.StatusOK, SearchResponse{Query: q, Mode: mode, Total: total, Results: results},
		&APIMeta{Total: total, Generation: snap.Generation})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	snap, err := s.catalog.Snapshot(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	cats := corpus.Categories(snap)
	if cats == nil {
		cats = []corpus.Category{}
	}
	respondMeta(w, http.StatusOK, cats, &APIMeta{Total: len(cats), Generation: snap.Generation})
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	if err := validation.ValidateSegment("category", category); err != nil {
		s.respondErr(w, r, err)
		return
	}
	snap, err := s.catalog.Snapshot(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	docs, err := corpus.ByCategory(snap, category)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	out := make([]DocumentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, summarize(d))
	}
	respondMeta(w, http.StatusOK, out, &APIMeta{Total: len(out), Generation: snap.Generation})
}

func (s *Server) handleScripture(w http.ResponseWriter, r *http.Request) {
	category, name := r.PathValue("category"), r.PathValue("scripture")
	for _, seg := range [][2]string{{"category", category}, {"scripture", name}} {
		if err := validation.ValidateSegment(seg[0], seg[1]); err != nil {
			s.respondErr(w, r, err)
			return
		}
	}
	snap, err := s.catalog.Snapshot(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	doc, err := corpus.FindScripture(snap, category, name)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, documentView(doc))
}

func (s *Server) handleVerse(w http.ResponseWriter, r *http.Request) {
	slug, chapter, verse := r.PathValue("slug"), r.PathValue("chapter"), r.PathValue("verse")
	for _, seg := range [][2]string{{"slug", slug}, {"chapter", chapter}, {"verse", verse}} {
		if err := validation.ValidateSegment(seg[0], seg[1]); err != nil {
			s.respondErr(w, r, err)
			return
		}
	}

	selected, err := s.selectedCommentators(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	snap, err := s.catalog.Snapshot(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	doc, sec, v, err := corpus.FindVerse(snap, slug, chapter, verse)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, verseDetail(doc, sec, v, selected))
}

// selectedCommentators reads the commentators query parameter, falling
// back to the client's saved preferences when the parameter is absent.
func (s *Server) selectedCommentators(r *http.Request) ([]string, error) {
	if raw, ok := r.URL.Query()["commentators"]; ok {
		return validation.ParseCommentators(strings.Join(raw, ","))
	}
	id := clientID(r)
	if id == "" {
		return nil, nil
	}
	state, err := s.prefs.Load(id)
	if err != nil {
		logging.WarnContext(r.Context(), "preferences_load_failed", "error", err.Error())
		return nil, nil
	}
	return state.Commentators, nil
}

func (s *Server) handleReference(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ref")
	if err := validation.ValidateQuery(raw); err != nil {
		s.respondErr(w, r, err)
		return
	}
	ref, err := reference.Parse(raw)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	snap, err := s.catalog.Snapshot(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	m, err := reference.Resolve(snap.Documents, ref)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	view := PassageView{
		Reference:    ref.String(),
		Scripture:    summarize(m.Document),
		Chapter:      m.Section.Number,
		SectionTitle: m.Section.Title,
		Verses:       make([]VerseView, 0, len(m.Verses)),
	}
	for _, v := range m.Verses {
		view.Verses = append(view.Verses, verseView(v, nil))
	}
	respondMeta(w, http.StatusOK, view, &APIMeta{Total: len(view.Verses), Generation: snap.Generation})
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	id := ensureClientID(w, r)
	state, err := s.prefs.Load(id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, PreferencesView{ClientID: id, State: state})
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	if !server.ValidateContentType(r.Header.Get("Content-Type"), []string{"application/json"}) {
		respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Content-Type must be application/json")
		return
	}

	var state prefs.ViewState
	dec := json.NewDecoder(io.LimitReader(r.Body, maxPrefsBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&state); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be a preferences object")
		return
	}
	selected, err := validation.ParseCommentators(strings.Join(state.Commentators, ","))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	state.Commentators = selected
	state.UpdatedAt = time.Time{}
	if state.SelectedTab == "" {
		state.SelectedTab = prefs.DefaultViewState().SelectedTab
	}

	id := ensureClientID(w, r)
	if err := s.prefs.Save(id, state); err != nil {
		s.respondErr(w, r, err)
		return
	}
	saved, err := s.prefs.Load(id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, PreferencesView{ClientID: id, State: saved})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.catalog.Invalidate()
	snap, err := s.catalog.Reload(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	res := ReloadResult{
		Generation:  snap.Generation,
		Fingerprint: snap.Fingerprint,
		Documents:   len(snap.Documents),
		Verses:      len(snap.Verses),
		Errors:      snap.Errors(),
		Warnings:    len(snap.Diagnostics) - snap.Errors(),
		DurationMS:  time.Since(start).Milliseconds(),
	}
	logging.InfoContext(r.Context(), "admin_reload", "generation", res.Generation, "documents", res.Documents)
	respond(w, http.StatusOK, res)
}

// respondErr maps typed errors to HTTP statuses. Anything unexpected is
// logged and reported generically.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.IsInvalidInput(err):
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.IsNotFound(err):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.IsUnavailable(err):
		logging.ErrorContext(r.Context(), "corpus_unavailable", "path", r.URL.Path, "error", err.Error())
		respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Could not load scripture data")
	default:
		logging.ErrorContext(r.Context(), "request_failed", "path", r.URL.Path, "error", err.Error())
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not load scripture data")
	}
}

// publicReason summarizes err without paths or parser detail.
func publicReason(err error) string {
	if errors.IsUnavailable(err) {
		return "content store unavailable"
	}
	return "internal error"
}

func clientID(r *http.Request) string {
	if id := r.Header.Get(clientIDHeader); prefs.ValidClientID(id) {
		return id
	}
	if c, err := r.Cookie(clientCookie); err == nil && prefs.ValidClientID(c.Value) {
		return c.Value
	}
	return ""
}

// ensureClientID returns the request's client id, issuing a new one when
// absent. The id is echoed in a header and a cookie.
func ensureClientID(w http.ResponseWriter, r *http.Request) string {
	id := clientID(r)
	if id == "" {
		id = prefs.NewClientID()
	}
	w.Header().Set(clientIDHeader, id)
	http.SetCookie(w, &http.Cookie{
		Name:     clientCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	return id
}

// etagMatches implements the weak comparison of If-None-Match.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "*" || strings.TrimPrefix(part, "W/") == etag {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("response_encode_failed", "error", err.Error())
	}
}

func respond(w http.ResponseWriter, status int, data any) {
	respondMeta(w, status, data, nil)
}

func respondMeta(w http.ResponseWriter, status int, data any, meta *APIMeta) {
	if meta == nil {
		meta = &APIMeta{}
	}
	meta.Timestamp = time.Now().UTC().Format(time.RFC3339)
	writeJSON(w, status, APIResponse{Success: true, Data: data, Meta: meta})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
		Meta:    &APIMeta{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}
