package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/crimengo/crimengo/internal/auth"
	"github.com/crimengo/crimengo/internal/hotspot"
	"github.com/crimengo/crimengo/internal/model"
	"github.com/crimengo/crimengo/internal/zonefile"
)

// MaxGenerateCount caps a single synthetic generation request.
const MaxGenerateCount = 10000

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.IncidentFilter{
		PrimaryType: q.Get("type"),
		ArrestOnly:  q.Get("arrest") == "true",
		Source:      model.Source(q.Get("source")),
	}
	if v := q.Get("since"); v != "" {
		since, err := parseSince(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid since parameter")
			return
		}
		filter.Since = &since
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	incidents, err := s.store.ListIncidents(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list incidents", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "list incidents failed")
		return
	}
	if incidents == nil {
		incidents = []model.Incident{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"incidents": incidents,
		"count":     len(incidents),
	})
}

func parseSince(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

func (s *Server) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, err := s.store.GetIncident(r.Context(), id)
	if err != nil {
		zap.L().Error("server: get incident", zap.String("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "get incident failed")
		return
	}
	if in == nil {
		respondError(w, http.StatusNotFound, "incident not found")
		return
	}
	respondJSON(w, http.StatusOK, in)
}

func (s *Server) handleDeleteIncident(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := s.store.DeleteIncident(r.Context(), id)
	if err != nil {
		zap.L().Error("server: delete incident", zap.String("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "delete incident failed")
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "incident not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHotspots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	threshold := s.cfg.HotspotThreshold
	if v := q.Get("threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid threshold parameter")
			return
		}
		threshold = n
	}
	binSize := s.cfg.HotspotBinSize
	if v := q.Get("bin"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid bin parameter")
			return
		}
		binSize = n
	}

	incidents, err := s.store.ListIncidents(r.Context(), model.IncidentFilter{})
	if err != nil {
		zap.L().Error("server: hotspot incidents", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "hotspot aggregation failed")
		return
	}

	buckets := hotspot.FindHotspots(incidents, threshold, binSize)
	hotspot.SortBuckets(buckets)
	if buckets == nil {
		buckets = []hotspot.Bucket{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"buckets":   buckets,
		"threshold": threshold,
		"bin_size":  binSize,
	})
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	zones, err := s.store.ListZones(r.Context())
	if err != nil {
		zap.L().Error("server: list zones", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "list zones failed")
		return
	}

	data, err := zonefile.GeoJSON(zones)
	if err != nil {
		zap.L().Error("server: encode zones", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "encode zones failed")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := s.store.Summary(ctx)
	if err != nil {
		zap.L().Error("server: summary", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "stats failed")
		return
	}
	categories, err := s.store.TopCategories(ctx, 10)
	if err != nil {
		zap.L().Error("server: top categories", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "stats failed")
		return
	}
	locations, err := s.store.TopLocations(ctx, 10)
	if err != nil {
		zap.L().Error("server: top locations", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "stats failed")
		return
	}
	if categories == nil {
		categories = []model.CategoryCount{}
	}
	if locations == nil {
		locations = []model.CategoryCount{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"summary":        summary,
		"top_categories": categories,
		"top_locations":  locations,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := s.store.GetUser(r.Context(), req.Username)
	if err != nil {
		zap.L().Error("server: get user", zap.String("username", req.Username), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if user == nil || !auth.VerifyPassword(user.PasswordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.auth.Issue(*user)
	if err != nil {
		zap.L().Error("server: issue token", zap.String("username", req.Username), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"token":    token,
		"username": user.Username,
		"is_admin": user.IsAdmin,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Zone       string   `json:"zone"`
		Count      int      `json:"count"`
		Categories []string `json:"categories"`
		DaysBack   int      `json:"days_back"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Zone == "" {
		respondError(w, http.StatusBadRequest, "zone is required")
		return
	}
	if req.Count <= 0 || req.Count > MaxGenerateCount {
		respondError(w, http.StatusBadRequest, "count must be between 1 and 10000")
		return
	}
	if req.DaysBack <= 0 {
		req.DaysBack = 30
	}

	zone, err := s.store.GetZone(r.Context(), req.Zone)
	if err != nil {
		zap.L().Error("server: get zone", zap.String("zone", req.Zone), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "generate failed")
		return
	}
	if zone == nil {
		respondError(w, http.StatusNotFound, "zone not found")
		return
	}

	incidents, result := s.gen.Generate(req.Count, zonefile.Polygon(*zone), req.Categories, req.DaysBack)
	inserted, err := s.store.UpsertIncidents(r.Context(), incidents)
	if err != nil {
		zap.L().Error("server: store generated incidents", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "generate failed")
		return
	}

	zap.L().Info("generated synthetic incidents",
		zap.String("zone", req.Zone),
		zap.Int("count", inserted),
		zap.Int("fallbacks", result.Fallbacks),
		zap.String("batch_id", result.BatchID),
	)
	respondJSON(w, http.StatusCreated, map[string]any{
		"inserted":  inserted,
		"batch_id":  result.BatchID,
		"fallbacks": result.Fallbacks,
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Limit int  `json:"limit"`
		Force bool `json:"force"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.FeedLimit
	}

	s.mu.Lock()
	records, err := s.cache.Refresh(r.Context(), s.feed, limit, s.cfg.FeedRefreshInterval, req.Force)
	s.mu.Unlock()
	if err != nil {
		if len(records) == 0 {
			zap.L().Error("server: feed fetch", zap.Error(err))
			respondError(w, http.StatusBadGateway, "feed fetch failed")
			return
		}
		zap.L().Warn("server: feed fetch failed, using cached records", zap.Error(err))
	}

	inserted, err := s.store.UpsertIncidents(r.Context(), records)
	if err != nil {
		zap.L().Error("server: store ingested incidents", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "ingest failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"fetched":  len(records),
		"upserted": inserted,
	})
}
