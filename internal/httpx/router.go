package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/feed"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/manuallog"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/query"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/store"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/timeline"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/utils"
)

// Deps is everything the HTTP surface serves from.
type Deps struct {
	Feed    *feed.Service
	Query   *query.Service
	Store   *store.MemoryStore
	Manual  *manuallog.Log
	Metrics *HTTPMetrics

	// DefaultDays bounds a /feed/run request that names no days.
	DefaultDays int
}

func NewRouter(log *slog.Logger, d Deps) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))
	if d.Metrics != nil {
		mux.Use(d.Metrics.Middleware)
	}

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !d.Store.Ready() {
			http.Error(w, "no feed generated yet", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
		w.Write([]byte("ready"))
	})
	mux.Method(http.MethodGet, "/metrics", promhttp.Handler())

	mux.Post("/feed/run", func(w http.ResponseWriter, r *http.Request) {
		days := d.DefaultDays
		if q := r.URL.Query().Get("days"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil {
				http.Error(w, "bad days", 400)
				return
			}
			days = n
		}
		snap, err := d.Feed.Generate(r.Context(), days)
		if errors.Is(err, timeline.ErrInvalidRange) {
			http.Error(w, err.Error(), 400)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), 502)
			return
		}
		writeJSON(w, snap.Report)
	})

	mux.Get("/feed/timeline", func(w http.ResponseWriter, r *http.Request) {
		rows, err := d.Query.Timeline(r.URL.Query())
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		writeJSON(w, rows)
	})

	mux.Get("/feed/posts", func(w http.ResponseWriter, r *http.Request) {
		rows, err := d.Query.Posts(r.URL.Query())
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		writeJSON(w, rows)
	})

	mux.Get("/feed/campaigns", func(w http.ResponseWriter, r *http.Request) {
		rows, err := d.Query.Campaigns(r.URL.Query())
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		writeJSON(w, rows)
	})

	mux.Get("/feed/summary", func(w http.ResponseWriter, r *http.Request) {
		sum, ok := d.Query.Summary()
		if !ok {
			http.Error(w, "no feed generated yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, sum)
	})

	mux.Get("/feed/weekly", func(w http.ResponseWriter, r *http.Request) {
		weeks, ok := d.Query.Weekly()
		if !ok {
			http.Error(w, "no feed generated yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, weeks)
	})

	mux.Get("/feed/dashboard", func(w http.ResponseWriter, r *http.Request) {
		dash, ok := d.Query.Dashboard(time.Now().UTC())
		if !ok {
			http.Error(w, "no feed generated yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, dash)
	})

	mux.Get("/feed/report", func(w http.ResponseWriter, r *http.Request) {
		rep, ok := d.Store.Report()
		if !ok {
			http.Error(w, "no feed generated yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, rep)
	})

	mux.Post("/feed/posts", func(w http.ResponseWriter, r *http.Request) {
		var req manualPostRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), 400)
			return
		}
		p, err := req.toEvent()
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		entry, err := d.Manual.AppendPost(p)
		if errors.Is(err, manuallog.ErrInvalidEntry) {
			http.Error(w, err.Error(), 400)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, entry)
	})

	mux.Post("/feed/campaigns", func(w http.ResponseWriter, r *http.Request) {
		var req manualCampaignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), 400)
			return
		}
		c, err := req.toEvent()
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		entry, err := d.Manual.AppendCampaign(c)
		if errors.Is(err, manuallog.ErrInvalidEntry) {
			http.Error(w, err.Error(), 400)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, entry)
	})

	return mux
}

type manualPostRequest struct {
	Date        string `json:"date"`
	Platform    string `json:"platform"`
	Influencer  string `json:"influencer"`
	PostURL     string `json:"post_url"`
	Views       int    `json:"views"`
	Reach       int    `json:"reach"`
	Impressions int    `json:"impressions"`
	Likes       int    `json:"likes"`
	Comments    int    `json:"comments"`
	Shares      int    `json:"shares"`
	Saves       int    `json:"saves"`
	Engagement  int    `json:"engagement"`
	Notes       string `json:"notes"`
}

func (r manualPostRequest) toEvent() (models.SocialPostEvent, error) {
	day, err := models.ParseDate(r.Date)
	if err != nil {
		return models.SocialPostEvent{}, errors.New("date must be YYYY-MM-DD")
	}
	return models.SocialPostEvent{
		Date:        day,
		Platform:    r.Platform,
		Influencer:  r.Influencer,
		PostURL:     r.PostURL,
		Views:       r.Views,
		Reach:       r.Reach,
		Impressions: r.Impressions,
		Likes:       r.Likes,
		Comments:    r.Comments,
		Shares:      r.Shares,
		Saves:       r.Saves,
		Engagement:  r.Engagement,
		Notes:       r.Notes,
	}, nil
}

type manualCampaignRequest struct {
	Date         string  `json:"date"`
	Platform     string  `json:"platform"`
	CampaignName string  `json:"campaign_name"`
	EventType    string  `json:"event_type"`
	Budget       float64 `json:"budget"`
	Notes        string  `json:"notes"`
}

func (r manualCampaignRequest) toEvent() (models.CampaignEvent, error) {
	day, err := models.ParseDate(r.Date)
	if err != nil {
		return models.CampaignEvent{}, errors.New("date must be YYYY-MM-DD")
	}
	return models.CampaignEvent{
		Date:         day,
		Platform:     r.Platform,
		CampaignName: r.CampaignName,
		EventType:    r.EventType,
		Budget:       r.Budget,
		Notes:        r.Notes,
	}, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
