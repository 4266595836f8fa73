// Package api serves the web UI: the main weather view, the two
// comparison views and the settings screen.
package api

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bebther/bebther/internal/app"
	"github.com/bebther/bebther/internal/imagegen"
	"github.com/bebther/bebther/internal/provider"
	"github.com/bebther/bebther/internal/store"
)

//go:embed templates/*
var templateFS embed.FS

type Server struct {
	app  *app.App
	port string
	tmpl *template.Template
}

func NewServer(a *app.App, port string) *Server {
	tmpl := template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
	return &Server{
		app:  a,
		port: port,
		tmpl: tmpl,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/refresh", s.handleRefresh)
	mux.HandleFunc("/save", s.handleSave)
	mux.HandleFunc("/compare/days", s.handleCompareDays)
	mux.HandleFunc("/compare/sources", s.handleCompareSources)
	mux.HandleFunc("/settings", s.handleSettings)
	mux.HandleFunc("/share.png", s.handleShareImage)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("render %s: %v", name, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.render(w, "main.html", mainView{
		Page:      s.page(),
		City:      s.app.City(),
		Providers: s.app.Providers(),
		Selected:  s.app.SelectedProvider(),
		Record:    newRecordView(s.app.Last()),
		Notice:    r.URL.Query().Get("notice"),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if city := r.FormValue("city"); city != "" {
		s.app.SetCity(city)
	}
	if name := r.FormValue("provider"); name != "" {
		if err := s.app.SelectProvider(name); err != nil {
			redirectNotice(w, r, "/", "unknown provider")
			return
		}
	}
	if _, err := s.app.Refresh(r.Context()); err != nil {
		log.Printf("refresh: %v", err)
		redirectNotice(w, r, "/", fetchNotice(err))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.app.SaveToday(); err != nil {
		log.Printf("save: %v", err)
		redirectNotice(w, r, "/", saveNotice(err))
		return
	}
	redirectNotice(w, r, "/", "saved")
}

func (s *Server) handleCompareDays(w http.ResponseWriter, r *http.Request) {
	yesterday, err := s.app.RecordForDaysAgo(1)
	if err != nil {
		log.Printf("compare days: %v", err)
	}
	twoDaysAgo, err := s.app.RecordForDaysAgo(2)
	if err != nil {
		log.Printf("compare days: %v", err)
	}
	s.render(w, "compare_days.html", compareDaysView{
		Page:       s.page(),
		Today:      newRecordView(s.app.Last()),
		Yesterday:  newRecordView(yesterday),
		TwoDaysAgo: newRecordView(twoDaysAgo),
	})
}

func (s *Server) handleCompareSources(w http.ResponseWriter, r *http.Request) {
	providers := s.app.Providers()
	left := r.URL.Query().Get("left")
	right := r.URL.Query().Get("right")
	if left == "" && len(providers) > 0 {
		left = providers[0]
	}
	if right == "" {
		right = left
		if len(providers) > 1 {
			right = providers[1]
		}
	}

	l, rr, lerr, rerr := s.app.CompareSources(r.Context(), left, right)
	view := compareSourcesView{
		Page:      s.page(),
		Providers: providers,
		Left:      sourceColumn{Name: left, Record: newRecordView(l)},
		Right:     sourceColumn{Name: right, Record: newRecordView(rr)},
	}
	if lerr != nil {
		log.Printf("compare sources %s: %v", left, lerr)
		view.Left.Notice = fetchNotice(lerr)
	}
	if rerr != nil {
		log.Printf("compare sources %s: %v", right, rerr)
		view.Right.Notice = fetchNotice(rerr)
	}
	s.render(w, "compare_sources.html", view)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		prefs := s.app.Settings()
		prefs.DefaultCity = r.FormValue("defaultCity")
		prefs.DarkTheme = r.FormValue("theme") == "dark"
		prefs.Autorun = r.FormValue("autorun") == "on"
		if err := s.app.UpdateSettings(prefs); err != nil {
			log.Printf("settings: %v", err)
			redirectNotice(w, r, "/settings", "could not save settings")
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, "settings.html", settingsView{
		Page:     s.page(),
		Settings: s.app.Settings(),
		Notice:   r.URL.Query().Get("notice"),
	})
}

func (s *Server) handleShareImage(w http.ResponseWriter, r *http.Request) {
	data, err := imagegen.Card(s.app.Last(), s.app.Settings().DarkTheme)
	if err != nil {
		http.Error(w, "no weather data to share", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) page() Page {
	return Page{DarkTheme: s.app.Settings().DarkTheme}
}

func redirectNotice(w http.ResponseWriter, r *http.Request, path, notice string) {
	http.Redirect(w, r, fmt.Sprintf("%s?notice=%s", path, url.QueryEscape(notice)), http.StatusSeeOther)
}

// fetchNotice maps provider errors to the user-visible notice. All
// fetch failures read as "no weather data", with a hint for typos.
func fetchNotice(err error) string {
	if errors.Is(err, provider.ErrLocationNotFound) {
		return "no weather data: city not found"
	}
	return "no weather data"
}

func saveNotice(err error) string {
	switch {
	case errors.Is(err, app.ErrNothingFetched):
		return "nothing to save: fetch weather first"
	case errors.Is(err, store.ErrDuplicateDate):
		return "already saved today"
	default:
		return "could not save"
	}
}
