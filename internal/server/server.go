package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	stdtemplate "html/template"

	"github.com/allegro/bigcache/v3"
	"github.com/getsentry/raven-go"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/rozgar/job-board/internal/api"
	"github.com/rozgar/job-board/internal/config"
	"github.com/rozgar/job-board/internal/email"
	"github.com/rozgar/job-board/internal/middleware"
	"github.com/rozgar/job-board/internal/template"
	"github.com/rs/zerolog"
)

const (
	shutdownTimeout = 10 * time.Second

	// StoreTimeout bounds every database or storage call made by a handler.
	StoreTimeout = 5 * time.Second
)

type Server struct {
	cfg          config.Config
	router       *mux.Router
	tmpl         *template.Template
	mailer       email.Mailer
	SessionStore *sessions.CookieStore
	bigCache     *bigcache.BigCache
	emailRe      *regexp.Regexp
	logger       zerolog.Logger
}

// NewLogger returns a console logger in dev and a JSON logger otherwise.
func NewLogger(env string) zerolog.Logger {
	if env == "dev" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func NewServer(
	cfg config.Config,
	r *mux.Router,
	t *template.Template,
	mailer email.Mailer,
	sessionStore *sessions.CookieStore,
	logger zerolog.Logger,
) Server {
	raven.SetDSN(cfg.SentryDSN)

	cacheCfg := bigcache.DefaultConfig(time.Hour)
	cacheCfg.Verbose = false
	bigCache, err := bigcache.New(context.Background(), cacheCfg)
	svr := Server{
		cfg:          cfg,
		router:       r,
		tmpl:         t,
		mailer:       mailer,
		SessionStore: sessionStore,
		bigCache:     bigCache,
		logger:       logger,
		emailRe:      regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$"),
	}
	if err != nil {
		svr.Log(err, "unable to initialise big cache")
	}

	r.NotFoundHandler = http.HandlerFunc(svr.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(svr.notFound)

	return svr
}

func (s Server) RegisterRoute(path string, handler func(w http.ResponseWriter, r *http.Request), methods []string) {
	s.router.HandleFunc(path, handler).Methods(methods...)
}

func (s Server) GetConfig() config.Config {
	return s.cfg
}

func (s Server) Logger() zerolog.Logger {
	return s.logger
}

func (s Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.JSON(w, http.StatusNotFound, api.Fail(api.MsgRouteNotFound))
}

func (s Server) XML(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(status)
	w.Write(data)
}

func (s Server) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (s Server) TEXT(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	w.Write([]byte(text))
}

// Log reports err to Sentry, when configured, and to the server log.
func (s Server) Log(err error, msg string) {
	raven.CaptureErrorAndWait(err, map[string]string{"ctx": msg})
	s.logger.Error().Err(err).Msg(msg)
}

func (s Server) GetEmail() email.Mailer {
	return s.mailer
}

// RenderEmail renders one of the email views with the site details added.
func (s Server) RenderEmail(view string, data map[string]interface{}) (string, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["SiteName"] = s.cfg.SiteName
	data["SiteHost"] = s.cfg.SiteHost
	return s.tmpl.RenderString(view, data)
}

func (s Server) MarkdownToHTML(str string) stdtemplate.HTML {
	return s.tmpl.MarkdownToHTML(str)
}

// Handler wraps the router with the middleware chain.
func (s Server) Handler() http.Handler {
	return middleware.HTTPSMiddleware(
		middleware.HeadersMiddleware(
			middleware.CORSMiddleware(
				middleware.LoggingMiddleware(s.logger,
					middleware.RecoveryMiddleware(s.logger, s.router),
				),
				s.cfg.AllowedOrigins,
			),
			s.cfg.Env,
		),
		s.cfg.Env,
	)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%s", s.cfg.Port)
	if s.cfg.IsDev() {
		s.logger.Info().Msgf("local env http://localhost:%s", s.cfg.Port)
		addr = fmt.Sprintf("localhost:%s", s.cfg.Port)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	s.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if s.bigCache != nil {
		s.bigCache.Close()
	}
	return nil
}

func (s Server) GetJWTSigningKey() []byte {
	return s.cfg.JwtSigningKey
}

func (s Server) CacheGet(key string) ([]byte, bool) {
	if s.bigCache == nil {
		return nil, false
	}
	out, err := s.bigCache.Get(key)
	if err != nil {
		return nil, false
	}
	return out, true
}

func (s Server) CacheSet(key string, val []byte) error {
	if s.bigCache == nil {
		return nil
	}
	return s.bigCache.Set(key, val)
}

func (s Server) CacheDelete(key string) error {
	if s.bigCache == nil {
		return nil
	}
	return s.bigCache.Delete(key)
}

// Throttled reports whether key was seen less than window ago. When it was
// not, the current time is recorded for key.
func (s Server) Throttled(key string, window time.Duration) bool {
	now := time.Now()
	lastSeen, ok := s.CacheGet(key)
	if ok {
		lastSeenTime, err := time.Parse(time.RFC3339Nano, string(lastSeen))
		if err == nil && lastSeenTime.After(now.Add(-window)) {
			return true
		}
	}
	if err := s.CacheSet(key, []byte(now.Format(time.RFC3339Nano))); err != nil {
		s.Log(err, "unable to record throttle key")
	}
	return false
}

func (s Server) IsEmail(val string) bool {
	return s.emailRe.MatchString(strings.TrimSpace(val))
}
