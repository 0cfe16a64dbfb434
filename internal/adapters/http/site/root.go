// Package site serves the demo page and its static assets.
package site

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/okian/skanlab/internal/adapters/http/api"
	"github.com/okian/skanlab/internal/catalog"
	"github.com/okian/skanlab/internal/domain/scoring"
	"github.com/okian/skanlab/internal/domain/session"
	"github.com/okian/skanlab/pkg/logger"
)

// Error constants
var (
	ErrRender  = errors.New("demo page render failed")
	ErrSession = errors.New("demo page session failed")
)

// Dependencies is what the page needs from the service.
type Dependencies interface {
	IssueSession(ctx context.Context) (string, session.Claims, error)
	Authorize(ctx context.Context, token string) (session.Claims, error)
	SessionTTL() time.Duration
	Catalog() *catalog.Catalog
}

// Register attaches the demo page and static asset routes to mux.
func Register(_ context.Context, mux *http.ServeMux, deps Dependencies, opts ...Option) {
	if mux == nil {
		panic("mux is nil")
	}
	if deps == nil {
		panic("site dependencies are nil")
	}

	page := NewPageHandler(deps, opts...)
	mux.HandleFunc("GET /{$}", api.MetricsMiddleware(page.HandlePage, "page"))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(FS())))
}

// PageHandler renders the single-page demo.
type PageHandler struct {
	deps         Dependencies
	tmpl         *template.Template
	secureCookie bool
	log          logger.Logger
}

// NewPageHandler parses the embedded page template.
func NewPageHandler(deps Dependencies, opts ...Option) *PageHandler {
	h := &PageHandler{
		deps:         deps,
		tmpl:         template.Must(template.ParseFS(templateFS, "templates/index.html.tmpl")),
		secureCookie: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = logger.Named("site")
	}
	return h
}

type eventRow struct {
	Name  string
	Value int
}

type tierRow struct {
	Label     string
	Increment int
}

type networkRow struct {
	Name   string
	Limits catalog.Limits
}

type pageData struct {
	Overview           catalog.Overview
	Features           catalog.Features
	Events             []eventRow
	Tiers              []tierRow
	Samples            []catalog.CodeSample
	Networks           []networkRow
	MaxConversionValue int
}

// HandlePage handles GET / and makes sure the browser holds a live session.
func (h *PageHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.ensureSession(w, r); err != nil {
		h.fail(ctx, w, err)
		return
	}

	data, err := h.data()
	if err != nil {
		h.fail(ctx, w, err)
		return
	}

	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, data); err != nil {
		h.fail(ctx, w, fmt.Errorf("%w: %w", ErrRender, err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *PageHandler) ensureSession(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	if c, err := r.Cookie(session.CookieName); err == nil {
		if _, err := h.deps.Authorize(ctx, c.Value); err == nil {
			return nil
		}
	}

	token, claims, err := h.deps.IssueSession(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSession, err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt,
		MaxAge:   int(h.deps.SessionTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (h *PageHandler) data() (pageData, error) {
	c := h.deps.Catalog()
	if c == nil {
		return pageData{}, fmt.Errorf("%w: catalog not loaded", ErrRender)
	}
	d := pageData{
		Overview:           c.Overview(),
		Features:           c.Features(),
		MaxConversionValue: scoring.MaxConversionValue,
	}
	for _, name := range scoring.EventNames() {
		v, _ := scoring.EventValue(name)
		d.Events = append(d.Events, eventRow{Name: name, Value: v})
	}
	for _, t := range scoring.Tiers() {
		d.Tiers = append(d.Tiers, tierRow{Label: tierLabel(t), Increment: t.Increment})
	}
	for _, typ := range c.SampleTypes() {
		if s, ok := c.Sample(typ); ok {
			d.Samples = append(d.Samples, s)
		}
	}
	for _, name := range c.Networks() {
		canonical, limits, ok := c.CampaignLimits(name)
		if ok {
			d.Networks = append(d.Networks, networkRow{Name: canonical, Limits: limits})
		}
	}
	return d, nil
}

func tierLabel(t scoring.Tier) string {
	switch {
	case t.Open():
		return fmt.Sprintf("$%g and above", t.Min)
	case t.Min == 0:
		return fmt.Sprintf("above $0, under $%g", t.Max)
	default:
		return fmt.Sprintf("$%g to under $%g", t.Min, t.Max)
	}
}

func (h *PageHandler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	h.log.Error(ctx, "render demo page", logger.Error(err))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":"Internal server error"}` + "\n"))
}
