package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/skanlab/internal/adapters/http/api"
	"github.com/okian/skanlab/internal/adapters/http/site"
	app "github.com/okian/skanlab/internal/app"
	"github.com/okian/skanlab/internal/domain/protect"
	"github.com/okian/skanlab/internal/domain/scoring"
	"github.com/okian/skanlab/internal/domain/session"
	"github.com/okian/skanlab/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func initLogger(t *testing.T) {
	t.Helper()
	if err := logger.Init(); err != nil {
		t.Fatalf("init logger: %v", err)
	}
}

// newDemoServer runs the real handler stack over a started service.
func newDemoServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	svc := app.New(app.WithSessionSecret("load-secret"), app.WithWorkerCount(2))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)

	mux := http.NewServeMux()
	apiServer := api.NewServer(svc)
	apiServer.Register(ctx, mux)
	site.Register(ctx, mux, svc, site.WithSecureCookie(false))

	srv := httptest.NewServer(apiServer.Handler(mux))
	t.Cleanup(srv.Close)
	return srv
}

// newLyingServer answers every simulation with the same value.
func newLyingServer(t *testing.T, value int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: "ok"})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /api/protected-js", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(session.CookieName); err != nil || c.Value != "ok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"code": protect.Obfuscate("console.log(1)")})
	})
	mux.HandleFunc("POST /api/simulate-conversion", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"conversion_value": value})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRun(t *testing.T) {
	initLogger(t)

	Convey("Given the demo server", t, func() {
		srv := newDemoServer(t)
		cfg := &Config{BaseURL: srv.URL + "/", Requests: 200, Workers: 8, Timeout: 5 * time.Second, Seed: 42}

		Convey("When running a load test against it", func() {
			stats, err := Run(context.Background(), cfg)

			Convey("Then every answer matches the local scorer", func() {
				So(err, ShouldBeNil)
				So(stats.Generated, ShouldEqual, 200)
				So(stats.Submitted, ShouldEqual, int64(200))
				So(stats.Matched, ShouldEqual, int64(200))
				So(stats.Mismatched, ShouldEqual, int64(0))
				So(stats.Failed, ShouldEqual, int64(0))
				So(stats.ScriptBytes, ShouldBeGreaterThan, 0)
			})
		})
	})

	Convey("Given a server that always answers 63", t, func() {
		srv := newLyingServer(t, scoring.MaxConversionValue)
		cfg := &Config{BaseURL: srv.URL, Requests: 50, Workers: 4, Timeout: 5 * time.Second, Seed: 7, Verbose: true}

		Convey("When running a load test against it", func() {
			stats, err := Run(context.Background(), cfg)

			Convey("Then the run fails with a mismatch", func() {
				So(errors.Is(err, ErrMismatch), ShouldBeTrue)
				So(stats.Mismatched, ShouldBeGreaterThan, 0)
				So(stats.Matched+stats.Mismatched, ShouldEqual, int64(50))
			})
		})
	})

	Convey("Given a server that is down", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		cfg := &Config{BaseURL: srv.URL, Requests: 1, Workers: 1, Timeout: time.Second}

		Convey("Then the health check fails", func() {
			_, err := Run(context.Background(), cfg)
			So(errors.Is(err, ErrUnhealthy), ShouldBeTrue)
		})
	})

	Convey("Given invalid configs", t, func() {
		for _, cfg := range []*Config{
			nil,
			{Requests: 1, Workers: 1, Timeout: time.Second},
			{BaseURL: "http://x", Requests: -1, Workers: 1, Timeout: time.Second},
			{BaseURL: "http://x", Requests: 1, Workers: 0, Timeout: time.Second},
			{BaseURL: "http://x", Requests: 1, Workers: 1},
		} {
			_, err := Run(context.Background(), cfg)
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		}
	})
}

func TestGenerateCases(t *testing.T) {
	Convey("Given a fixed seed", t, func() {
		a := generateCases(100, 3)
		b := generateCases(100, 3)

		Convey("Then generation is reproducible and bounded", func() {
			So(a, ShouldResemble, b)
			for _, c := range a {
				So(len(c.Events), ShouldBeLessThanOrEqualTo, maxEventsPerCase)
				So(c.Revenue, ShouldBeGreaterThanOrEqualTo, 0)
				So(c.Revenue, ShouldBeLessThanOrEqualTo, maxRevenue)
			}
		})
	})
}

func TestWriteReport(t *testing.T) {
	Convey("Given finished stats", t, func() {
		var buf bytes.Buffer
		err := WriteReport(&buf, &Stats{Generated: 4, Submitted: 4, Matched: 3, Mismatched: 1, Duration: 2 * time.Second})

		Convey("Then the summary lists the counters", func() {
			So(err, ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "matched:       3 (75.0%)")
			So(buf.String(), ShouldContainSubstring, "throughput:    2 req/s")
		})

		Convey("And nil stats write nothing", func() {
			var empty bytes.Buffer
			So(WriteReport(&empty, nil), ShouldBeNil)
			So(empty.Len(), ShouldEqual, 0)
		})
	})
}
