package main

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	app "github.com/okian/skanlab/internal/app"
	"github.com/okian/skanlab/internal/config"
	"github.com/okian/skanlab/internal/domain/protect"
	"github.com/okian/skanlab/internal/domain/session"
	"github.com/okian/skanlab/pkg/logger"
	"github.com/okian/skanlab/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func initLogger(t *testing.T) {
	t.Helper()
	if err := logger.Init(); err != nil {
		t.Fatalf("init logger: %v", err)
	}
}

func TestMainFunction(t *testing.T) {
	initLogger(t)

	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("SKAN_ADDR", ":8080")
			_ = os.Setenv("SKAN_QUEUE_SIZE", "1000")
			_ = os.Setenv("SKAN_WORKER_COUNT", "4")
			defer func() {
				_ = os.Unsetenv("SKAN_ADDR")
				_ = os.Unsetenv("SKAN_QUEUE_SIZE")
				_ = os.Unsetenv("SKAN_WORKER_COUNT")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When building the service from defaults", func() {
			svc := newService(config.New(), logger.Get())

			convey.Convey("Then it is created but not started", func() {
				convey.So(svc, convey.ShouldNotBeNil)
				convey.So(svc.GetStats(context.Background()).Started, convey.ShouldBeFalse)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	initLogger(t)

	convey.Convey("Given the full handler wired to a started service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		cfg := config.New()
		cfg.CookieSecure = false
		cfg.WorkerCount = 2
		cfg.SessionSecret = "integration-secret"

		svc := newService(cfg, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(newHandler(ctx, cfg, svc))
		defer srv.Close()

		convey.Convey("When simulating a conversion", func() {
			resp, err := http.Post(srv.URL+"/api/simulate-conversion", "application/json",
				strings.NewReader(`{"events":["install","subscription"],"revenue":75}`))
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			var body map[string]any
			convey.So(json.NewDecoder(resp.Body).Decode(&body), convey.ShouldBeNil)

			convey.Convey("Then the value is 1 + 20 + 15", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(body["conversion_value"], convey.ShouldEqual, 36.0)
				convey.So(resp.Header.Get("X-Request-ID"), convey.ShouldNotBeEmpty)
			})
		})

		convey.Convey("When a browser loads the page and then the protected script", func() {
			resp, err := http.Get(srv.URL + "/")
			convey.So(err, convey.ShouldBeNil)
			resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

			var cookie *http.Cookie
			for _, c := range resp.Cookies() {
				if c.Name == session.CookieName {
					cookie = c
				}
			}
			convey.So(cookie, convey.ShouldNotBeNil)

			req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/protected-js", nil)
			req.AddCookie(cookie)
			protected, err := http.DefaultClient.Do(req)
			convey.So(err, convey.ShouldBeNil)
			defer protected.Body.Close()

			var body struct {
				Code string `json:"code"`
			}
			convey.So(json.NewDecoder(protected.Body).Decode(&body), convey.ShouldBeNil)

			convey.Convey("Then the script is served and can be revealed", func() {
				convey.So(protected.StatusCode, convey.ShouldEqual, http.StatusOK)
				script, err := protect.Reveal(body.Code)
				convey.So(err, convey.ShouldBeNil)
				convey.So(script, convey.ShouldContainSubstring, "ConversionSimulator")
			})
		})

		convey.Convey("When the protected script is requested without a session", func() {
			resp, err := http.Get(srv.URL + "/api/protected-js")
			convey.So(err, convey.ShouldBeNil)
			resp.Body.Close()

			convey.Convey("Then it is unauthorized", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusUnauthorized)
			})
		})

		convey.Convey("When revenue totals run past the float range", func() {
			for _, body := range []string{`{"revenue":1e308}`, `{"revenue":1e308}`, `{"revenue":1e400}`} {
				resp, err := http.Post(srv.URL+"/api/simulate-conversion", "application/json", strings.NewReader(body))
				convey.So(err, convey.ShouldBeNil)
				resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}

			var stats struct {
				Ledger struct {
					Total        int64   `json:"total"`
					RevenueTotal float64 `json:"revenue_total"`
				} `json:"ledger"`
			}
			status := 0
			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				resp, err := http.Get(srv.URL + "/stats")
				convey.So(err, convey.ShouldBeNil)
				status = resp.StatusCode
				err = json.NewDecoder(resp.Body).Decode(&stats)
				resp.Body.Close()
				convey.So(err, convey.ShouldBeNil)
				if stats.Ledger.Total >= 3 {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}

			convey.Convey("Then /stats still answers with a finite total", func() {
				convey.So(status, convey.ShouldEqual, http.StatusOK)
				convey.So(stats.Ledger.Total, convey.ShouldEqual, int64(3))
				convey.So(math.IsInf(stats.Ledger.RevenueTotal, 0), convey.ShouldBeFalse)
				convey.So(stats.Ledger.RevenueTotal, convey.ShouldEqual, math.MaxFloat64)
			})
		})

		convey.Convey("When a browser signs out", func() {
			resp, err := http.Get(srv.URL + "/")
			convey.So(err, convey.ShouldBeNil)
			resp.Body.Close()

			var cookie *http.Cookie
			for _, c := range resp.Cookies() {
				if c.Name == session.CookieName {
					cookie = c
				}
			}
			convey.So(cookie, convey.ShouldNotBeNil)

			req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/session", nil)
			req.AddCookie(cookie)
			revoked, err := http.DefaultClient.Do(req)
			convey.So(err, convey.ShouldBeNil)
			revoked.Body.Close()

			req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/protected-js", nil)
			req.AddCookie(cookie)
			protected, err := http.DefaultClient.Do(req)
			convey.So(err, convey.ShouldBeNil)
			protected.Body.Close()

			convey.Convey("Then the old cookie no longer unlocks the script", func() {
				convey.So(revoked.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(protected.StatusCode, convey.ShouldEqual, http.StatusUnauthorized)
			})
		})

		convey.Convey("When requesting docs and unknown routes", func() {
			docs, err := http.Get(srv.URL + "/api-docs")
			convey.So(err, convey.ShouldBeNil)
			docs.Body.Close()
			missing, err := http.Get(srv.URL + "/nope")
			convey.So(err, convey.ShouldBeNil)
			missing.Body.Close()

			convey.Convey("Then docs are served and unknown routes get a JSON 404", func() {
				convey.So(docs.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(missing.StatusCode, convey.ShouldEqual, http.StatusNotFound)
				convey.So(missing.Header.Get("Content-Type"), convey.ShouldContainSubstring, "application/json")
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	initLogger(t)

	convey.Convey("Given main application components", t, func() {
		convey.Convey("When the system metrics updater runs until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("When the service metrics updater runs until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startServiceMetricsUpdater(ctx, app.New()) }, convey.ShouldNotPanic)
		})

		convey.Convey("When updating metrics directly", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(context.Background(), app.New()) }, convey.ShouldNotPanic)
		})

		convey.Convey("When creating a metrics manager on a private registry", func() {
			manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
			convey.So(manager, convey.ShouldNotBeNil)
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given an invalid configuration", t, func() {
		_ = os.Setenv("SKAN_ADDR", "")
		defer func() { _ = os.Unsetenv("SKAN_ADDR") }()

		convey.Convey("Then configuration loading should fail", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}
