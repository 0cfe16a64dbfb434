package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/skanlab/internal/app"
	"github.com/okian/skanlab/internal/domain/protect"
	"github.com/okian/skanlab/internal/domain/session"
	"github.com/okian/skanlab/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func startService(opts ...service.Option) (*service.Service, context.Context) {
	svc := service.New(opts...)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	So(svc.Start(ctx), ShouldBeNil)
	Reset(func() {
		svc.Stop()
		cancel()
	})
	return svc, ctx
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(100))

		Convey("Then stats report it as stopped", func() {
			So(svc.GetStats(context.Background()).Started, ShouldBeFalse)
		})

		Convey("Then session operations fail before Start", func() {
			_, _, err := svc.IssueSession(context.Background())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.ProtectedScript(context.Background())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Then simulation still scores before Start", func() {
			out := svc.Simulate(context.Background(), []string{"install"}, 5)
			So(out.ConversionValue, ShouldEqual, 6)
			So(out.Recorded, ShouldBeFalse)
		})

		Convey("When started and stopped", func() {
			ctx := context.Background()
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			st := svc.GetStats(ctx)
			So(st.Started, ShouldBeTrue)
			So(st.Workers, ShouldEqual, 2)
			So(st.QueueCapacity, ShouldEqual, 100)

			svc.Stop()
			svc.Stop()

			Convey("Then it reports stopped", func() {
				So(svc.GetStats(ctx).Started, ShouldBeFalse)
			})
		})
	})
}

func TestService_Simulate(t *testing.T) {
	Convey("Given a started service", t, func() {
		fixed := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
		svc, ctx := startService(
			service.WithWorkerCount(2),
			service.WithClock(func() time.Time { return fixed }),
		)

		Convey("When simulating", func() {
			out := svc.Simulate(ctx, []string{"install", "registration", "tutorial"}, 25)

			Convey("Then the outcome carries the score and time", func() {
				So(out.ConversionValue, ShouldEqual, 16)
				So(out.Tier, ShouldEqual, "lt_50")
				So(out.At, ShouldEqual, fixed)
				So(out.Recorded, ShouldBeTrue)
			})

			Convey("Then the ledger eventually reflects it", func() {
				So(waitFor(func() bool {
					st := svc.GetStats(ctx)
					return st.Ledger != nil && st.Ledger.Total == 1
				}), ShouldBeTrue)
				snap := svc.GetStats(ctx).Ledger
				So(snap.ByValue[16], ShouldEqual, 1)
				So(snap.ByEvent["tutorial"], ShouldEqual, 1)
				So(snap.RevenueTotal, ShouldEqual, 25.0)
			})
		})

		Convey("When simulating with a cancelled request context", func() {
			rctx, cancel := context.WithCancel(ctx)
			cancel()
			out := svc.Simulate(rctx, []string{"subscription"}, 0)

			Convey("Then the simulation is still recorded", func() {
				So(out.ConversionValue, ShouldEqual, 20)
				So(out.Recorded, ShouldBeTrue)
			})
		})
	})

	Convey("Given a service with the ledger disabled", t, func() {
		svc, ctx := startService(service.WithLedger(false))

		Convey("Then simulations score but stats have no ledger", func() {
			out := svc.Simulate(ctx, []string{"first_purchase"}, 100)
			So(out.ConversionValue, ShouldEqual, 30)
			So(out.Recorded, ShouldBeFalse)
			So(svc.GetStats(ctx).Ledger, ShouldBeNil)
		})
	})
}

func TestService_Sessions(t *testing.T) {
	Convey("Given a started service with a fixed secret", t, func() {
		svc, ctx := startService(service.WithSessionSecret("s3cret"), service.WithSessionTTL(time.Hour))

		Convey("When a session is issued", func() {
			token, claims, err := svc.IssueSession(ctx)
			So(err, ShouldBeNil)

			Convey("Then it authorizes", func() {
				got, err := svc.Authorize(ctx, token)
				So(err, ShouldBeNil)
				So(got.Key, ShouldEqual, claims.Key)
				So(svc.GetStats(ctx).LiveSessions, ShouldEqual, 1)
			})

			Convey("Then it stops authorizing once revoked", func() {
				svc.RevokeSession(ctx, claims.Key)
				_, err := svc.Authorize(ctx, token)
				So(errors.Is(err, service.ErrUnknownSession), ShouldBeTrue)
			})
		})

		Convey("When a well-signed token was never registered", func() {
			issuer, _ := session.NewIssuer([]byte("s3cret"))
			token, _, _ := issuer.Issue(ctx)

			Convey("Then it is rejected", func() {
				_, err := svc.Authorize(ctx, token)
				So(errors.Is(err, service.ErrUnknownSession), ShouldBeTrue)
			})
		})

		Convey("When the token is empty", func() {
			_, err := svc.Authorize(ctx, "")
			So(errors.Is(err, session.ErrMissingToken), ShouldBeTrue)
		})

		Convey("Then the session TTL is exposed", func() {
			So(svc.SessionTTL(), ShouldEqual, time.Hour)
		})
	})
}

func TestService_Content(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, ctx := startService()

		Convey("Then samples and limits are served from the catalog", func() {
			s, ok := svc.Sample(ctx, "runtime_consent")
			So(ok, ShouldBeTrue)
			So(s.Code, ShouldContainSubstring, "DynamicConsentManager")

			name, l, ok := svc.CampaignLimits(ctx, "snapchat")
			So(ok, ShouldBeTrue)
			So(name, ShouldEqual, "Snapchat")
			So(l.Campaigns, ShouldEqual, 63)
		})

		Convey("Then the protected script is obfuscated", func() {
			code, err := svc.ProtectedScript(ctx)
			So(err, ShouldBeNil)
			So(code, ShouldNotContainSubstring, "ConversionSimulator")
			plain, err := protect.Reveal(code)
			So(err, ShouldBeNil)
			So(plain, ShouldEqual, svc.Catalog().ProtectedScript())
		})
	})
}
