package session_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/skanlab/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRegistry_Bounded(t *testing.T) {
	Convey("Given a registry bounded to three keys", t, func() {
		ctx := context.Background()
		r := session.NewInMemoryRegistry(session.WithMaxSize(3))

		Convey("When registering a new key", func() {
			So(r.Register(ctx, "a"), ShouldBeFalse)

			Convey("Then it is live and registering again reports it", func() {
				So(r.Contains(ctx, "a"), ShouldBeTrue)
				So(r.Register(ctx, "a"), ShouldBeTrue)
				So(r.Size(), ShouldEqual, 1)
			})
		})

		Convey("When exceeding the bound", func() {
			for _, k := range []string{"a", "b", "c", "d"} {
				r.Register(ctx, k)
			}

			Convey("Then the oldest key is evicted", func() {
				So(r.Contains(ctx, "a"), ShouldBeFalse)
				So(r.Contains(ctx, "b"), ShouldBeTrue)
				So(r.Contains(ctx, "d"), ShouldBeTrue)
				So(r.Size(), ShouldEqual, 3)
			})
		})

		Convey("When revoking from the middle, head and tail", func() {
			for _, k := range []string{"a", "b", "c"} {
				r.Register(ctx, k)
			}
			r.Revoke(ctx, "b")
			r.Revoke(ctx, "c")
			r.Revoke(ctx, "a")
			r.Revoke(ctx, "missing")

			Convey("Then the registry is empty and still usable", func() {
				So(r.Size(), ShouldEqual, 0)
				for _, k := range []string{"x", "y", "z", "w"} {
					r.Register(ctx, k)
				}
				So(r.Contains(ctx, "x"), ShouldBeFalse)
				So(r.Size(), ShouldEqual, 3)
			})
		})
	})
}

func TestRegistry_Unbounded(t *testing.T) {
	Convey("Given an unbounded registry", t, func() {
		ctx := context.Background()
		r := session.NewInMemoryRegistry(session.WithMaxSize(0))

		for i := 0; i < 1000; i++ {
			r.Register(ctx, fmt.Sprintf("k-%d", i))
		}

		Convey("Then nothing is evicted", func() {
			So(r.Size(), ShouldEqual, 1000)
			So(r.Contains(ctx, "k-0"), ShouldBeTrue)
			r.Revoke(ctx, "k-0")
			So(r.Contains(ctx, "k-0"), ShouldBeFalse)
			So(r.Size(), ShouldEqual, 999)
		})
	})
}

func TestRegistry_Concurrent(t *testing.T) {
	Convey("Given concurrent registrations of the same keys", t, func() {
		ctx := context.Background()
		r := session.NewInMemoryRegistry(session.WithMaxSize(50))
		var wg sync.WaitGroup
		var mu sync.Mutex
		fresh := 0
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 20; i++ {
					if !r.Register(ctx, fmt.Sprintf("k-%d", i)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each key is newly recorded exactly once", func() {
			So(fresh, ShouldEqual, 20)
			So(r.Size(), ShouldEqual, 20)
		})
	})
}

func TestIssuer(t *testing.T) {
	Convey("Given an issuer with a fixed clock", t, func() {
		ctx := context.Background()
		now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		clock := func() time.Time { return now }
		issuer, err := session.NewIssuer([]byte("secret"), session.WithTTL(time.Hour), session.WithClock(clock))
		So(err, ShouldBeNil)

		Convey("When issuing a token", func() {
			token, claims, err := issuer.Issue(ctx)
			So(err, ShouldBeNil)

			Convey("Then it verifies to the same key", func() {
				got, err := issuer.Verify(ctx, token)
				So(err, ShouldBeNil)
				So(got.Key, ShouldEqual, claims.Key)
				So(got.ExpiresAt, ShouldEqual, now.Add(time.Hour))
				So(got.IssuedAt, ShouldEqual, now)
			})

			Convey("And a tampered token is rejected", func() {
				_, err := issuer.Verify(ctx, token[:len(token)-2]+"xx")
				So(errors.Is(err, session.ErrInvalidToken), ShouldBeTrue)
			})

			Convey("And another secret rejects it", func() {
				other, _ := session.NewIssuer([]byte("other"), session.WithClock(clock))
				_, err := other.Verify(ctx, token)
				So(errors.Is(err, session.ErrInvalidToken), ShouldBeTrue)
			})

			Convey("And another issuer name rejects it", func() {
				other, _ := session.NewIssuer([]byte("secret"), session.WithIssuerName("elsewhere"), session.WithClock(clock))
				_, err := other.Verify(ctx, token)
				So(errors.Is(err, session.ErrInvalidToken), ShouldBeTrue)
			})

			Convey("And it expires after the TTL", func() {
				later, _ := session.NewIssuer([]byte("secret"), session.WithClock(func() time.Time {
					return now.Add(2 * time.Hour)
				}))
				_, err := later.Verify(ctx, token)
				So(errors.Is(err, session.ErrExpired), ShouldBeTrue)
			})
		})

		Convey("When two tokens are issued", func() {
			_, a, _ := issuer.Issue(ctx)
			_, b, _ := issuer.Issue(ctx)

			Convey("Then their keys differ and are url-safe", func() {
				So(a.Key, ShouldNotEqual, b.Key)
				So(strings.ContainsAny(a.Key, "+/="), ShouldBeFalse)
			})
		})

		Convey("When verifying an empty token", func() {
			_, err := issuer.Verify(ctx, "  ")
			So(errors.Is(err, session.ErrMissingToken), ShouldBeTrue)
		})

		Convey("When verifying garbage", func() {
			_, err := issuer.Verify(ctx, "not.a.jwt")
			So(errors.Is(err, session.ErrInvalidToken), ShouldBeTrue)
		})
	})

	Convey("Given an empty secret", t, func() {
		_, err := session.NewIssuer(nil)
		So(errors.Is(err, session.ErrNoSecret), ShouldBeTrue)
	})

	Convey("Given a random secret", t, func() {
		a, err := session.RandomSecret()
		So(err, ShouldBeNil)
		b, _ := session.RandomSecret()
		So(len(a), ShouldEqual, 32)
		So(string(a), ShouldNotEqual, string(b))
	})
}
