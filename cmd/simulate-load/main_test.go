package main

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestNewCommand(t *testing.T) {
	convey.Convey("Given the load command", t, func() {
		cmd := newCommand()

		convey.Convey("Then it declares every flag", func() {
			names := map[string]bool{}
			for _, f := range cmd.Flags {
				for _, n := range f.Names() {
					names[n] = true
				}
			}
			for _, want := range []string{"url", "requests", "workers", "timeout", "seed", "verbose"} {
				convey.So(names[want], convey.ShouldBeTrue)
			}
			convey.So(cmd.Name, convey.ShouldEqual, "simulate-load")
		})
	})
}
