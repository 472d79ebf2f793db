package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/lootsolver/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.CategoryOrder, convey.ShouldEqual, "declared")
			convey.So(cfg.CacheBackend, convey.ShouldEqual, "memory")
			convey.So(cfg.Conservative, convey.ShouldBeFalse)
			convey.So(cfg.TokenRates, convey.ShouldResemble, map[string]int{
				"first_floor": 3, "second_floor": 4, "third_floor": 4,
			})
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid configs", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"bad level", func(c *config.Config) { c.LogLevel = "loud" }},
			{"bad format", func(c *config.Config) { c.LogFormat = "xml" }},
			{"zero queue", func(c *config.Config) { c.QueueSize = 0 }},
			{"zero workers", func(c *config.Config) { c.WorkerCount = 0 }},
			{"negative dedupe", func(c *config.Config) { c.DedupeSize = -1 }},
			{"zero shards", func(c *config.Config) { c.ShardCount = 0 }},
			{"zero concurrency", func(c *config.Config) { c.SolveConcurrency = 0 }},
			{"zero batch", func(c *config.Config) { c.MaxBatchSize = 0 }},
			{"bad order", func(c *config.Config) { c.CategoryOrder = "random" }},
			{"bad backend", func(c *config.Config) { c.CacheBackend = "memcached" }},
			{"negative ttl", func(c *config.Config) { c.CacheTTLSeconds = -1 }},
			{"redis without addr", func(c *config.Config) { c.CacheBackend = "redis"; c.RedisAddr = "" }},
			{"unknown stage", func(c *config.Config) { c.TokenRates["fifth_floor"] = 2 }},
			{"negative rate", func(c *config.Config) { c.TokenRates["first_floor"] = -2 }},
		}

		for _, tc := range cases {
			cfg := config.New()
			tc.mutate(cfg)

			convey.Convey("When "+tc.name, func() {
				err := cfg.Validate()

				convey.Convey("Then it is rejected as invalid", func() {
					convey.So(err, convey.ShouldNotBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}

		convey.Convey("When the fourth floor gets a zero rate", func() {
			cfg := config.New()
			cfg.TokenRates["fourth_floor"] = 0

			convey.Convey("Then it is accepted", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}
