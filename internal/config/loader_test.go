package config_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/talksched/internal/config"
	"github.com/okian/talksched/internal/domain/scoring"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("TALKSCHED_TIME_LIMIT", "5s")
			_ = os.Setenv("TALKSCHED_MODE", "exact")
			_ = os.Setenv("TALKSCHED_STARTS", "4")
			_ = os.Setenv("TALKSCHED_RANDOM_SEED", "1234")
			_ = os.Setenv("TALKSCHED_SOFT_WEIGHTS__TRACK_ROOM", "2")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.TimeLimit, convey.ShouldEqual, 5*time.Second)
				convey.So(cfg.Mode, convey.ShouldEqual, "exact")
				convey.So(cfg.Starts, convey.ShouldEqual, 4)
				convey.So(cfg.RandomSeed, convey.ShouldEqual, 1234)
				convey.So(cfg.SoftWeights[scoring.TrackRoom], convey.ShouldEqual, 2)
				convey.So(cfg.SoftWeights[scoring.FlowRank], convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(`
# tuned for a two-day event
log_level: debug
time_limit: 90s
workers: 2
starts: 3
soft_weights:
  educational_flow_rank: 5
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("TALKSCHED_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.TimeLimit, convey.ShouldEqual, 90*time.Second)
				convey.So(cfg.Workers, convey.ShouldEqual, 2)
				convey.So(cfg.Starts, convey.ShouldEqual, 3)
				convey.So(cfg.SoftWeights[scoring.FlowRank], convey.ShouldEqual, 5)
				convey.So(cfg.SoftWeights[scoring.FlowLevel], convey.ShouldEqual, 1)
				convey.So(cfg.StagnationWindow, convey.ShouldEqual, 2000)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("starts: 3\nmode: exact\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("TALKSCHED_CONFIG", tmpFile)
			_ = os.Setenv("TALKSCHED_STARTS", "8")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Starts, convey.ShouldEqual, 8)
				convey.So(cfg.Mode, convey.ShouldEqual, "exact")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile("starts: [1, 2\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("TALKSCHED_CONFIG", tmpFile)

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("TALKSCHED_CONFIG", "/non/existent/talksched.yaml")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("TALKSCHED_WORKERS", "many")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with a zero time limit", func() {
			_ = os.Setenv("TALKSCHED_TIME_LIMIT", "0s")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with a negative weight", func() {
			_ = os.Setenv("TALKSCHED_SOFT_WEIGHTS__TRACK_DAY", "-1")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if key, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(key, config.EnvPrefix) {
			_ = os.Unsetenv(key)
		}
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "talksched-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = tmpFile.Close() }()

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
