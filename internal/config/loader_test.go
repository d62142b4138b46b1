package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/funnel/internal/config"
	"github.com/okian/funnel/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Engine, convey.ShouldEqual, model.EngineMemory)
				convey.So(cfg.DropPrefix, convey.ShouldEqual, "Drop: ")
				convey.So(cfg.MaxVisibleAnswers, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("FUNNEL_ADDR", ":8080")
			_ = os.Setenv("FUNNEL_ENGINE", "SQLite")
			_ = os.Setenv("FUNNEL_MAX_PATH_NUM", "12")
			_ = os.Setenv("FUNNEL_MAX_VISIBLE_ANSWERS", "3")
			_ = os.Setenv("FUNNEL_DROP_PREFIX", "Left at ")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Engine, convey.ShouldEqual, model.EngineSQLite)
				convey.So(cfg.MaxPathNum, convey.ShouldEqual, 12)
				convey.So(cfg.MaxVisibleAnswers, convey.ShouldEqual, 3)
				convey.So(cfg.DropPrefix, convey.ShouldEqual, "Left at ")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
engine: sqlite
max_path_num: 20
max_visible_answers: 8
max_upload_bytes: 1048576
log_level: debug
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("FUNNEL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Engine, convey.ShouldEqual, model.EngineSQLite)
				convey.So(cfg.MaxPathNum, convey.ShouldEqual, 20)
				convey.So(cfg.MaxVisibleAnswers, convey.ShouldEqual, 8)
				convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, 1048576)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.DropPrefix, convey.ShouldEqual, "Drop: ")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
max_path_num: 20
max_visible_answers: 8
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("FUNNEL_CONFIG", tmpFile)
			_ = os.Setenv("FUNNEL_ADDR", ":8080")
			_ = os.Setenv("FUNNEL_MAX_PATH_NUM", "4")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")        // Overridden by env
				convey.So(cfg.MaxPathNum, convey.ShouldEqual, 4)        // Overridden by env
				convey.So(cfg.MaxVisibleAnswers, convey.ShouldEqual, 8) // From file
				convey.So(cfg.Engine, convey.ShouldEqual, "memory")     // From defaults
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("FUNNEL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("FUNNEL_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("FUNNEL_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown engine", func() {
			_ = os.Setenv("FUNNEL_ENGINE", "spark")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("FUNNEL_MAX_PATH_NUM", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			cfg, err := config.Load(cctx)

			convey.Convey("Then it should not load", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigLoaderEdgeCases(t *testing.T) {
	convey.Convey("Given config loader edge cases", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with a negative path cap", func() {
			_ = os.Setenv("FUNNEL_MAX_PATH_NUM", "-1")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When loading config with zero answers", func() {
			_ = os.Setenv("FUNNEL_MAX_VISIBLE_ANSWERS", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then bucketing should be disabled rather than rejected", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MaxVisibleAnswers, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When loading config with special characters in addr", func() {
			_ = os.Setenv("FUNNEL_ADDR", "[::1]:8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should keep the addr as is", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, "[::1]:8080")
			})
		})

		convey.Convey("When loading config with YAML file containing comments", func() {
			yamlContent := `
# This is a comment
addr: ":9090"  # Inline comment
# Another comment
drop_prefix: "Exit: "
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("FUNNEL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should parse YAML with comments", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DropPrefix, convey.ShouldEqual, "Exit: ")
			})
		})

		convey.Convey("When loading config with YAML file containing an empty prefix", func() {
			tmpFile := createTempConfigFile("drop_prefix: \"\"\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("FUNNEL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "drop_prefix")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"FUNNEL_CONFIG",
		"FUNNEL_ADDR",
		"FUNNEL_ENGINE",
		"FUNNEL_DROP_PREFIX",
		"FUNNEL_MAX_PATH_NUM",
		"FUNNEL_MAX_VISIBLE_ANSWERS",
		"FUNNEL_MAX_UPLOAD_BYTES",
		"FUNNEL_LOG_LEVEL",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "funnel-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
