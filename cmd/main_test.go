package main

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	app "github.com/okian/funnel/internal/app"
	"github.com/okian/funnel/internal/config"
	"github.com/okian/funnel/internal/domain/model"
	"github.com/okian/funnel/pkg/logger"
	"github.com/okian/funnel/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("FUNNEL_ADDR", ":8080")
			_ = os.Setenv("FUNNEL_ENGINE", "sqlite")
			_ = os.Setenv("FUNNEL_MAX_UPLOAD_BYTES", "1024")
			defer func() {
				_ = os.Unsetenv("FUNNEL_ADDR")
				_ = os.Unsetenv("FUNNEL_ENGINE")
				_ = os.Unsetenv("FUNNEL_MAX_UPLOAD_BYTES")
			}()

			convey.Convey("Then configuration should reach the service and server", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")

				svc := app.New(app.WithDefaults(cfg.Options()))
				convey.So(svc.Defaults().Engine, convey.ShouldEqual, model.EngineSQLite)

				srv := newServer(ctx, cfg, svc)
				convey.So(srv.Addr, convey.ShouldEqual, ":8080")
				convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				manager := metrics.NewManager()
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestServerRoutes(t *testing.T) {
	convey.Convey("Given the HTTP server", t, func() {
		ctx := context.Background()
		cfg := config.New()
		srv := newServer(ctx, cfg, app.New(app.WithDefaults(cfg.Options())))

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			return w
		}

		convey.Convey("Then the docs and operational routes should respond", func() {
			for _, path := range []string{"/healthz", "/stats", "/openapi.yaml", "/api-docs"} {
				convey.So(get(path).Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then a funnel should render over HTTP", func() {
			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			fw, err := mw.CreateFormFile("events", "events.csv")
			convey.So(err, convey.ShouldBeNil)
			_, _ = fw.Write([]byte("user_id,action,action_start\nA,login,2024-03-01T12:00:00Z\nA,buy,2024-03-01T12:00:09Z\n"))
			convey.So(mw.WriteField("goals", "buy"), convey.ShouldBeNil)
			convey.So(mw.Close(), convey.ShouldBeNil)

			req := httptest.NewRequest(http.MethodPost, "/funnel", &body)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, req)

			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"route_num":1`)
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it should return once the context ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing system metrics update", func() {
			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() {
					updateSystemMetrics()
				}, convey.ShouldNotPanic)
			})
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given main application error handling", t, func() {
		convey.Convey("When testing invalid configuration", func() {
			_ = os.Setenv("FUNNEL_MAX_UPLOAD_BYTES", "0")
			defer func() { _ = os.Unsetenv("FUNNEL_MAX_UPLOAD_BYTES") }()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}
