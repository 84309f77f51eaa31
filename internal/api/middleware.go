package api

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// Identity headers set by the upstream session provider.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorName = "X-Actor-Name"
	HeaderActorRole = "X-Actor-Role"
)

const actorKey = "actor"

// actorMiddleware reads the session identity from the request headers.
// Requests without an actor id are rejected.
func actorMiddleware(skip ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, p := range skip {
				if c.Request().URL.Path == p {
					return next(c)
				}
			}
			h := c.Request().Header
			id := strings.TrimSpace(h.Get(HeaderActorID))
			if id == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, HeaderActorID+" header required")
			}
			c.Set(actorKey, types.Actor{
				ID:   id,
				Name: h.Get(HeaderActorName),
				Role: types.Role(strings.ToUpper(strings.TrimSpace(h.Get(HeaderActorRole)))),
			})
			return next(c)
		}
	}
}

func actorOf(c echo.Context) types.Actor {
	a, _ := c.Get(actorKey).(types.Actor)
	return a
}

// requestLogger logs every request through zap. 4xx responses log at warn,
// failures at error.
func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
		HandleError:  true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogMethod:    true,
		LogURI:       true,
		LogRoutePath: true,
		LogRequestID: true,
		LogStatus:    true,
		LogError:     true,
		LogHeaders:   []string{HeaderActorID},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("request.remote_ip", v.RemoteIP),
				zap.String("request.method", v.Method),
				zap.String("request.uri", v.URI),
				zap.String("request.route", v.RoutePath),
				zap.String("request.request_id", v.RequestID),
				zap.Int("response.status", v.Status),
				zap.Duration("response.latency", v.Latency),
			}
			if ids := v.Headers[HeaderActorID]; len(ids) > 0 {
				fields = append(fields, zap.String("request.actor", ids[0]))
			}

			switch {
			case v.Status >= 500:
				if v.Error != nil {
					fields = append(fields, zap.Error(v.Error))
				}
				logger.Error("Server error", fields...)
			case v.Status >= 400:
				if v.Error != nil {
					fields = append(fields, zap.Error(v.Error))
				}
				logger.Warn("Client error", fields...)
			default:
				logger.Info("Request completed", fields...)
			}
			return nil
		},
	})
}

// bodyValidator adapts validator.Validate to echo.Validator.
type bodyValidator struct {
	v *validator.Validate
}

func newBodyValidator() *bodyValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &bodyValidator{v: v}
}

// Validate reports failed struct tags as a ValidationError naming the
// offending JSON fields.
func (b *bodyValidator) Validate(i any) error {
	err := b.v.Struct(i)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return types.Invalid("validate request", err.Error())
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return types.Invalid("validate request", verrs.Error(), fields...)
}

// bind decodes and validates the request body into dst.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return types.Invalid("decode request", "malformed request body", "body")
	}
	return c.Validate(dst)
}
