package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/config"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/db"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/network"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/service"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/validation"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/viewmodel"
)

var Module = fx.Provide(NewHTTPServer)

const (
	tokenHeader     = "X-Token"
	tokenQueryParam = "token"
	sessionKey      = "session"
	censored        = "$censored"
)

var publicPaths = map[string]struct{}{
	"/ping":              {},
	"/auth/signup":       {},
	"/auth/login":        {},
	"/countries":         {},
	"/countries/default": {},
}

type (
	CustomValidator struct {
		validator *validator.Validate
	}

	HTTPServer struct {
		echo         *echo.Echo
		registration *service.Registration
		dashboard    *service.Dashboard
		sessions     *service.SessionManager
		registry     *viewmodel.Registry
		logger       *zap.SugaredLogger
	}
)

func NewHTTPServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	registration *service.Registration,
	dashboard *service.Dashboard,
	sessions *service.SessionManager,
	registry *viewmodel.Registry,
	logger *zap.SugaredLogger,
) (*HTTPServer, error) {
	v, err := validation.New()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true

	instance := HTTPServer{
		echo:         e,
		registration: registration,
		dashboard:    dashboard,
		sessions:     sessions,
		registry:     registry,
		logger:       logger,
	}

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	authG := e.Group("/auth")
	authG.POST("/signup", instance.Signup)
	authG.POST("/login", instance.Login)
	authG.POST("/logout", instance.Logout)

	countryG := e.Group("/countries")
	countryG.GET("", instance.Countries)
	countryG.GET("/default", instance.DefaultCountry)

	e.GET("/session/events", instance.SessionEvents)

	bookG := e.Group("/books")
	bookG.GET("", instance.BookList)
	bookG.POST("/sync", instance.BookSync)
	bookG.GET("/years", instance.BookYears)
	bookG.PUT("/:uid/favorite", instance.BookFavorite)
	bookG.DELETE("/:uid/favorite", instance.BookUnfavorite)
	bookG.PUT("/:uid/tags", instance.BookTags)

	dashboardG := e.Group("/dashboard")
	dashboardG.GET("", instance.DashboardGet)
	dashboardG.POST("/load", instance.DashboardLoad)
	dashboardG.POST("/tab", instance.DashboardTab)
	dashboardG.POST("/search", instance.DashboardSearch)
	dashboardG.POST("/year", instance.DashboardYear)
	dashboardG.POST("/books/:uid/favorite", instance.DashboardToggleFavorite)
	dashboardG.PUT("/books/:uid/tags", instance.DashboardTags)
	dashboardG.GET("/events", instance.DashboardEvents)

	e.Use(middleware.CORS())
	e.Use(middleware.LoggerWithConfig(accessLogConfig()))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyDumpWithConfig(middleware.BodyDumpConfig{
		Skipper: func(c echo.Context) bool {
			return strings.HasSuffix(c.Path(), "/events")
		},
		Handler: instance.dumpBody,
	}))

	e.Use(instance.AuthMiddleware)

	e.Validator = &CustomValidator{validator: v}

	echo.NotFoundHandler = func(c echo.Context) error {
		return c.NoContent(http.StatusNotFound)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := e.Start(cfg.HTTPAddr()); err != nil && err != http.ErrServerClosed {
					logger.Fatalw("HTTP server failed.", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return e.Shutdown(ctx)
		},
	})

	return &instance, nil
}

// accessLogConfig logs the path without the query, which carries the token
// of EventSource clients.
func accessLogConfig() middleware.LoggerConfig {
	cfg := middleware.DefaultLoggerConfig
	cfg.Format = strings.Replace(cfg.Format, `"uri":"${uri}"`, `"path":"${path}"`, 1)
	return cfg
}

func (s *HTTPServer) Echo() *echo.Echo {
	return s.echo
}

func (s *HTTPServer) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := publicPaths[c.Path()]; ok {
			return next(c)
		}
		token := c.Request().Header.Get(tokenHeader)
		if token == "" {
			// EventSource clients cannot set headers
			token = c.QueryParam(tokenQueryParam)
		}
		if token == "" {
			return c.NoContent(http.StatusUnauthorized)
		}
		session, err := s.sessions.Current(c.Request().Context(), token)
		if err != nil {
			if !errors.Is(err, service.ErrSessionNotFound) {
				s.logger.Errorw("Session lookup failed.", "error", err)
			}
			return c.NoContent(http.StatusUnauthorized)
		}

		c.Set(sessionKey, session)
		return next(c)
	}
}

func (s *HTTPServer) dumpBody(c echo.Context, reqBody, resBody []byte) {
	if len(reqBody) == 0 {
		return
	}
	s.logger.Debugw("Request body.",
		"method", c.Request().Method,
		"path", c.Path(),
		"body", string(censorBody(reqBody)),
	)
}

// censorBody hides password values in a JSON body. Anything that is not a
// JSON object is returned as is.
func censorBody(body []byte) []byte {
	fields := map[string]interface{}{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return body
	}
	censorFields(fields)
	out, err := json.Marshal(fields)
	if err != nil {
		return body
	}
	return out
}

func censorFields(fields map[string]interface{}) {
	for key, value := range fields {
		if strings.Contains(strings.ToLower(key), "password") {
			fields[key] = censored
			continue
		}
		if nested, ok := value.(map[string]interface{}); ok {
			censorFields(nested)
		}
	}
}

// httpError maps domain errors to HTTP answers.
func httpError(err error) error {
	var failure *network.APIFailure
	switch {
	case errors.Is(err, service.ErrUserTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrInvalidPassword):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrLoginUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrLoginPasswordDoesNotMatch), errors.Is(err, service.ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrBookNotFound), errors.Is(err, viewmodel.ErrNotListed):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.As(err, &failure):
		return echo.NewHTTPError(http.StatusBadGateway, newFailureResp(failure))
	default:
		return err
	}
}

////////

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func BindAndValidate(c echo.Context, v interface{}) error {
	var err error
	if err = c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err = c.Validate(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func GetSessionFromContext(c echo.Context) (*db.Session, error) {
	session, ok := c.Get(sessionKey).(*db.Session)
	if !ok || session == nil {
		return nil, errors.New("no session found in context")
	}
	return session, nil
}

func GetParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid path param '"+name+"'")
	}
	return value, nil
}
