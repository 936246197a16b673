// Package api exposes the fowl repository, analytics and demo settings over
// HTTP using gin. Every failure is classified into a navigation error, sent
// to the dispatcher and rendered as an ErrorResponse.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"flockcore/internal/config"
	"flockcore/internal/core"
	"flockcore/internal/navigation"
	"flockcore/internal/payment"
	"flockcore/pkg/domain"
)

// OwnerHeader identifies the caller for owner-scoped operations.
const OwnerHeader = "X-Owner-ID"

// Deps are the collaborators the router serves.
type Deps struct {
	Repo       *core.FowlRepository
	Config     *config.Config
	Dispatcher *navigation.Dispatcher
	// Payments may be nil when no provider is available; listings with a
	// non-zero fee then fail.
	Payments payment.Provider
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

type server struct {
	Deps
	log *zap.Logger
}

var registerTagName sync.Once

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Config == nil {
		deps.Config = config.DefaultConfig()
	}
	useJSONFieldNames()
	s := &server{Deps: deps, log: deps.Logger.Named("api")}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.NoRoute(func(c *gin.Context) {
		s.fail(c, navigation.ErrUnknownRoute)
	})

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, HealthResponse{Status: "ok"}) })
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/v1")
	fowls := v1.Group("/fowls")
	fowls.GET("", s.listFowls)
	fowls.POST("", s.createFowl)
	fowls.GET("/search", s.searchFowls)
	fowls.GET("/:id", s.getFowl)
	fowls.PUT("/:id", s.updateFowl)
	fowls.DELETE("/:id", s.deleteFowl)
	fowls.GET("/:id/tree", s.familyTree)
	fowls.GET("/:id/recommendations", s.recommendations)
	fowls.POST("/:id/listing", s.createListing)

	analytics := v1.Group("/analytics", s.requireFeature("Analytics", func(f config.FeatureFlags) bool { return f.Analytics }))
	analytics.GET("/lifecycle", s.lifecycle)
	analytics.GET("/bloodlines/:name", s.bloodline)

	v1.GET("/config/demo", s.demoConfig)
	return r
}

// useJSONFieldNames makes validation errors report json field names.
func useJSONFieldNames() {
	registerTagName.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
				if name != "" && name != "-" {
					return name
				}
			}
			return fld.Name
		})
	})
}

func (s *server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *server) requireFeature(name string, enabled func(config.FeatureFlags) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled(s.Config.Features) {
			s.fail(c, domain.PremiumRequired{Feature: name})
			return
		}
		c.Next()
	}
}

// fail classifies err, dispatches it and writes the error response.
func (s *server) fail(c *gin.Context, err error) {
	nav := navigation.Classify(bindingCause(err), c.Request.URL.Path)
	if s.Dispatcher != nil {
		s.Dispatcher.Dispatch(nav)
	}
	resp := ErrorResponse{
		Error:       nav.Message(),
		Code:        nav.Kind(),
		Severity:    nav.Severity(),
		Action:      nav.Action(),
		ActionLabel: nav.Action().Label(),
	}
	if auth, ok := nav.(domain.AuthenticationRequired); ok {
		resp.Redirect = auth.RedirectTarget()
	}
	status := statusFor(nav)
	if errors.Is(err, payment.ErrDeclined) {
		status = http.StatusPaymentRequired
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, resp)
}

// bindingCause turns validator and decoding failures into ArgumentErrors.
func bindingCause(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return navigation.ArgumentError{Argument: verrs[0].Field(), Reason: verrs[0].Tag()}
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.EOF) {
		return navigation.ArgumentError{Argument: "body", Reason: err.Error()}
	}
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return navigation.ArgumentError{Argument: "query", Reason: err.Error()}
	}
	return err
}

func statusFor(err domain.NavigationError) int {
	switch err.(type) {
	case domain.RouteNotFound:
		return http.StatusNotFound
	case domain.AuthenticationRequired:
		return http.StatusUnauthorized
	case domain.NetworkUnavailable:
		return http.StatusServiceUnavailable
	case domain.PremiumRequired:
		return http.StatusPaymentRequired
	case domain.InvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
