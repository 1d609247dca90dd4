package middleware

import (
	"fmt"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/starter-api/internal/api/http/response"
	"github.com/dtroode/starter-api/internal/apierror"
	"github.com/dtroode/starter-api/internal/logger"
	"github.com/dtroode/starter-api/internal/model"
)

const redacted = "REDACTED"

// sensitiveQueryKeys are query parameters whose values never reach the
// error log.
var sensitiveQueryKeys = map[string]struct{}{
	"code":          {},
	"state":         {},
	"token":         {},
	"access_token":  {},
	"refresh_token": {},
	"id_token":      {},
	"password":      {},
}

// ErrorRecorder accepts error log entries without blocking.
type ErrorRecorder interface {
	Record(entry model.ErrorLog) bool
}

// Errors renders errors attached to the gin context into the error
// envelope and hands them to the error log.
type Errors struct {
	recorder       ErrorRecorder
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewErrors(recorder ErrorRecorder, contextManager model.ContextManager, logger *logger.Logger) *Errors {
	return &Errors{recorder: recorder, contextManager: contextManager, logger: logger}
}

// Handle must run before any middleware that may attach errors.
func (e *Errors) Handle(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 {
		return
	}
	err := c.Errors.Last().Err
	e.render(c, err, "")
}

// Recover is a gin recovery handler that turns panics into 500 responses.
func (e *Errors) Recover(c *gin.Context, recovered any) {
	e.render(c, fmt.Errorf("panic: %v", recovered), string(debug.Stack()))
}

// NoRoute answers unknown paths.
func (e *Errors) NoRoute(c *gin.Context) {
	e.render(c, apierror.NewErrRouteNotFound(), "")
}

func (e *Errors) render(c *gin.Context, err error, stack string) {
	status := http.StatusInternalServerError
	message := apierror.NewErrInternalServerError(nil).Message
	if apiErr, ok := apierror.From(err); ok {
		status = apiErr.HTTPStatus()
		message = apiErr.Message
	}

	attrs := []any{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", status,
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		e.logger.Error("HTTP request failed", attrs...)
	} else {
		e.logger.Info("HTTP request rejected", attrs...)
	}

	if stack == "" {
		stack = fmt.Sprintf("%+v", err)
	}
	query := redactQuery(c.Request.URL.Query())
	e.recorder.Record(model.ErrorLog{
		Level:   "error",
		Message: message,
		Stack:   stack,
		Status:  status,
		Method:  c.Request.Method,
		URL:     requestURI(c.Request.URL.EscapedPath(), query),
		Meta:    e.meta(c, query),
	})

	if c.Writer.Written() {
		return
	}
	response.Error(c, status, message)
}

func (e *Errors) meta(c *gin.Context, values url.Values) map[string]any {
	var userID any
	if user, ok := e.contextManager.GetUserFromContext(c.Request.Context()); ok {
		userID = user.ID.String()
	}

	params := make(map[string]string, len(c.Params))
	for _, p := range c.Params {
		params[p.Key] = p.Value
	}

	query := make(map[string]any)
	for k, v := range values {
		if len(v) == 1 {
			query[k] = v[0]
		} else {
			query[k] = v
		}
	}

	return map[string]any{
		"user":   userID,
		"params": params,
		"query":  query,
	}
}

func redactQuery(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for k, v := range values {
		if _, ok := sensitiveQueryKeys[strings.ToLower(k)]; ok {
			out[k] = []string{redacted}
			continue
		}
		out[k] = v
	}
	return out
}

func requestURI(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}
