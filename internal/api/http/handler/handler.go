// Package handler implements the HTTP endpoints of the API.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dtroode/starter-api/internal/apierror"
	"github.com/dtroode/starter-api/internal/model"
	"github.com/dtroode/starter-api/internal/service"
)

// SessionService mints, rotates and revokes sessions.
type SessionService interface {
	Register(ctx context.Context, params service.RegisterParams, meta model.ClientMeta) (model.Session, error)
	Login(ctx context.Context, email, password string, meta model.ClientMeta) (model.Session, error)
	Refresh(ctx context.Context, userID uuid.UUID, refreshToken string, meta model.ClientMeta) (model.Session, error)
	Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error
	OAuthLogin(ctx context.Context, provider model.Provider, profile model.OAuthProfile, meta model.ClientMeta) (model.Session, error)
}

func clientMeta(c *gin.Context) model.ClientMeta {
	return model.ClientMeta{
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	}
}

// bindJSON decodes the body into req and reports validation failures as
// a BadRequest listing every offending field.
func bindJSON(c *gin.Context, req any) error {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierror.NewErrValidation("Invalid request body", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apierror.NewErrValidation(strings.Join(msgs, "; "), err)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	if len(field) > 0 {
		field = strings.ToLower(field[:1]) + field[1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be an email", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
