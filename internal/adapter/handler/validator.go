package handler

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/srgjo27/fair_ticket/internal/core/domain"
)

type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() echo.Validator {
	return &requestValidator{v: validator.New()}
}

func (r *requestValidator) Validate(i any) error {
	if err := r.v.Struct(i); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// bindValid binds the request body and runs struct validation.
func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: malformed request body", domain.ErrInvalidInput)
	}
	return c.Validate(req)
}
