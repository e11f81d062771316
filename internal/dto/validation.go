package dto

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
)

// NewValidator returns a validator with the back office's custom tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(models.DateLayout, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("leavetype", func(fl validator.FieldLevel) bool {
		return models.LeaveType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("gateslot", func(fl validator.FieldLevel) bool {
		return models.GateSlot(fl.Field().String()).Valid()
	})
	return v
}
