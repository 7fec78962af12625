package controller

import (
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/saxenaaman628/krathong-voting/internal/models"
)

// RegisterValidators installs the custom binding tags. It must run before the
// first request is bound.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("notblank", notBlank); err != nil {
		return err
	}
	return v.RegisterValidation("adjustment", adjustment)
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// adjustment accepts exactly one admin step up or down.
func adjustment(fl validator.FieldLevel) bool {
	d := fl.Field().Int()
	return d == models.AdjustPoints || d == -models.AdjustPoints
}
