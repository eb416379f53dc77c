// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("record_kind", validateRecordKind)
		_ = v.RegisterValidation("payment_method", validatePaymentMethod)
		_ = v.RegisterValidation("card_type", validateCardType)
	}
}

func validateRecordKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "fixa", "variavel":
		return true
	}
	return false
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "dinheiro", "debito", "credito", "pix":
		return true
	}
	return false
}

func validateCardType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "credito", "debito", "multiplo":
		return true
	}
	return false
}
