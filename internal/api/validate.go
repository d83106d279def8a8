package api

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var registerOnce sync.Once

// RegisterValidators installs the decimal rules into gin's validator.
//
//	positive_decimal   value > 0
//	decimal_range=a:b  a <= value <= b
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
		_ = v.RegisterValidation("positive_decimal", positiveDecimal)
		_ = v.RegisterValidation("decimal_range", decimalRange)
	})
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// decimalValue exposes decimals to the validator as their string form.
func decimalValue(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

func fieldDecimal(fl validator.FieldLevel) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(fl.Field().String())
	return d, err == nil
}

func positiveDecimal(fl validator.FieldLevel) bool {
	d, ok := fieldDecimal(fl)
	return ok && d.IsPositive()
}

func decimalRange(fl validator.FieldLevel) bool {
	lo, hi, found := strings.Cut(fl.Param(), ":")
	if !found {
		return false
	}
	low, err := decimal.NewFromString(lo)
	if err != nil {
		return false
	}
	high, err := decimal.NewFromString(hi)
	if err != nil {
		return false
	}
	d, ok := fieldDecimal(fl)
	return ok && d.GreaterThanOrEqual(low) && d.LessThanOrEqual(high)
}
