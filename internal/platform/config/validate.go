package config

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	perr "repertoire/internal/platform/errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	vOnce  sync.Once
	vInst  *validator.Validate
	vTrans ut.Translator
)

// validatorInit builds the config validator; messages use `conf` tag names
// so errors read like the flags and env keys operators typed
func validatorInit() (*validator.Validate, ut.Translator) {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		vTrans, _ = uni.GetTranslator("en")

		vInst = validator.New(validator.WithRequiredStructEnabled())
		vInst.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("conf")
			if tag == "" || tag == "-" {
				return fld.Name
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(vInst, vTrans)
	})
	return vInst, vTrans
}

// Validate checks validate struct tags on s. Any failure is a configuration
// error carrying the first offending field; it is meant to abort a run before work starts
func Validate(s any) error {
	v, trans := validatorInit()
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return perr.Wrap(err, perr.ErrorCodeConfiguration, "invalid configuration")
	}
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		msgs = append(msgs, fe.Translate(trans))
	}
	return perr.WithField(perr.Configf("invalid configuration: %s", strings.Join(msgs, "; ")), ves[0].Field())
}
