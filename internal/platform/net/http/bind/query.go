package bind

import (
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/logger"

	"github.com/go-playground/validator/v10"
)

// Query decodes URL query parameters into T by `query` tag, then validates it
// supported kinds are string, bool, ints, floats, pointers to those and comma separated slices
// an absent parameter leaves the field untouched, so pointers stay nil
func Query[T any](r *http.Request) (T, error) {
	var zero T
	var dst T

	rv := reflect.ValueOf(&dst).Elem()
	if rv.Kind() != reflect.Struct {
		return zero, perr.Newf(perr.ErrorCodeInvalidArgument, "query target must be a struct")
	}
	if err := decodeQuery(rv, r.URL.Query()); err != nil {
		return zero, err
	}

	if err := Get().Validator.Struct(dst); err != nil {
		if inv, ok := err.(*validator.InvalidValidationError); ok {
			logger.Get().Error().Err(inv).Msg("validator internal error")
			return zero, perr.Newf(perr.ErrorCodeValidation, "validation error")
		}
		_, msg := ValidationFieldAndMessage(err)
		return zero, perr.Newf(perr.ErrorCodeValidation, "%s", msg)
	}
	return dst, nil
}

func decodeQuery(rv reflect.Value, vals url.Values) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.PkgPath != "" {
			continue
		}
		name := f.Tag.Get("query")
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		raw := strings.TrimSpace(vals.Get(name))
		if raw == "" {
			continue
		}
		fv := rv.Field(i)
		if fv.Kind() == reflect.Slice {
			parts := strings.Split(raw, ",")
			out := reflect.MakeSlice(fv.Type(), 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p == "" {
					continue
				}
				ev := reflect.New(fv.Type().Elem()).Elem()
				if err := setScalar(ev, p); err != nil {
					return perr.Newf(perr.ErrorCodeInvalidArgument, "%s: %v", name, err)
				}
				out = reflect.Append(out, ev)
			}
			fv.Set(out)
			continue
		}
		if fv.Kind() == reflect.Pointer {
			pv := reflect.New(fv.Type().Elem())
			if err := setScalar(pv.Elem(), raw); err != nil {
				return perr.Newf(perr.ErrorCodeInvalidArgument, "%s: %v", name, err)
			}
			fv.Set(pv)
			continue
		}
		if err := setScalar(fv, raw); err != nil {
			return perr.Newf(perr.ErrorCodeInvalidArgument, "%s: %v", name, err)
		}
	}
	return nil
}

func setScalar(v reflect.Value, s string) error {
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(s, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(n)
	default:
		return perr.Newf(perr.ErrorCodeInvalidArgument, "unsupported kind %s", v.Kind())
	}
	return nil
}
