package httputil

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"userconsole/pkg/requestcontext"
)

// ErrUnsupportedField is returned when a form struct has a tagged field that
// is not a string.
var ErrUnsupportedField = errors.New("form fields must be strings")

// BindForm copies posted values into the string fields of dst (a pointer to
// a struct) by their `form` tag. Missing values leave fields empty.
func BindForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("parse form: %w", err)
	}
	return bindValues(r.PostForm, dst, "")
}

// BindPrefixed is BindForm for fields posted as "<prefix>.<name>", used for
// hidden copies of the values a form was rendered with.
func BindPrefixed(r *http.Request, prefix string, dst any) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("parse form: %w", err)
	}
	return bindValues(r.PostForm, dst, prefix+".")
}

func bindValues(values map[string][]string, dst any, prefix string) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("bind form: %T is not a pointer to a struct", dst)
	}
	v = v.Elem()
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			continue
		}
		if f.Type.Kind() != reflect.String {
			return fmt.Errorf("%w: %s", ErrUnsupportedField, f.Name)
		}
		if vals := values[prefix+name]; len(vals) > 0 {
			v.Field(i).SetString(vals[0])
		}
	}
	return nil
}

// DecodeForm binds the posted form into a new T. On failure it logs, writes
// 400 and returns nil, false.
//
// Usage:
//
//	form, ok := httputil.DecodeForm[console.LoginForm](w, r, h.logger)
//	if !ok {
//	    return
//	}
func DecodeForm[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	var form T
	if err := BindForm(r, &form); err != nil {
		ctx := r.Context()
		logger.WarnContext(ctx, "failed to decode form",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		http.Error(w, http.StatusText(status), status)
		return nil, false
	}
	return &form, true
}
