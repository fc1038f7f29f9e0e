package middlewares

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	apierrors "easemyday/internal/errors"
	"easemyday/internal/helpers"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

const defaultMaxBodySize = 64 << 10

var (
	validate    = newValidator()
	maxBodySize int64 = defaultMaxBodySize
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// InitValidator caps the size of decoded request bodies. Zero keeps the default.
func InitValidator(maxBytes int64) {
	if maxBytes > 0 {
		maxBodySize = maxBytes
	}
}

// fieldErrors turns validation failures into codes such as EMAIL_REQUIRED.
func fieldErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{apierrors.ErrBadRequest}
	}

	codes := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		codes = append(codes, strings.ToUpper(fmt.Sprintf("%s_%s", fieldErr.Field(), fieldErr.Tag())))
	}
	return codes
}

// Validate decodes the JSON body into T, validates it and hands it to the
// next handler through the request context.
func Validate[T any](next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body T

		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err := decoder.Decode(&body); err != nil {
			helpers.RespondWithError(w, http.StatusBadRequest, []string{apierrors.ErrBadRequest})
			return
		}

		if err := validate.Struct(body); err != nil {
			helpers.RespondWithError(w, http.StatusBadRequest, fieldErrors(err))
			return
		}

		next.ServeHTTP(w, r.WithContext(helpers.WithBody(r.Context(), body)))
	})
}

func decodeQuery[T any](r *http.Request) (T, error) {
	var params T

	values := map[string]any{}
	for key, value := range r.URL.Query() {
		if len(value) > 0 && value[0] != "" {
			values[key] = value[0]
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &params,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return params, err
	}
	err = decoder.Decode(values)
	return params, err
}

// ValidateQuery is Validate for query string parameters.
func ValidateQuery[T any](next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, err := decodeQuery[T](r)
		if err != nil {
			helpers.RespondWithError(w, http.StatusBadRequest, []string{apierrors.ErrBadRequest})
			return
		}

		if err = validate.Struct(params); err != nil {
			helpers.RespondWithError(w, http.StatusBadRequest, fieldErrors(err))
			return
		}

		next.ServeHTTP(w, r.WithContext(helpers.WithBody(r.Context(), params)))
	})
}
