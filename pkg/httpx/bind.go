package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func init() {
	// Report field names from json tags instead of Go struct names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ErrorResponse is the normalized failure envelope used across endpoints.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// BindAndValidate decodes the JSON request body into T and validates it using
// struct tags. On failure it writes the error response itself and returns a
// non-nil error so the caller can simply return.
func BindAndValidate[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var value T

	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: decodeMessage(err),
		})
		return value, err
	}

	if err := validate.Struct(value); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
			return value, err
		}

		fields := make(map[string]string, len(errs))
		for _, fe := range errs {
			switch fe.Tag() {
			case "required":
				fields[fe.Field()] = "this field is required"
			case "email":
				fields[fe.Field()] = "must be a valid email address"
			case "min":
				fields[fe.Field()] = fmt.Sprintf("value is too short (minimum %s)", fe.Param())
			default:
				fields[fe.Field()] = "invalid value"
			}
		}

		WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "request validation failed",
			Fields: fields,
		})
		return value, err
	}

	return value, nil
}

func decodeMessage(err error) string {
	if ute, ok := err.(*json.UnmarshalTypeError); ok {
		return fmt.Sprintf("invalid data type for field %q", ute.Field)
	}
	return "failed to parse JSON body"
}
