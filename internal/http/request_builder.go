package http

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/guttosm/campus-access/internal/apperror"
	"github.com/guttosm/campus-access/internal/domain/dto"
	"github.com/guttosm/campus-access/internal/i18n"
	"github.com/guttosm/campus-access/internal/middleware"
)

var successResponsePool = sync.Pool{
	New: func() any { return &dto.SuccessResponse{} },
}

func getSuccessResponse() *dto.SuccessResponse {
	if resp, ok := successResponsePool.Get().(*dto.SuccessResponse); ok {
		return resp
	}
	return &dto.SuccessResponse{}
}

func putSuccessResponse(resp *dto.SuccessResponse) {
	*resp = dto.SuccessResponse{}
	successResponsePool.Put(resp)
}

// ResponseBuilder writes envelopes for a single request.
// Success envelopes are pooled; gin serializes synchronously so they can be reused right after.
type ResponseBuilder struct {
	c *gin.Context
}

// NewResponseBuilder creates a new response builder for the given context.
func NewResponseBuilder(c *gin.Context) *ResponseBuilder {
	return &ResponseBuilder{c: c}
}

// Success sends a "success" envelope. messageKey is optional.
func (b *ResponseBuilder) Success(statusCode int, data any, messageKey string) {
	resp := getSuccessResponse()
	resp.Status = dto.StatusSuccess
	resp.Data = data
	resp.RequestID = middleware.GetRequestID(b.c)
	resp.Timestamp = time.Now().UTC()
	if messageKey != "" {
		resp.Message = i18n.GetTranslator().Translate(messageKey, i18n.GetLocale(b.c))
	}

	b.c.JSON(statusCode, resp)
	putSuccessResponse(resp)
}

// SuccessOK sends a 200 OK response with the given data.
func (b *ResponseBuilder) SuccessOK(data any) {
	b.Success(http.StatusOK, data, "")
}

// SuccessCreated sends a 201 Created response with the given data.
func (b *ResponseBuilder) SuccessCreated(data any) {
	b.Success(http.StatusCreated, data, "")
}

// Fail sends the "fail" or "error" envelope matching err.
func (b *ResponseBuilder) Fail(err error) {
	middleware.AbortWithError(b.c, err)
}

// Error sends an envelope with an explicit status, code and message key.
func (b *ResponseBuilder) Error(statusCode int, code, messageKey string) {
	middleware.AbortWithCode(b.c, statusCode, code, messageKey)
}

// Validator is implemented by request types that check their own shape.
type Validator interface {
	Validate() error
}

// BuildRequest binds the JSON body into T. Binding failures are validation errors.
func BuildRequest[T any](c *gin.Context) (*T, error) {
	var req T
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, bindingError(err)
	}
	return &req, nil
}

// BuildRequestAndValidate binds the JSON body into T and runs its Validate method if any.
func BuildRequestAndValidate[T any](c *gin.Context) (*T, error) {
	req, err := BuildRequest[T](c)
	if err != nil {
		return nil, err
	}
	if v, ok := any(req).(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// bindingError converts gin binding failures into field-level validation errors.
func bindingError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		verr := &apperror.ValidationError{}
		for _, fe := range fieldErrs {
			verr.Add(jsonFieldName(fe), validationMessage(fe))
		}
		return verr
	}
	if errors.Is(err, io.EOF) {
		return apperror.NewValidationError("body", "request body is required")
	}
	return apperror.NewValidationError("body", "malformed JSON body")
}

// jsonFieldName turns a struct namespace such as SubmitApplicationRequest.Documents[0].URL
// into documents[0].url.
func jsonFieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return toSnake(ns)
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] != '.' && s[i-1] != '[' && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must have at least " + fe.Param() + " characters"
	case "max":
		return "must have at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
