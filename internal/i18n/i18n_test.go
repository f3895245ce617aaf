//go:build !integration

package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

var allKeys = []string{
	ErrKeyInvalidRequest, ErrKeyInvalidRequestBody, ErrKeyInternalError, ErrKeyUnauthorized,
	ErrKeyInvalidCredentials, ErrKeyForbidden, ErrKeyNotFound, ErrKeyRateLimitExceeded,
	ErrKeyConflict, ErrKeyValidationFailed, ErrKeyInvalidToken, ErrKeyTokenExpired,
	ErrKeyTokenRequired, ErrKeyRefreshTokenRequired, ErrKeyTimeout, ErrKeyUserExists,
	ErrKeyApplicationNotPending, ErrKeyRoleChanged,
	SuccessKeyLoggedOut, SuccessKeyApplicationSubmitted, SuccessKeyApplicationReviewed,
	SuccessKeyApplicationWithdrawn,
}

func TestGetTranslator_Singleton(t *testing.T) {
	assert.Same(t, GetTranslator(), GetTranslator())
}

func TestTranslator_EveryKeyInEveryLocale(t *testing.T) {
	translator := NewTranslator()

	for _, locale := range []string{"en", "pt", "nl"} {
		assert.True(t, translator.Supports(locale), locale)
		for _, key := range allKeys {
			_, ok := translator.messages[locale][key]
			assert.True(t, ok, "%s has no %q message", locale, key)
		}
	}
}

func TestTranslator_Translate(t *testing.T) {
	translator := NewTranslator()

	tests := []struct {
		name   string
		key    string
		locale string
		want   string
	}{
		{"english", ErrKeyApplicationNotPending, "en", "The application is no longer pending"},
		{"portuguese", SuccessKeyApplicationWithdrawn, "pt", "Candidatura retirada"},
		{"dutch", ErrKeyTokenExpired, "nl", "Toegangstoken verlopen"},
		{"empty locale uses english", ErrKeyForbidden, "", "You do not have permission to perform this action"},
		{"unsupported locale uses english", ErrKeyNotFound, "fr", "Not found"},
		{"unknown key is returned as is", "error.something_else", "pt", "error.something_else"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, translator.Translate(tt.key, tt.locale))
		})
	}
}

func TestKeyForCode(t *testing.T) {
	translator := NewTranslator()
	codes := []string{
		"token_expired", "invalid_token", "forbidden", "validation_failed",
		"not_found", "conflict", "internal_error", "unauthorized", "rate_limit_exceeded", "timeout",
	}
	for _, code := range codes {
		key := KeyForCode(code)
		assert.NotEqual(t, key, translator.Translate(key, DefaultLocale), "code %s has no message", code)
	}
}

func TestGetLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"pt-BR,pt;q=0.9,en;q=0.8", "pt"},
		{"NL", "nl"},
		{"fr-FR,pt;q=0.9", "en"},
		{" en-GB ", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				c.Request.Header.Set(AcceptLanguageHeader, tt.header)
			}
			assert.Equal(t, tt.want, GetLocale(c))
		})
	}
}
