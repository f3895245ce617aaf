// Package i18n translates user-facing messages of the access service.
package i18n

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultLocale is the default language locale (English).
	DefaultLocale = "en"
	// AcceptLanguageHeader is the HTTP header name for language preference.
	AcceptLanguageHeader = "Accept-Language"
)

var (
	// defaultTranslator is the singleton translator instance.
	defaultTranslator *Translator
	translatorOnce    sync.Once
)

// Translator handles message translation for different locales.
type Translator struct {
	messages map[string]map[string]string
}

// NewTranslator creates a new translator with the default messages.
func NewTranslator() *Translator {
	return &Translator{
		messages: getDefaultMessages(),
	}
}

// GetTranslator returns the default singleton translator instance.
func GetTranslator() *Translator {
	translatorOnce.Do(func() {
		defaultTranslator = NewTranslator()
	})
	return defaultTranslator
}

// Translate returns the translated message for the given key and locale.
// Falls back to DefaultLocale if the locale is not found.
func (t *Translator) Translate(key, locale string) string {
	if locale == "" {
		locale = DefaultLocale
	}

	localeMessages, ok := t.messages[locale]
	if !ok {
		localeMessages = t.messages[DefaultLocale]
	}

	msg, ok := localeMessages[key]
	if !ok {
		// Fallback to default locale
		if defaultMessages := t.messages[DefaultLocale]; defaultMessages != nil {
			if fallbackMsg, exists := defaultMessages[key]; exists {
				return fallbackMsg
			}
		}
		return key
	}

	return msg
}

// Supports reports whether messages exist for locale.
func (t *Translator) Supports(locale string) bool {
	_, ok := t.messages[locale]
	return ok
}

// GetLocale extracts the locale from the gin context.
// Checks Accept-Language header and falls back to DefaultLocale.
func GetLocale(c *gin.Context) string {
	acceptLang := c.GetHeader(AcceptLanguageHeader)
	if acceptLang == "" {
		return DefaultLocale
	}

	// Parse Accept-Language header (e.g., "en-US,en;q=0.9,pt;q=0.8")
	parts := strings.Split(acceptLang, ",")
	if len(parts) > 0 {
		lang := strings.TrimSpace(strings.Split(parts[0], ";")[0])
		// Extract base language (e.g., "en" from "en-US")
		if idx := strings.Index(lang, "-"); idx > 0 {
			lang = lang[:idx]
		}
		// Normalize to lowercase
		lang = strings.ToLower(lang)
		if GetTranslator().Supports(lang) {
			return lang
		}
	}

	return DefaultLocale
}

// getDefaultMessages returns the default message translations.
func getDefaultMessages() map[string]map[string]string {
	return map[string]map[string]string{
		"en": {
			"error.invalid_request":         "Invalid request",
			"error.invalid_request_body":    "Invalid request body",
			"error.internal_error":          "An unexpected error occurred",
			"error.unauthorized":            "Unauthorized",
			"error.invalid_credentials":     "Invalid email or password",
			"error.forbidden":               "You do not have permission to perform this action",
			"error.not_found":               "Not found",
			"error.rate_limit_exceeded":     "Too many requests, please try again later",
			"error.conflict":                "The resource was changed by another request",
			"error.validation_failed":       "Validation failed",
			"error.invalid_token":           "Invalid token, please sign in again",
			"error.token_expired":           "Access token expired",
			"error.token_required":          "Authentication token is required",
			"error.refresh_token_required":  "Refresh token is required",
			"error.timeout":                 "Request timeout",
			"error.user_exists":             "A user with this email or username already exists",
			"error.application_not_pending": "The application is no longer pending",
			"error.role_changed":            "The applicant's role changed since the application was submitted",
			"success.logged_out":            "Logged out",
			"success.application_submitted": "Application submitted",
			"success.application_reviewed":  "Application reviewed",
			"success.application_withdrawn": "Application withdrawn",
		},
		"pt": {
			"error.invalid_request":         "Requisição inválida",
			"error.invalid_request_body":    "Corpo da requisição inválido",
			"error.internal_error":          "Ocorreu um erro inesperado",
			"error.unauthorized":            "Não autorizado",
			"error.invalid_credentials":     "Email ou senha inválidos",
			"error.forbidden":               "Você não tem permissão para esta ação",
			"error.not_found":               "Não encontrado",
			"error.rate_limit_exceeded":     "Muitas requisições, tente novamente mais tarde",
			"error.conflict":                "O recurso foi alterado por outra requisição",
			"error.validation_failed":       "Falha na validação",
			"error.invalid_token":           "Token inválido, entre novamente",
			"error.token_expired":           "Token de acesso expirado",
			"error.token_required":          "Token de autenticação é obrigatório",
			"error.refresh_token_required":  "Token de renovação é obrigatório",
			"error.timeout":                 "Tempo de requisição esgotado",
			"error.user_exists":             "Já existe um usuário com este email ou nome de usuário",
			"error.application_not_pending": "A candidatura não está mais pendente",
			"error.role_changed":            "O papel do candidato mudou desde o envio da candidatura",
			"success.logged_out":            "Sessão encerrada",
			"success.application_submitted": "Candidatura enviada",
			"success.application_reviewed":  "Candidatura avaliada",
			"success.application_withdrawn": "Candidatura retirada",
		},
		"nl": {
			"error.invalid_request":         "Ongeldig verzoek",
			"error.invalid_request_body":    "Ongeldige aanvraag body",
			"error.internal_error":          "Er is een onverwachte fout opgetreden",
			"error.unauthorized":            "Niet geautoriseerd",
			"error.invalid_credentials":     "Ongeldig e-mailadres of wachtwoord",
			"error.forbidden":               "Je hebt geen toestemming voor deze actie",
			"error.not_found":               "Niet gevonden",
			"error.rate_limit_exceeded":     "Te veel verzoeken, probeer het later opnieuw",
			"error.conflict":                "De resource is door een ander verzoek gewijzigd",
			"error.validation_failed":       "Validatie mislukt",
			"error.invalid_token":           "Ongeldig token, log opnieuw in",
			"error.token_expired":           "Toegangstoken verlopen",
			"error.token_required":          "Authenticatietoken is vereist",
			"error.refresh_token_required":  "Vernieuwingstoken is vereist",
			"error.timeout":                 "Time-out van verzoek",
			"error.user_exists":             "Er bestaat al een gebruiker met dit e-mailadres of deze gebruikersnaam",
			"error.application_not_pending": "De aanvraag is niet meer in behandeling",
			"error.role_changed":            "De rol van de aanvrager is gewijzigd sinds het indienen",
			"success.logged_out":            "Uitgelogd",
			"success.application_submitted": "Aanvraag ingediend",
			"success.application_reviewed":  "Aanvraag beoordeeld",
			"success.application_withdrawn": "Aanvraag ingetrokken",
		},
	}
}
