package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// Attribute keys whose values are never logged.
var sensitiveKeys = []string{
	"password", "secret", "token", "credential", "credentials",
	"apiKey", "apikey", "api_key",
	"accessToken", "access_token", "refreshToken", "refresh_token",
	"privateKey", "private_key", "secretKey", "secret_key",
	"authorization", "auth", "bearer", "cookie",
}

// Values redacted under any key: JWTs and Authorization header payloads.
var sensitiveValues = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`(?i)^bearer\s+.+$`),
	regexp.MustCompile(`(?i)^basic\s+.+$`),
}

// DefaultRedactOptions returns the masq options applied to every json and
// text log record.
func DefaultRedactOptions() []masq.Option {
	opts := make([]masq.Option, 0, len(sensitiveKeys)+len(sensitiveValues)+2)

	for _, key := range sensitiveKeys {
		opts = append(opts, masq.WithFieldName(key))
	}

	opts = append(opts, masq.WithFieldPrefix("secret"), masq.WithFieldPrefix("private"))

	for _, re := range sensitiveValues {
		opts = append(opts, masq.WithRegex(re))
	}

	return opts
}

// NewReplaceAttr returns a slog ReplaceAttr that redacts the defaults plus opts.
func NewReplaceAttr(opts ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(DefaultRedactOptions(), opts...)...)
}
