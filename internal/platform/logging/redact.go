package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// Value shapes that are secrets no matter what field they land in.
var (
	// Three dot-separated base64url segments starting with eyJ: a JWT.
	jwtPattern = regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`)

	bearerPattern    = regexp.MustCompile(`(?i)^bearer\s+.+$`)
	basicAuthPattern = regexp.MustCompile(`(?i)^basic\s+.+$`)
)

// credentialFields is the denylist of field names whose values are masked
// outright, in their common spellings.
var credentialFields = []string{
	"password", "secret", "token",
	"apiKey", "apikey", "api_key",
	"accessToken", "access_token",
	"refreshToken", "refresh_token",
	"credential", "credentials",
	"authorization", "auth", "bearer",
	"cookie", "session",
	"privateKey", "private_key",
	"secretKey", "secret_key",
}

// subscriberFields cover the PII this service must never log. Delivery code
// logs counts and message IDs, never addresses, but redaction has to hold
// even when someone logs a whole subscriber struct.
var subscriberFields = []string{
	"email", "recipient", "recipients",
}

// DefaultRedactOptions is the redaction set every handler in this package
// applies: credential-shaped field names, the provider API key, and
// subscriber addresses. Callers needing more can append their own masq
// options via NewReplaceAttr.
func DefaultRedactOptions() []masq.Option {
	opts := make([]masq.Option, 0, len(credentialFields)+len(subscriberFields)+5)

	for _, name := range credentialFields {
		opts = append(opts, masq.WithFieldName(name))
	}

	for _, name := range subscriberFields {
		opts = append(opts, masq.WithFieldName(name))
	}

	return append(opts,
		masq.WithFieldPrefix("secret"),
		masq.WithFieldPrefix("private"),
		masq.WithRegex(jwtPattern),
		masq.WithRegex(bearerPattern),
		masq.WithRegex(basicAuthPattern),
	)
}

// NewReplaceAttr builds the slog ReplaceAttr hook that applies
// DefaultRedactOptions plus any extra opts:
//
//	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
//	    ReplaceAttr: logging.NewReplaceAttr(),
//	})
func NewReplaceAttr(opts ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	allOpts := append(DefaultRedactOptions(), opts...)

	return masq.New(allOpts...)
}
