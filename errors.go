package jwtguard

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeConfiguration     = "JWTGUARD_CONFIGURATION"
	TextCodeMalformedToken    = "TOKEN_MALFORMED"
	TextCodeUntrustedIssuer   = "TOKEN_UNTRUSTED_ISSUER"
	TextCodeInvalidSignature  = "TOKEN_INVALID_SIGNATURE"
	TextCodeExpiredToken      = "TOKEN_EXPIRED"
	TextCodeTokenNotYetValid  = "TOKEN_NOT_YET_VALID"
	TextCodeAudienceMismatch  = "TOKEN_AUDIENCE_MISMATCH"
	TextCodeKeyRetrieval      = "SIGNING_KEY_RETRIEVAL_FAILED"
	TextCodeScopeDenied       = "SCOPE_DENIED"
	TextCodeTokenRequestError = "ACCESS_TOKEN_REQUEST_FAILED"
)

// ErrConfiguration is returned when a required setting is missing or invalid.
// It signals a deployment defect and is never mapped to a per request response.
var ErrConfiguration = goerrors.New("invalid jwt guard configuration", goerrors.CategoryInternal).
	WithTextCode(TextCodeConfiguration).
	WithCode(goerrors.CodeInternal)

// ErrMalformedToken token does not have three segments or its payload is not JSON
var ErrMalformedToken = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeMalformedToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrUntrustedIssuer the iss claim is missing or not a trusted issuer
var ErrUntrustedIssuer = goerrors.New("token issuer is not trusted", goerrors.CategoryAuth).
	WithTextCode(TextCodeUntrustedIssuer).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidSignature signature or signing algorithm check failed
var ErrInvalidSignature = goerrors.New("token signature is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidSignature).
	WithCode(goerrors.CodeUnauthorized)

// ErrExpiredToken the exp claim is in the past
var ErrExpiredToken = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeExpiredToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenNotYetValid the nbf claim is in the future
var ErrTokenNotYetValid = goerrors.New("token is not valid yet", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenNotYetValid).
	WithCode(goerrors.CodeUnauthorized)

// ErrAudienceMismatch the aud claim does not contain the configured audience
var ErrAudienceMismatch = goerrors.New("token audience mismatch", goerrors.CategoryAuth).
	WithTextCode(TextCodeAudienceMismatch).
	WithCode(goerrors.CodeUnauthorized)

// ErrKeyRetrieval the issuer JWKS could not be fetched or parsed.
// This is an operational fault, not an authentication failure.
var ErrKeyRetrieval = goerrors.New("unable to retrieve signing keys", goerrors.CategoryOperation).
	WithTextCode(TextCodeKeyRetrieval).
	WithCode(goerrors.CodeInternal)

// ErrScopeDenied the token does not grant the requested scope
var ErrScopeDenied = goerrors.New("no access to scope", goerrors.CategoryAuthz).
	WithTextCode(TextCodeScopeDenied).
	WithCode(goerrors.CodeForbidden)

// ErrTokenRequest the authorization server rejected a client credentials request
var ErrTokenRequest = goerrors.New("Auth0 Exception caught", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenRequestError).
	WithCode(goerrors.CodeUnauthorized)

var invalidTokenCodes = map[string]bool{
	TextCodeMalformedToken:   true,
	TextCodeUntrustedIssuer:  true,
	TextCodeInvalidSignature: true,
	TextCodeExpiredToken:     true,
	TextCodeTokenNotYetValid: true,
	TextCodeAudienceMismatch: true,
}

// TextCode returns the text code of a rich error, or an empty string.
func TextCode(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil {
		return richErr.TextCode
	}
	return ""
}

// IsInvalidToken reports whether err is any of the token validation
// failures. Callers at the HTTP boundary treat them as a single kind.
func IsInvalidToken(err error) bool {
	return invalidTokenCodes[TextCode(err)]
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return TextCode(err) == TextCodeExpiredToken
}

// IsConfigurationError will check for configuration errors
func IsConfigurationError(err error) bool {
	return TextCode(err) == TextCodeConfiguration
}

// IsKeyRetrievalError will check for JWKS retrieval errors
func IsKeyRetrievalError(err error) bool {
	return TextCode(err) == TextCodeKeyRetrieval
}

// IsScopeDenied will check for scope authorization errors
func IsScopeDenied(err error) bool {
	return TextCode(err) == TextCodeScopeDenied
}

// NewError clones base and attaches the source error and metadata.
func NewError(base *goerrors.Error, source error, meta map[string]any) error {
	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if source != nil {
		clone.Source = source
	}
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}
	return clone
}

// ConfigError returns an ErrConfiguration clone naming the offending setting.
func ConfigError(setting string, source error) error {
	meta := map[string]any{"setting": setting}
	if source != nil {
		meta["cause"] = source.Error()
	}
	return NewError(ErrConfiguration, source, meta)
}
