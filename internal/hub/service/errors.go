package service

import "errors"

// Sentinel errors named after the OAuth2 wire codes they map to. The HTTP
// layer translates these into RFC 6749 error responses.
var (
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrInvalidClient           = errors.New("invalid_client")
	ErrInvalidGrant            = errors.New("invalid_grant")
	ErrInvalidScope            = errors.New("invalid_scope")
	ErrInvalidRedirectURI      = errors.New("invalid_redirect_uri")
	ErrAccessDenied            = errors.New("access_denied")
	ErrUnsupportedGrantType    = errors.New("unsupported_grant_type")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrInvalidToken            = errors.New("invalid_token")
)

// SSO bridge errors. These never reach the OAuth2 surface; the SSO handlers
// render them as login failures.
var (
	ErrSSOStateMismatch  = errors.New("sso: state mismatch")
	ErrSSOExchangeFailed = errors.New("sso: code exchange failed")
	ErrSSOTokenInvalid   = errors.New("sso: id token invalid")
	ErrSessionExpired    = errors.New("session expired")
	ErrSessionInvalid    = errors.New("session invalid")
	ErrUserInactive      = errors.New("user is deactivated")
)
