package common

const (
	// AuthorizationHeaderName carries the bearer credential on outbound requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the credential inside AuthorizationHeaderName.
	BearerPrefix = "Bearer "

	// RequestIDHeaderName correlates client log lines with server ones.
	RequestIDHeaderName = "X-Request-ID"
)

// BearerValue formats token as an Authorization header value.
func BearerValue(token string) string {
	return BearerPrefix + token
}
