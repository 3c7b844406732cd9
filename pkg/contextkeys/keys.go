package contextkeys

// Key is the type of every context key this module sets, so keys never collide with other packages.
type Key string

const (
	// RequestIDKey is the context key for storing and retrieving a request ID.
	RequestIDKey Key = "request_id"

	// UserIDKey is the context key for the authenticated user id, when a session is live.
	UserIDKey Key = "user_id"

	// TokenFingerprintKey carries a hash of the session token; the raw token is never logged.
	TokenFingerprintKey Key = "token_fingerprint"

	// OperationKey names the state-layer operation being executed (e.g. "cart.add").
	OperationKey Key = "operation"
)

func (c Key) String() string {
	return string(c)
}
