package storagekeys

import (
	"fmt"
	"strings"
)

// Durable keys used by the state layer. Values are JSON documents.
const (
	Cart           = "cart"
	Wishlist       = "wishlist"
	AuthToken      = "auth_token"
	AuthUser       = "auth_user"
	AuthExpiration = "auth_expiration"
	Orders         = "orders"
)

// Namespaced prefixes key with namespace ("storefront:cart"). An empty namespace returns key unchanged,
// which keeps single-tenant stores byte-compatible with the bare key names.
func Namespaced(namespace, key string) string {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", namespace, key)
}

// QueryCacheKey prefixes a serialized catalog query so cache keys never collide with product keys.
func QueryCacheKey(serializedQuery string) string {
	return fmt.Sprintf("products:query:%s", serializedQuery)
}

// ProductCacheKey is the cache key for a single product lookup.
func ProductCacheKey(productID string) string {
	return fmt.Sprintf("products:id:%s", productID)
}
