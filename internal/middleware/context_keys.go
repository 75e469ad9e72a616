package middleware

import "github.com/gin-gonic/gin"

// userIDKey is the key used to store the authenticated owner's ID in the request context.
const userIDKey = contextKey("userID")

// roleKey holds the role claim of the authenticated caller.
const roleKey = contextKey("role")

// RoleAdmin is the role claim allowed to cancel, reverse and resolve entries.
const RoleAdmin = "admin"

// GetUserIDFromContext retrieves the authenticated user ID from the Gin context.
// It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	if userIDVal, exists := c.Get(string(userIDKey)); exists {
		userID, ok := userIDVal.(string)
		return userID, ok && userID != ""
	}
	// check in the request context as well
	userID, ok := c.Request.Context().Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// GetRoleFromContext returns the caller's role claim, empty when none.
func GetRoleFromContext(c *gin.Context) string {
	role, _ := c.Request.Context().Value(roleKey).(string)
	return role
}
