package middleware

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	permcheck_errors "github.com/dev-mohitbeniwal/permcheck/errors"
	logger "github.com/dev-mohitbeniwal/permcheck/logging"
	"github.com/dev-mohitbeniwal/permcheck/util"
)

// GroupClaims are the bearer token claims the API accepts.
type GroupClaims struct {
	jwt.RegisteredClaims
	Groups   []string `json:"groups"`
	Username string   `json:"username,omitempty"`
}

// GroupAuthMiddleware admits requests carrying an HS256 bearer token signed
// with secret whose groups claim contains one of requiredGroups.
func GroupAuthMiddleware(secret []byte, requiredGroups []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			logger.Warn("No Authorization token provided", zap.String("path", c.Request.URL.Path))
			util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", permcheck_errors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := parseToken(strings.TrimPrefix(tokenString, "Bearer "), secret)
		if err != nil {
			logger.Warn("Rejected bearer token", zap.Error(err))
			util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", fmt.Errorf("%w: %v", permcheck_errors.ErrUnauthorized, err))
			c.Abort()
			return
		}

		if !isUserInGroups(claims, requiredGroups) {
			logger.Warn("User does not have the required groups",
				zap.String("sub", claims.Subject),
				zap.Strings("groups", claims.Groups))
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			c.Abort()
			return
		}

		c.Set(util.ContextUserID, claims.Subject)
		c.Set("requestingUser", claims.Username)
		c.Next()
	}
}

func parseToken(tokenString string, secret []byte) (*GroupClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &GroupClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*GroupClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token or wrong claims type")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

func isUserInGroups(claims *GroupClaims, requiredGroups []string) bool {
	for _, group := range requiredGroups {
		if slices.Contains(claims.Groups, group) {
			return true
		}
	}
	return false
}
