// Package middleware chứa các middleware dùng chung cho API
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	basehdl "fleet_platform/internal/api/base/handler"
	nodesvc "fleet_platform/internal/api/node/service"
	"fleet_platform/internal/common"
)

// Các key lưu trong Locals sau khi xác thực token node
const (
	LocalNodeID    = "nodeId"
	LocalSessionID = "sessionId"
)

// NodeAuthMiddleware xác thực token phiên của node từ header Authorization.
// Token hợp lệ thì nodeId và sessionId được đưa vào Locals cho handler phía sau.
func NodeAuthMiddleware(tokens *nodesvc.NodeTokenService) fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return basehdl.HandleError(c, common.ErrTokenMissing)
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			return basehdl.HandleError(c, common.ErrTokenInvalid)
		}

		nodeId, sessionId, err := tokens.Parse(tokenString)
		if err != nil {
			return basehdl.HandleError(c, err)
		}

		c.Locals(LocalNodeID, nodeId)
		c.Locals(LocalSessionID, sessionId)
		return c.Next()
	}
}
