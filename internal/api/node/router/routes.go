// Package router đăng ký các route thuộc domain Node: Register, Ping, Logout, Stats, History.
package router

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	nodehdl "fleet_platform/internal/api/node/handler"
	nodesvc "fleet_platform/internal/api/node/service"
	"fleet_platform/internal/api/middleware"
)

// Register đăng ký tất cả route node lên v1.
func Register(v1 fiber.Router, tokenService *nodesvc.NodeTokenService, notifier *nodesvc.NodeOfflineNotifier) error {
	nodeHandler, err := nodehdl.NewNodeHandler(tokenService, notifier)
	if err != nil {
		return fmt.Errorf("create node handler: %w", err)
	}

	nodeAuth := middleware.NodeAuthMiddleware(tokenService)

	group := v1.Group("/node")
	group.Post("/register", nodeHandler.HandleRegister)
	group.Post("/ping", nodeHandler.HandlePing, nodeAuth)
	group.Post("/logout", nodeHandler.HandleLogout, nodeAuth)
	group.Get("/stats", nodeHandler.HandleStats)
	group.Get("/history/:nodeId", nodeHandler.HandleHistory)

	return nil
}
