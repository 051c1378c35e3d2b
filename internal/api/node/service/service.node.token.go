package nodesvc

import (
	"time"

	jwt "github.com/dgrijalva/jwt-go"

	"fleet_platform/internal/common"
)

// NodeTokenService phát hành và kiểm tra token phiên của node
type NodeTokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewNodeTokenService tạo mới NodeTokenService.
// ttl <= 0 dùng mặc định 24 giờ.
func NewNodeTokenService(secret string, ttl time.Duration) *NodeTokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &NodeTokenService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Generate phát hành token HS256 chứa định danh node và session
func (s *NodeTokenService) Generate(nodeId string, sessionId string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"nodeId":    nodeId,
		"sessionId": sessionId,
		"iat":       now.Unix(),
		"exp":       now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse kiểm tra token và trả về (nodeId, sessionId)
func (s *NodeTokenService) Parse(tokenString string) (string, string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrTokenInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if validationErr, ok := err.(*jwt.ValidationError); ok && validationErr.Errors&jwt.ValidationErrorExpired != 0 {
			return "", "", common.ErrTokenExpired
		}
		return "", "", common.ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", common.ErrTokenInvalid
	}

	nodeId, _ := claims["nodeId"].(string)
	sessionId, _ := claims["sessionId"].(string)
	if nodeId == "" || sessionId == "" {
		return "", "", common.ErrTokenInvalid
	}
	return nodeId, sessionId, nil
}
