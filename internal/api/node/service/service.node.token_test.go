package nodesvc

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet_platform/internal/common"
)

func TestNodeToken_PhatHanhVaKiemTra(t *testing.T) {
	svc := NewNodeTokenService("secret-test", time.Hour)

	token, err := svc.Generate("node-1", "68b1a2c3d4e5f60718293a4b")
	require.NoError(t, err, "Phát hành token phải thành công")
	require.NotEmpty(t, token)

	nodeId, sessionId, err := svc.Parse(token)
	require.NoError(t, err, "Token vừa phát hành phải parse được")
	assert.Equal(t, "node-1", nodeId)
	assert.Equal(t, "68b1a2c3d4e5f60718293a4b", sessionId)
}

func TestNodeToken_SaiSecretBiTuChoi(t *testing.T) {
	token, err := NewNodeTokenService("secret-a", time.Hour).Generate("node-1", "s1")
	require.NoError(t, err)

	_, _, err = NewNodeTokenService("secret-b", time.Hour).Parse(token)
	assert.True(t, errors.Is(err, common.ErrTokenInvalid), "Token ký bằng secret khác phải bị từ chối")
}

func TestNodeToken_HetHanBiTuChoi(t *testing.T) {
	svc := NewNodeTokenService("secret-test", -2*time.Hour)
	// ttl âm làm exp nằm trong quá khứ ngay khi phát hành
	token, err := func() (string, error) {
		s := &NodeTokenService{secret: []byte("secret-test"), ttl: -2 * time.Hour}
		return s.Generate("node-1", "s1")
	}()
	require.NoError(t, err)

	_, _, err = svc.Parse(token)
	assert.True(t, errors.Is(err, common.ErrTokenExpired), "Token hết hạn phải trả về ErrTokenExpired")
}
