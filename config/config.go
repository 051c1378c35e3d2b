package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Configuration chứa thông tin tĩnh cần thiết để chạy ứng dụng.
// Nó chứa thông tin cơ sở dữ liệu, cấu hình server và cấu hình các background worker.
type Configuration struct {
	Address               string `env:"ADDRESS" envDefault:"8080"`                 // Địa chỉ server (port)
	JwtSecret             string `env:"JWT_SECRET,required"`                       // Bí mật JWT cho node token
	MongoDB_ConnectionURI string `env:"MONGODB_CONNECTION_URI,required"`           // URL kết nối cơ sở dữ liệu
	MongoDB_DBName_Fleet  string `env:"MONGODB_DBNAME_FLEET,required"`             // Tên cơ sở dữ liệu fleet
	CORS_Origins          string `env:"CORS_ORIGINS" envDefault:"*"`               // Các origins được phép (phân cách bởi dấu phẩy, * = tất cả)
	CORS_AllowCredentials bool   `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"` // Cho phép gửi credentials
	RateLimit_Max         int    `env:"RATE_LIMIT_MAX" envDefault:"100"`           // Số request tối đa trong window (0 = disable rate limit)
	RateLimit_Window      int    `env:"RATE_LIMIT_WINDOW" envDefault:"60"`         // Thời gian window (giây)
	RateLimit_Enabled     bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`      // Bật/tắt rate limiting

	// Node Online Worker (quét session hết hạn)
	SessionTimeoutSeconds int `env:"SESSION_TIMEOUT_SECONDS" envDefault:"600"` // Session không heartbeat quá số giây này thì hết hạn; 0 = tắt worker
	SweepIntervalMs       int `env:"SWEEP_INTERVAL_MS" envDefault:"30000"`     // Chu kỳ quét session (ms)
	SweepInitialDelayMs   int `env:"SWEEP_INITIAL_DELAY_MS" envDefault:"5000"` // Delay trước lần quét đầu tiên (ms)

	// Node Stat Worker (tổng hợp thống kê theo dimension)
	StatsIntervalMs     int `env:"STATS_INTERVAL_MS" envDefault:"600000"`    // Chu kỳ tổng hợp thống kê (ms)
	StatsInitialDelayMs int `env:"STATS_INITIAL_DELAY_MS" envDefault:"5000"` // Delay trước lần tổng hợp đầu tiên (ms)

	// Alarm (cảnh báo node offline qua webhook)
	AlarmThrottleSeconds int `env:"ALARM_THROTTLE_SECONDS" envDefault:"300"` // Thời gian throttle giữa 2 alarm cùng (category, webhook)

	// TLS/HTTPS Configuration
	EnableTLS   bool   `env:"ENABLE_TLS" envDefault:"false"` // Bật HTTPS
	TLSCertFile string `env:"TLS_CERT_FILE"`                 // Đường dẫn đến file certificate (.crt hoặc .pem)
	TLSKeyFile  string `env:"TLS_KEY_FILE"`                  // Đường dẫn đến file private key (.key)
}

// getEnvPath trả về đường dẫn đến file env dựa trên môi trường
func getEnvPath() string {
	// Mặc định sử dụng môi trường development
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Tìm thư mục config
	currentDir, err := os.Getwd()
	if err != nil {
		// Sử dụng fmt.Printf vì logger có thể chưa được init ở đây
		fmt.Printf("Không thể lấy được thư mục hiện tại: %v\n", err)
		return ""
	}

	// Tìm thư mục config/env
	for {
		envDir := filepath.Join(currentDir, "config", "env")
		if _, err := os.Stat(envDir); err == nil {
			// Tìm thấy thư mục config/env
			envPath := filepath.Join(envDir, fmt.Sprintf("%s.env", env))
			return envPath
		}

		// Đi lên thư mục cha
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return ""
		}
		currentDir = parentDir
	}
}

// NewConfig sẽ đọc dữ liệu cấu hình từ file env được cung cấp
func NewConfig(files ...string) *Configuration {
	envPath := getEnvPath()
	if envPath == "" {
		// Sử dụng fmt.Printf vì logger có thể chưa được init ở đây
		fmt.Printf("Không tìm thấy thư mục config/env\n")
		return nil
	}

	err := godotenv.Load(envPath)
	if err != nil {
		// Sử dụng fmt.Printf vì logger có thể chưa được init ở đây
		fmt.Printf("Không thể load file env tại %s: %v\n", envPath, err)
		return nil
	}

	cfg := Configuration{}
	err = env.Parse(&cfg)
	if err != nil {
		fmt.Printf("Lỗi khi parse config: %+v\n", err)
		return nil
	}

	return &cfg
}
