package nodedto

// NodeRegisterInput là input khi node đăng ký / khởi động lại
type NodeRegisterInput struct {
	NodeID         string `json:"nodeId" validate:"required,no_xss"`
	Name           string `json:"name" validate:"omitempty,no_xss"`
	Category       string `json:"category" validate:"omitempty,no_xss"`
	WebHook        string `json:"webHook" validate:"omitempty,url"`
	AlarmOnOffline bool   `json:"alarmOnOffline"`
	OSKind         string `json:"osKind" validate:"omitempty,no_xss"`
	ProductCode    string `json:"productCode" validate:"omitempty,no_xss"`
	Version        string `json:"version" validate:"omitempty,no_xss"`
	Runtime        string `json:"runtime" validate:"omitempty,no_xss"`
	Framework      string `json:"framework" validate:"omitempty,no_xss"`
	CityID         int32  `json:"cityId"`
	Architecture   string `json:"architecture" validate:"omitempty,no_xss"`
}

// NodeRegisterResponse trả về token phiên cho node vừa đăng ký
type NodeRegisterResponse struct {
	NodeID    string `json:"nodeId"`
	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
}

// NodePingResponse trả về mốc server nhận heartbeat
type NodePingResponse struct {
	NodeID     string `json:"nodeId"`
	ServerTime int64  `json:"serverTime"`
}

// NodeStatsQuery là query param khi truy vấn thống kê theo ngày
type NodeStatsQuery struct {
	Date string `query:"date" validate:"omitempty,stat_date"`
}
