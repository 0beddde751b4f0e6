package util

// RequestIDKey gin.Context 中请求 ID 的键
const RequestIDKey = "request_id"

// RequestIDHeader 请求 ID 响应头
const RequestIDHeader = "X-Request-ID"

const (
	CSVFileName  = "step2hub_logs.csv"
	XLSXFileName = "step2hub_logs.xlsx"
)
