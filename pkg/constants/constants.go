package constants

type ContextKey string

const (
	PoolKey      ContextKey = "pool"
	TxKey        ContextKey = "tx"
	LoggerKey    ContextKey = "logger"
	OpContextKey ContextKey = "op_context"
	RequestIDKey ContextKey = "request_id"
)
