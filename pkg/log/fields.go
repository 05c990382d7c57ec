package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor
	FieldUserID = "user_id"

	// Broadcast domain
	FieldBroadcastID = "broadcast_id"
	FieldListenerID  = "listener_id"
	FieldClientID    = "client_id"
	FieldAction      = "action"

	// Service
	FieldService = "service"
)
