package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware/auth.go keys)
	FieldUserID   = "user_id"
	FieldUsername = "username"
	FieldRole     = "role"

	// Real-time
	FieldConnID   = "conn_id"
	FieldRecipeID = "recipe_id"
	FieldEvent    = "event"
	FieldMembers  = "members"

	// Notifications
	FieldNotificationID   = "notification_id"
	FieldNotificationType = "notification_type"
	FieldDelivered        = "delivered"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
