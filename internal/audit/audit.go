package audit

import (
	"context"

	"github.com/weiawesome/wes-cook-live/pkg/log"
)

// Audit actions for the live cooking rooms.
const (
	ActionAuth         = "cook.auth"
	ActionAuthFailed   = "cook.auth_failed"
	ActionJoinRoom     = "cook.join_room"
	ActionLeaveRoom    = "cook.leave_room"
	ActionCookingStep  = "cook.cooking_step"
	ActionChatMessage  = "cook.chat_message"
	ActionDisconnect   = "cook.disconnect"
	ActionNotify       = "cook.notify"
	ActionSessionStart = "cook.session_start"
	ActionSessionEnd   = "cook.session_end"
	ActionChefRequest  = "cook.chef_request"
	ActionChefDecision = "cook.chef_decision"
	ActionMarkRead     = "cook.notification_read"
	ActionRecipeCreate = "cook.recipe_create"
	ActionRecipeUpdate = "cook.recipe_update"
	ActionRecipeDelete = "cook.recipe_delete"
	ActionCommentDel   = "cook.comment_delete"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithTarget emits an audit entry about an action on targetID, typically
// a recipe room or another user.
func LogWithTarget(ctx context.Context, action, userID, targetID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldTargetID, targetID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, userID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
