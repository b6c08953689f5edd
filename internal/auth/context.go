package auth

import "context"

type contextKey string

const (
	contextKeyTelegramID contextKey = "auth.telegram_id"
	contextKeyRole       contextKey = "auth.role"
	contextKeySubject    contextKey = "auth.subject"
)

// WithIdentity stores auth identity details in context.
func WithIdentity(ctx context.Context, telegramID int64, role Role, subject string) context.Context {
	ctx = context.WithValue(ctx, contextKeyTelegramID, telegramID)
	ctx = context.WithValue(ctx, contextKeyRole, role)
	ctx = context.WithValue(ctx, contextKeySubject, subject)
	return ctx
}

// TelegramIDFromContext extracts the caller's Telegram id from context.
func TelegramIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	value := ctx.Value(contextKeyTelegramID)
	if telegramID, ok := value.(int64); ok {
		return telegramID
	}
	return 0
}

// RoleFromContext extracts role from context.
func RoleFromContext(ctx context.Context) Role {
	if ctx == nil {
		return ""
	}
	value := ctx.Value(contextKeyRole)
	if role, ok := value.(Role); ok {
		return role
	}
	if role, ok := value.(string); ok {
		if normalized, valid := NormalizeRole(role); valid {
			return normalized
		}
	}
	return ""
}

// SubjectFromContext extracts subject from context.
func SubjectFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value := ctx.Value(contextKeySubject)
	if subject, ok := value.(string); ok {
		return subject
	}
	return ""
}
