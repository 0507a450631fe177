package sql

import (
	"go.uber.org/zap"

	"github.com/relaywire/pgreplicate/errkind"
)

// zapFields renders a NoticeResponse's fields for structured logging,
// per §7's "NoticeResponse is never an error: it is forwarded to the
// log callback at info level."
func zapFields(se *errkind.ServerError) []zap.Field {
	fields := []zap.Field{
		zap.String("severity", se.Severity),
		zap.String("code", string(se.Code)),
		zap.String("message", se.Message),
	}
	if se.Detail != "" {
		fields = append(fields, zap.String("detail", se.Detail))
	}
	if se.Hint != "" {
		fields = append(fields, zap.String("hint", se.Hint))
	}
	return fields
}
