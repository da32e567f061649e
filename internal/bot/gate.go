package bot

import (
	"context"

	"itsm-text-bot/internal/itsm"
	"itsm-text-bot/internal/logger"
	"itsm-text-bot/internal/session"
)

// gate решает, пускать ли событие к обработчикам: локальная блокировка,
// затем допуск по find_employee. Пользователь в сценарии регистрации
// проходит без запроса в ITSM - его там еще нет.
func (rc *Ctx) gate(ctx context.Context) bool {
	ev := &rc.Ev

	if err := rc.Users.UpsertUser(ctx, ev.UserID, ""); err != nil {
		logger.Warning("Не удалось сохранить пользователя", ev.UserID, ":", err)
	}
	if ev.Command != "" {
		rc.Users.RecordCommand(ctx, ev.UserID, ev.Command)
	}

	u, err := rc.Users.GetByTelegramID(ctx, ev.UserID)
	if err != nil {
		logger.Warning("Ошибка чтения пользователя", ev.UserID, ":", err)
	}
	if u != nil && u.IsBan {
		rc.ack(ctx)
		rc.reply(ctx, rc.Texts.AccessDenied)
		return false
	}

	if rc.Sessions.Get(ev.UserID).Flow == session.FlowRegistration {
		return true
	}

	empl, verdict := rc.Itsm.FindEmployee(ctx, ev.UserID)
	switch verdict {
	case itsm.VerdictOK:
		rc.Employee = empl
		return true
	case itsm.VerdictAuthRequired:
		rc.ack(ctx)
		rc.startRegistration(ctx)
		return false
	case itsm.VerdictForbidden:
		rc.ack(ctx)
		rc.reply(ctx, rc.Texts.RegistrationPending)
		return false
	case itsm.VerdictEmpty:
		rc.ack(ctx)
		rc.reply(ctx, rc.Texts.ItsmEmptyResponse)
		return false
	default:
		rc.ack(ctx)
		rc.reply(ctx, rc.Texts.TryLater)
		return false
	}
}
