package bot

import (
	"context"
	"fmt"
	"strings"

	"itsm-text-bot/internal/logger"
	"itsm-text-bot/internal/session"
)

func cbSearch(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)
	rc.removeInbound(ctx)

	rc.Sessions.Enter(rc.Ev.UserID, session.FlowSearchByNumber, "")
	rc.replyKb(ctx, rc.Texts.EnterIssueNumber, kbCancel())
	return nil
}

func msgSearchNumber(ctx context.Context, rc *Ctx) error {
	uid := rc.Ev.UserID

	number := strings.TrimSpace(rc.Ev.Text)
	if number == "" {
		rc.replyKb(ctx, rc.Texts.EnterIssueNumber, kbCancel())
		return nil
	}

	epoch := rc.Sessions.Get(uid).Epoch
	ticket, raw, err := rc.Itsm.FindTicket(ctx, uid, number)
	if !rc.Sessions.Fresh(uid, epoch) {
		return nil
	}

	rc.Sessions.Clear(uid)

	switch {
	case err != nil:
		logger.Warning("Ошибка поиска заявки", number, ":", err)
		rc.reply(ctx, fmt.Sprintf(rc.Texts.IssueNotFound, number))
	case ticket != nil:
		rc.showTicket(ctx, ticket)
	case raw != "":
		// текстовая диагностика бэкенда, показываем как есть
		rc.reply(ctx, raw)
	default:
		rc.reply(ctx, fmt.Sprintf(rc.Texts.IssueNotFound, number))
	}
	return nil
}

// карточка заявки из списка: show_sc$<номер>
func cbShowSc(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)
	if rc.Arg == "" {
		return nil
	}

	ticket, raw, err := rc.Itsm.FindTicket(ctx, rc.Ev.UserID, rc.Arg)
	switch {
	case err != nil:
		logger.Warning("Ошибка поиска заявки", rc.Arg, ":", err)
		rc.reply(ctx, fmt.Sprintf(rc.Texts.IssueNotFound, rc.Arg))
	case ticket != nil:
		rc.showTicket(ctx, ticket)
	case raw != "":
		rc.reply(ctx, raw)
	default:
		rc.reply(ctx, fmt.Sprintf(rc.Texts.IssueNotFound, rc.Arg))
	}
	return nil
}
