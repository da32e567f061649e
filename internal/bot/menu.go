package bot

import (
	"context"

	"itsm-text-bot/internal/gateway"
	"itsm-text-bot/internal/logger"
	"itsm-text-bot/internal/session"
)

func (rc *Ctx) mainMenu() gateway.Keyboard {
	kb := gateway.Keyboard{
		gateway.Row(gateway.Button{Text: "Заявки в моей ответственности", Data: "responsibility_scs_client"}),
		gateway.Row(gateway.Button{Text: "Мои заявки", Data: "scs_client"}),
		gateway.Row(gateway.Button{Text: "Поиск заявки по номеру", Data: "scs_search"}),
		gateway.Row(gateway.Button{Text: "Создать заявку", Data: "create_issue"}),
	}

	if rc.Employee != nil && rc.Employee.Marketing {
		kb = append(kb, gateway.Row(gateway.Button{Text: "Маркетинговая заявка", Data: "marketing_request"}))
	}
	return kb
}

func handleStart(ctx context.Context, rc *Ctx) error {
	rc.Sessions.Clear(rc.Ev.UserID)

	kb := gateway.Keyboard{gateway.Row(gateway.Button{Text: "Меню", Data: "menu"})}
	rc.replyKb(ctx, rc.Texts.StartGreetings+"\n"+rc.Texts.GoToMainMenu, kb)
	return nil
}

// handleMenu показывает главное меню и сбрасывает активный сценарий
func handleMenu(ctx context.Context, rc *Ctx) error {
	if rc.Ev.IsCallback() {
		rc.ack(ctx)
		rc.removeInbound(ctx)
	}

	rc.Sessions.Clear(rc.Ev.UserID)
	rc.replyKb(ctx, rc.Texts.ChooseMenuItem, rc.mainMenu())
	return nil
}

func handleCancel(ctx context.Context, rc *Ctx) error {
	st := rc.Sessions.Get(rc.Ev.UserID)

	if rc.Ev.IsCallback() {
		rc.ack(ctx)
		rc.removeInbound(ctx)
	}

	rc.Sessions.Clear(rc.Ev.UserID)

	if st.Flow == session.FlowRegistration {
		rc.reply(ctx, rc.Texts.RegistrationCanceled)
		return nil
	}
	rc.reply(ctx, rc.Texts.ActionsCanceled)
	return nil
}

func cbDelMessage(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)
	rc.removeInbound(ctx)
	return nil
}

// cbUnknown - callback, не подошедший ни под одно правило: кнопка от
// старого сообщения или нажатая посреди чужого сценария
func cbUnknown(ctx context.Context, rc *Ctx) error {
	logger.Debug("Неизвестный callback:", rc.Ev.Callback)
	rc.ack(ctx)
	return nil
}

func handleFallback(ctx context.Context, rc *Ctx) error {
	rc.reply(ctx, rc.Texts.CommandUnknown)
	return nil
}

// cmdCalendar повторно показывает выбор даты, если сценарий его ждет
func cmdCalendar(ctx context.Context, rc *Ctx) error {
	st := rc.Sessions.Get(rc.Ev.UserID)

	switch {
	case st.Flow == session.FlowChangeStatus && st.Step == "date":
		rc.replyKb(ctx, rc.Texts.EnterDeferDate, dateKeyboard("calendar"))
	case st.Flow == session.FlowMarketing && st.Step == "date":
		rc.replyKb(ctx, rc.Texts.MarketingChooseDate, dateKeyboard("calendar"))
	default:
		rc.reply(ctx, rc.Texts.CommandUnknown)
	}
	return nil
}

// согласование изменений по заявке

func cbAccept(ctx context.Context, rc *Ctx) error {
	return rc.vote(ctx, "accept", rc.Texts.Agreed)
}

func cbReject(ctx context.Context, rc *Ctx) error {
	return rc.vote(ctx, "reject", rc.Texts.Rejected)
}

func (rc *Ctx) vote(ctx context.Context, state, resultText string) error {
	rc.ack(ctx)
	if rc.Arg == "" {
		return nil
	}

	if err := rc.Itsm.Vote(ctx, rc.Ev.UserID, rc.Arg, state); err != nil {
		logger.Warning("Ошибка согласования", rc.Arg, ":", err)
		rc.reply(ctx, rc.Texts.AgreementError)
		return nil
	}

	rc.removeInbound(ctx)
	rc.reply(ctx, resultText)
	return nil
}
