package bot

import (
	"context"
	"fmt"
	"strings"

	"itsm-text-bot/internal/gateway"
	"itsm-text-bot/internal/logger"
	"itsm-text-bot/internal/session"
)

const statePostponed = "postponed"

// минимальная длина комментария при переносе заявки
const minDeferComment = 5

// список доступных статусов: show_state$<номер>
func cbShowState(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)
	if rc.Arg == "" {
		return nil
	}

	ticket, _, err := rc.Itsm.FindTicket(ctx, rc.Ev.UserID, rc.Arg)
	if err != nil || ticket == nil {
		rc.reply(ctx, fmt.Sprintf(rc.Texts.IssueNotFound, rc.Arg))
		return nil
	}

	var kb gateway.Keyboard
	for _, s := range ticket.NewStates {
		kb = append(kb, gateway.Row(gateway.Button{
			Text: stateTitle(s),
			Data: "ch_st_" + ticket.Number + "$" + s,
		}))
	}
	kb = append(kb, gateway.Row(gateway.Button{Text: "Скрыть", Data: "del_message"}))

	rc.replyKb(ctx, "Выберите новый статус заявки №"+ticket.Number, kb)
	return nil
}

// смена статуса: ch_st_<номер>$<статус>. Перенос заявки идет через
// отдельный сценарий с комментарием и датой, остальные статусы
// применяются сразу.
func cbChangeState(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	parts := strings.SplitN(rc.Arg, "$", 2)
	if len(parts) != 2 {
		return nil
	}
	number, newState := parts[0], parts[1]
	uid := rc.Ev.UserID

	if newState == statePostponed {
		st := rc.Sessions.Enter(uid, session.FlowChangeStatus, "comment")
		st.Scratch.ScNumber = number
		st.Scratch.NewState = newState
		rc.Sessions.Put(uid, st)

		rc.replyKb(ctx, rc.Texts.EnterDeferComment, kbCancel())
		return nil
	}

	if err := rc.Itsm.ChangeState(ctx, uid, number, newState); err != nil {
		logger.Warning("Не удалось сменить статус", number, ":", err)
		// карточка заявки остается на месте, можно повторить
		rc.reply(ctx, rc.Texts.StateChangeError)
		return nil
	}

	rc.removeInbound(ctx)
	rc.reply(ctx, rc.Texts.StateChanged)
	return nil
}

func msgStatusComment(ctx context.Context, rc *Ctx) error {
	uid := rc.Ev.UserID

	text := strings.TrimSpace(rc.Ev.Text)
	if text == "" {
		rc.replyKb(ctx, rc.Texts.EmptyComment, kbCancel())
		return nil
	}
	if len([]rune(text)) < minDeferComment {
		rc.replyKb(ctx, rc.Texts.ShortComment, kbCancel())
		return nil
	}

	st := rc.Sessions.Get(uid)
	st.Scratch.Comment = text
	st.Step = "date"
	rc.Sessions.Put(uid, st)

	rc.replyKb(ctx, rc.Texts.EnterDeferDate, dateKeyboard("calendar"))
	return nil
}

func msgStatusDate(ctx context.Context, rc *Ctx) error {
	return rc.statusDate(ctx, rc.Ev.Text)
}

func cbStatusDate(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)
	return rc.statusDate(ctx, rc.Arg)
}

func (rc *Ctx) statusDate(ctx context.Context, raw string) error {
	uid := rc.Ev.UserID

	t, err := ParseUserDate(raw)
	if err != nil {
		rc.replyKb(ctx, rc.Texts.BadDate, dateKeyboard("calendar"))
		return nil
	}
	if InPast(t) {
		rc.replyKb(ctx, rc.Texts.PastDate, dateKeyboard("calendar"))
		return nil
	}

	st := rc.Sessions.Get(uid)
	st.Scratch.NewDate = t.Format("02.01.2006")
	st.Step = "confirm"
	rc.Sessions.Put(uid, st)

	summary := fmt.Sprintf("Заявка №%s будет отложена до %s\nКомментарий: %s",
		st.Scratch.ScNumber, st.Scratch.NewDate, st.Scratch.Comment)

	kb := gateway.Keyboard{
		gateway.Row(gateway.Button{Text: "Назад", Data: "status_back"}),
		gateway.Row(cancelBtn(), gateway.Button{Text: "Подтвердить", Data: "confirm_status"}),
	}
	rc.replyKb(ctx, summary+"\n"+rc.Texts.ConfirmChange, kb)
	return nil
}

func cbStatusBack(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)
	rc.removeInbound(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)

	switch st.Step {
	case "confirm":
		st.Step = "date"
		rc.Sessions.Put(uid, st)
		rc.replyKb(ctx, rc.Texts.EnterDeferDate, dateKeyboard("calendar"))
	case "date":
		st.Step = "comment"
		rc.Sessions.Put(uid, st)
		rc.replyKb(ctx, rc.Texts.EnterDeferComment, kbCancel())
	}
	return nil
}

func cbStatusConfirm(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)
	if st.Scratch.ScNumber == "" {
		rc.Sessions.Clear(uid)
		return nil
	}

	epoch := st.Epoch
	err := rc.Itsm.ChangeStateWithComment(ctx, uid,
		st.Scratch.ScNumber, st.Scratch.NewState, st.Scratch.NewDate, st.Scratch.Comment)
	if !rc.Sessions.Fresh(uid, epoch) {
		return nil
	}

	if err != nil {
		logger.Warning("Не удалось отложить заявку", st.Scratch.ScNumber, ":", err)
		// данные сценария не трогаем, подтверждение можно повторить
		rc.reply(ctx, rc.Texts.StateChangeError)
		return nil
	}

	rc.removeInbound(ctx)
	rc.reply(ctx, rc.Texts.StateChanged)
	rc.Sessions.Clear(uid)
	return nil
}
