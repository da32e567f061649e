package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"itsm-text-bot/internal/gateway"
	"itsm-text-bot/internal/itsm"
	"itsm-text-bot/internal/logger"
	"itsm-text-bot/internal/session"
)

// startRegistration вызывается из gate, когда ITSM не знает пользователя
func (rc *Ctx) startRegistration(ctx context.Context) {
	uid := rc.Ev.UserID

	st := rc.Sessions.Enter(uid, session.FlowRegistration, "telegram")
	st.Scratch.Telegram = strconv.FormatInt(uid, 10)
	rc.Sessions.Put(uid, st)

	text := rc.Texts.RegistrationRequired + "\nВаш идентификатор: " + st.Scratch.Telegram
	kb := gateway.Keyboard{
		gateway.Row(gateway.Button{Text: "Использовать этот идентификатор", Data: "reg_use_id"}),
		gateway.Row(cancelBtn()),
	}
	rc.replyKb(ctx, text, kb)
}

func cbRegUseID(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)
	st.Step = "fio"
	rc.Sessions.Put(uid, st)

	rc.removeInbound(ctx)
	rc.replyKb(ctx, rc.Texts.RegEnterFIO, kbCancel())
	return nil
}

// msgRegText последовательно собирает анкету
func msgRegText(ctx context.Context, rc *Ctx) error {
	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)

	text := strings.TrimSpace(rc.Ev.Text)
	if text == "" {
		rc.replyKb(ctx, rc.Texts.CommandUnknown, kbCancel())
		return nil
	}

	switch st.Step {
	case "telegram":
		st.Scratch.Telegram = text
		st.Step = "fio"
		rc.Sessions.Put(uid, st)
		rc.replyKb(ctx, rc.Texts.RegEnterFIO, kbCancel())
	case "fio":
		st.Scratch.FIO = text
		st.Step = "organization"
		rc.Sessions.Put(uid, st)
		rc.replyKb(ctx, rc.Texts.RegEnterOrganization, kbCancel())
	case "organization":
		st.Scratch.Organization = text
		st.Step = "subdivision"
		rc.Sessions.Put(uid, st)
		rc.replyKb(ctx, rc.Texts.RegEnterSubdivision, kbCancel())
	case "subdivision":
		st.Scratch.Subdivision = text
		st.Step = "position"
		rc.Sessions.Put(uid, st)
		rc.replyKb(ctx, rc.Texts.RegEnterPosition, kbCancel())
	case "position":
		st.Scratch.Position = text
		st.Step = "confirm"
		rc.Sessions.Put(uid, st)

		summary := fmt.Sprintf("%s\nФИО: %s\nОрганизация: %s\nПодразделение: %s\nДолжность: %s",
			rc.Texts.RegConfirm, st.Scratch.FIO, st.Scratch.Organization,
			st.Scratch.Subdivision, st.Scratch.Position)

		kb := gateway.Keyboard{
			gateway.Row(cancelBtn(), gateway.Button{Text: "Отправить", Data: "reg_submit"}),
		}
		rc.replyKb(ctx, summary, kb)
	}
	return nil
}

func cbRegSubmit(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)

	req := itsm.RegistrationRequest{
		Telegram:     st.Scratch.Telegram,
		FIO:          st.Scratch.FIO,
		Organization: st.Scratch.Organization,
		Subdivision:  st.Scratch.Subdivision,
		NamePosition: st.Scratch.Position,
	}

	if err := rc.Itsm.CreateRegistration(ctx, req); err != nil {
		logger.Warning("Не удалось отправить заявку на регистрацию", uid, ":", err)
		rc.reply(ctx, rc.Texts.RegistrationFailed)
		rc.Sessions.Clear(uid)
		return nil
	}

	rc.removeInbound(ctx)
	rc.reply(ctx, rc.Texts.RegistrationSuccess)
	rc.Sessions.Clear(uid)
	return nil
}
