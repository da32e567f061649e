package bot

import (
	"context"
	"fmt"
	"strings"

	"itsm-text-bot/internal/gateway"
	"itsm-text-bot/internal/logger"
	"itsm-text-bot/internal/session"
)

func (rc *Ctx) isAdmin(ctx context.Context) bool {
	u, err := rc.Users.GetByTelegramID(ctx, rc.Ev.UserID)
	if err != nil {
		logger.Warning("Ошибка чтения пользователя", rc.Ev.UserID, ":", err)
		return false
	}
	return u != nil && u.IsAdmin
}

func cmdAdmin(ctx context.Context, rc *Ctx) error {
	if !rc.isAdmin(ctx) {
		rc.reply(ctx, rc.Texts.AccessDenied)
		return nil
	}

	kb := gateway.Keyboard{
		gateway.Row(gateway.Button{Text: "Назначить админа", Data: "admin_assign"}),
		gateway.Row(cancelBtn()),
	}
	rc.replyKb(ctx, rc.Texts.AdminMenu, kb)
	return nil
}

func cbAdminAssign(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	if !rc.isAdmin(ctx) {
		rc.reply(ctx, rc.Texts.AccessDenied)
		return nil
	}

	rc.removeInbound(ctx)
	rc.Sessions.Enter(rc.Ev.UserID, session.FlowAdmin, "phone")
	rc.replyKb(ctx, rc.Texts.EnterPhoneForAdmin, kbCancel())
	return nil
}

// поиск пользователя по номеру телефона
func msgAdminPhone(ctx context.Context, rc *Ctx) error {
	uid := rc.Ev.UserID

	phone := strings.TrimSpace(rc.Ev.Text)
	if phone == "" {
		rc.replyKb(ctx, rc.Texts.EnterPhoneForAdmin, kbCancel())
		return nil
	}

	u, err := rc.Users.GetByPhone(ctx, phone)
	if err != nil {
		return err
	}
	if u == nil {
		rc.replyKb(ctx, rc.Texts.UserNotFoundByPhone, kbCancel())
		return nil
	}

	st := rc.Sessions.Get(uid)
	st.Scratch.Phone = phone
	st.Step = "confirm"
	rc.Sessions.Put(uid, st)

	info := fmt.Sprintf("Пользователь: %s (id %d)\nНазначить администратором?", u.Username, u.TelegramID)
	kb := gateway.Keyboard{
		gateway.Row(cancelBtn(), gateway.Button{Text: "Да", Data: "admin_confirm"}),
	}
	rc.replyKb(ctx, info, kb)
	return nil
}

func cbAdminConfirm(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)

	u, err := rc.Users.GetByPhone(ctx, st.Scratch.Phone)
	if err != nil {
		return err
	}
	if u == nil {
		rc.reply(ctx, rc.Texts.UserNotFoundByPhone)
		rc.Sessions.Clear(uid)
		return nil
	}

	if err := rc.Users.SetAdmin(ctx, u.TelegramID, true); err != nil {
		return err
	}

	rc.removeInbound(ctx)
	rc.reply(ctx, rc.Texts.AdminGranted)
	rc.Sessions.Clear(uid)
	return nil
}

// привязка своего номера телефона

func cmdPhone(ctx context.Context, rc *Ctx) error {
	rc.reply(ctx, rc.Texts.PhonePrompt)
	return nil
}

func handleContact(ctx context.Context, rc *Ctx) error {
	if err := rc.Users.UpdatePhone(ctx, rc.Ev.UserID, rc.Ev.Contact); err != nil {
		return err
	}
	rc.reply(ctx, rc.Texts.PhoneSaved)
	return nil
}
