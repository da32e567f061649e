package bot

import (
	"context"
	"strings"

	"itsm-text-bot/internal/gateway"
	"itsm-text-bot/internal/itsm"
	"itsm-text-bot/internal/logger"
	"itsm-text-bot/internal/pagecache"
	"itsm-text-bot/internal/session"
)

func cbCreateIssue(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)
	rc.removeInbound(ctx)

	rc.Sessions.Enter(rc.Ev.UserID, session.FlowCreateIssue, "")
	rc.replyKb(ctx, rc.Texts.EnterIssueDescription, kbCancel())
	return nil
}

// msgIssueContent пополняет черновик: текст заменяет описание,
// вложения накапливаются
func msgIssueContent(ctx context.Context, rc *Ctx) error {
	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)

	if rc.Ev.Attachment != nil {
		path, err := rc.Gw.DownloadFile(ctx, rc.Ev.Attachment.FileRef)
		if err != nil {
			logger.Warning("Не удалось скачать вложение:", err)
			rc.reply(ctx, rc.Texts.TryLater)
			return nil
		}
		st.Scratch.Files = append(st.Scratch.Files, itsm.FileRef{
			Path:     path,
			Filename: rc.Ev.Attachment.FileName,
		})
	}

	if text := strings.TrimSpace(rc.Ev.Text); text != "" {
		st.Scratch.Description = text
	}

	rc.Sessions.Put(uid, st)

	if st.Scratch.Description == "" {
		rc.replyKb(ctx, rc.Texts.EmptyIssueDescription, kbCancel())
		return nil
	}

	kb := gateway.Keyboard{gateway.Row(cancelBtn(), gateway.Button{Text: "Отправить", Data: "send_issue"})}
	rc.replyKb(ctx, rc.Texts.ReadyToSend, kb)
	return nil
}

func cbSendIssue(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)

	if st.Scratch.Description == "" {
		rc.replyKb(ctx, rc.Texts.EmptyIssueDescription, kbCancel())
		return nil
	}

	epoch := st.Epoch
	result, err := rc.Itsm.CreateTicket(ctx, rc.Employee.UUID, st.Scratch.Description, st.Scratch.Files)
	if !rc.Sessions.Fresh(uid, epoch) {
		// пользователь успел выйти из сценария
		return nil
	}

	if err != nil {
		logger.Warning("Не удалось создать заявку пользователя", uid, ":", err)
		rc.reply(ctx, rc.Texts.IssueCreationError)
		rc.Sessions.Clear(uid)
		return nil
	}

	// список "мои заявки" устарел
	rc.Lists.Delete(ctx, pagecache.TicketsKey(uid))

	rc.removeInbound(ctx)

	msg := rc.Texts.IssueCreated
	if result != "" {
		msg += "\n" + result
	}
	rc.reply(ctx, msg)
	rc.Sessions.Clear(uid)
	return nil
}
