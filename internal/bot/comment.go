package bot

import (
	"context"
	"strings"

	"itsm-text-bot/internal/gateway"
	"itsm-text-bot/internal/itsm"
	"itsm-text-bot/internal/logger"
	"itsm-text-bot/internal/session"
)

// комментарий к заявке из карточки: reply$<номер>
func cbReply(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)
	if rc.Arg == "" {
		return nil
	}

	uid := rc.Ev.UserID
	st := rc.Sessions.Enter(uid, session.FlowCreateComment, "")
	st.Scratch.ScNumber = rc.Arg
	if err := rc.Sessions.Put(uid, st); err != nil {
		return err
	}

	rc.replyKb(ctx, rc.Texts.EnterComment, kbCancel())
	return nil
}

func msgCommentContent(ctx context.Context, rc *Ctx) error {
	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)

	prepared := rc.Texts.CommentPrepared

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
		prepared = rc.Texts.FilePrepared
	}

	if text := strings.TrimSpace(rc.Ev.Text); text != "" {
		st.Scratch.Comment = text
	}

	rc.Sessions.Put(uid, st)

	kb := gateway.Keyboard{gateway.Row(cancelBtn(), gateway.Button{Text: "Отправить", Data: "send_comment"})}
	rc.replyKb(ctx, prepared, kb)
	return nil
}

func cbSendComment(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)

	if st.Scratch.Comment == "" && len(st.Scratch.Files) == 0 {
		rc.replyKb(ctx, rc.Texts.EmptyComment, kbCancel())
		return nil
	}

	rc.reply(ctx, rc.Texts.CommentSending)

	epoch := st.Epoch
	err := rc.Itsm.AddComment(ctx, uid, st.Scratch.ScNumber, st.Scratch.Comment, st.Scratch.Files)
	if !rc.Sessions.Fresh(uid, epoch) {
		return nil
	}

	if err != nil {
		logger.Warning("Не удалось добавить комментарий к", st.Scratch.ScNumber, ":", err)
		rc.reply(ctx, rc.Texts.ItsmError)
		rc.Sessions.Clear(uid)
		return nil
	}

	rc.removeInbound(ctx)
	rc.reply(ctx, rc.Texts.CommentAdded)
	rc.Sessions.Clear(uid)
	return nil
}
