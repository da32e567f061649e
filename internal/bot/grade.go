package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"itsm-text-bot/internal/gateway"
	"itsm-text-bot/internal/logger"
	"itsm-text-bot/internal/session"
)

// с оценкой ниже этой комментарий обязателен
const gradeCommentRequired = 2

func gradeSendKb() gateway.Keyboard {
	return gateway.Keyboard{
		gateway.Row(cancelBtn(), gateway.Button{Text: "Отправить", Data: "send_confirm"}),
	}
}

// оценка из карточки заявки: confirm_sc$<номер>$<оценка>
func cbGradeCapture(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	parts := strings.SplitN(rc.Arg, "$", 2)
	if len(parts) != 2 {
		return nil
	}
	mark, err := strconv.Atoi(parts[1])
	if err != nil || mark < 0 || mark > 5 {
		return nil
	}

	uid := rc.Ev.UserID
	st := rc.Sessions.Enter(uid, session.FlowConfirmGrade, "")
	st.Scratch.ScNumber = parts[0]
	st.Scratch.Grade = &mark

	if mark <= gradeCommentRequired {
		st.Step = "comment"
		rc.Sessions.Put(uid, st)
		rc.replyKb(ctx, fmt.Sprintf(rc.Texts.CommentMandatory, mark), kbCancel())
		return nil
	}

	rc.Sessions.Put(uid, st)

	kb := gateway.Keyboard{
		gateway.Row(gateway.Button{Text: "Добавить комментарий", Data: "add_confirm_comment"}),
		gateway.Row(cancelBtn(), gateway.Button{Text: "Отправить", Data: "send_confirm"}),
	}
	rc.replyKb(ctx, fmt.Sprintf(rc.Texts.YourGrade, mark), kb)
	return nil
}

func cbAddGradeComment(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)
	st.Step = "comment"
	rc.Sessions.Put(uid, st)

	rc.replyKb(ctx, rc.Texts.EnterComment, kbCancel())
	return nil
}

func msgGradeComment(ctx context.Context, rc *Ctx) error {
	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)

	if st.Scratch.Grade == nil {
		rc.Sessions.Clear(uid)
		return nil
	}

	text := strings.TrimSpace(rc.Ev.Text)
	if text == "" {
		rc.replyKb(ctx, rc.Texts.EmptyComment, kbCancel())
		return nil
	}

	st.Scratch.Comment = text
	st.Step = ""
	rc.Sessions.Put(uid, st)

	msg := fmt.Sprintf(rc.Texts.YourGrade, *st.Scratch.Grade) + "\n" + rc.Texts.CommentPrepared
	rc.replyKb(ctx, msg, gradeSendKb())
	return nil
}

func cbGradeSend(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)

	if st.Scratch.Grade == nil {
		rc.Sessions.Clear(uid)
		return nil
	}
	mark := *st.Scratch.Grade

	// низкую оценку без комментария не отправляем
	if mark <= gradeCommentRequired && strings.TrimSpace(st.Scratch.Comment) == "" {
		rc.replyKb(ctx, fmt.Sprintf(rc.Texts.CommentMandatory, mark), kbCancel())
		return nil
	}

	epoch := st.Epoch
	err := rc.Itsm.ConfirmTicket(ctx, uid, st.Scratch.ScNumber, mark, st.Scratch.Comment)
	if !rc.Sessions.Fresh(uid, epoch) {
		return nil
	}

	if err != nil {
		logger.Warning("Не удалось отправить оценку по", st.Scratch.ScNumber, ":", err)
		rc.reply(ctx, rc.Texts.GradeSendFail)
		rc.Sessions.Clear(uid)
		return nil
	}

	rc.removeInbound(ctx)
	rc.reply(ctx, rc.Texts.GradeSent)
	rc.Sessions.Clear(uid)
	return nil
}
