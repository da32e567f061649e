package bot

import (
	"context"

	"itsm-text-bot/internal/config"
	"itsm-text-bot/internal/database"
	"itsm-text-bot/internal/gateway"
	"itsm-text-bot/internal/itsm"
	"itsm-text-bot/internal/logger"
	"itsm-text-bot/internal/pagecache"
	"itsm-text-bot/internal/session"
	"itsm-text-bot/internal/templates"
)

type (
	// Deps - зависимости бота, собираются один раз при старте
	Deps struct {
		Cnf      *config.Conf
		Gw       gateway.Gateway
		Itsm     *itsm.Client
		Lists    *pagecache.Cache
		Guard    *pagecache.Guard
		Sessions *session.Store
		Users    *database.Store
		Texts    *templates.Texts

		router *Router
	}

	// Ctx - контекст обработки одного события
	Ctx struct {
		*Deps

		Ev       gateway.Event
		Employee *itsm.Employee
		// аргумент callback после верба
		Arg string
	}
)

func NewDeps(cnf *config.Conf, gw gateway.Gateway, client *itsm.Client,
	lists *pagecache.Cache, sessions *session.Store, users *database.Store,
	texts *templates.Texts) *Deps {

	return &Deps{
		Cnf:      cnf,
		Gw:       gw,
		Itsm:     client,
		Lists:    lists,
		Guard:    pagecache.NewGuard(),
		Sessions: sessions,
		Users:    users,
		Texts:    texts,
		router:   buildRouter(),
	}
}

func (rc *Ctx) reply(ctx context.Context, text string) {
	rc.replyKb(ctx, text, nil)
}

func (rc *Ctx) replyKb(ctx context.Context, text string, kb gateway.Keyboard) {
	if _, err := rc.Gw.Send(ctx, rc.Ev.UserID, text, kb); err != nil {
		logger.Warning("Не удалось отправить сообщение пользователю", rc.Ev.UserID, ":", err)
	}
}

// ack подтверждает нажатие inline кнопки
func (rc *Ctx) ack(ctx context.Context) {
	if rc.Ev.CallbackID == "" {
		return
	}
	if err := rc.Gw.AckCallback(ctx, rc.Ev.CallbackID); err != nil {
		logger.Warning("Не удалось подтвердить callback:", err)
	}
}

// removeInbound удаляет сообщение, с которого пришло событие
// (обычно сообщение с нажатой кнопкой)
func (rc *Ctx) removeInbound(ctx context.Context) {
	if rc.Ev.MessageID == 0 {
		return
	}
	if err := rc.Gw.Delete(ctx, rc.Ev.UserID, rc.Ev.MessageID); err != nil {
		logger.Debug("Не удалось удалить сообщение", rc.Ev.MessageID, ":", err)
	}
}
