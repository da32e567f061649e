package bot

import (
	"context"
	"net/http"

	"itsm-text-bot/internal/gateway"
	"itsm-text-bot/internal/logger"

	"github.com/gin-gonic/gin"
)

func InitRoutes(app *gin.Engine, d *Deps) {
	app.POST("/bot/events/", d.Receive)
}

// Receive принимает событие от платформы сообщений. Обработка уходит
// в отдельную горутину, webhook отвечает сразу.
func (d *Deps) Receive(c *gin.Context) {
	var ev gateway.Event
	if err := c.BindJSON(&ev); err != nil {
		logger.Warning("Некорректное событие:", err)
		c.Status(http.StatusBadRequest)
		return
	}

	go d.Process(context.Background(), ev)
	c.Status(http.StatusOK)
}

func (d *Deps) Process(ctx context.Context, ev gateway.Event) {
	rc := &Ctx{Deps: d, Ev: ev}

	if !rc.gate(ctx) {
		return
	}

	st := d.Sessions.Get(ev.UserID)
	if err := d.router.Dispatch(ctx, rc, st); err != nil {
		logger.Warning("Ошибка обработки события пользователя", ev.UserID, ":", err)
		rc.reply(ctx, d.Texts.ItsmError)
	}
}
