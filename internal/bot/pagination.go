package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"itsm-text-bot/internal/gateway"
	"itsm-text-bot/internal/itsm"
	"itsm-text-bot/internal/logger"
	"itsm-text-bot/internal/pagecache"
)

const pageSize = 10

// pageNav - кнопки перелистывания: предыдущая/следующая страница
// добавляются только если такая страница есть
func pageNav(verb string, page, total int) gateway.Keyboard {
	var row []gateway.Button

	if page > 0 {
		row = append(row, gateway.Button{Text: "⬅", Data: fmt.Sprintf("%s%d", verb, page-1)})
	}
	if (page+1)*pageSize < total {
		row = append(row, gateway.Button{Text: "➡", Data: fmt.Sprintf("%s%d", verb, page+1)})
	}

	if len(row) == 0 {
		return nil
	}
	return gateway.Keyboard{row}
}

// loadTickets забирает заявки по номерам и сериализует их для кеша.
// Недоступные заявки пропускаются.
func (rc *Ctx) loadTickets(ctx context.Context, numbers []string) []string {
	tickets := rc.Itsm.FindTickets(ctx, rc.Ev.UserID, numbers)

	items := make([]string, 0, len(tickets))
	for _, t := range tickets {
		if t == nil {
			continue
		}
		b, err := json.Marshal(t)
		if err != nil {
			continue
		}
		items = append(items, string(b))
	}
	return items
}

func (rc *Ctx) ticketPageKb(ctx context.Context, key string, page int, verb string) gateway.Keyboard {
	items := rc.Lists.Read(ctx, key, page, pageSize)

	var kb gateway.Keyboard
	for _, item := range items {
		var t itsm.TicketSummary
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			continue
		}
		kb = append(kb, gateway.Row(gateway.Button{
			Text: fmt.Sprintf("№%s %s", t.Number, t.ShortDescription),
			Data: "show_sc$" + t.Number,
		}))
	}

	kb = append(kb, pageNav(verb, page, rc.Lists.Len(ctx, key))...)
	kb = append(kb, gateway.Row(gateway.Button{Text: "Скрыть", Data: "delete_pagination"}))
	return kb
}

// "Мои заявки": загрузка в кеш при необходимости и первая страница
func cbMyTickets(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	key := pagecache.TicketsKey(uid)

	if !rc.Lists.Exists(ctx, key) {
		// повторное нажатие во время загрузки игнорируется
		if !rc.Guard.Begin(key) {
			return nil
		}
		defer rc.Guard.End(key)

		loadingID, _ := rc.Gw.Send(ctx, uid, rc.Texts.LoadingRequests, nil)

		items := rc.loadTickets(ctx, rc.Employee.ServiceCalls)
		rc.Lists.Set(ctx, key, items)

		if loadingID != 0 {
			rc.Gw.Delete(ctx, uid, loadingID)
		}
	}

	if rc.Lists.Len(ctx, key) == 0 {
		rc.reply(ctx, rc.Texts.NoCreatedIssues)
		return nil
	}

	rc.replyKb(ctx, rc.Texts.YourRequests, rc.ticketPageKb(ctx, key, 0, "sc_page_"))
	return nil
}

// "Заявки в моей ответственности"
func cbRespTickets(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	key := pagecache.ResponsibleKey(uid)

	if !rc.Lists.Exists(ctx, key) {
		if !rc.Guard.Begin(key) {
			return nil
		}
		defer rc.Guard.End(key)

		loadingID, _ := rc.Gw.Send(ctx, uid, rc.Texts.LoadingRequests, nil)

		numbers, err := rc.Itsm.ResponsibleTickets(ctx, uid)
		if err != nil {
			logger.Warning("Не удалось получить заявки в ответственности", uid, ":", err)
			if loadingID != 0 {
				rc.Gw.Delete(ctx, uid, loadingID)
			}
			rc.reply(ctx, rc.Texts.ItsmError)
			return nil
		}

		items := rc.loadTickets(ctx, numbers)
		rc.Lists.Set(ctx, key, items)

		if loadingID != 0 {
			rc.Gw.Delete(ctx, uid, loadingID)
		}
	}

	if rc.Lists.Len(ctx, key) == 0 {
		rc.reply(ctx, rc.Texts.NoResponsibleIssues)
		return nil
	}

	rc.replyKb(ctx, rc.Texts.ResponsibleRequests, rc.ticketPageKb(ctx, key, 0, "resp_page_"))
	return nil
}

// перелистывание "моих заявок": sc_page_<N>
func cbScPage(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	page, err := strconv.Atoi(rc.Arg)
	if err != nil || page < 0 {
		return nil
	}

	uid := rc.Ev.UserID
	key := pagecache.TicketsKey(uid)

	// кеш истек: один повторный запрос и перерисовка
	if !rc.Lists.Exists(ctx, key) {
		if !rc.Guard.Begin(key) {
			return nil
		}
		items := rc.loadTickets(ctx, rc.Employee.ServiceCalls)
		rc.Lists.Set(ctx, key, items)
		rc.Guard.End(key)
	}

	rc.editTicketPage(ctx, key, page, "sc_page_", rc.Texts.YourRequests)
	return nil
}

// перелистывание заявок в ответственности: resp_page_<N>
func cbRespPage(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	page, err := strconv.Atoi(rc.Arg)
	if err != nil || page < 0 {
		return nil
	}

	uid := rc.Ev.UserID
	key := pagecache.ResponsibleKey(uid)

	if !rc.Lists.Exists(ctx, key) {
		if !rc.Guard.Begin(key) {
			return nil
		}
		numbers, err := rc.Itsm.ResponsibleTickets(ctx, uid)
		if err != nil {
			rc.Guard.End(key)
			logger.Warning("Не удалось получить заявки в ответственности", uid, ":", err)
			rc.reply(ctx, rc.Texts.ItsmError)
			return nil
		}
		rc.Lists.Set(ctx, key, rc.loadTickets(ctx, numbers))
		rc.Guard.End(key)
	}

	rc.editTicketPage(ctx, key, page, "resp_page_", rc.Texts.ResponsibleRequests)
	return nil
}

func (rc *Ctx) editTicketPage(ctx context.Context, key string, page int, verb, title string) {
	total := rc.Lists.Len(ctx, key)
	if total == 0 {
		rc.removeInbound(ctx)
		rc.reply(ctx, rc.Texts.NoCreatedIssues)
		return
	}

	// запрошенная страница могла исчезнуть после обновления кеша
	if page*pageSize >= total {
		page = 0
	}

	kb := rc.ticketPageKb(ctx, key, page, verb)
	if err := rc.Gw.Edit(ctx, rc.Ev.UserID, rc.Ev.MessageID, title, kb); err != nil {
		logger.Warning("Не удалось обновить страницу списка:", err)
	}
}
