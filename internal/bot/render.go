package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"itsm-text-bot/internal/gateway"
	"itsm-text-bot/internal/itsm"
)

const (
	btnTextCancel = "отмена"
	btnTextMenu   = "меню"
)

func cancelBtn() gateway.Button {
	return gateway.Button{Text: "Отмена", Data: "cancel"}
}

func kbCancel() gateway.Keyboard {
	return gateway.Keyboard{gateway.Row(cancelBtn())}
}

// человекочитаемые названия статусов, неизвестные коды показываем как есть
var stateTitles = map[string]string{
	"registered": "Зарегистрирована",
	"inwork":     "В работе",
	"postponed":  "Отложена",
	"resolved":   "Решена",
	"closed":     "Закрыта",
}

func stateTitle(s string) string {
	if t, ok := stateTitles[s]; ok {
		return t
	}
	return s
}

// showTicket отправляет карточку заявки с кнопками доступных действий
func (rc *Ctx) showTicket(ctx context.Context, t *itsm.TicketSummary) {
	rc.replyKb(ctx, formatTicket(t), ticketKeyboard(t))
}

func formatTicket(t *itsm.TicketSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Заявка №%s\n", t.Number)
	fmt.Fprintf(&b, "Тема: %s\n", t.ShortDescription)
	if t.Description != "" {
		fmt.Fprintf(&b, "Описание: %s\n", t.Description)
	}
	fmt.Fprintf(&b, "Статус: %s\n", stateTitle(t.State))
	if t.ResponsibleTeam != "" {
		fmt.Fprintf(&b, "Ответственная команда: %s\n", t.ResponsibleTeam)
	}
	if t.ResponsibleEmployee != "" {
		fmt.Fprintf(&b, "Ответственный: %s\n", t.ResponsibleEmployee)
	}
	if t.Deadline != "" {
		fmt.Fprintf(&b, "Срок: %s\n", t.Deadline)
	}

	return strings.TrimRight(b.String(), "\n")
}

func ticketKeyboard(t *itsm.TicketSummary) gateway.Keyboard {
	var kb gateway.Keyboard

	if len(t.NewStates) > 0 {
		kb = append(kb, gateway.Row(gateway.Button{Text: "Сменить статус", Data: "show_state$" + t.Number}))
	}
	if t.ChangeResponsible {
		kb = append(kb, gateway.Row(gateway.Button{Text: "Сменить ответственного", Data: "change_resp$" + t.Number}))
	}
	kb = append(kb, gateway.Row(gateway.Button{Text: "Добавить комментарий", Data: "reply$" + t.Number}))

	// решенную заявку можно оценить
	if t.State == "resolved" {
		var row []gateway.Button
		for mark := 0; mark <= 5; mark++ {
			m := strconv.Itoa(mark)
			row = append(row, gateway.Button{Text: m, Data: "confirm_sc$" + t.Number + "$" + m})
		}
		kb = append(kb, row)
	}

	kb = append(kb, gateway.Row(gateway.Button{Text: "Скрыть", Data: "del_message"}))
	return kb
}
