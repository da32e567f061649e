package bot

import (
	"fmt"
	"strings"
	"time"

	"itsm-text-bot/internal/gateway"
)

var dateLayouts = []string{
	"02.01.2006", "02/01/2006", "02-01-2006",
	"02.01.06", "02/01/06", "02-01-06",
}

// ParseUserDate разбирает дату в привычных пользователю форматах
func ParseUserDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("не удалось распознать дату: %q", s)
}

// InPast - дата строго раньше сегодняшнего дня
func InPast(t time.Time) bool {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return t.Before(today)
}

// dateKeyboard - кнопки с ближайшими датами, дату можно ввести и текстом
func dateKeyboard(verb string) gateway.Keyboard {
	var kb gateway.Keyboard

	now := time.Now()
	for i := 1; i <= 3; i++ {
		d := now.AddDate(0, 0, i).Format("02.01.2006")
		kb = append(kb, gateway.Row(gateway.Button{Text: d, Data: verb + "$" + d}))
	}

	kb = append(kb, gateway.Row(cancelBtn()))
	return kb
}
