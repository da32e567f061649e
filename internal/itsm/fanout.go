package itsm

import (
	"context"
	"sync"

	"itsm-text-bot/internal/logger"
)

// максимум одновременных запросов find_sc при сборе списка заявок
const fanoutLimit = 8

// FindTickets запрашивает карточки заявок по списку номеров параллельно.
// Порядок результата совпадает с порядком номеров, ошибка отдельного
// запроса дает nil в соответствующей позиции и не роняет весь список.
func (c *Client) FindTickets(ctx context.Context, userID int64, scNumbers []string) []*TicketSummary {
	results := make([]*TicketSummary, len(scNumbers))

	var wg sync.WaitGroup
	sem := make(chan struct{}, fanoutLimit)

	for i, number := range scNumbers {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, number string) {
			defer wg.Done()
			defer func() { <-sem }()

			ticket, _, err := c.FindTicket(ctx, userID, number)
			if err != nil {
				logger.Warning("Не удалось получить заявку", number, ":", err)
				return
			}
			results[i] = ticket
		}(i, number)
	}

	wg.Wait()
	return results
}
