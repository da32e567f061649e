package itsm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"itsm-text-bot/internal/logger"

	"github.com/google/uuid"
)

// FindEmployee ищет сотрудника по идентификатору в мессенджере и
// классифицирует ответ: от вердикта зависит регистрация/блокировка/допуск
func (c *Client) FindEmployee(ctx context.Context, userID int64) (*Employee, Verdict) {
	payload, err := json.Marshal(map[string]string{
		"telegram": strconv.FormatInt(userID, 10),
	})
	if err != nil {
		return nil, VerdictUnavailable
	}

	body, code, err := c.Invoke(ctx, http.MethodPost, "/find_employee", nil, payload)
	if err != nil {
		logger.Warning("Ошибка запроса find_employee:", err)
		return nil, VerdictUnavailable
	}

	switch code {
	case http.StatusOK:
		if len(body) == 0 {
			return nil, VerdictEmpty
		}
		var empl Employee
		if err = json.Unmarshal(body, &empl); err != nil {
			logger.Warning("Не удалось преобразовать ответ find_employee:", err)
			return nil, VerdictEmpty
		}
		return &empl, VerdictOK
	case http.StatusUnauthorized:
		return nil, VerdictAuthRequired
	case http.StatusForbidden:
		return nil, VerdictForbidden
	default:
		logger.Warning("Неожиданный ответ find_employee. Код:", code, "| Тело:", string(body))
		return nil, VerdictUnavailable
	}
}

// CreateTicket создает новое обращение. Краткое описание строится из
// полного по правилу 30 символов.
func (c *Client) CreateTicket(ctx context.Context, client uuid.UUID, description string, files []FileRef) (result string, err error) {
	data := map[string]string{
		"client":           client.String(),
		"shortDescription": ShortDescription(description),
		"Description":      description,
	}

	if len(files) > 0 {
		filesJSON, err := json.Marshal(files)
		if err != nil {
			return "", err
		}
		data["files"] = string(filesJSON)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	r, err := c.invokeExpect(ctx, http.MethodPost, "/create_sc", nil, jsonData)
	if err != nil {
		return "", err
	}

	return string(r), nil
}

// FindTicket ищет заявку по номеру. Пустое тело при 200 означает
// "не найдена" (nil без ошибки). Если тело не разбирается как заявка,
// оно возвращается как raw: бэкенд иногда отвечает текстовой диагностикой,
// которую нужно показать пользователю как есть.
func (c *Client) FindTicket(ctx context.Context, userID int64, scNumber string) (ticket *TicketSummary, raw string, err error) {
	var v = url.Values{}
	v.Add("telegram", strconv.FormatInt(userID, 10))
	v.Add("sc_number", scNumber)

	body, err := c.invokeExpect(ctx, http.MethodPost, "/find_sc", v, nil)
	if err != nil {
		return nil, "", err
	}

	if len(body) == 0 {
		return nil, "", nil
	}

	if err = json.Unmarshal(body, &ticket); err == nil && ticket != nil && ticket.Number != "" {
		return ticket, "", nil
	}

	var text string
	if err = json.Unmarshal(body, &text); err != nil {
		text = string(body)
	}
	return nil, text, nil
}

// AddComment добавляет комментарий к заявке, файлы передаются списком путей
func (c *Client) AddComment(ctx context.Context, userID int64, scNumber, comment string, files []FileRef) error {
	var v = url.Values{}
	v.Add("telegram", strconv.FormatInt(userID, 10))
	v.Add("source", scNumber)
	v.Add("comment_text", comment)

	if len(files) > 0 {
		paths := make([]string, 0, len(files))
		for _, f := range files {
			paths = append(paths, f.Path)
		}
		v.Add("files", strings.Join(paths, ";"))
	}

	_, err := c.invokeExpect(ctx, http.MethodPost, "/add_comment", v, nil)
	return err
}

// ConfirmTicket отправляет оценку решенной заявки от 0 до 5,
// комментарий опционален
func (c *Client) ConfirmTicket(ctx context.Context, userID int64, scNumber string, mark int, comment string) error {
	var v = url.Values{}
	v.Add("telegram", strconv.FormatInt(userID, 10))
	v.Add("incident", scNumber)
	v.Add("mark", strconv.Itoa(mark))

	if comment != "" {
		v.Add("comment_text", comment)
	}

	_, err := c.invokeExpect(ctx, http.MethodPost, "/confirm_sc", v, nil)
	return err
}

// ResponsibleTickets возвращает номера заявок в ответственности сотрудника
func (c *Client) ResponsibleTickets(ctx context.Context, userID int64) (scs []string, err error) {
	var v = url.Values{}
	v.Add("telegram", strconv.FormatInt(userID, 10))

	r, err := c.invokeExpect(ctx, http.MethodPost, "/scs_responsible", v, nil)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(r, &scs)
	return scs, err
}

// ChangeState переводит заявку в новый статус
func (c *Client) ChangeState(ctx context.Context, userID int64, scNumber, newState string) error {
	var v = url.Values{}
	v.Add("telegram", strconv.FormatInt(userID, 10))
	v.Add("inc_number", scNumber)
	v.Add("new_state", newState)

	_, err := c.invokeExpect(ctx, http.MethodPost, "/change_state", v, nil)
	return err
}

// ChangeStateWithComment - вариант смены статуса с обязательными
// комментарием и датой (перенос заявки)
func (c *Client) ChangeStateWithComment(ctx context.Context, userID int64, scNumber, newState, date, comment string) error {
	var v = url.Values{}
	v.Add("telegram", strconv.FormatInt(userID, 10))
	v.Add("inc_number", scNumber)
	v.Add("new_state", newState)
	v.Add("date_inc", date)
	v.Add("comment", comment)

	_, err := c.invokeExpect(ctx, http.MethodPost, "/change_state", v, nil)
	return err
}

// Responsibles возвращает список команд с сотрудниками,
// на которых можно переназначить заявку
func (c *Client) Responsibles(ctx context.Context, userID int64, scNumber string) (teams []Team, err error) {
	var v = url.Values{}
	v.Add("telegram", strconv.FormatInt(userID, 10))
	v.Add("sc_number", scNumber)

	r, err := c.invokeExpect(ctx, http.MethodPost, "/get_responsibles", v, nil)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(r, &teams)
	return teams, err
}

// ChangeResponsible назначает нового ответственного (сотрудника или команду)
func (c *Client) ChangeResponsible(ctx context.Context, userID int64, scNumber, responsibleID string) error {
	var v = url.Values{}
	v.Add("telegram", strconv.FormatInt(userID, 10))
	v.Add("inc_number", scNumber)
	v.Add("responsible_employee_id", responsibleID)

	_, err := c.invokeExpect(ctx, http.MethodPost, "/change_responsible", v, nil)
	return err
}

// Vote согласует ("accept") или отклоняет ("reject") голосование по заявке
func (c *Client) Vote(ctx context.Context, userID int64, voteNumber, state string) error {
	var v = url.Values{}
	v.Add("telegram", strconv.FormatInt(userID, 10))
	v.Add("vote_number", voteNumber)
	v.Add("state", state)

	_, err := c.invokeExpect(ctx, http.MethodPost, "/vote_change", v, nil)
	return err
}
