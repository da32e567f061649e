package itsm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// CreateRegistration отправляет заявку на регистрацию нового пользователя
func (c *Client) CreateRegistration(ctx context.Context, req RegistrationRequest) error {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return err
	}

	_, err = c.invokeExpect(ctx, http.MethodPost, "/registration", nil, jsonData)
	return err
}

// MarketingServices возвращает список услуг маркетинга с номерами форм
func (c *Client) MarketingServices(ctx context.Context, userID int64) (services []MarketingService, err error) {
	var v = url.Values{}
	v.Add("telegram", strconv.FormatInt(userID, 10))

	r, err := c.invokeExpect(ctx, http.MethodGet, "/listServicesMarketing", v, nil)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(r, &services)
	return services, err
}

// MarketingSubdivisions возвращает список подразделений маркетинга
func (c *Client) MarketingSubdivisions(ctx context.Context, userID int64) (subdivisions []string, err error) {
	var v = url.Values{}
	v.Add("telegram", strconv.FormatInt(userID, 10))

	r, err := c.invokeExpect(ctx, http.MethodGet, "/listSubdivisionMarketing", v, nil)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(r, &subdivisions)
	return subdivisions, err
}

// CreateMarketingRequest создает маркетинговую заявку. Поля формы
// раскладываются в корень запроса рядом с общими полями.
func (c *Client) CreateMarketingRequest(ctx context.Context, req MarketingRequest) error {
	data := map[string]any{
		"telegram":      req.Telegram,
		"Services":      req.Service,
		"Subdivision":   req.Subdivision,
		"ExecutionDate": req.ExecutionDate,
	}

	for k, val := range req.Fields {
		data[k] = val
	}

	if len(req.Files) > 0 {
		filesJSON, err := json.Marshal(req.Files)
		if err != nil {
			return err
		}
		data["files"] = string(filesJSON)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = c.invokeExpect(ctx, http.MethodPost, "/create_sc_marketing", nil, jsonData)
	return err
}
