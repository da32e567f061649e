package itsm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"itsm-text-bot/internal/logger"
)

type (
	// Client - типизированная обертка над HTTP API ITSM системы.
	// Все запросы выполняются однократно, без ретраев: повтор - это
	// новое действие пользователя в чате.
	Client struct {
		serverAddr string
		login      string
		password   string

		cl *http.Client
	}

	HttpError struct {
		Url     string
		Code    int
		Message string
	}

	// Verdict - классификация ответа ITSM на запрос find_employee.
	// От нее зависит пустит ли бот пользователя дальше.
	Verdict int
)

const (
	VerdictOK Verdict = iota
	// 200 с пустым или нечитаемым телом
	VerdictEmpty
	// 401 - пользователь не зарегистрирован
	VerdictAuthRequired
	// 403 - заявка на регистрацию еще не подтверждена
	VerdictForbidden
	// прочие коды и сетевые ошибки
	VerdictUnavailable
)

func (e *HttpError) Error() string {
	return fmt.Sprintf("Http request failed for %s with code %d and message:\n%s", e.Url, e.Code, e.Message)
}

func New(serverAddr, login, password string, timeoutSec int) *Client {
	return &Client{
		serverAddr: serverAddr,
		login:      login,
		password:   password,

		cl: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
			Transport: &http.Transport{
				IdleConnTimeout:     30 * time.Second,
				DisableKeepAlives:   false,
				MaxIdleConnsPerHost: 5,
				DisableCompression:  true,
			},
		},
	}
}

// Invoke выполняет запрос с BasicAuth и возвращает тело и код ответа.
// Сетевые ошибки возвращаются как err, ошибки уровня HTTP - кодом.
func (c *Client) Invoke(ctx context.Context, method, methodUrl string, urlParams url.Values, body []byte) (content []byte, code int, err error) {
	methodUrl = strings.Trim(methodUrl, "/")
	reqUrl := c.serverAddr + "/" + methodUrl
	if urlParams != nil {
		reqUrl += "?" + urlParams.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqUrl, bytes.NewBuffer(body))
	if err != nil {
		return nil, 0, err
	}

	req.SetBasicAuth(c.login, c.password)
	req.Header.Set("Content-Type", "application/json")

	logger.Debug("---> itsm", req.Method, reqUrl)

	resp, err := c.cl.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	logger.Debug("<--- itsm", req.Method, reqUrl, "code", resp.StatusCode, "with body", bodyBytes)
	if err != nil {
		logger.Warning("Error while read response body", err)
	}

	return bodyBytes, resp.StatusCode, nil
}

// invokeExpect - как Invoke, но любой код вне success превращается в HttpError
func (c *Client) invokeExpect(ctx context.Context, method, methodUrl string, urlParams url.Values, body []byte) (content []byte, err error) {
	content, code, err := c.Invoke(ctx, method, methodUrl, urlParams, body)
	if err != nil {
		return nil, err
	}

	if !successCode(code) {
		return nil, &HttpError{
			Url:     c.serverAddr + "/" + strings.Trim(methodUrl, "/"),
			Code:    code,
			Message: string(content),
		}
	}

	return content, nil
}

func successCode(code int) bool {
	return code == http.StatusOK || code == http.StatusCreated || code == http.StatusNoContent
}
