package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"itsm-text-bot/internal/logger"

	"github.com/google/uuid"
)

type (
	// Client - HTTP реализация Gateway поверх API платформы сообщений
	Client struct {
		serverAddr string
		login      string
		password   string

		// куда сохраняются скачанные вложения
		filesDir string

		cl *http.Client
	}

	HttpError struct {
		Url     string
		Code    int
		Message string
	}

	sendRequest struct {
		UserID   int64    `json:"user_id"`
		Text     string   `json:"text"`
		Keyboard Keyboard `json:"keyboard,omitempty"`
	}

	editRequest struct {
		UserID    int64    `json:"user_id"`
		MessageID int64    `json:"message_id"`
		Text      string   `json:"text,omitempty"`
		Keyboard  Keyboard `json:"keyboard,omitempty"`
	}

	sendResponse struct {
		MessageID int64 `json:"message_id"`
	}
)

func (e *HttpError) Error() string {
	return fmt.Sprintf("Http request failed for %s with code %d and message:\n%s", e.Url, e.Code, e.Message)
}

func New(serverAddr, login, password, filesDir string) *Client {
	return &Client{
		serverAddr: serverAddr,
		login:      login,
		password:   password,
		filesDir:   filesDir,

		cl: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				IdleConnTimeout:     30 * time.Second,
				DisableKeepAlives:   false,
				MaxIdleConnsPerHost: 5,
				DisableCompression:  true,
			},
		},
	}
}

func (c *Client) invoke(ctx context.Context, method, methodUrl string, urlParams url.Values, body []byte) (content []byte, err error) {
	methodUrl = strings.Trim(methodUrl, "/")
	reqUrl := c.serverAddr + "/v1/" + methodUrl + "/"
	if urlParams != nil {
		reqUrl += "?" + urlParams.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqUrl, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	req.SetBasicAuth(c.login, c.password)
	req.Header.Set("Content-Type", "application/json")

	logger.Debug("---> gateway", req.Method, reqUrl)

	resp, err := c.cl.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	logger.Debug("<--- gateway", req.Method, reqUrl, "with body", bodyBytes)
	if err != nil {
		logger.Warning("Error while read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &HttpError{
			Url:     req.URL.String(),
			Code:    resp.StatusCode,
			Message: string(bodyBytes),
		}
	}

	return bodyBytes, nil
}

func (c *Client) Send(ctx context.Context, userID int64, text string, kb Keyboard) (int64, error) {
	data := sendRequest{
		UserID:   userID,
		Text:     text,
		Keyboard: kb,
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return 0, err
	}

	r, err := c.invoke(ctx, http.MethodPost, "/message/send/", nil, jsonData)
	if err != nil {
		return 0, err
	}

	var resp sendResponse
	if err = json.Unmarshal(r, &resp); err != nil {
		return 0, err
	}
	return resp.MessageID, nil
}

func (c *Client) Edit(ctx context.Context, userID, msgID int64, text string, kb Keyboard) error {
	data := editRequest{
		UserID:    userID,
		MessageID: msgID,
		Text:      text,
		Keyboard:  kb,
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = c.invoke(ctx, http.MethodPost, "/message/edit/", nil, jsonData)
	return err
}

func (c *Client) Delete(ctx context.Context, userID, msgID int64) error {
	data := editRequest{
		UserID:    userID,
		MessageID: msgID,
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = c.invoke(ctx, http.MethodPost, "/message/delete/", nil, jsonData)
	return err
}

func (c *Client) AckCallback(ctx context.Context, callbackID string) error {
	if callbackID == "" {
		return nil
	}

	var v = url.Values{}
	v.Add("callback_id", callbackID)

	_, err := c.invoke(ctx, http.MethodPost, "/callback/ack/", v, nil)
	return err
}

// DownloadFile скачивает файл вложения в filesDir и возвращает локальный путь
func (c *Client) DownloadFile(ctx context.Context, fileRef string) (string, error) {
	var v = url.Values{}
	v.Add("file_ref", fileRef)

	content, err := c.invoke(ctx, http.MethodGet, "/file/download/", v, nil)
	if err != nil {
		return "", err
	}

	localPath := filepath.Join(c.filesDir, uuid.New().String())
	if err = os.WriteFile(localPath, content, 0644); err != nil {
		return "", err
	}

	return localPath, nil
}
