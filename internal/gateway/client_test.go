package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestSend(t *testing.T) {
	var gotPath string
	var gotBody sendRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if login, pass, ok := r.BasicAuth(); !ok || login != "login" || pass != "password" {
			t.Errorf("bad auth: %s %s", login, pass)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"message_id":7}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "login", "password", t.TempDir())

	id, err := c.Send(context.Background(), 42, "привет", Keyboard{Row(Button{Text: "A", Data: "a"})})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != 7 {
		t.Fatalf("id = %d, want 7", id)
	}
	if gotPath != "/v1/message/send/" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody.UserID != 42 || gotBody.Text != "привет" || len(gotBody.Keyboard) != 1 {
		t.Fatalf("body = %+v", gotBody)
	}
}

func TestSendHttpError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := New(srv.URL, "login", "password", t.TempDir())

	_, err := c.Send(context.Background(), 42, "привет", nil)

	var httpErr *HttpError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want *HttpError", err)
	}
	if httpErr.Code != http.StatusInternalServerError || httpErr.Message != "boom" {
		t.Fatalf("unexpected HttpError: %+v", httpErr)
	}
}

// пустой callback_id подтверждать нечего, запрос не уходит
func TestAckCallbackEmpty(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := New(srv.URL, "login", "password", t.TempDir())

	if err := c.AckCallback(context.Background(), ""); err != nil {
		t.Fatalf("AckCallback: %v", err)
	}
	if calls != 0 {
		t.Fatalf("request was sent for empty callback_id")
	}
}

func TestDownloadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ref := r.URL.Query().Get("file_ref"); ref != "file-1" {
			t.Errorf("file_ref = %q", ref)
		}
		_, _ = w.Write([]byte("file content"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := New(srv.URL, "login", "password", dir)

	path, err := c.DownloadFile(context.Background(), "file-1")
	if err != nil {
		t.Fatalf("DownloadFile: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(content) != "file content" {
		t.Fatalf("content = %q", content)
	}
}
