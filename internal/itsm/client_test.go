package itsm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(srv.URL, "login", "password", 5)
}

func TestFindEmployeeVerdicts(t *testing.T) {
	const employeeJSON = `{"UUID":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","servicecalls":["SC-1"],"marketing":true}`

	cases := []struct {
		name string
		code int
		body string
		want Verdict
	}{
		{"известный пользователь", http.StatusOK, employeeJSON, VerdictOK},
		{"пустой ответ", http.StatusOK, "", VerdictEmpty},
		{"не зарегистрирован", http.StatusUnauthorized, "", VerdictAuthRequired},
		{"ожидает подтверждения", http.StatusForbidden, "", VerdictForbidden},
		{"ошибка сервера", http.StatusInternalServerError, "oops", VerdictUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
				_, _ = w.Write([]byte(tc.body))
			}))

			empl, verdict := c.FindEmployee(context.Background(), 42)
			if verdict != tc.want {
				t.Fatalf("verdict = %v, want %v", verdict, tc.want)
			}

			if tc.want == VerdictOK {
				if empl == nil {
					t.Fatal("employee is nil for VerdictOK")
				}
				if !empl.Marketing || len(empl.ServiceCalls) != 1 {
					t.Fatalf("unexpected employee: %+v", empl)
				}
			}
		})
	}
}

func TestFindTicketVariants(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		wantTicket bool
		wantRaw    string
	}{
		{"пустое тело - не найдена", "", false, ""},
		{"карточка заявки", `{"number":"SC-7","shortDescription":"тест","state":"inwork"}`, true, ""},
		{"строковая диагностика", `"Заявка уже закрыта"`, false, "Заявка уже закрыта"},
		{"текст не в JSON", "backend error text", false, "backend error text"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))

			ticket, raw, err := c.FindTicket(context.Background(), 42, "SC-7")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (ticket != nil) != tc.wantTicket {
				t.Fatalf("ticket = %+v, wantTicket = %v", ticket, tc.wantTicket)
			}
			if raw != tc.wantRaw {
				t.Fatalf("raw = %q, want %q", raw, tc.wantRaw)
			}
		})
	}
}

// ошибка по одному номеру не роняет весь список и не ломает порядок
func TestFindTicketsPartialFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		num := r.URL.Query().Get("sc_number")
		if num == "SC-bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"number":"` + num + `","shortDescription":"тест","state":"inwork"}`))
	}))

	results := c.FindTickets(context.Background(), 42, []string{"SC-1", "SC-bad", "SC-3"})
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if results[0] == nil || results[0].Number != "SC-1" {
		t.Fatalf("results[0] = %+v", results[0])
	}
	if results[1] != nil {
		t.Fatalf("results[1] = %+v, want nil", results[1])
	}
	if results[2] == nil || results[2].Number != "SC-3" {
		t.Fatalf("results[2] = %+v", results[2])
	}
}
