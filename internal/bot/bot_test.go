package bot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"itsm-text-bot/internal/config"
	"itsm-text-bot/internal/database"
	"itsm-text-bot/internal/gateway"
	"itsm-text-bot/internal/itsm"
	"itsm-text-bot/internal/pagecache"
	"itsm-text-bot/internal/session"
	"itsm-text-bot/internal/templates"

	"github.com/alicebob/miniredis/v2"
	"github.com/allegro/bigcache/v3"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"
)

const testUser int64 = 42

type sentMsg struct {
	userID int64
	text   string
	kb     gateway.Keyboard
}

// fakeGateway собирает исходящие сообщения вместо отправки
type fakeGateway struct {
	mu      sync.Mutex
	sent    []sentMsg
	edits   []sentMsg
	deleted []int64
	nextID  int64
}

func (f *fakeGateway) Send(_ context.Context, userID int64, text string, kb gateway.Keyboard) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, sentMsg{userID: userID, text: text, kb: kb})
	return f.nextID, nil
}

func (f *fakeGateway) Edit(_ context.Context, userID, _ int64, text string, kb gateway.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, sentMsg{userID: userID, text: text, kb: kb})
	return nil
}

func (f *fakeGateway) Delete(_ context.Context, _, msgID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, msgID)
	return nil
}

func (f *fakeGateway) AckCallback(context.Context, string) error { return nil }

func (f *fakeGateway) DownloadFile(_ context.Context, fileRef string) (string, error) {
	return "/tmp/" + fileRef, nil
}

func (f *fakeGateway) lastSent(t *testing.T) sentMsg {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no messages sent")
	}
	return f.sent[len(f.sent)-1]
}

func newTestDeps(t *testing.T, backend http.Handler) (*Deps, *fakeGateway) {
	t.Helper()

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cache, err := bigcache.NewBigCache(bigcache.DefaultConfig(time.Minute))
	if err != nil {
		t.Fatalf("bigcache: %v", err)
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	users, err := database.NewWithDB(db)
	if err != nil {
		t.Fatalf("NewWithDB: %v", err)
	}

	gw := &fakeGateway{}
	deps := NewDeps(
		&config.Conf{},
		gw,
		itsm.New(srv.URL, "login", "password", 5),
		pagecache.NewWithClient(rdb),
		session.NewStore(cache),
		users,
		templates.InitTexts(""),
	)
	return deps, gw
}

// employeeHandler отвечает на find_employee карточкой сотрудника
func employeeHandler(scs []string, marketing bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"UUID":         "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
			"servicecalls": scs,
			"marketing":    marketing,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func callback(data string) gateway.Event {
	return gateway.Event{UserID: testUser, MessageID: 100, CallbackID: "cb", Callback: data}
}

func message(text string) gateway.Event {
	return gateway.Event{UserID: testUser, MessageID: 101, Text: text}
}

// незнакомый ITSM пользователь попадает в сценарий регистрации,
// анкета уходит запросом registration
func TestRegistrationFlow(t *testing.T) {
	var regBody map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("/find_employee", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/registration", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &regBody)
	})

	deps, gw := newTestDeps(t, mux)
	ctx := context.Background()

	deps.Process(ctx, message("привет"))

	if st := deps.Sessions.Get(testUser); st.Flow != session.FlowRegistration {
		t.Fatalf("flow = %q, want registration", st.Flow)
	}
	if !strings.Contains(gw.lastSent(t).text, "регистрацию") {
		t.Fatalf("unexpected reply: %q", gw.lastSent(t).text)
	}

	deps.Process(ctx, callback("reg_use_id"))
	deps.Process(ctx, message("Иванов Иван Иванович"))
	deps.Process(ctx, message("Рога и копыта"))
	deps.Process(ctx, message("ИТ отдел"))
	deps.Process(ctx, message("инженер"))

	if st := deps.Sessions.Get(testUser); st.Step != "confirm" {
		t.Fatalf("step = %q, want confirm", st.Step)
	}

	deps.Process(ctx, callback("reg_submit"))

	if regBody["FIO"] != "Иванов Иван Иванович" || regBody["telegram"] != "42" ||
		regBody["NamePosition"] != "инженер" {
		t.Fatalf("unexpected registration body: %v", regBody)
	}
	if st := deps.Sessions.Get(testUser); st.Flow != session.FlowNone {
		t.Fatalf("flow = %q, want none after submit", st.Flow)
	}
}

// низкая оценка не уходит в ITSM без комментария
func TestGradeLowMarkRequiresComment(t *testing.T) {
	confirmCalls := 0
	var gotMark, gotComment string

	mux := http.NewServeMux()
	mux.HandleFunc("/find_employee", employeeHandler(nil, false))
	mux.HandleFunc("/confirm_sc", func(w http.ResponseWriter, r *http.Request) {
		confirmCalls++
		gotMark = r.URL.Query().Get("mark")
		gotComment = r.URL.Query().Get("comment_text")
	})

	deps, gw := newTestDeps(t, mux)
	ctx := context.Background()

	deps.Process(ctx, callback("confirm_sc$SC-1$1"))

	st := deps.Sessions.Get(testUser)
	if st.Flow != session.FlowConfirmGrade || st.Step != "comment" {
		t.Fatalf("state = %+v, want grade flow at comment step", st)
	}
	if !strings.Contains(gw.lastSent(t).text, "обязателен") {
		t.Fatalf("unexpected reply: %q", gw.lastSent(t).text)
	}

	// попытка отправить без комментария отклоняется локально
	deps.Process(ctx, callback("send_confirm"))
	if confirmCalls != 0 {
		t.Fatalf("confirm_sc called %d times without comment", confirmCalls)
	}

	deps.Process(ctx, message("очень долго чинили"))
	deps.Process(ctx, callback("send_confirm"))

	if confirmCalls != 1 {
		t.Fatalf("confirm_sc called %d times, want 1", confirmCalls)
	}
	if gotMark != "1" || gotComment != "очень долго чинили" {
		t.Fatalf("mark = %q, comment = %q", gotMark, gotComment)
	}
	if st := deps.Sessions.Get(testUser); st.Flow != session.FlowNone {
		t.Fatalf("flow = %q, want none", st.Flow)
	}
}

// высокая оценка отправляется сразу, комментарий опционален
func TestGradeHighMark(t *testing.T) {
	confirmCalls := 0
	var gotComment string

	mux := http.NewServeMux()
	mux.HandleFunc("/find_employee", employeeHandler(nil, false))
	mux.HandleFunc("/confirm_sc", func(w http.ResponseWriter, r *http.Request) {
		confirmCalls++
		gotComment = r.URL.Query().Get("comment_text")
	})

	deps, _ := newTestDeps(t, mux)
	ctx := context.Background()

	deps.Process(ctx, callback("confirm_sc$SC-1$5"))
	deps.Process(ctx, callback("send_confirm"))

	if confirmCalls != 1 {
		t.Fatalf("confirm_sc called %d times, want 1", confirmCalls)
	}
	if gotComment != "" {
		t.Fatalf("comment = %q, want empty", gotComment)
	}
}

func ticketBackend(scs []string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/find_employee", employeeHandler(scs, false))
	mux.HandleFunc("/find_sc", func(w http.ResponseWriter, r *http.Request) {
		num := r.URL.Query().Get("sc_number")
		fmt.Fprintf(w, `{"number":%q,"shortDescription":"тест","state":"inwork"}`, num)
	})
	return mux
}

func pageButtons(kb gateway.Keyboard, prefix string) []string {
	var data []string
	for _, row := range kb {
		for _, btn := range row {
			if strings.HasPrefix(btn.Data, prefix) {
				data = append(data, btn.Data)
			}
		}
	}
	return data
}

// 11 заявок: на первой странице 10 штук и только кнопка "вперед"
func TestTicketListPagination(t *testing.T) {
	var scs []string
	for i := 1; i <= 11; i++ {
		scs = append(scs, fmt.Sprintf("SC-%02d", i))
	}

	deps, gw := newTestDeps(t, ticketBackend(scs))
	ctx := context.Background()

	deps.Process(ctx, callback("scs_client"))

	last := gw.lastSent(t)
	if tickets := pageButtons(last.kb, "show_sc$"); len(tickets) != 10 {
		t.Fatalf("ticket buttons = %d, want 10", len(tickets))
	}

	nav := pageButtons(last.kb, "sc_page_")
	if len(nav) != 1 || nav[0] != "sc_page_1" {
		t.Fatalf("nav buttons = %v, want [sc_page_1]", nav)
	}

	// вторая страница: одна заявка и кнопка "назад"
	deps.Process(ctx, callback("sc_page_1"))

	gw.mu.Lock()
	edit := gw.edits[len(gw.edits)-1]
	gw.mu.Unlock()

	if tickets := pageButtons(edit.kb, "show_sc$"); len(tickets) != 1 {
		t.Fatalf("page 1 ticket buttons = %d, want 1", len(tickets))
	}
	nav = pageButtons(edit.kb, "sc_page_")
	if len(nav) != 1 || nav[0] != "sc_page_0" {
		t.Fatalf("page 1 nav buttons = %v, want [sc_page_0]", nav)
	}
}

// ровно 10 заявок умещаются на странице без кнопок перелистывания
func TestTicketListSinglePage(t *testing.T) {
	var scs []string
	for i := 1; i <= 10; i++ {
		scs = append(scs, fmt.Sprintf("SC-%02d", i))
	}

	deps, gw := newTestDeps(t, ticketBackend(scs))
	deps.Process(context.Background(), callback("scs_client"))

	last := gw.lastSent(t)
	if tickets := pageButtons(last.kb, "show_sc$"); len(tickets) != 10 {
		t.Fatalf("ticket buttons = %d, want 10", len(tickets))
	}
	if nav := pageButtons(last.kb, "sc_page_"); len(nav) != 0 {
		t.Fatalf("nav buttons = %v, want none", nav)
	}
}

// пустой список кешируется и отвечает без повторного похода в ITSM
func TestTicketListEmpty(t *testing.T) {
	findCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/find_employee", employeeHandler(nil, false))
	mux.HandleFunc("/find_sc", func(w http.ResponseWriter, r *http.Request) {
		findCalls++
	})

	deps, gw := newTestDeps(t, mux)
	ctx := context.Background()

	deps.Process(ctx, callback("scs_client"))
	deps.Process(ctx, callback("scs_client"))

	if findCalls != 0 {
		t.Fatalf("find_sc called %d times for empty list", findCalls)
	}
	if !strings.Contains(gw.lastSent(t).text, "нет созданных заявок") {
		t.Fatalf("unexpected reply: %q", gw.lastSent(t).text)
	}
}

// текстовая диагностика бэкенда при поиске показывается как есть
func TestSearchRawPassthrough(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/find_employee", employeeHandler(nil, false))
	mux.HandleFunc("/find_sc", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"Заявка 0042 уже закрыта"`))
	})

	deps, gw := newTestDeps(t, mux)
	ctx := context.Background()

	deps.Process(ctx, callback("scs_search"))
	deps.Process(ctx, message("0042"))

	if got := gw.lastSent(t).text; got != "Заявка 0042 уже закрыта" {
		t.Fatalf("reply = %q", got)
	}
	if st := deps.Sessions.Get(testUser); st.Flow != session.FlowNone {
		t.Fatalf("flow = %q, want none", st.Flow)
	}
}

// отмена обрывает любой сценарий
func TestCancelInsideFlow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/find_employee", employeeHandler(nil, false))

	deps, gw := newTestDeps(t, mux)
	ctx := context.Background()

	deps.Process(ctx, callback("create_issue"))
	if st := deps.Sessions.Get(testUser); st.Flow != session.FlowCreateIssue {
		t.Fatalf("flow = %q, want create_issue", st.Flow)
	}

	deps.Process(ctx, message("Отмена"))

	if st := deps.Sessions.Get(testUser); st.Flow != session.FlowNone {
		t.Fatalf("flow = %q, want none after cancel", st.Flow)
	}
	if !strings.Contains(gw.lastSent(t).text, "отменены") {
		t.Fatalf("unexpected reply: %q", gw.lastSent(t).text)
	}
}

// создание заявки: описание, файл, отправка
func TestCreateIssueFlow(t *testing.T) {
	var createBody map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("/find_employee", employeeHandler(nil, false))
	mux.HandleFunc("/create_sc", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &createBody)
		_, _ = w.Write([]byte("Создана заявка SC-99"))
	})

	deps, gw := newTestDeps(t, mux)
	ctx := context.Background()

	deps.Process(ctx, callback("create_issue"))
	deps.Process(ctx, message("Сломался монитор на рабочем месте, экран мигает и гаснет"))
	deps.Process(ctx, gateway.Event{
		UserID:     testUser,
		MessageID:  102,
		Attachment: &gateway.Attachment{FileRef: "photo1", FileName: "monitor.jpg"},
	})
	deps.Process(ctx, callback("send_issue"))

	if createBody["Description"] == "" {
		t.Fatal("create_sc was not called with description")
	}
	if createBody["shortDescription"] == createBody["Description"] {
		t.Fatal("short description was not shortened")
	}
	if createBody["files"] == "" {
		t.Fatal("files were not attached")
	}
	if !strings.Contains(gw.lastSent(t).text, "SC-99") {
		t.Fatalf("reply does not show backend result: %q", gw.lastSent(t).text)
	}
	if st := deps.Sessions.Get(testUser); st.Flow != session.FlowNone {
		t.Fatalf("flow = %q, want none", st.Flow)
	}
}

// заблокированный пользователь не проходит дальше gate
func TestBannedUser(t *testing.T) {
	findEmployeeCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/find_employee", func(w http.ResponseWriter, r *http.Request) {
		findEmployeeCalls++
		employeeHandler(nil, false)(w, r)
	})

	deps, gw := newTestDeps(t, mux)
	ctx := context.Background()

	if err := deps.Users.UpsertUser(ctx, testUser, "bad"); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if err := deps.Users.SetBan(ctx, testUser, true); err != nil {
		t.Fatalf("SetBan: %v", err)
	}

	deps.Process(ctx, message("привет"))

	if findEmployeeCalls != 0 {
		t.Fatal("banned user reached ITSM")
	}
	if !strings.Contains(gw.lastSent(t).text, "запрещ") {
		t.Fatalf("unexpected reply: %q", gw.lastSent(t).text)
	}
}

// маркетинговый сценарий по форме мероприятия доходит до создания заявки
func TestMarketingEventForm(t *testing.T) {
	var mrBody map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/find_employee", employeeHandler(nil, true))
	mux.HandleFunc("/listServicesMarketing", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"Мероприятие","formNumber":2},{"name":"Макет","formNumber":1}]`))
	})
	mux.HandleFunc("/listSubdivisionMarketing", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`["Отдел продаж","Отдел рекламы"]`))
	})
	mux.HandleFunc("/create_sc_marketing", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &mrBody)
	})

	deps, _ := newTestDeps(t, mux)
	ctx := context.Background()

	deps.Process(ctx, callback("marketing_request"))
	deps.Process(ctx, callback("mr_type$marketing"))
	deps.Process(ctx, callback("mr_service$2$Мероприятие"))
	deps.Process(ctx, callback("mr_subdiv$1"))

	date := time.Now().AddDate(0, 0, 7).Format("02.01.2006")
	deps.Process(ctx, message(date))

	deps.Process(ctx, message("Конференция партнеров"))
	deps.Process(ctx, message("Ежегодная встреча с партнерами"))
	deps.Process(ctx, message("500000"))

	if st := deps.Sessions.Get(testUser); st.Step != "preview" {
		t.Fatalf("step = %q, want preview", st.Step)
	}

	deps.Process(ctx, callback("mr_confirm"))

	if mrBody["Services"] != "Мероприятие" || mrBody["Subdivision"] != "Отдел рекламы" {
		t.Fatalf("unexpected request: %v", mrBody)
	}
	if mrBody["ThemeEvent"] != "Конференция партнеров" || mrBody["Budget"] != "500000" {
		t.Fatalf("form fields lost: %v", mrBody)
	}
	if mrBody["ExecutionDate"] != date {
		t.Fatalf("ExecutionDate = %v, want %s", mrBody["ExecutionDate"], date)
	}
	if st := deps.Sessions.Get(testUser); st.Flow != session.FlowNone {
		t.Fatalf("flow = %q, want none", st.Flow)
	}
}

// пользователь без доступа к маркетингу не попадает в сценарий
func TestMarketingUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/find_employee", employeeHandler(nil, false))

	deps, gw := newTestDeps(t, mux)
	deps.Process(context.Background(), callback("marketing_request"))

	if st := deps.Sessions.Get(testUser); st.Flow != session.FlowNone {
		t.Fatalf("flow = %q, want none", st.Flow)
	}
	if !strings.Contains(gw.lastSent(t).text, "недоступно") {
		t.Fatalf("unexpected reply: %q", gw.lastSent(t).text)
	}
}

// перенос заявки: комментарий не короче 5 символов, дата не в прошлом
func TestPostponeValidation(t *testing.T) {
	changeCalls := 0
	var gotDate, gotComment string

	mux := http.NewServeMux()
	mux.HandleFunc("/find_employee", employeeHandler(nil, false))
	mux.HandleFunc("/change_state", func(w http.ResponseWriter, r *http.Request) {
		changeCalls++
		gotDate = r.URL.Query().Get("date_inc")
		gotComment = r.URL.Query().Get("comment")
	})

	deps, gw := newTestDeps(t, mux)
	ctx := context.Background()

	deps.Process(ctx, callback("ch_st_SC-1$postponed"))

	st := deps.Sessions.Get(testUser)
	if st.Flow != session.FlowChangeStatus || st.Step != "comment" {
		t.Fatalf("state = %+v, want change_status at comment step", st)
	}

	deps.Process(ctx, message("нет"))
	if !strings.Contains(gw.lastSent(t).text, "короткий") {
		t.Fatalf("short comment accepted: %q", gw.lastSent(t).text)
	}

	deps.Process(ctx, message("ждем поставку запчастей"))
	if st := deps.Sessions.Get(testUser); st.Step != "date" {
		t.Fatalf("step = %q, want date", st.Step)
	}

	deps.Process(ctx, message("01.01.2020"))
	if !strings.Contains(gw.lastSent(t).text, "прошлом") {
		t.Fatalf("past date accepted: %q", gw.lastSent(t).text)
	}

	date := time.Now().AddDate(0, 0, 3).Format("02.01.2006")
	deps.Process(ctx, message(date))
	if st := deps.Sessions.Get(testUser); st.Step != "confirm" {
		t.Fatalf("step = %q, want confirm", st.Step)
	}

	deps.Process(ctx, callback("confirm_status"))

	if changeCalls != 1 {
		t.Fatalf("change_state called %d times, want 1", changeCalls)
	}
	if gotDate != date || gotComment != "ждем поставку запчастей" {
		t.Fatalf("date = %q, comment = %q", gotDate, gotComment)
	}
	if st := deps.Sessions.Get(testUser); st.Flow != session.FlowNone {
		t.Fatalf("flow = %q, want none", st.Flow)
	}
}

// смена ответственного через выбор команды и сотрудника
func TestChangeResponsibleFlow(t *testing.T) {
	var gotResponsible string

	mux := http.NewServeMux()
	mux.HandleFunc("/find_employee", employeeHandler(nil, false))
	mux.HandleFunc("/get_responsibles", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"t1","title":"Первая линия","responsibles":[{"id":"e1","title":"Петров"},{"id":"e2","title":"Сидоров"}]}]`))
	})
	mux.HandleFunc("/change_responsible", func(w http.ResponseWriter, r *http.Request) {
		gotResponsible = r.URL.Query().Get("responsible_employee_id")
	})

	deps, _ := newTestDeps(t, mux)
	ctx := context.Background()

	deps.Process(ctx, callback("change_resp$SC-1"))
	deps.Process(ctx, callback("select_team$t1"))

	if st := deps.Sessions.Get(testUser); st.Step != "employee" || st.Scratch.TeamTitle != "Первая линия" {
		t.Fatalf("state = %+v", st)
	}

	deps.Process(ctx, callback("select_employee$e2"))
	deps.Process(ctx, callback("confirm_resp"))

	if gotResponsible != "e2" {
		t.Fatalf("responsible = %q, want e2", gotResponsible)
	}
	if st := deps.Sessions.Get(testUser); st.Flow != session.FlowNone {
		t.Fatalf("flow = %q, want none", st.Flow)
	}
}

// кнопки главного меню внутри сценария игнорируются
func TestMenuCallbackIgnoredInsideFlow(t *testing.T) {
	createCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/find_employee", employeeHandler(nil, false))
	mux.HandleFunc("/find_sc", func(w http.ResponseWriter, r *http.Request) {
		createCalls++
	})

	deps, _ := newTestDeps(t, mux)
	ctx := context.Background()

	deps.Process(ctx, callback("create_issue"))
	deps.Process(ctx, callback("scs_client"))

	if createCalls != 0 {
		t.Fatal("menu callback worked inside another flow")
	}
	if st := deps.Sessions.Get(testUser); st.Flow != session.FlowCreateIssue {
		t.Fatalf("flow = %q, want create_issue", st.Flow)
	}
}
