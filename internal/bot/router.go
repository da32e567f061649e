package bot

import (
	"context"
	"strings"

	"itsm-text-bot/internal/gateway"
	"itsm-text-bot/internal/session"
)

// Scope ограничивает правило состоянием диалога
type Scope int

const (
	// ScopeAny - правило срабатывает в любом состоянии
	ScopeAny Scope = iota
	// ScopeNoFlow - только вне активного сценария
	ScopeNoFlow
	// ScopeFlow - только в сценарии Flow (и шаге Step, если задан)
	ScopeFlow
)

type (
	Handler func(ctx context.Context, rc *Ctx) error

	// Rule - одно правило маршрутизации. Условия на событие (Command,
	// Text, Verb, AnyContact, AnyCallback, AnyMessage) взаимоисключающие,
	// условие на состояние (Scope/Flow/Step) дополняет их.
	Rule struct {
		Scope Scope
		Flow  session.Flow
		Step  string

		Command string
		// точное совпадение текста без учета регистра
		Text string
		// верб callback. Верб с "_" на конце - префиксный, остаток
		// после префикса становится аргументом (номер страницы).
		// Обычный верб совпадает целиком или несет аргумент после "$".
		Verb        string
		AnyContact  bool
		AnyCallback bool
		AnyMessage  bool

		Handle Handler
	}

	// Router перебирает правила по порядку и выполняет первое подошедшее.
	// Порядок регистрации и есть приоритет.
	Router struct {
		rules []Rule
	}
)

func (r *Router) Add(rule Rule) {
	r.rules = append(r.rules, rule)
}

func (r *Router) Dispatch(ctx context.Context, rc *Ctx, st session.State) error {
	for i := range r.rules {
		arg, ok := r.rules[i].match(&rc.Ev, st)
		if !ok {
			continue
		}
		rc.Arg = arg
		return r.rules[i].Handle(ctx, rc)
	}
	return nil
}

func (r *Rule) match(ev *gateway.Event, st session.State) (arg string, ok bool) {
	switch r.Scope {
	case ScopeNoFlow:
		if st.Flow != session.FlowNone {
			return "", false
		}
	case ScopeFlow:
		if st.Flow != r.Flow {
			return "", false
		}
		if r.Step != "" && st.Step != r.Step {
			return "", false
		}
	}

	switch {
	case r.Command != "":
		return "", ev.Command == r.Command
	case r.Text != "":
		return "", !ev.IsCallback() && strings.EqualFold(strings.TrimSpace(ev.Text), r.Text)
	case r.Verb != "":
		if !ev.IsCallback() {
			return "", false
		}
		return matchVerb(ev.Callback, r.Verb)
	case r.AnyContact:
		return "", ev.Contact != ""
	case r.AnyCallback:
		return "", ev.IsCallback()
	case r.AnyMessage:
		return "", !ev.IsCallback() && ev.Command == "" && (ev.Text != "" || ev.Attachment != nil)
	}
	return "", false
}

func matchVerb(cb, verb string) (arg string, ok bool) {
	if strings.HasSuffix(verb, "_") {
		if strings.HasPrefix(cb, verb) {
			return cb[len(verb):], true
		}
		return "", false
	}
	if cb == verb {
		return "", true
	}
	if strings.HasPrefix(cb, verb+"$") {
		return cb[len(verb)+1:], true
	}
	return "", false
}

// buildRouter регистрирует все правила бота. Порядок важен: глобальные
// команды и отмена раньше сценариев, сценарии раньше хвостовых правил.
func buildRouter() *Router {
	r := &Router{}

	r.Add(Rule{Command: "/start", Handle: handleStart})
	r.Add(Rule{Command: "/menu", Handle: handleMenu})
	r.Add(Rule{Text: btnTextMenu, Handle: handleMenu})
	r.Add(Rule{Verb: "menu", Handle: handleMenu})
	r.Add(Rule{Text: btnTextCancel, Handle: handleCancel})
	r.Add(Rule{Verb: "cancel", Handle: handleCancel})
	r.Add(Rule{Command: "/admin", Handle: cmdAdmin})
	r.Add(Rule{Command: "/phone", Handle: cmdPhone})
	r.Add(Rule{Command: "/calendar", Handle: cmdCalendar})
	r.Add(Rule{AnyContact: true, Handle: handleContact})
	r.Add(Rule{Verb: "del_message", Handle: cbDelMessage})
	r.Add(Rule{Verb: "delete_pagination", Handle: cbDelMessage})
	r.Add(Rule{Verb: "accept", Handle: cbAccept})
	r.Add(Rule{Verb: "reject", Handle: cbReject})

	// главное меню и карточка заявки, только вне сценария
	r.Add(Rule{Scope: ScopeNoFlow, Verb: "create_issue", Handle: cbCreateIssue})
	r.Add(Rule{Scope: ScopeNoFlow, Verb: "scs_client", Handle: cbMyTickets})
	r.Add(Rule{Scope: ScopeNoFlow, Verb: "responsibility_scs_client", Handle: cbRespTickets})
	r.Add(Rule{Scope: ScopeNoFlow, Verb: "scs_search", Handle: cbSearch})
	r.Add(Rule{Scope: ScopeNoFlow, Verb: "marketing_request", Handle: cbMarketing})
	r.Add(Rule{Scope: ScopeNoFlow, Verb: "sc_page_", Handle: cbScPage})
	r.Add(Rule{Scope: ScopeNoFlow, Verb: "resp_page_", Handle: cbRespPage})
	r.Add(Rule{Scope: ScopeNoFlow, Verb: "show_sc", Handle: cbShowSc})
	r.Add(Rule{Scope: ScopeNoFlow, Verb: "show_state", Handle: cbShowState})
	r.Add(Rule{Scope: ScopeNoFlow, Verb: "ch_st_", Handle: cbChangeState})
	r.Add(Rule{Scope: ScopeNoFlow, Verb: "change_resp", Handle: cbChangeResp})
	r.Add(Rule{Scope: ScopeNoFlow, Verb: "confirm_sc", Handle: cbGradeCapture})
	r.Add(Rule{Scope: ScopeNoFlow, Verb: "reply", Handle: cbReply})
	r.Add(Rule{Scope: ScopeNoFlow, Verb: "admin_assign", Handle: cbAdminAssign})

	// создание заявки
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowCreateIssue, Verb: "send_issue", Handle: cbSendIssue})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowCreateIssue, AnyMessage: true, Handle: msgIssueContent})

	// комментарий к заявке
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowCreateComment, Verb: "send_comment", Handle: cbSendComment})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowCreateComment, AnyMessage: true, Handle: msgCommentContent})

	// поиск по номеру
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowSearchByNumber, AnyMessage: true, Handle: msgSearchNumber})

	// оценка заявки
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowConfirmGrade, Verb: "add_confirm_comment", Handle: cbAddGradeComment})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowConfirmGrade, Verb: "send_confirm", Handle: cbGradeSend})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowConfirmGrade, Step: "comment", AnyMessage: true, Handle: msgGradeComment})

	// смена статуса (перенос заявки)
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowChangeStatus, Step: "date", Verb: "calendar", Handle: cbStatusDate})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowChangeStatus, Verb: "status_back", Handle: cbStatusBack})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowChangeStatus, Step: "confirm", Verb: "confirm_status", Handle: cbStatusConfirm})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowChangeStatus, Step: "comment", AnyMessage: true, Handle: msgStatusComment})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowChangeStatus, Step: "date", AnyMessage: true, Handle: msgStatusDate})

	// смена ответственного
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowChangeResponsible, Verb: "team_page_", Handle: cbTeamPage})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowChangeResponsible, Step: "team", Verb: "select_team", Handle: cbSelectTeam})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowChangeResponsible, Verb: "back_to_teams", Handle: cbBackToTeams})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowChangeResponsible, Step: "employee", Verb: "select_employee", Handle: cbSelectEmployee})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowChangeResponsible, Step: "employee", Verb: "assign_team", Handle: cbAssignTeam})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowChangeResponsible, Step: "confirm", Verb: "back_to_employees", Handle: cbBackToEmployees})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowChangeResponsible, Step: "confirm", Verb: "confirm_resp", Handle: cbConfirmResp})

	// маркетинговая заявка
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowMarketing, Step: "type", Verb: "mr_type", Handle: cbMrType})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowMarketing, Step: "service", Verb: "mr_service", Handle: cbMrService})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowMarketing, Step: "subdivision", Verb: "mr_subdiv", Handle: cbMrSubdiv})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowMarketing, Step: "date", Verb: "calendar", Handle: cbMrDate})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowMarketing, Step: "formats", Verb: "mr_format", Handle: cbMrFormat})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowMarketing, Step: "formats", Verb: "mr_formats_done", Handle: cbMrFormatsDone})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowMarketing, Step: "files", Verb: "mr_files_done", Handle: cbMrFilesDone})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowMarketing, Step: "preview", Verb: "mr_confirm", Handle: cbMrConfirm})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowMarketing, Verb: "mr_back", Handle: cbMrBack})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowMarketing, Step: "date", AnyMessage: true, Handle: msgMrDate})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowMarketing, Step: "form", AnyMessage: true, Handle: msgMrForm})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowMarketing, Step: "files", AnyMessage: true, Handle: msgMrFile})

	// регистрация
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowRegistration, Step: "telegram", Verb: "reg_use_id", Handle: cbRegUseID})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowRegistration, Step: "confirm", Verb: "reg_submit", Handle: cbRegSubmit})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowRegistration, AnyMessage: true, Handle: msgRegText})

	// администрирование
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowAdmin, Step: "phone", AnyMessage: true, Handle: msgAdminPhone})
	r.Add(Rule{Scope: ScopeFlow, Flow: session.FlowAdmin, Step: "confirm", Verb: "admin_confirm", Handle: cbAdminConfirm})

	// все, что не распознали
	r.Add(Rule{AnyCallback: true, Handle: cbUnknown})
	r.Add(Rule{AnyMessage: true, Handle: handleFallback})

	return r
}
