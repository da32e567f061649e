package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"itsm-text-bot/internal/gateway"
	"itsm-text-bot/internal/itsm"
	"itsm-text-bot/internal/logger"
	"itsm-text-bot/internal/pagecache"
	"itsm-text-bot/internal/session"
)

// смена ответственного по заявке: change_resp$<номер>
func cbChangeResp(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)
	if rc.Arg == "" {
		return nil
	}

	uid := rc.Ev.UserID
	st := rc.Sessions.Enter(uid, session.FlowChangeResponsible, "team")
	st.Scratch.ScNumber = rc.Arg
	rc.Sessions.Put(uid, st)

	teams, ok := rc.ensureTeams(ctx, rc.Arg)
	if !ok {
		return nil
	}
	if len(teams) == 0 {
		rc.reply(ctx, rc.Texts.ItsmEmptyResponse)
		rc.Sessions.Clear(uid)
		return nil
	}

	rc.replyKb(ctx, rc.Texts.ChooseTeam, teamsKb(teams, 0))
	return nil
}

// ensureTeams заполняет кеш команд при необходимости и возвращает их
// целиком. false - загрузка не удалась или уже идет в другой горутине.
func (rc *Ctx) ensureTeams(ctx context.Context, scNumber string) ([]itsm.Team, bool) {
	uid := rc.Ev.UserID
	key := pagecache.TeamsKey(uid, scNumber)

	if !rc.Lists.Exists(ctx, key) {
		if !rc.Guard.Begin(key) {
			return nil, false
		}
		defer rc.Guard.End(key)

		teams, err := rc.Itsm.Responsibles(ctx, uid, scNumber)
		if err != nil {
			logger.Warning("Не удалось получить команды по заявке", scNumber, ":", err)
			rc.reply(ctx, rc.Texts.ItsmError)
			rc.Sessions.Clear(uid)
			return nil, false
		}

		items := make([]string, 0, len(teams))
		for _, team := range teams {
			b, err := json.Marshal(team)
			if err != nil {
				continue
			}
			items = append(items, string(b))
		}
		rc.Lists.Set(ctx, key, items)
		return teams, true
	}

	total := rc.Lists.Len(ctx, key)
	items := rc.Lists.Read(ctx, key, 0, total)

	teams := make([]itsm.Team, 0, len(items))
	for _, item := range items {
		var team itsm.Team
		if err := json.Unmarshal([]byte(item), &team); err != nil {
			continue
		}
		teams = append(teams, team)
	}
	return teams, true
}

func teamsKb(teams []itsm.Team, page int) gateway.Keyboard {
	start := page * pageSize
	end := start + pageSize
	if start > len(teams) {
		start = 0
		end = pageSize
	}
	if end > len(teams) {
		end = len(teams)
	}

	var kb gateway.Keyboard
	for _, team := range teams[start:end] {
		kb = append(kb, gateway.Row(gateway.Button{Text: team.Title, Data: "select_team$" + team.ID}))
	}

	kb = append(kb, pageNav("team_page_", page, len(teams))...)
	kb = append(kb, gateway.Row(cancelBtn()))
	return kb
}

// перелистывание команд: team_page_<N>
func cbTeamPage(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	page, err := strconv.Atoi(rc.Arg)
	if err != nil || page < 0 {
		return nil
	}

	st := rc.Sessions.Get(rc.Ev.UserID)
	teams, ok := rc.ensureTeams(ctx, st.Scratch.ScNumber)
	if !ok || len(teams) == 0 {
		return nil
	}

	if err := rc.Gw.Edit(ctx, rc.Ev.UserID, rc.Ev.MessageID, rc.Texts.ChooseTeam, teamsKb(teams, page)); err != nil {
		logger.Warning("Не удалось обновить страницу команд:", err)
	}
	return nil
}

func employeesKb(team *itsm.Team) gateway.Keyboard {
	var kb gateway.Keyboard

	for _, e := range team.Responsibles {
		kb = append(kb, gateway.Row(gateway.Button{Text: e.Title, Data: "select_employee$" + e.ID}))
	}
	kb = append(kb, gateway.Row(gateway.Button{Text: "Назначить на команду", Data: "assign_team$" + team.ID}))
	kb = append(kb, gateway.Row(gateway.Button{Text: "Назад", Data: "back_to_teams"}, cancelBtn()))
	return kb
}

func (rc *Ctx) findTeam(ctx context.Context, scNumber, teamID string) *itsm.Team {
	teams, ok := rc.ensureTeams(ctx, scNumber)
	if !ok {
		return nil
	}
	for i := range teams {
		if teams[i].ID == teamID {
			return &teams[i]
		}
	}
	return nil
}

// выбор команды: select_team$<id>
func cbSelectTeam(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)

	team := rc.findTeam(ctx, st.Scratch.ScNumber, rc.Arg)
	if team == nil {
		return nil
	}

	st.Scratch.TeamID = team.ID
	st.Scratch.TeamTitle = team.Title
	st.Step = "employee"
	rc.Sessions.Put(uid, st)

	rc.removeInbound(ctx)
	rc.replyKb(ctx, rc.Texts.ChooseEmployee, employeesKb(team))
	return nil
}

func cbBackToTeams(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)
	st.Step = "team"
	st.Scratch.TeamID = ""
	st.Scratch.TeamTitle = ""
	st.Scratch.EmployeeID = ""
	st.Scratch.EmployeeTitle = ""
	rc.Sessions.Put(uid, st)

	teams, ok := rc.ensureTeams(ctx, st.Scratch.ScNumber)
	if !ok || len(teams) == 0 {
		return nil
	}

	rc.removeInbound(ctx)
	rc.replyKb(ctx, rc.Texts.ChooseTeam, teamsKb(teams, 0))
	return nil
}

// выбор сотрудника: select_employee$<id>
func cbSelectEmployee(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)

	team := rc.findTeam(ctx, st.Scratch.ScNumber, st.Scratch.TeamID)
	if team == nil {
		return nil
	}

	var title string
	for _, e := range team.Responsibles {
		if e.ID == rc.Arg {
			title = e.Title
			break
		}
	}
	if title == "" {
		return nil
	}

	st.Scratch.EmployeeID = rc.Arg
	st.Scratch.EmployeeTitle = title
	st.Step = "confirm"
	rc.Sessions.Put(uid, st)

	rc.removeInbound(ctx)
	rc.sendRespConfirm(ctx, st)
	return nil
}

// назначение на команду целиком: assign_team$<id>
func cbAssignTeam(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)

	st.Scratch.TeamID = rc.Arg
	st.Scratch.EmployeeID = ""
	st.Scratch.EmployeeTitle = ""
	st.Step = "confirm"
	rc.Sessions.Put(uid, st)

	rc.removeInbound(ctx)
	rc.sendRespConfirm(ctx, st)
	return nil
}

func (rc *Ctx) sendRespConfirm(ctx context.Context, st session.State) {
	target := st.Scratch.EmployeeTitle
	if target == "" {
		target = "команда " + st.Scratch.TeamTitle
	}

	summary := fmt.Sprintf("%s\nЗаявка №%s\nНовый ответственный: %s",
		rc.Texts.ConfirmResponsible, st.Scratch.ScNumber, target)

	kb := gateway.Keyboard{
		gateway.Row(gateway.Button{Text: "Назад", Data: "back_to_employees"}),
		gateway.Row(cancelBtn(), gateway.Button{Text: "Подтвердить", Data: "confirm_resp"}),
	}
	rc.replyKb(ctx, summary, kb)
}

func cbBackToEmployees(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)

	team := rc.findTeam(ctx, st.Scratch.ScNumber, st.Scratch.TeamID)
	if team == nil {
		return nil
	}

	st.Step = "employee"
	st.Scratch.EmployeeID = ""
	st.Scratch.EmployeeTitle = ""
	rc.Sessions.Put(uid, st)

	rc.removeInbound(ctx)
	rc.replyKb(ctx, rc.Texts.ChooseEmployee, employeesKb(team))
	return nil
}

func cbConfirmResp(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)

	responsibleID := st.Scratch.EmployeeID
	if responsibleID == "" {
		responsibleID = st.Scratch.TeamID
	}
	if responsibleID == "" || st.Scratch.ScNumber == "" {
		rc.Sessions.Clear(uid)
		return nil
	}

	epoch := st.Epoch
	err := rc.Itsm.ChangeResponsible(ctx, uid, st.Scratch.ScNumber, responsibleID)
	if !rc.Sessions.Fresh(uid, epoch) {
		return nil
	}

	if err != nil {
		logger.Warning("Не удалось сменить ответственного по", st.Scratch.ScNumber, ":", err)
		rc.reply(ctx, rc.Texts.ResponsibleChangeErr)
		rc.Sessions.Clear(uid)
		return nil
	}

	// закешированный список команд по заявке больше не актуален
	rc.Lists.Delete(ctx, pagecache.TeamsKey(uid, st.Scratch.ScNumber))

	rc.removeInbound(ctx)
	rc.reply(ctx, rc.Texts.ResponsibleChanged)
	rc.Sessions.Clear(uid)
	return nil
}
