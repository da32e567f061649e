package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"itsm-text-bot/internal/gateway"
	"itsm-text-bot/internal/itsm"
	"itsm-text-bot/internal/logger"
	"itsm-text-bot/internal/pagecache"
	"itsm-text-bot/internal/session"
)

type formField struct {
	// имя поля в запросе к ITSM
	key    string
	prompt string
}

// состав форм по номеру из услуги маркетинга
var (
	designForm = []formField{
		{"LayoutName", "Название макета"},
		{"Size", "Размеры макета"},
		{"ForWhat", "Для чего нужен макет"},
		{"RequiredText", "Обязательный текст на макете"},
	}
	eventForm = []formField{
		{"ThemeEvent", "Тема мероприятия"},
		{"Description", "Описание мероприятия"},
		{"Budget", "Бюджет"},
	}
	genericForm = []formField{
		{"Description", "Описание заявки"},
	}
)

func formFor(n int) []formField {
	switch n {
	case 1:
		return designForm
	case 2:
		return eventForm
	default:
		return genericForm
	}
}

var layoutFormats = []string{"A4", "A3", "Баннер", "Соцсети", "Электронный"}

func cbMarketing(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	if rc.Employee == nil || !rc.Employee.Marketing {
		rc.reply(ctx, rc.Texts.MarketingUnavailable)
		return nil
	}

	rc.removeInbound(ctx)
	rc.Sessions.Enter(rc.Ev.UserID, session.FlowMarketing, "type")

	kb := gateway.Keyboard{
		gateway.Row(gateway.Button{Text: "Маркетинговая заявка", Data: "mr_type$marketing"}),
		gateway.Row(cancelBtn()),
	}
	rc.replyKb(ctx, rc.Texts.MarketingChooseType, kb)
	return nil
}

func cbMrType(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)
	st.Step = "service"
	rc.Sessions.Put(uid, st)

	rc.removeInbound(ctx)
	return rc.sendServices(ctx)
}

func (rc *Ctx) sendServices(ctx context.Context) error {
	uid := rc.Ev.UserID

	services, err := rc.Itsm.MarketingServices(ctx, uid)
	if err != nil {
		logger.Warning("Не удалось получить услуги маркетинга:", err)
		rc.reply(ctx, rc.Texts.ItsmError)
		rc.Sessions.Clear(uid)
		return nil
	}
	if len(services) == 0 {
		rc.reply(ctx, rc.Texts.ItsmEmptyResponse)
		rc.Sessions.Clear(uid)
		return nil
	}

	var kb gateway.Keyboard
	for _, svc := range services {
		kb = append(kb, gateway.Row(gateway.Button{
			Text: svc.Name,
			Data: fmt.Sprintf("mr_service$%d$%s", svc.FormNumber, svc.Name),
		}))
	}
	kb = append(kb, gateway.Row(cancelBtn()))

	rc.replyKb(ctx, rc.Texts.MarketingChooseService, kb)
	return nil
}

// выбор услуги: mr_service$<номер формы>$<название>
func cbMrService(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	parts := strings.SplitN(rc.Arg, "$", 2)
	if len(parts) != 2 {
		return nil
	}
	form, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil
	}

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)
	st.Scratch.Service = parts[1]
	st.Scratch.FormNumber = form
	st.Step = "subdivision"
	rc.Sessions.Put(uid, st)

	rc.removeInbound(ctx)
	return rc.sendSubdivisions(ctx)
}

// ensureSubdivisions заполняет кеш подразделений при необходимости
func (rc *Ctx) ensureSubdivisions(ctx context.Context) ([]string, bool) {
	uid := rc.Ev.UserID
	key := pagecache.SubdivisionsKey(uid)

	if !rc.Lists.Exists(ctx, key) {
		if !rc.Guard.Begin(key) {
			return nil, false
		}
		defer rc.Guard.End(key)

		subs, err := rc.Itsm.MarketingSubdivisions(ctx, uid)
		if err != nil {
			logger.Warning("Не удалось получить подразделения маркетинга:", err)
			rc.reply(ctx, rc.Texts.ItsmError)
			rc.Sessions.Clear(uid)
			return nil, false
		}
		rc.Lists.Set(ctx, key, subs)
		return subs, true
	}

	total := rc.Lists.Len(ctx, key)
	return rc.Lists.Read(ctx, key, 0, total), true
}

func (rc *Ctx) sendSubdivisions(ctx context.Context) error {
	subs, ok := rc.ensureSubdivisions(ctx)
	if !ok {
		return nil
	}
	if len(subs) == 0 {
		rc.reply(ctx, rc.Texts.ItsmEmptyResponse)
		rc.Sessions.Clear(rc.Ev.UserID)
		return nil
	}

	var kb gateway.Keyboard
	for i, sub := range subs {
		kb = append(kb, gateway.Row(gateway.Button{Text: sub, Data: "mr_subdiv$" + strconv.Itoa(i)}))
	}
	kb = append(kb, gateway.Row(gateway.Button{Text: "Назад", Data: "mr_back"}, cancelBtn()))

	rc.replyKb(ctx, rc.Texts.MarketingChooseSubdivision, kb)
	return nil
}

// выбор подразделения: mr_subdiv$<индекс в кеше>
func cbMrSubdiv(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	idx, err := strconv.Atoi(rc.Arg)
	if err != nil {
		return nil
	}

	subs, ok := rc.ensureSubdivisions(ctx)
	if !ok {
		return nil
	}
	if idx < 0 || idx >= len(subs) {
		return nil
	}

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)
	st.Scratch.Subdivision = subs[idx]
	st.Step = "date"
	rc.Sessions.Put(uid, st)

	rc.removeInbound(ctx)
	rc.replyKb(ctx, rc.Texts.MarketingChooseDate, dateKeyboard("calendar"))
	return nil
}

func msgMrDate(ctx context.Context, rc *Ctx) error {
	return rc.marketingDate(ctx, rc.Ev.Text)
}

func cbMrDate(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)
	return rc.marketingDate(ctx, rc.Arg)
}

func (rc *Ctx) marketingDate(ctx context.Context, raw string) error {
	t, err := ParseUserDate(raw)
	if err != nil {
		rc.replyKb(ctx, rc.Texts.BadDate, dateKeyboard("calendar"))
		return nil
	}
	if InPast(t) {
		rc.replyKb(ctx, rc.Texts.PastDate, dateKeyboard("calendar"))
		return nil
	}

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)
	st.Scratch.ExecutionDate = t.Format("02.01.2006")
	st.Step = "form"
	st.Scratch.FormIndex = 0
	rc.Sessions.Put(uid, st)

	rc.promptFormField(ctx, st)
	return nil
}

func (rc *Ctx) promptFormField(ctx context.Context, st session.State) {
	fields := formFor(st.Scratch.FormNumber)
	if st.Scratch.FormIndex >= len(fields) {
		return
	}
	rc.replyKb(ctx, fmt.Sprintf(rc.Texts.MarketingFillForm, fields[st.Scratch.FormIndex].prompt), kbCancel())
}

// очередное поле формы
func msgMrForm(ctx context.Context, rc *Ctx) error {
	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)

	fields := formFor(st.Scratch.FormNumber)
	if st.Scratch.FormIndex >= len(fields) {
		return nil
	}

	text := strings.TrimSpace(rc.Ev.Text)
	if text == "" {
		rc.promptFormField(ctx, st)
		return nil
	}

	if st.Scratch.FormFields == nil {
		st.Scratch.FormFields = make(map[string]string)
	}
	st.Scratch.FormFields[fields[st.Scratch.FormIndex].key] = text
	st.Scratch.FormIndex++

	if st.Scratch.FormIndex < len(fields) {
		rc.Sessions.Put(uid, st)
		rc.promptFormField(ctx, st)
		return nil
	}

	// форма дизайна дополнительно спрашивает форматы и файлы
	if st.Scratch.FormNumber == 1 {
		st.Step = "formats"
		rc.Sessions.Put(uid, st)
		rc.replyKb(ctx, rc.Texts.MarketingFormats, formatsKb(st.Scratch.LayoutFormats))
		return nil
	}

	st.Step = "preview"
	rc.Sessions.Put(uid, st)
	rc.sendPreview(ctx, st)
	return nil
}

func formatsKb(selected []string) gateway.Keyboard {
	chosen := make(map[string]bool, len(selected))
	for _, s := range selected {
		chosen[s] = true
	}

	var kb gateway.Keyboard
	for _, f := range layoutFormats {
		title := f
		if chosen[f] {
			title = "✔ " + f
		}
		kb = append(kb, gateway.Row(gateway.Button{Text: title, Data: "mr_format$" + f}))
	}
	kb = append(kb, gateway.Row(gateway.Button{Text: "Готово", Data: "mr_formats_done"}))
	kb = append(kb, gateway.Row(gateway.Button{Text: "Назад", Data: "mr_back"}, cancelBtn()))
	return kb
}

// переключение формата: mr_format$<формат>
func cbMrFormat(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)

	found := false
	for i, f := range st.Scratch.LayoutFormats {
		if f == rc.Arg {
			st.Scratch.LayoutFormats = append(st.Scratch.LayoutFormats[:i], st.Scratch.LayoutFormats[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		st.Scratch.LayoutFormats = append(st.Scratch.LayoutFormats, rc.Arg)
	}
	rc.Sessions.Put(uid, st)

	if err := rc.Gw.Edit(ctx, uid, rc.Ev.MessageID, rc.Texts.MarketingFormats, formatsKb(st.Scratch.LayoutFormats)); err != nil {
		logger.Warning("Не удалось обновить выбор форматов:", err)
	}
	return nil
}

func cbMrFormatsDone(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)

	if st.Scratch.FormFields == nil {
		st.Scratch.FormFields = make(map[string]string)
	}
	st.Scratch.FormFields["LayoutFormats"] = strings.Join(st.Scratch.LayoutFormats, ", ")
	st.Step = "files"
	rc.Sessions.Put(uid, st)

	rc.removeInbound(ctx)

	kb := gateway.Keyboard{
		gateway.Row(gateway.Button{Text: "Готово", Data: "mr_files_done"}),
		gateway.Row(gateway.Button{Text: "Назад", Data: "mr_back"}, cancelBtn()),
	}
	rc.replyKb(ctx, rc.Texts.MarketingUploadFiles, kb)
	return nil
}

func msgMrFile(ctx context.Context, rc *Ctx) error {
	uid := rc.Ev.UserID

	if rc.Ev.Attachment == nil {
		rc.reply(ctx, rc.Texts.MarketingUploadFiles)
		return nil
	}

	path, err := rc.Gw.DownloadFile(ctx, rc.Ev.Attachment.FileRef)
	if err != nil {
		logger.Warning("Не удалось скачать вложение:", err)
		rc.reply(ctx, rc.Texts.TryLater)
		return nil
	}

	st := rc.Sessions.Get(uid)
	st.Scratch.Files = append(st.Scratch.Files, itsm.FileRef{
		Path:     path,
		Filename: rc.Ev.Attachment.FileName,
	})
	rc.Sessions.Put(uid, st)

	rc.reply(ctx, rc.Texts.FilePrepared)
	return nil
}

func cbMrFilesDone(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)
	st.Step = "preview"
	rc.Sessions.Put(uid, st)

	rc.removeInbound(ctx)
	rc.sendPreview(ctx, st)
	return nil
}

func (rc *Ctx) sendPreview(ctx context.Context, st session.State) {
	var b strings.Builder

	b.WriteString(rc.Texts.MarketingPreview + "\n")
	fmt.Fprintf(&b, "Услуга: %s\n", st.Scratch.Service)
	fmt.Fprintf(&b, "Подразделение: %s\n", st.Scratch.Subdivision)
	fmt.Fprintf(&b, "Дата исполнения: %s\n", st.Scratch.ExecutionDate)

	for _, f := range formFor(st.Scratch.FormNumber) {
		if v := st.Scratch.FormFields[f.key]; v != "" {
			fmt.Fprintf(&b, "%s: %s\n", f.prompt, v)
		}
	}
	if v := st.Scratch.FormFields["LayoutFormats"]; v != "" {
		fmt.Fprintf(&b, "Форматы: %s\n", v)
	}
	if len(st.Scratch.Files) > 0 {
		fmt.Fprintf(&b, "Вложений: %d\n", len(st.Scratch.Files))
	}

	kb := gateway.Keyboard{
		gateway.Row(gateway.Button{Text: "Назад", Data: "mr_back"}),
		gateway.Row(cancelBtn(), gateway.Button{Text: "Отправить", Data: "mr_confirm"}),
	}
	rc.replyKb(ctx, strings.TrimRight(b.String(), "\n"), kb)
}

func cbMrConfirm(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)

	req := itsm.MarketingRequest{
		Telegram:      uid,
		Service:       st.Scratch.Service,
		Subdivision:   st.Scratch.Subdivision,
		ExecutionDate: st.Scratch.ExecutionDate,
		Fields:        st.Scratch.FormFields,
		Files:         st.Scratch.Files,
	}

	epoch := st.Epoch
	err := rc.Itsm.CreateMarketingRequest(ctx, req)
	if !rc.Sessions.Fresh(uid, epoch) {
		return nil
	}

	if err != nil {
		logger.Warning("Не удалось создать маркетинговую заявку:", err)
		rc.reply(ctx, rc.Texts.MarketingCreateError)
		rc.Sessions.Clear(uid)
		return nil
	}

	rc.removeInbound(ctx)
	rc.reply(ctx, rc.Texts.MarketingCreated)
	rc.Sessions.Clear(uid)
	return nil
}

// возврат на предыдущий шаг: mr_back
func cbMrBack(ctx context.Context, rc *Ctx) error {
	rc.ack(ctx)
	rc.removeInbound(ctx)

	uid := rc.Ev.UserID
	st := rc.Sessions.Get(uid)

	switch st.Step {
	case "subdivision":
		st.Step = "service"
		rc.Sessions.Put(uid, st)
		return rc.sendServices(ctx)
	case "date":
		st.Step = "subdivision"
		rc.Sessions.Put(uid, st)
		return rc.sendSubdivisions(ctx)
	case "form":
		st.Step = "date"
		rc.Sessions.Put(uid, st)
		rc.replyKb(ctx, rc.Texts.MarketingChooseDate, dateKeyboard("calendar"))
	case "formats":
		st.Step = "form"
		st.Scratch.FormIndex = 0
		rc.Sessions.Put(uid, st)
		rc.promptFormField(ctx, st)
	case "files":
		st.Step = "formats"
		rc.Sessions.Put(uid, st)
		rc.replyKb(ctx, rc.Texts.MarketingFormats, formatsKb(st.Scratch.LayoutFormats))
	case "preview":
		if st.Scratch.FormNumber == 1 {
			st.Step = "files"
			rc.Sessions.Put(uid, st)
			kb := gateway.Keyboard{
				gateway.Row(gateway.Button{Text: "Готово", Data: "mr_files_done"}),
				gateway.Row(gateway.Button{Text: "Назад", Data: "mr_back"}, cancelBtn()),
			}
			rc.replyKb(ctx, rc.Texts.MarketingUploadFiles, kb)
			return nil
		}
		st.Step = "form"
		st.Scratch.FormIndex = 0
		rc.Sessions.Put(uid, st)
		rc.promptFormField(ctx, st)
	}
	return nil
}
