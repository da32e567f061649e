package itsm

import "github.com/google/uuid"

type (
	// Employee - ответ find_employee
	Employee struct {
		UUID uuid.UUID `json:"UUID"`
		// номера заявок, созданных сотрудником
		ServiceCalls []string `json:"servicecalls"`
		// доступно ли сотруднику создание маркетинговых заявок
		Marketing bool `json:"marketing"`
	}

	// TicketSummary - ответ find_sc
	TicketSummary struct {
		Number              string   `json:"number"`
		ShortDescription    string   `json:"shortDescription"`
		Description         string   `json:"description"`
		State               string   `json:"state"`
		ResponsibleTeam     string   `json:"responsibleTeamTitle"`
		ResponsibleEmployee string   `json:"responsibleEmployeeTitle"`
		Deadline            string   `json:"deadlineDate"`
		// допустимые переходы статуса
		NewStates []string `json:"newState"`
		// можно ли менять ответственного
		ChangeResponsible bool `json:"changeResponsible"`
	}

	// Team - элемент ответа get_responsibles
	Team struct {
		ID           string        `json:"id"`
		Title        string        `json:"title"`
		Responsibles []Responsible `json:"responsibles"`
	}

	Responsible struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}

	// MarketingService - элемент ответа listServicesMarketing.
	// FormNumber выбирает состав формы: 1 - дизайн, 2 - мероприятие, 3 - прочее
	MarketingService struct {
		Name       string `json:"name"`
		FormNumber int    `json:"formNumber"`
	}

	// FileRef - вложение, приложенное пользователем к заявке или комментарию
	FileRef struct {
		Path     string `json:"path"`
		Filename string `json:"filename"`
	}

	// RegistrationRequest - заявка на регистрацию нового пользователя
	RegistrationRequest struct {
		Telegram     string `json:"telegram"`
		FIO          string `json:"FIO"`
		Organization string `json:"Organization"`
		Subdivision  string `json:"Subdivision"`
		NamePosition string `json:"NamePosition"`
	}

	// MarketingRequest - маркетинговая заявка
	MarketingRequest struct {
		Telegram      int64             `json:"telegram"`
		Service       string            `json:"Services"`
		Subdivision   string            `json:"Subdivision"`
		ExecutionDate string            `json:"ExecutionDate"`
		Fields        map[string]string `json:"-"`
		Files         []FileRef         `json:"-"`
	}
)

// зарегистрирована ли заявка (еще не взята в работу)
func (t *TicketSummary) Registered() bool {
	return t.State == "registered"
}
