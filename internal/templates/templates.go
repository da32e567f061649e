package templates

import (
	"bytes"
	"io"
	"os"
	"sync"

	"itsm-text-bot/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-yaml"
)

var lock = &sync.RWMutex{}
var texts *Texts

// Texts - все тексты ответов бота. Любое поле можно переопределить
// в yaml файле, пустые поля заполняются значениями по умолчанию.
type Texts struct {
	StartGreetings  string `yaml:"start_greetings"`
	GoToMainMenu    string `yaml:"go_to_main_menu"`
	ChooseMenuItem  string `yaml:"choose_menu_item"`
	CommandUnknown  string `yaml:"command_unknown"`
	ActionsCanceled string `yaml:"actions_canceled"`
	AccessDenied    string `yaml:"access_denied"`

	ItsmError         string `yaml:"itsm_error"`
	ItsmEmptyResponse string `yaml:"itsm_empty_response"`
	TryLater          string `yaml:"try_later"`

	RegistrationRequired string `yaml:"registration_required"`
	RegistrationPending  string `yaml:"registration_pending"`
	RegistrationSuccess  string `yaml:"registration_success"`
	RegistrationFailed   string `yaml:"registration_failed"`
	RegistrationCanceled string `yaml:"registration_canceled"`
	RegEnterFIO          string `yaml:"reg_enter_fio"`
	RegEnterOrganization string `yaml:"reg_enter_organization"`
	RegEnterSubdivision  string `yaml:"reg_enter_subdivision"`
	RegEnterPosition     string `yaml:"reg_enter_position"`
	RegConfirm           string `yaml:"reg_confirm"`

	EnterIssueDescription string `yaml:"enter_issue_description"`
	EmptyIssueDescription string `yaml:"empty_issue_description"`
	ReadyToSend           string `yaml:"ready_to_send"`
	FilePrepared          string `yaml:"file_prepared"`
	IssueCreated          string `yaml:"issue_created"`
	IssueCreationError    string `yaml:"issue_creation_error"`

	EnterIssueNumber string `yaml:"enter_issue_number"`
	IssueNotFound    string `yaml:"issue_not_found"`

	EnterComment     string `yaml:"enter_comment"`
	EmptyComment     string `yaml:"empty_comment"`
	ShortComment     string `yaml:"short_comment"`
	CommentPrepared  string `yaml:"comment_prepared"`
	CommentSending   string `yaml:"comment_sending"`
	CommentAdded     string `yaml:"comment_added"`
	CommentMandatory string `yaml:"comment_mandatory"`

	YourGrade     string `yaml:"your_grade"`
	GradeSent     string `yaml:"grade_sent"`
	GradeSendFail string `yaml:"grade_send_fail"`

	LoadingRequests     string `yaml:"loading_requests"`
	NoCreatedIssues     string `yaml:"no_created_issues"`
	NoResponsibleIssues string `yaml:"no_responsible_issues"`
	YourRequests        string `yaml:"your_requests"`
	ResponsibleRequests string `yaml:"responsible_requests"`

	Agreed         string `yaml:"agreed"`
	Rejected       string `yaml:"rejected"`
	AgreementError string `yaml:"agreement_error"`

	EnterDeferComment string `yaml:"enter_defer_comment"`

	StateChanged     string `yaml:"state_changed"`
	StateChangeError string `yaml:"state_change_error"`
	EnterDeferDate   string `yaml:"enter_defer_date"`
	BadDate          string `yaml:"bad_date"`
	PastDate         string `yaml:"past_date"`
	ConfirmChange    string `yaml:"confirm_change"`

	ChooseTeam           string `yaml:"choose_team"`
	ChooseEmployee       string `yaml:"choose_employee"`
	ConfirmResponsible   string `yaml:"confirm_responsible"`
	ResponsibleChanged   string `yaml:"responsible_changed"`
	ResponsibleChangeErr string `yaml:"responsible_change_err"`

	MarketingChooseType        string `yaml:"marketing_choose_type"`
	MarketingChooseService     string `yaml:"marketing_choose_service"`
	MarketingChooseSubdivision string `yaml:"marketing_choose_subdivision"`
	MarketingChooseDate        string `yaml:"marketing_choose_date"`
	MarketingFillForm          string `yaml:"marketing_fill_form"`
	MarketingFormats           string `yaml:"marketing_formats"`
	MarketingUploadFiles       string `yaml:"marketing_upload_files"`
	MarketingPreview           string `yaml:"marketing_preview"`
	MarketingCreated           string `yaml:"marketing_created"`
	MarketingCreateError       string `yaml:"marketing_create_error"`
	MarketingUnavailable       string `yaml:"marketing_unavailable"`

	AdminMenu           string `yaml:"admin_menu"`
	EnterPhoneForAdmin  string `yaml:"enter_phone_for_admin"`
	UserNotFoundByPhone string `yaml:"user_not_found_by_phone"`
	AdminGranted        string `yaml:"admin_granted"`
	PhonePrompt         string `yaml:"phone_prompt"`
	PhoneSaved          string `yaml:"phone_saved"`
}

func defaults() *Texts {
	return &Texts{
		StartGreetings:  "Здравствуйте! Я бот технической поддержки.",
		GoToMainMenu:    "Для работы с заявками перейдите в меню",
		ChooseMenuItem:  "Выберите необходимый пункт меню:",
		CommandUnknown:  "Я не понимаю Вашей команды (((",
		ActionsCanceled: "Действия отменены",
		AccessDenied:    "Доступ запрещён.",

		ItsmError:         "При запросе в ITSM произошла ошибка. Обратитесь к администратору",
		ItsmEmptyResponse: "ITSM прислал пустой ответ. Обратитесь к администратору. Попробуйте еще раз.",
		TryLater:          "Сервис временно недоступен, повторите попытку позже",

		RegistrationRequired: "Вы отсутствуете в системе. Давайте оформим заявку на регистрацию.",
		RegistrationPending:  "Ваша заявка на регистрацию ожидает подтверждения",
		RegistrationSuccess:  "Заявка на регистрацию отправлена!",
		RegistrationFailed:   "Не удалось отправить заявку на регистрацию. Попробуйте позже",
		RegistrationCanceled: "Регистрация отменена",
		RegEnterFIO:          "Введите ФИО",
		RegEnterOrganization: "Введите название организации",
		RegEnterSubdivision:  "Введите название подразделения",
		RegEnterPosition:     "Введите должность",
		RegConfirm:           "Проверьте данные и отправьте заявку на регистрацию:",

		EnterIssueDescription: "Введите описание обращения",
		EmptyIssueDescription: "Вы ввели пустое описание. Введите описание заново или отмените все действия",
		ReadyToSend:           "Всё готово, можно отправлять.",
		FilePrepared:          "Файл подготовлен к отправке",
		IssueCreated:          "Ваша заявка успешно создана!",
		IssueCreationError:    "Не удалось создать заявку. Повторите попытку позже",

		EnterIssueNumber: "Введите номер заявки для поиска или нажмите кнопку 'отмена'",
		IssueNotFound:    "Заявка с номером %s не найдена",

		EnterComment:     "Введите комментарий или добавьте файл. Для отмены, нажмите кнопку 'Отмена'",
		EmptyComment:     "Был введен пустой комментарий",
		ShortComment:     "Был введен короткий комментарий",
		CommentPrepared:  "Комментарий подготовлен к отправке",
		CommentSending:   "идёт отправка комментария...",
		CommentAdded:     "Комментарий добавлен",
		CommentMandatory: "С оценкой (%d) комментарий обязателен! Введите комментарий или отмените действия",

		YourGrade:     "Ваша оценка: %d.",
		GradeSent:     "Спасибо за оценку!",
		GradeSendFail: "Не удалось отправить оценку. Попробуйте позже",

		LoadingRequests:     "Запрашиваю заявки, подождите...",
		NoCreatedIssues:     "У вас нет созданных заявок",
		NoResponsibleIssues: "У вас нет заявок в ответственности",
		YourRequests:        "Ваши обращения",
		ResponsibleRequests: "Обращения в вашей ответственности",

		Agreed:         "Согласовано",
		Rejected:       "Отклонено",
		AgreementError: "Во время согласования произошла ошибка. Обратитесь к администратору",

		EnterDeferComment: "Для статуса 'Отложено' комментарий обязателен! Введите комментарий",

		StateChanged:     "Статус заявки был изменен успешно! ✔",
		StateChangeError: "Не удалось изменить статус заявки",
		EnterDeferDate:   "Выберите дату, до которой нужно отложить заявку, или введите её (ДД.ММ.ГГГГ)",
		BadDate:          "Не удалось распознать дату. Формат: ДД.ММ.ГГГГ",
		PastDate:         "Дата не может быть в прошлом",
		ConfirmChange:    "Подтвердите смену статуса.",

		ChooseTeam:           "Выберите ответственную команду",
		ChooseEmployee:       "Выберите сотрудника",
		ConfirmResponsible:   "Подтвердите смену ответственного",
		ResponsibleChanged:   "Ответственный изменен",
		ResponsibleChangeErr: "Не удалось сменить ответственного",

		MarketingChooseType:        "Выберите тип заявки",
		MarketingChooseService:     "Выберите услугу",
		MarketingChooseSubdivision: "Выберите подразделение",
		MarketingChooseDate:        "Укажите дату исполнения (ДД.ММ.ГГГГ) или выберите в календаре",
		MarketingFillForm:          "Заполните поле: %s",
		MarketingFormats:           "Выберите форматы макета. Когда закончите, нажмите 'Готово'",
		MarketingUploadFiles:       "Приложите файлы к заявке. Когда закончите, нажмите 'Готово'",
		MarketingPreview:           "Проверьте данные перед отправкой:",
		MarketingCreated:           "Маркетинговая заявка создана!",
		MarketingCreateError:       "Не удалось создать маркетинговую заявку. Попробуйте позже",
		MarketingUnavailable:       "Создание маркетинговых заявок вам недоступно",

		AdminMenu:           "Что хотите сделать?",
		EnterPhoneForAdmin:  "Введите номер телефона для поиска ( пример: +78005553535 )",
		UserNotFoundByPhone: "Пользователь с таким номером не найден",
		AdminGranted:        "Права администратора добавлены",
		PhonePrompt:         "Отправьте свой номер телефона",
		PhoneSaved:          "Телефон успешно сохранен",
	}
}

func InitTexts(path string) *Texts {
	if texts == nil {
		lock.Lock()
		defer lock.Unlock()
		if texts == nil {
			var err error
			texts, err = loadTexts(path)
			if err != nil {
				logger.Crit(err)
			}
		}
	} else {
		logger.Warning("Texts already created")
	}
	return texts
}

// UpdateTexts перечитывает файл с текстами, вызывается по событию fsnotify
func (*Texts) UpdateTexts(path string) error {
	newTexts, err := loadTexts(path)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()
	*texts = *newTexts
	return nil
}

func loadTexts(path string) (*Texts, error) {
	t := defaults()

	if path == "" {
		return t, nil
	}

	input, err := os.ReadFile(path)
	if err != nil {
		logger.Info("Файл с текстами не найден, используются значения по умолчанию")
		return t, nil
	}

	dec := yaml.NewDecoder(bytes.NewBuffer(input))
	if err := dec.Decode(t); err != nil && err != io.EOF {
		return nil, err
	}
	return t, nil
}

func InjectTexts(key string, t *Texts) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(key, t)
	}
}
