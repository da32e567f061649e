package session

import (
	"encoding/json"
	"strconv"
	"time"

	"itsm-text-bot/internal/itsm"
	"itsm-text-bot/internal/logger"

	"github.com/allegro/bigcache/v3"
	"github.com/gin-gonic/gin"
)

// Flow - активный многошаговый сценарий пользователя
type Flow string

const (
	FlowNone              Flow = ""
	FlowCreateIssue       Flow = "create_issue"
	FlowCreateComment     Flow = "create_comment"
	FlowSearchByNumber    Flow = "search_by_number"
	FlowConfirmGrade      Flow = "confirm_grade"
	FlowChangeStatus      Flow = "change_status"
	FlowChangeResponsible Flow = "change_responsible"
	FlowMarketing         Flow = "marketing"
	FlowRegistration      Flow = "registration"
	FlowAdmin             Flow = "admin"
)

type (
	// State - состояние диалога одного пользователя. У пользователя
	// в каждый момент не больше одного активного сценария: вход в новый
	// сценарий сбрасывает черновые данные предыдущего.
	State struct {
		Flow Flow   `json:"flow"`
		Step string `json:"step,omitempty"`

		// Epoch растет при каждом входе/сбросе сценария. Обработчик
		// запоминает его перед запросом в ITSM и не применяет результат,
		// если состояние успело смениться.
		Epoch int64 `json:"epoch"`

		Scratch Scratch `json:"scratch"`
	}

	// Scratch - черновые данные сценария, живут до завершения или отмены
	Scratch struct {
		Description string         `json:"description,omitempty"`
		Files       []itsm.FileRef `json:"files,omitempty"`
		ScNumber    string         `json:"sc_number,omitempty"`
		Comment     string         `json:"comment,omitempty"`
		Grade       *int           `json:"grade,omitempty"`

		NewState string `json:"new_state,omitempty"`
		NewDate  string `json:"new_date,omitempty"`

		TeamID        string `json:"team_id,omitempty"`
		TeamTitle     string `json:"team_title,omitempty"`
		EmployeeID    string `json:"employee_id,omitempty"`
		EmployeeTitle string `json:"employee_title,omitempty"`

		Service       string            `json:"service,omitempty"`
		FormNumber    int               `json:"form_number,omitempty"`
		Subdivision   string            `json:"subdivision,omitempty"`
		ExecutionDate string            `json:"execution_date,omitempty"`
		FormIndex     int               `json:"form_index,omitempty"`
		FormFields    map[string]string `json:"form_fields,omitempty"`
		LayoutFormats []string          `json:"layout_formats,omitempty"`

		// данные регистрации; Subdivision общий с маркетингом,
		// сценарии не пересекаются
		Telegram     string `json:"telegram,omitempty"`
		FIO          string `json:"fio,omitempty"`
		Organization string `json:"organization,omitempty"`
		Position     string `json:"position,omitempty"`

		// телефон пользователя, которого ищет админ
		Phone string `json:"phone,omitempty"`
	}

	// Store хранит состояния в bigcache, сериализуя их в JSON по ключу
	// идентификатора пользователя
	Store struct {
		cache *bigcache.BigCache
	}
)

func Connect() *Store {
	cache, err := bigcache.NewBigCache(bigcache.DefaultConfig(2 * time.Hour))
	if err != nil {
		logger.Crit(err)
	}
	return &Store{cache: cache}
}

func NewStore(cache *bigcache.BigCache) *Store {
	return &Store{cache: cache}
}

func stateKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// Get возвращает состояние пользователя, отсутствие записи - пустое
// состояние без сценария
func (s *Store) Get(userID int64) State {
	b, err := s.cache.Get(stateKey(userID))
	if err != nil {
		return State{}
	}

	var st State
	if err = json.Unmarshal(b, &st); err != nil {
		logger.Warning("Error while decoding state", err)
		return State{}
	}
	return st
}

func (s *Store) Put(userID int64, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		logger.Warning("Error while change state to cache", err)
		return err
	}

	if err = s.cache.Set(stateKey(userID), data); err != nil {
		logger.Warning("Error while write state to cache", err)
		return err
	}
	return nil
}

// Enter начинает новый сценарий: черновые данные предыдущего
// отбрасываются, эпоха растет
func (s *Store) Enter(userID int64, flow Flow, step string) State {
	prev := s.Get(userID)

	st := State{
		Flow:  flow,
		Step:  step,
		Epoch: prev.Epoch + 1,
	}
	if err := s.Put(userID, st); err != nil {
		logger.Warning("Error while enter flow", flow, err)
	}
	return st
}

// Clear завершает активный сценарий
func (s *Store) Clear(userID int64) State {
	return s.Enter(userID, FlowNone, "")
}

// Fresh сообщает, актуально ли еще состояние с запомненной эпохой
func (s *Store) Fresh(userID int64, epoch int64) bool {
	return s.Get(userID).Epoch == epoch
}

func Inject(key string, store *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(key, store)
	}
}
