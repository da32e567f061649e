package gateway

import "context"

type (
	// Event - входящее событие от платформы сообщений
	Event struct {
		UserID     int64       `json:"user_id" binding:"required"`
		MessageID  int64       `json:"message_id"`
		CallbackID string      `json:"callback_id,omitempty"`
		Command    string      `json:"command,omitempty"`
		Text       string      `json:"text,omitempty"`
		Callback   string      `json:"callback_data,omitempty"`
		Contact    string      `json:"contact,omitempty"`
		Attachment *Attachment `json:"attachment,omitempty"`
	}

	Attachment struct {
		FileRef  string `json:"file_ref"`
		FileName string `json:"file_name"`
	}

	Button struct {
		Text string `json:"text"`
		Data string `json:"data"`
	}

	Keyboard [][]Button
)

// IsCallback сообщает что событие пришло от нажатия inline кнопки
func (e *Event) IsCallback() bool {
	return e.Callback != ""
}

// Gateway - исходящий интерфейс платформы сообщений.
// Вся логика бота работает только через него.
type Gateway interface {
	Send(ctx context.Context, userID int64, text string, kb Keyboard) (msgID int64, err error)
	Edit(ctx context.Context, userID, msgID int64, text string, kb Keyboard) error
	Delete(ctx context.Context, userID, msgID int64) error
	// AckCallback подтверждает получение callback, чтобы кнопка не "висела"
	AckCallback(ctx context.Context, callbackID string) error
	// DownloadFile скачивает вложение и возвращает локальный путь
	DownloadFile(ctx context.Context, fileRef string) (localPath string, err error)
}

func Row(btns ...Button) []Button { return btns }
