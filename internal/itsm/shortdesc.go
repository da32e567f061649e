package itsm

import "strings"

// ShortDescription готовит тему заявки из введенного описания.
// Описание до 30 символов копируется как есть. Более длинное собирается
// по словам, пока длина вместе с разделяющими пробелами не превысит 31
// символ, затем добавляется многоточие. Слово, которое пришлось бы
// разрезать, отбрасывается целиком.
func ShortDescription(description string) string {
	if len([]rune(description)) <= 30 {
		return description
	}

	words := strings.Split(description, " ")
	short := ""
	for _, word := range words {
		if len([]rune(short))+len([]rune(word))+1 <= 31 {
			short = short + " " + word
		} else {
			break
		}
	}

	return strings.TrimLeft(short, " ") + "..."
}
