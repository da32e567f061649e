package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
)

var (
	isDebug = false

	CritColor    = color.RGB(255, 0, 0).SprintFunc()
	DebugColor   = color.RGB(255, 165, 0).SprintFunc()
	WarningColor = color.RGB(255, 255, 0).SprintFunc()
	EventColor   = color.RGB(0, 255, 0).SprintFunc()
)

type (
	// Config описывает секцию logging основного конфига
	Config struct {
		// Сохранять ли логи в файл
		Enabled bool `yaml:"enabled"`
		// В какую папку сохранять, по умолчанию "./log"
		Directory string `yaml:"directory"`
		// Формат даты и времени в имени файла
		FilenameFormat string `yaml:"filename_format"`
		// Отключить все цвета
		NoColor bool `yaml:"no_color"`
	}
)

func InitLogger(debug bool, cnf Config) *os.File {
	isDebug = debug
	color.NoColor = cnf.NoColor

	log.SetPrefix("[BOT] ")
	log.SetFlags(log.Ldate | log.Ltime | log.Lmsgprefix)

	if !cnf.Enabled {
		return nil
	}

	if cnf.Directory == "" {
		cnf.Directory = "./log"
	}
	if cnf.FilenameFormat == "" {
		cnf.FilenameFormat = "app"
	}

	fileName := fmt.Sprintf("%s/%s.log", cnf.Directory, time.Now().Format(cnf.FilenameFormat))

	logFile, err := os.OpenFile(fileName, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		Warning("Ошибка связанная с файлом записи логов, в данный момент логи не сохраняются: ", err)
		return nil
	}
	mw := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(mw)

	return logFile
}

func Info(v ...interface{}) {
	log.Print("[INFO] ", fmt.Sprintln(v...))
}

func Event(v ...interface{}) {
	log.Print(EventColor("[Event] ", fmt.Sprintln(v...)))
}

func Warning(v ...interface{}) {
	log.Print(WarningColor("[WARNING] ", fmt.Sprintln(v...)))
}

func Debug(v ...interface{}) {
	if isDebug {
		message := new(bytes.Buffer)

		for _, str := range v {
			v, ok := str.(string)
			if ok {
				_, _ = fmt.Fprintf(message, "%s ", v)
			} else {
				s, _ := json.MarshalIndent(str, "", " ")
				_, _ = fmt.Fprintf(message, "%s ", string(s))
			}
		}

		log.Print(DebugColor("[DEBUG] ", message))
	}
}

func Crit(v ...interface{}) {
	log.Printf(CritColor("Critical error: %s"), v)
	time.Sleep(5 * time.Second)
	os.Exit(1)
}
