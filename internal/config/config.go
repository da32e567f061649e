package config

import (
	"os"

	"itsm-text-bot/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-yaml"
)

type (
	// Conf contains the application settings
	Conf struct {
		Server Server `yaml:"server"`

		Gateway GatewayConf `yaml:"gateway"`
		Itsm    ItsmConf    `yaml:"itsm"`
		Redis   RedisConf   `yaml:"redis"`

		// путь до sqlite базы пользователей бота
		DatabasePath string `yaml:"database_path"`
		// папка для скачанных вложений
		FilesDir string `yaml:"files_dir"`
		// файл с текстами ответов бота
		BotTexts string `yaml:"bot_texts"`

		Logging logger.Config `yaml:"logging"`

		RunInDebug bool `yaml:"-"`
	}

	Server struct {
		Host   string `yaml:"host"`
		Listen string `yaml:"listen"`
	}

	// GatewayConf - доступ к API платформы сообщений
	GatewayConf struct {
		Addr     string `yaml:"addr"`
		Login    string `yaml:"login"`
		Password string `yaml:"password"`
	}

	// ItsmConf - доступ к API ITSM системы
	ItsmConf struct {
		Addr     string `yaml:"addr"`
		Login    string `yaml:"login"`
		Password string `yaml:"password"`
		// таймаут запроса в секундах, по умолчанию 30
		TimeoutSec int `yaml:"timeout_sec"`
	}

	RedisConf struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	}
)

func GetConfig(path string, cnf *Conf) {
	input, err := os.Open(path)
	if err != nil {
		logger.Crit("Ошибка чтения конфигурационного файла:", err)
	}
	defer input.Close()

	decoder := yaml.NewDecoder(input)
	if err = decoder.Decode(cnf); err != nil {
		logger.Crit("Не корректный конфигурационный файл:", err)
	}

	if cnf.Itsm.TimeoutSec <= 0 {
		cnf.Itsm.TimeoutSec = 30
	}
}

func Inject(key string, cnf *Conf) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(key, cnf)
	}
}
