package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"itsm-text-bot/internal/bot"
	"itsm-text-bot/internal/config"
	"itsm-text-bot/internal/database"
	"itsm-text-bot/internal/gateway"
	"itsm-text-bot/internal/itsm"
	"itsm-text-bot/internal/logger"
	"itsm-text-bot/internal/pagecache"
	"itsm-text-bot/internal/session"
	"itsm-text-bot/internal/templates"

	"github.com/gin-gonic/gin"
	"gopkg.in/fsnotify.v1"
)

func main() {
	var (
		cnf = &config.Conf{}

		configFile = flag.String("config", "./config/config.yml", "Usage: -config=<config_file>")
		debug      = flag.Bool("debug", false, "Print debug information on stderr")
	)

	flag.Parse()

	config.GetConfig(*configFile, cnf)
	cnf.RunInDebug = *debug

	logFile := logger.InitLogger(*debug, cnf.Logging)
	if logFile != nil {
		defer logFile.Close()
	}
	logger.Info("Application starting...")

	if *debug {
		logger.Debug("Config:", cnf)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	sessions := session.Connect()
	lists := pagecache.Connect(cnf.Redis.Addr, cnf.Redis.Password, cnf.Redis.DB)
	users := database.Connect(cnf.DatabasePath)
	texts := templates.InitTexts(cnf.BotTexts)

	gw := gateway.New(cnf.Gateway.Addr, cnf.Gateway.Login, cnf.Gateway.Password, cnf.FilesDir)
	client := itsm.New(cnf.Itsm.Addr, cnf.Itsm.Login, cnf.Itsm.Password, cnf.Itsm.TimeoutSec)

	deps := bot.NewDeps(cnf, gw, client, lists, sessions, users, texts)

	app := gin.Default()
	app.Use(
		config.Inject("cnf", cnf),
		session.Inject("sessions", sessions),
		pagecache.Inject("lists", lists),
		database.Inject("users", users),
		templates.InjectTexts("texts", texts),
	)

	bot.InitRoutes(app, deps)

	srv := &http.Server{
		Addr:    cnf.Server.Listen,
		Handler: app,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Listen: %s\n", err)
		}
	}()

	// Следим за изменениями файла с текстами бота.
	if cnf.BotTexts != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			logger.Crit(err)
		}
		defer watcher.Close()

		go func() {
			for {
				select {
				case event, ok := <-watcher.Events:
					if !ok {
						return
					}
					logger.Debug("event:", event.String())
					if event.Op&fsnotify.Write == fsnotify.Write {
						if err := texts.UpdateTexts(cnf.BotTexts); err != nil {
							logger.Warning("Не корректный файл с текстами бота!", err)
						}
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return
					}
					logger.Warning("fsnotify:", err)
				}
			}
		}()

		if err := watcher.Add(path.Dir(cnf.BotTexts)); err != nil {
			logger.Crit(err)
		}
	}

	logger.Info("Application started")

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT)

	quit := make(chan int)

	go func() {
		for {
			sig := <-signals
			switch sig {
			// kill -SIGHUP XXXX
			// kill -SIGINT XXXX or Ctrl+c
			case syscall.SIGHUP, syscall.SIGINT:
				logger.Info("Catch OS signal! Exiting...")

				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				if err := srv.Shutdown(ctx); err != nil {
					log.Fatal("App forced to shutdown:", err)
				}

				logger.Info("Application stopped correctly!")

				quit <- 0
			default:
				logger.Warning("Unknown signal")
			}
		}
	}()

	code := <-quit

	os.Exit(code)
}
