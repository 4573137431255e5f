// Package main book swap API.
//
// @title           Book Swap API
// @version         1.0
// @description     Book swap negotiation and settlement service (books, swaps, ratings, stats).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"bookswap/app/echoServer"
	authctrl "bookswap/app/echoServer/controller/auth"
	bookctrl "bookswap/app/echoServer/controller/book"
	statsctrl "bookswap/app/echoServer/controller/stats"
	swapctrl "bookswap/app/echoServer/controller/swap"
	"bookswap/app/echoServer/validation"
	"bookswap/config"
	bookrepo "bookswap/repository/book"
	notifyrepo "bookswap/repository/notify"
	swaprepo "bookswap/repository/swap"
	userrepo "bookswap/repository/user"
	authsvc "bookswap/service/auth"
	booksvc "bookswap/service/book"
	statssvc "bookswap/service/stats"
	swapsvc "bookswap/service/swap"
	"bookswap/util/database"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// repos
	ur := userrepo.New(db.SQL)
	br := bookrepo.New(db.SQL)
	sr := swaprepo.New(db.SQL)

	var nr notifyrepo.Repo = notifyrepo.Noop{}
	if cfg.NotifyWebhookURL != "" {
		nr = notifyrepo.NewHTTP(cfg.NotifyWebhookURL)
	}

	// services
	emitter := swapsvc.NewEmitter(nr, log)
	txr := swapsvc.NewTxRunner(db.SQL)
	as := authsvc.New(ur, cfg.JWTSecret)
	bs := booksvc.New(br)
	sw := swapsvc.New(txr, sr, br, emitter, log)
	st := statssvc.New(sr)

	// stale-negotiation reminders
	reminder := swapsvc.NewReminder(sr, emitter, log, 72*time.Hour, 24*time.Hour)
	reminder.Start(ctx)

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	swapC := &swapctrl.Controller{Svc: sw, V: v, Log: log}
	statsC := &statsctrl.Controller{Svc: st, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:  authC,
		Book:  bookC,
		Swap:  swapC,
		Stats: statsC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}
	if port == "" {
		port = "8080"
	}

	log.Info("starting server", "port", port)

	e.Logger.Fatal(e.Start(":" + port))
}
