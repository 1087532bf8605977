package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/prometheus/client_golang/prometheus"

	"line-shift-bot/internal/adapters/bot"
	lineadapter "line-shift-bot/internal/adapters/line"
	"line-shift-bot/internal/adapters/repo"
	"line-shift-bot/internal/domain"
	"line-shift-bot/internal/infra/config"
	"line-shift-bot/internal/infra/db"
	httpinfra "line-shift-bot/internal/infra/http"
	applog "line-shift-bot/internal/infra/log"
	"line-shift-bot/internal/infra/metrics"
	"line-shift-bot/internal/usecase/remind"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.TZ).Msg("bot-gateway: неизвестная таймзона")
	}

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("bot-gateway: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	lineClient, err := lineadapter.NewClient(cfg.Line.ChannelSecret, cfg.Line.ChannelToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("bot-gateway: не удалось создать клиента LINE")
	}

	reminderService := remind.NewService(repoAdapter, repoAdapter, repoAdapter, lineClient, logger.With().Str("component", "remind").Logger())
	handler := bot.NewHandler(lineClient, logger.With().Str("component", "bot").Logger(), reminderService, repoAdapter, repoAdapter, repoAdapter, loc)

	srv := httpinfra.NewServer(logger)

	srv.Router.Post("/line/webhook", func(w http.ResponseWriter, r *http.Request) {
		events, err := lineClient.ParseRequest(r)
		if err != nil {
			if errors.Is(err, linebot.ErrInvalidSignature) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		for _, event := range events {
			handler.HandleEvent(r.Context(), event)
		}
		w.WriteHeader(http.StatusOK)
	})

	srv.Router.Post("/scheduler/trigger", func(w http.ResponseWriter, r *http.Request) {
		report := reminderService.SendWeeklyReminders(r.Context(), time.Now().In(loc))
		resp := struct {
			Success bool `json:"success"`
			remind.FanoutReport
		}{report.Success(), report}
		w.Header().Set("Content-Type", "application/json")
		if !report.Success() {
			w.WriteHeader(http.StatusInternalServerError)
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("bot-gateway: HTTP сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("bot-gateway: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

var (
	_ domain.ScheduleRepo = (*repo.Postgres)(nil)
	_ domain.BindingRepo  = (*repo.Postgres)(nil)
	_ domain.GroupRepo    = (*repo.Postgres)(nil)
)
