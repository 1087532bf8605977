package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	BroadcastSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_send_errors_total",
		Help: "Ошибки отправки группового напоминания",
	})

	ReminderTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminder_total",
		Help: "Общее количество отправленных групповых напоминаний",
	})

	ReminderByGroup = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reminder_by_group_total",
		Help: "Количество напоминаний по группам",
	}, []string{"group_id"})

	ScheduleParsedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_parsed_total",
		Help: "Количество успешно разобранных объявлений",
	})

	CommandTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "command_total",
		Help: "Количество распознанных команд по типам",
	}, []string{"command"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		BroadcastSendErrors,
		ReminderTotal,
		ReminderByGroup,
		ScheduleParsedTotal,
		CommandTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncBroadcastError увеличивает счётчик ошибок групповой рассылки.
func IncBroadcastError() {
	BroadcastSendErrors.Inc()
}

// IncReminderOverall увеличивает общий счётчик напоминаний.
func IncReminderOverall() {
	ReminderTotal.Inc()
}

// IncReminderForGroup увеличивает счётчик напоминаний для группы.
func IncReminderForGroup(groupID string) {
	ReminderByGroup.WithLabelValues(groupID).Inc()
}

// IncScheduleParsed увеличивает счётчик сохранённых расписаний.
func IncScheduleParsed() {
	ScheduleParsedTotal.Inc()
}

// IncCommand увеличивает счётчик команд указанного типа.
func IncCommand(command string) {
	CommandTotal.WithLabelValues(command).Inc()
}
