// metrics.go — Prometheus метрики сервисного слоя.
package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// inviteChecksTotal — проверки кода приглашения по результату.
	inviteChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mg_invite_checks_total",
			Help: "Количество проверок кода приглашения",
		},
		[]string{"result"},
	)

	// signupsTotal — попытки регистрации по результату.
	signupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mg_signups_total",
			Help: "Количество попыток регистрации",
		},
		[]string{"result"},
	)

	// admissionChecksTotal — решения о допуске по причине отказа ("ok" — допущен).
	admissionChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mg_admission_checks_total",
			Help: "Количество проверок допуска к закрытому контенту",
		},
		[]string{"result"},
	)

	// directoryFallbacksTotal — переходы справочника участников на полный скан.
	directoryFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mg_directory_fallbacks_total",
			Help: "Количество запросов справочника, выполненных через полный скан коллекции",
		},
	)
)
