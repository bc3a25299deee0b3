package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	chatTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkdb_chat_turns_total",
			Help: "Total number of chat turns by outcome.",
		},
		[]string{"outcome"},
	)
	agentDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talkdb_agent_duration_seconds",
			Help:    "Time spent by the SQL agent answering one chat turn.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"outcome"},
	)
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "talkdb_chat_sessions",
			Help: "Current number of chat sessions held in memory.",
		},
	)
	sqlQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkdb_sql_queries_total",
			Help: "Total number of SQL statements executed on behalf of the agent.",
		},
		[]string{"status"},
	)
	sqlQueryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "talkdb_sql_query_duration_seconds",
			Help:    "SQL statement latency for agent queries.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)
	sqlRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "talkdb_sql_rows_returned",
			Help:    "Rows returned per agent SQL statement.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200, 500},
		},
	)
)

func init() {
	prometheus.MustRegister(
		chatTurnsTotal,
		agentDurationSeconds,
		activeSessions,
		sqlQueriesTotal,
		sqlQueryDurationSeconds,
		sqlRowsReturned,
	)
}

// ObserveChatTurn records one completed turn. outcome is "ok" or a failure kind.
func ObserveChatTurn(outcome string, elapsed time.Duration) {
	chatTurnsTotal.WithLabelValues(outcome).Inc()
	agentDurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func SetActiveSessions(count int) {
	if count < 0 {
		count = 0
	}
	activeSessions.Set(float64(count))
}

func ObserveSQLQuery(status string, rows int, elapsed time.Duration) {
	sqlQueriesTotal.WithLabelValues(status).Inc()
	sqlQueryDurationSeconds.Observe(elapsed.Seconds())
	if rows >= 0 {
		sqlRowsReturned.Observe(float64(rows))
	}
}
