package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// loginAttempts counts login outcomes per authentication method.
var loginAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "apigw_auth_logins_total",
		Help: "Login attempts by authentication method and result.",
	},
	[]string{"method", "result"},
)

// CountLogin records a login attempt outcome for metrics.
func CountLogin(method string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}

	loginAttempts.WithLabelValues(method, result).Inc()
}
