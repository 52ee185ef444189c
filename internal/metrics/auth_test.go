package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	// Doble registro no explota (AlreadyRegisteredError se tolera).
	require.NoError(t, Register(reg))

	AuthAttempts.WithLabelValues("directory", OutcomeSuccess).Inc()
	SessionsIssued.Inc()

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	require.True(t, names["teamgate_auth_attempts_total"], "auth attempts metric missing: %v", names)
	require.True(t, names["teamgate_sessions_issued_total"], "sessions issued metric missing: %v", names)
}

func TestRegister_DefaultRegistry(t *testing.T) {
	require.NoError(t, Register(nil))
	require.NoError(t, Register(nil))
}
