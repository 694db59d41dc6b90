package auth_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-pharmacy-auth"
)

func TestCollector_Registration(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := auth.NewCollector(reg)

	f := newFixture(t, auth.WithRegisterMetrics(collector))
	f.mustRegister(t, janeDoe())

	_, err := f.register.Execute(context.Background(), janeDoe())
	require.Error(t, err)

	assert.Equal(t, 1.0, counterValue(t, reg, "pharmacy_auth_registrations_total", auth.OutcomeSuccess))
	assert.Equal(t, 1.0, counterValue(t, reg, "pharmacy_auth_registrations_total", auth.TextCodeDuplicateIdentity))

	families, err := reg.Gather()
	require.NoError(t, err)

	var samples uint64
	for _, family := range families {
		if family.GetName() == "pharmacy_auth_password_hash_seconds" {
			samples = family.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(1), samples, "duplicates are rejected before hashing")
}

func TestCollector_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	auth.NewCollector(reg)
	assert.Panics(t, func() { auth.NewCollector(reg) })
}
