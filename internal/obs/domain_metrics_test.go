package obs_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/obs"
)

func TestDomainMetricsObserve(t *testing.T) {
	obs.MustRegisterDomainMetrics("toko_test", prometheus.NewRegistry())

	obs.ObserveCouponEvaluation("EXPIRED")
	obs.ObserveOrderPlaced("PERCENTAGE", 60_800)
	obs.ObserveOrderPlaced("", 57_100)
	obs.ObserveShippingConfigCache(true)

	require.Equal(t, 1.0, testutil.ToFloat64(obs.CouponEvaluationsTotal.WithLabelValues("EXPIRED")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.OrdersPlacedTotal.WithLabelValues("true")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.OrdersPlacedTotal.WithLabelValues("false")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.CouponRedemptionsTotal.WithLabelValues("PERCENTAGE")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.ShippingConfigCacheTotal.WithLabelValues("hit")))
}
