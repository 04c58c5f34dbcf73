package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CouponEvaluationsTotal counts coupon evaluations by resulting state.
	CouponEvaluationsTotal *prometheus.CounterVec
	// CouponRedemptionsTotal counts coupons consumed by placed orders.
	CouponRedemptionsTotal *prometheus.CounterVec
	// OrdersPlacedTotal counts persisted orders split by coupon usage.
	OrdersPlacedTotal *prometheus.CounterVec
	// OrderTotalMinor observes order totals in minor currency units.
	OrderTotalMinor prometheus.Histogram
	// ShippingConfigCacheTotal counts shipping config cache lookups.
	ShippingConfigCacheTotal *prometheus.CounterVec
	// ShippingConfigUpdatesTotal counts admin updates of the shipping config.
	ShippingConfigUpdatesTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CouponEvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_evaluations_total",
			Help:      "Count of coupon evaluations by resulting state.",
		}, []string{"state"})
		CouponRedemptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_redemptions_total",
			Help:      "Count of coupons applied to placed orders.",
		}, []string{"discount_type"})
		OrdersPlacedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Count of persisted orders.",
		}, []string{"coupon"})
		OrderTotalMinor = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_total_minor",
			Help:      "Distribution of order totals in minor currency units.",
			Buckets:   []float64{10_000, 50_000, 100_000, 250_000, 500_000, 1_000_000, 5_000_000},
		})
		ShippingConfigCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipping_config_cache_total",
			Help:      "Shipping config cache lookups by result.",
		}, []string{"result"})
		ShippingConfigUpdatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipping_config_updates_total",
			Help:      "Number of shipping config updates.",
		})

		mustRegisterCollector(reg, CouponEvaluationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponEvaluationsTotal = v
			}
		})
		mustRegisterCollector(reg, CouponRedemptionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponRedemptionsTotal = v
			}
		})
		mustRegisterCollector(reg, OrdersPlacedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrdersPlacedTotal = v
			}
		})
		mustRegisterCollector(reg, OrderTotalMinor, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				OrderTotalMinor = v
			}
		})
		mustRegisterCollector(reg, ShippingConfigCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ShippingConfigCacheTotal = v
			}
		})
		mustRegisterCollector(reg, ShippingConfigUpdatesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				ShippingConfigUpdatesTotal = v
			}
		})
	})
}

// ObserveCouponEvaluation records an evaluation outcome when metrics are registered.
func ObserveCouponEvaluation(state string) {
	if CouponEvaluationsTotal != nil {
		CouponEvaluationsTotal.WithLabelValues(state).Inc()
	}
}

// ObserveOrderPlaced records a persisted order.
func ObserveOrderPlaced(discountType string, totalMinor int64) {
	if OrdersPlacedTotal != nil {
		OrdersPlacedTotal.WithLabelValues(fmt.Sprint(discountType != "")).Inc()
	}
	if OrderTotalMinor != nil {
		OrderTotalMinor.Observe(float64(totalMinor))
	}
	if discountType != "" && CouponRedemptionsTotal != nil {
		CouponRedemptionsTotal.WithLabelValues(discountType).Inc()
	}
}

// ObserveShippingConfigCache records a cache hit or miss.
func ObserveShippingConfigCache(hit bool) {
	if ShippingConfigCacheTotal == nil {
		return
	}
	if hit {
		ShippingConfigCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	ShippingConfigCacheTotal.WithLabelValues("miss").Inc()
}

// ObserveShippingConfigUpdate records an admin config update.
func ObserveShippingConfigUpdate() {
	if ShippingConfigUpdatesTotal != nil {
		ShippingConfigUpdatesTotal.Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
