package gpio

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Instrumented wraps a Backend and counts every operation by name and
// resulting status.
type Instrumented struct {
	next Backend
	ops  *prometheus.CounterVec
}

// Instrument registers the learnpi_gpio_operations_total counter with reg
// and returns a Backend that updates it. A nil reg uses a private registry.
func Instrument(next Backend, reg prometheus.Registerer) *Instrumented {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	ops := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Namespace: "learnpi",
		Subsystem: "gpio",
		Name:      "operations_total",
		Help:      "GPIO backend operations by operation and status.",
	}, []string{"op", "status"})
	return &Instrumented{next: next, ops: ops}
}

func (b *Instrumented) observe(op string, err error) error {
	b.ops.WithLabelValues(op, StatusOf(err).String()).Inc()
	return err
}

func (b *Instrumented) SetPinMode(pin int, mode Mode) error {
	return b.observe("set_mode", b.next.SetPinMode(pin, mode))
}

func (b *Instrumented) SetPull(pin int, pull Pull) error {
	return b.observe("set_pull", b.next.SetPull(pin, pull))
}

func (b *Instrumented) DigitalWrite(pin int, level Level) error {
	return b.observe("write", b.next.DigitalWrite(pin, level))
}

func (b *Instrumented) DigitalRead(pin int) (Level, error) {
	level, err := b.next.DigitalRead(pin)
	return level, b.observe("read", err)
}

// SetServoPulseWidth forwards to the wrapped backend so servo support is
// preserved through the decorator.
func (b *Instrumented) SetServoPulseWidth(pin int, width int) error {
	return b.observe("servo", SetServoPulseWidth(b.next, pin, width))
}

// Counter exposes the underlying counter vector.
func (b *Instrumented) Counter() *prometheus.CounterVec {
	return b.ops
}
