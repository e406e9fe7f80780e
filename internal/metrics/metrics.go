// Package metrics exposes simulator activity as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/talgya/forge-factory/internal/production"
	"github.com/talgya/forge-factory/internal/scheduler"
)

const (
	namespace = "forgesim"
	subsystem = "session"
)

// Collector holds every simulator metric on its own registry.
type Collector struct {
	registry *prometheus.Registry

	ticksTotal      prometheus.Counter
	tasksFiredTotal prometheus.Counter
	liveTasks       prometheus.Gauge

	craftsSubmittedTotal *prometheus.CounterVec
	craftsCompletedTotal prometheus.Counter
	craftBacklog         prometheus.Gauge

	machineCyclesTotal *prometheus.CounterVec
	machineBreaksTotal *prometheus.CounterVec
	machines           *prometheus.GaugeVec

	wallet     prometheus.Gauge
	savesTotal *prometheus.CounterVec
}

// New creates a Collector and registers its metrics, plus the Go runtime
// collectors, on a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ticks_total",
			Help:      "Timeline steps run",
		}),
		tasksFiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_fired_total",
			Help:      "Tasks fired by the timeline",
		}),
		liveTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "live_tasks",
			Help:      "Tasks in the live set after the last step",
		}),

		craftsSubmittedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "crafts_submitted_total",
				Help:      "Player crafts queued, by result item",
			},
			[]string{"item"},
		),
		craftsCompletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "crafts_completed_total",
			Help:      "Player crafts completed",
		}),
		craftBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "craft_backlog",
			Help:      "Player crafts waiting behind the active one",
		}),

		machineCyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "machine_cycles_total",
				Help:      "Machine production cycles, by kind and whether anything was produced",
			},
			[]string{"kind", "produced"},
		),
		machineBreaksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "machine_breaks_total",
				Help:      "Fragile machines that broke, by kind",
			},
			[]string{"kind"},
		),
		machines: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "machines",
				Help:      "Placed machines, by kind",
			},
			[]string{"kind"},
		),

		wallet: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "wallet",
			Help:      "Player money",
		}),
		savesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "saves_total",
				Help:      "Save attempts, by target and status",
			},
			[]string{"target", "status"},
		),
	}

	c.registry.MustRegister(
		c.ticksTotal,
		c.tasksFiredTotal,
		c.liveTasks,
		c.craftsSubmittedTotal,
		c.craftsCompletedTotal,
		c.craftBacklog,
		c.machineCyclesTotal,
		c.machineBreaksTotal,
		c.machines,
		c.wallet,
		c.savesTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry to serve.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// ObserveStep records one timeline step.
func (c *Collector) ObserveStep(s scheduler.StepStats, backlog int) {
	if s.Tick == 0 {
		return
	}
	c.ticksTotal.Inc()
	c.tasksFiredTotal.Add(float64(s.Fired))
	c.craftsCompletedTotal.Add(float64(s.CraftsCompleted))
	c.liveTasks.Set(float64(s.Live))
	c.craftBacklog.Set(float64(backlog))
}

// RecordCraft records a queued player craft.
func (c *Collector) RecordCraft(item string) {
	c.craftsSubmittedTotal.WithLabelValues(item).Inc()
}

// RecordCycle records one machine firing.
func (c *Collector) RecordCycle(kind production.Kind, r production.CycleResult) {
	produced := "false"
	if r.Produced {
		produced = "true"
	}
	c.machineCyclesTotal.WithLabelValues(kind.String(), produced).Inc()
	if r.Broke {
		c.machineBreaksTotal.WithLabelValues(kind.String()).Inc()
	}
}

// SetMachines sets the placed machine count for kind.
func (c *Collector) SetMachines(kind production.Kind, n int) {
	c.machines.WithLabelValues(kind.String()).Set(float64(n))
}

// SetWallet sets the player money gauge.
func (c *Collector) SetWallet(amount int) {
	c.wallet.Set(float64(amount))
}

// RecordSave records a save attempt to target ("file" or "slot").
func (c *Collector) RecordSave(target string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.savesTotal.WithLabelValues(target, status).Inc()
}
