package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/forge-factory/internal/catalog"
	"github.com/talgya/forge-factory/internal/entropy"
	"github.com/talgya/forge-factory/internal/inventory"
	"github.com/talgya/forge-factory/internal/metrics"
	"github.com/talgya/forge-factory/internal/persistence"
	"github.com/talgya/forge-factory/internal/player"
	"github.com/talgya/forge-factory/internal/production"
	"github.com/talgya/forge-factory/internal/scheduler"
)

var (
	ErrUnknownMachine = errors.New("no machine at position")
	ErrOccupied       = errors.New("position already has a machine")
	ErrNotVersatile   = errors.New("machine program is locked")
	ErrFullDurability = errors.New("machine already at full durability")
)

// Options configures a new Session.
type Options struct {
	Interval    time.Duration
	Random      entropy.Source
	BreakChance float64
	StartMoney  int
	Metrics     *metrics.Collector
}

// Session is one running game: the catalog, the timeline, the player and
// the placed machines. Every mutation runs under the timeline's lock, so a
// Session is safe for concurrent use by the engine and HTTP handlers.
type Session struct {
	ID      uuid.UUID
	Catalog *catalog.Catalog

	timeline *scheduler.Timeline
	player   *player.Player
	machines map[production.Position]*production.Machine

	rng         entropy.Source
	breakChance float64
	startMoney  int
	metrics     *metrics.Collector
}

// NewSession creates an empty session.
func NewSession(cat *catalog.Catalog, opts Options) *Session {
	if opts.Random == nil {
		opts.Random = entropy.Crypto{}
	}
	if opts.BreakChance == 0 {
		opts.BreakChance = production.DefaultBreakChance
	}
	s := &Session{
		ID:          uuid.New(),
		Catalog:     cat,
		timeline:    scheduler.NewTimeline(opts.Interval),
		player:      player.New(),
		machines:    make(map[production.Position]*production.Machine),
		rng:         opts.Random,
		breakChance: opts.BreakChance,
		startMoney:  opts.StartMoney,
		metrics:     opts.Metrics,
	}
	s.player.Wallet.Set(opts.StartMoney)
	return s
}

// Timeline returns the session's scheduler.
func (s *Session) Timeline() *scheduler.Timeline { return s.timeline }

// Step runs one timeline step and records it.
func (s *Session) Step() scheduler.StepStats {
	stats := s.timeline.Step()
	if s.metrics != nil {
		s.metrics.ObserveStep(stats, s.timeline.Backlog())
		s.timeline.Do(func(scheduler.Scope) {
			s.metrics.SetWallet(s.player.Wallet.Amount())
		})
	}
	return stats
}

// Started is closed once anything has been scheduled.
func (s *Session) Started() <-chan struct{} { return s.timeline.Started() }

func (s *Session) machineOptions() []production.Option {
	return []production.Option{
		production.WithRandom(s.rng),
		production.WithBreakChance(s.breakChance),
	}
}

// install registers m at pos and schedules its first cycle. Callers hold
// the timeline lock.
func (s *Session) install(sc scheduler.Scope, pos production.Position, m *production.Machine) {
	if s.metrics != nil {
		m.OnCycle = func(m *production.Machine, r production.CycleResult) {
			s.metrics.RecordCycle(m.Kind(), r)
		}
	}
	s.machines[pos] = m
	sc.Submit(sc.NewTask(0, m))
	s.countMachines()
}

func (s *Session) countMachines() {
	if s.metrics == nil {
		return
	}
	counts := map[production.Kind]int{}
	for _, m := range s.machines {
		counts[m.Kind()]++
	}
	s.metrics.SetMachines(production.KindFactory, counts[production.KindFactory])
	s.metrics.SetMachines(production.KindHarvester, counts[production.KindHarvester])
}

// Place builds a machine of kind at pos without charging the player.
// Factories start on recipe 0, harvesters with no resource.
func (s *Session) Place(pos production.Position, kind production.Kind, bonuses ...production.Bonus) (MachineView, error) {
	var view MachineView
	var err error
	s.timeline.Do(func(sc scheduler.Scope) {
		view, err = s.place(sc, pos, kind, bonuses)
	})
	return view, err
}

func (s *Session) place(sc scheduler.Scope, pos production.Position, kind production.Kind, bonuses []production.Bonus) (MachineView, error) {
	if _, ok := s.machines[pos]; ok {
		return MachineView{}, fmt.Errorf("%w: %s", ErrOccupied, pos)
	}

	counts := make(map[production.Bonus]int)
	for _, b := range bonuses {
		if _, err := production.ParseBonus(string(b)); err != nil {
			return MachineView{}, err
		}
		counts[b]++
		if counts[b] > production.MaxBonus(b) {
			return MachineView{}, fmt.Errorf("%w: %s", production.ErrBonusCapped, b)
		}
	}
	opts := append(s.machineOptions(), production.WithBonuses(counts))

	var m *production.Machine
	switch kind {
	case production.KindFactory:
		first, _ := s.Catalog.Recipe(0)
		m = production.NewFactory(first, opts...)
	case production.KindHarvester:
		m = production.NewHarvester(nil, opts...)
	default:
		return MachineView{}, fmt.Errorf("unknown machine kind %d", kind)
	}

	s.install(sc, pos, m)
	slog.Info("machine placed", "pos", pos, "kind", kind, "id", m.ID, "bonuses", counts)
	return s.view(pos, m), nil
}

// PlaceFactory builds a factory at pos.
func (s *Session) PlaceFactory(pos production.Position, bonuses ...production.Bonus) (MachineView, error) {
	return s.Place(pos, production.KindFactory, bonuses...)
}

// PlaceHarvester builds a harvester at pos.
func (s *Session) PlaceHarvester(pos production.Position, bonuses ...production.Bonus) (MachineView, error) {
	return s.Place(pos, production.KindHarvester, bonuses...)
}

// BuyMachine charges the market price and places the machine. An empty
// bonus buys a plain machine.
func (s *Session) BuyMachine(pos production.Position, kind production.Kind, bonus production.Bonus) (MachineView, error) {
	var view MachineView
	var err error
	s.timeline.Do(func(sc scheduler.Scope) {
		if _, ok := s.machines[pos]; ok {
			err = fmt.Errorf("%w: %s", ErrOccupied, pos)
			return
		}
		var bonuses []production.Bonus
		if bonus != "" {
			if _, err = production.ParseBonus(string(bonus)); err != nil {
				return
			}
			bonuses = append(bonuses, bonus)
		}
		if err = s.player.Pay(player.MachinePrice(kind, bonus)); err != nil {
			return
		}
		view, err = s.place(sc, pos, kind, bonuses)
	})
	return view, err
}

// withMachine runs fn on the machine at pos under the timeline lock.
func (s *Session) withMachine(pos production.Position, fn func(m *production.Machine) error) error {
	var err error
	s.timeline.Do(func(scheduler.Scope) {
		m, ok := s.machines[pos]
		if !ok {
			err = fmt.Errorf("%w: %s", ErrUnknownMachine, pos)
			return
		}
		err = fn(m)
	})
	return err
}

// SetRecipe switches the factory at pos to the recipe at index. A machine
// accepts a new program on its first configuration or with VERSATILE.
func (s *Session) SetRecipe(pos production.Position, index int) error {
	r, err := s.Catalog.Recipe(index)
	if err != nil {
		return err
	}
	return s.withMachine(pos, func(m *production.Machine) error {
		if m.Kind() != production.KindFactory {
			return production.ErrWrongKind
		}
		if !m.Versatile() {
			return ErrNotVersatile
		}
		return m.SetRecipe(r)
	})
}

// SetResource switches the harvester at pos to the resource at index.
func (s *Session) SetResource(pos production.Position, index int) error {
	res, err := s.Catalog.Resource(index)
	if err != nil {
		return err
	}
	return s.withMachine(pos, func(m *production.Machine) error {
		if m.Kind() != production.KindHarvester {
			return production.ErrWrongKind
		}
		if !m.Versatile() {
			return ErrNotVersatile
		}
		return m.SetResource(res)
	})
}

// Repair clears the broken flag of the machine at pos.
func (s *Session) Repair(pos production.Position) error {
	return s.withMachine(pos, func(m *production.Machine) error {
		m.Repair()
		slog.Info("machine repaired", "pos", pos, "id", m.ID)
		return nil
	})
}

// Maintain restores the durability of the machine at pos for a fee.
func (s *Session) Maintain(pos production.Position) error {
	return s.withMachine(pos, func(m *production.Machine) error {
		if m.Durability() == m.MaxDurability() {
			return ErrFullDurability
		}
		if err := s.player.Pay(production.UpgradeCost); err != nil {
			return err
		}
		m.Maintain()
		return nil
	})
}

// Upgrade buys one bonus for the machine at pos.
func (s *Session) Upgrade(pos production.Position, b production.Bonus) error {
	if _, err := production.ParseBonus(string(b)); err != nil {
		return err
	}
	return s.withMachine(pos, func(m *production.Machine) error {
		if m.BonusCount(b) >= production.MaxBonus(b) {
			return fmt.Errorf("%w: %s", production.ErrBonusCapped, b)
		}
		if err := s.player.Pay(production.UpgradeCost); err != nil {
			return err
		}
		return m.Grant(b)
	})
}

// Withdraw moves items from the machine at pos to the player.
func (s *Session) Withdraw(pos production.Position, kind catalog.ItemKind, quantity int) error {
	item, err := s.Catalog.ItemByKind(kind)
	if err != nil {
		return err
	}
	return s.withMachine(pos, func(m *production.Machine) error {
		return m.Withdraw(item, quantity, s.player.Inventory)
	})
}

// Deposit moves items from the player into the machine at pos.
func (s *Session) Deposit(pos production.Position, kind catalog.ItemKind, quantity int) error {
	item, err := s.Catalog.ItemByKind(kind)
	if err != nil {
		return err
	}
	return s.withMachine(pos, func(m *production.Machine) error {
		return m.Deposit(item, quantity, s.player.Inventory)
	})
}

// Craft queues a player craft of the recipe at index.
func (s *Session) Craft(index int) error {
	r, err := s.Catalog.Recipe(index)
	if err != nil {
		return err
	}
	s.timeline.Do(func(sc scheduler.Scope) {
		err = s.player.Craft(sc, r)
	})
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordCraft(string(r.Result.Kind))
	}
	slog.Debug("craft queued", "result", r.Result, "seconds", r.Time)
	return nil
}

// Buy purchases items at market price.
func (s *Session) Buy(kind catalog.ItemKind, quantity int) error {
	item, err := s.Catalog.ItemByKind(kind)
	if err != nil {
		return err
	}
	s.timeline.Do(func(scheduler.Scope) { err = s.player.Buy(item, quantity) })
	return err
}

// Sell sells items at market price.
func (s *Session) Sell(kind catalog.ItemKind, quantity int) error {
	item, err := s.Catalog.ItemByKind(kind)
	if err != nil {
		return err
	}
	s.timeline.Do(func(scheduler.Scope) { err = s.player.Sell(item, quantity) })
	return err
}

// Give adds items to the player for free. Used by admin tooling and tests.
func (s *Session) Give(kind catalog.ItemKind, quantity int) error {
	item, err := s.Catalog.ItemByKind(kind)
	if err != nil {
		return err
	}
	s.timeline.Do(func(scheduler.Scope) { err = s.player.Inventory.Add(item, quantity) })
	return err
}

// Save encodes the session. Ingredients of crafts still in flight are
// refunded in the saved inventory; the running crafts are not affected.
func (s *Session) Save() (string, error) {
	var text string
	var err error
	s.timeline.Do(func(sc scheduler.Scope) {
		var inv *inventory.Inventory
		inv, err = s.player.WithRefunds(s.Catalog, sc.PendingResults())
		if err != nil {
			return
		}
		g := &persistence.Game{
			Wallet:    s.player.Wallet.Amount(),
			Inventory: inv,
		}
		for pos, m := range s.machines {
			g.Machines = append(g.Machines, persistence.MachineRecord{Position: pos, Machine: m})
		}
		text = persistence.EncodeGame(s.Catalog, g)
	})
	return text, err
}

// Restore replaces the session state with a saved game. With strict set a
// malformed machine record aborts the restore; otherwise it is skipped and
// logged. The session is unchanged on error.
func (s *Session) Restore(text string, strict bool) error {
	dec := persistence.Decoder{
		Catalog:        s.Catalog,
		Strict:         strict,
		MachineOptions: s.machineOptions(),
	}
	g, err := dec.Game(text)
	if err != nil {
		return err
	}
	for _, skipped := range g.Skipped {
		slog.Warn("skipping saved machine", "error", skipped)
	}

	s.timeline.Reset()
	s.timeline.Do(func(sc scheduler.Scope) {
		s.player = player.New()
		s.player.Wallet.Set(g.Wallet)
		s.player.Inventory = g.Inventory
		s.machines = make(map[production.Position]*production.Machine, len(g.Machines))
		for _, rec := range g.Machines {
			s.install(sc, rec.Position, rec.Machine)
		}
		s.countMachines()
	})
	slog.Info("session restored", "session", s.ID, "machines", len(g.Machines), "wallet", g.Wallet, "skipped", len(g.Skipped))
	return nil
}

// Reset starts a new game in this session.
func (s *Session) Reset() {
	s.timeline.Reset()
	s.timeline.Do(func(scheduler.Scope) {
		s.player = player.New()
		s.player.Wallet.Set(s.startMoney)
		s.machines = make(map[production.Position]*production.Machine)
		s.countMachines()
	})
	slog.Info("session reset", "session", s.ID)
}

// sortedPositions returns the machine positions in row, col order.
func (s *Session) sortedPositions() []production.Position {
	out := make([]production.Position, 0, len(s.machines))
	for pos := range s.machines {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}
