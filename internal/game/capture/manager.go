package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/vekshin/warground/internal/config"
	"github.com/vekshin/warground/internal/economy"
	"github.com/vekshin/warground/internal/event"
	"github.com/vekshin/warground/internal/game/geo"
	"github.com/vekshin/warground/internal/model"
	"github.com/vekshin/warground/internal/town"
	"github.com/vekshin/warground/internal/world"
)

// Admission errors. All are expected control flow, not failures: no
// state is mutated when one is returned.
var (
	ErrZoneNotFound     = errors.New("zone not found")
	ErrZoneInactive     = errors.New("zone is not capturable")
	ErrNotEnoughPlayers = errors.New("not enough players online")
	ErrNoTown           = errors.New("actor does not belong to a town")
	ErrOutsideZone      = errors.New("actor is outside the zone")
	ErrSelfCapture      = errors.New("town already controls this zone")
	ErrCooldown         = errors.New("zone is on capture cooldown")
	ErrContested        = errors.New("zone is already being captured")
)

// CooldownError reports the remaining cooldown window to the caller.
// errors.Is(err, ErrCooldown) matches it.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("zone is on capture cooldown for another %s", e.Remaining.Round(time.Millisecond))
}

// Is makes the typed error match the ErrCooldown sentinel.
func (e *CooldownError) Is(target error) bool { return target == ErrCooldown }

// Abort reasons carried by cancel/fail events.
const (
	ReasonLeftZone     = "left zone"
	ReasonDisconnected = "disconnected"
	ReasonTimeout      = "timeout"
	ReasonZoneDeleted  = "zone deleted"
	ReasonAdminStop    = "stopped by admin"
	ReasonAdminForce   = "superseded by admin capture"
)

// StartOutcome distinguishes creating a session from joining one.
type StartOutcome int

const (
	OutcomeStarted StartOutcome = iota
	OutcomeJoined
)

// Reinforcer is the wave scheduler hook the manager drives. Calls are
// made outside the manager lock, so implementations may call back in.
type Reinforcer interface {
	// BeginTracking resets the zone's wave phase to 1 and spawns the
	// first wave. Called when the capture countdown begins.
	BeginTracking(zone *model.Zone, attackingTown string)
	// OnCaptureTick lets the scheduler spawn any wave phases that came
	// due, given the session clock.
	OnCaptureTick(zone *model.Zone, elapsedSeconds, remainingSeconds int32)
	// StopTracking tears down queue entries, live units and state for
	// the zone. Safe to call for zones that were never tracked.
	StopTracking(zoneID string)
}

// ZoneStore persists mutable zone state. Writes are asynchronous; the
// core never blocks on persistence.
type ZoneStore interface {
	SaveZoneState(ctx context.Context, state model.ZoneState) error
}

// Manager owns the zones, the session registry and every lifecycle
// transition. All mutation funnels through mu so ticks, movement,
// disconnects, kills and admin commands observe a consistent world;
// events and collaborator calls are flushed after unlock.
type Manager struct {
	mu sync.Mutex

	cfg      config.CaptureConfig
	zones    map[string]*model.Zone
	registry *Registry

	world  world.Service
	towns  town.Directory
	ledger economy.Ledger
	bus    *event.Bus

	reinforcer Reinforcer
	store      ZoneStore

	// Actors currently inside a zone's early-warning buffer,
	// actorID → zone ids. Guarded by mu.
	bufferPresence map[string]map[string]struct{}

	ticker *time.Ticker
	stopCh chan struct{}

	now func() time.Time
}

// NewManager creates a capture manager.
func NewManager(cfg config.CaptureConfig, w world.Service, towns town.Directory, ledger economy.Ledger, bus *event.Bus) *Manager {
	return &Manager{
		cfg:            cfg,
		zones:          make(map[string]*model.Zone, 16),
		registry:       NewRegistry(),
		world:          w,
		towns:          towns,
		ledger:         ledger,
		bus:            bus,
		bufferPresence: make(map[string]map[string]struct{}, 64),
		stopCh:         make(chan struct{}),
		now:            time.Now,
	}
}

// SetReinforcer wires the wave scheduler.
func (m *Manager) SetReinforcer(r Reinforcer) { m.reinforcer = r }

// SetStore wires zone-state persistence.
func (m *Manager) SetStore(s ZoneStore) { m.store = s }

// --- Zone registry ---

// AddZone registers a capturable zone.
func (m *Manager) AddZone(z *model.Zone) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zones[z.ID()] = z
}

// Zone returns a zone by id, or nil.
func (m *Manager) Zone(id string) *model.Zone {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.zones[id]
}

// Zones returns a snapshot of all zones.
func (m *Manager) Zones() []*model.Zone {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*model.Zone, 0, len(m.zones))
	for _, z := range m.zones {
		result = append(result, z)
	}
	return result
}

// RemoveZone deletes a zone, aborting any live session first.
// Returns false if the zone does not exist.
func (m *Manager) RemoveZone(id string) bool {
	var fx effects
	defer func() { m.flush(&fx) }()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.zones[id]; !ok {
		return false
	}
	m.cancelLocked(id, ReasonZoneDeleted, &fx)
	delete(m.zones, id)
	r := m.reinforcer
	fx.after(func() {
		if r != nil {
			r.StopTracking(id)
		}
	})
	return true
}

// Session returns the live session for a zone, or nil.
func (m *Manager) Session(zoneID string) *Session {
	return m.registry.Get(zoneID)
}

// IsCapturing reports whether the zone has a session in the capturing
// phase. Used by the spawn queue drain to re-validate requests.
func (m *Manager) IsCapturing(zoneID string) bool {
	s := m.registry.Get(zoneID)
	return s != nil && s.Phase() == PhaseCapturing
}

// ActiveSessionCount returns the number of live sessions.
func (m *Manager) ActiveSessionCount() int { return m.registry.Len() }

// --- Admission ---

// StartCapture starts a capture attempt, or joins an in-progress one
// when the actor's town already has a session on the zone. Guards run
// in a fixed order; the first violated guard is returned and nothing is
// mutated.
func (m *Manager) StartCapture(zoneID, actorID string) (StartOutcome, error) {
	var fx effects
	defer func() { m.flush(&fx) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	zone := m.zones[zoneID]
	if zone == nil {
		return 0, ErrZoneNotFound
	}
	if !zone.IsActive() {
		return 0, ErrZoneInactive
	}
	if m.world.OnlineActorCount() < m.cfg.MinOnlinePlayers {
		return 0, ErrNotEnoughPlayers
	}
	townName := m.towns.TownOf(actorID)
	if townName == "" {
		return 0, ErrNoTown
	}
	loc, online := m.world.ActorLocation(actorID)
	if !online || !geo.IsWithinRadius(zone.Center(), loc, zone.ChunkRadius()) {
		return 0, ErrOutsideZone
	}
	if m.cfg.PreventSelfCapture && zone.ControllingTown() == townName {
		return 0, ErrSelfCapture
	}
	if m.cfg.CooldownEnabled && m.cfg.CooldownSeconds > 0 {
		if last := zone.LastCaptureTime(); !last.IsZero() {
			if since := m.now().Sub(last); since < m.cfg.Cooldown() {
				return 0, &CooldownError{Remaining: m.cfg.Cooldown() - since}
			}
		}
	}
	if existing := m.registry.Get(zoneID); existing != nil {
		if existing.TownName() != townName {
			return 0, ErrContested
		}
		existing.AddParticipant(actorID)
		slog.Info("capture joined", "zone", zoneID, "town", townName, "actor", actorID)
		return OutcomeJoined, nil
	}

	s := NewSession(zone, townName, actorID, m.now())
	if !m.registry.Put(s) {
		// Structurally unreachable while mu is held; log loudly and
		// treat as contested rather than crash the caller.
		slog.Error("session slot already taken", "zone", zoneID, "town", townName)
		return 0, ErrContested
	}
	slog.Info("capture started", "zone", zoneID, "town", townName, "initiator", actorID,
		"preparation_s", s.InitialPreparation(), "capture_s", s.InitialCapture())
	fx.emit(event.CaptureStarted{ZoneID: zoneID, TownName: townName, Location: loc})
	return OutcomeStarted, nil
}

// --- Tick driver ---

// Start runs the one-second tick loop (blocks until the context is
// canceled or Stop is called).
func (m *Manager) Start(ctx context.Context) error {
	m.ticker = time.NewTicker(1 * time.Second)
	defer m.ticker.Stop()

	slog.Info("capture tick driver started", "interval", "1s")

	for {
		select {
		case <-ctx.Done():
			slog.Info("capture tick driver stopping")
			return ctx.Err()
		case <-m.stopCh:
			slog.Info("capture tick driver stopped")
			return nil
		case <-m.ticker.C:
			m.Tick()
		}
	}
}

// Stop stops the tick loop.
func (m *Manager) Stop() {
	close(m.stopCh)
}

// Tick advances every live session by one logical second. One zone's
// failure never stops the others.
func (m *Manager) Tick() {
	for _, s := range m.registry.Sessions() {
		m.tickSession(s)
	}
}

func (m *Manager) tickSession(s *Session) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("session tick panicked, cancelling", "zone", s.ZoneID(), "panic", r)
			m.StopCapture(s.ZoneID(), "internal error")
		}
	}()

	var fx effects
	defer func() { m.flush(&fx) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	// The session may have been ended by a concurrent trigger between
	// the snapshot and this tick.
	if m.registry.Get(s.ZoneID()) != s {
		return
	}

	switch s.Phase() {
	case PhasePreparing:
		if s.TickPreparation() {
			m.beginCaptureLocked(s, &fx)
		}
	case PhaseCapturing:
		if s.TickCapture() {
			m.completeLocked(s.ZoneID(), &fx)
			return
		}
		zone := m.zones[s.ZoneID()]
		if zone == nil {
			m.cancelLocked(s.ZoneID(), ReasonZoneDeleted, &fx)
			return
		}
		r := m.reinforcer
		elapsed, remaining := s.ElapsedCaptureSeconds(), s.RemainingCapture()
		fx.after(func() {
			if r != nil {
				r.OnCaptureTick(zone, elapsed, remaining)
			}
		})
	}
}

// beginCaptureLocked transitions a session from preparing to capturing.
func (m *Manager) beginCaptureLocked(s *Session, fx *effects) {
	zone := m.zones[s.ZoneID()]
	if zone == nil {
		m.cancelLocked(s.ZoneID(), ReasonZoneDeleted, fx)
		return
	}
	s.BeginCapture()
	zone.SetCapturingTown(s.TownName())
	m.persistLocked(zone, fx)

	slog.Info("capture phase started", "zone", s.ZoneID(), "town", s.TownName(),
		"capture_s", s.InitialCapture())
	fx.emit(event.CapturePhaseStarted{ZoneID: s.ZoneID(), TownName: s.TownName()})

	r := m.reinforcer
	town := s.TownName()
	fx.after(func() {
		if r != nil {
			r.BeginTracking(zone, town)
		}
	})
}

// completeLocked performs the success transition. Removal from the
// registry is the commit point: if another trigger got there first this
// is a no-op.
func (m *Manager) completeLocked(zoneID string, fx *effects) bool {
	s, ok := m.registry.Remove(zoneID)
	if !ok {
		return false
	}

	now := m.now()
	duration := now.Sub(s.StartTime())

	zone := m.zones[zoneID]
	if zone != nil {
		zone.SetControllingTown(s.TownName())
		zone.SetCapturingTown("")
		zone.SetLastCaptureTime(now)
		m.grantFirstCaptureBonusLocked(zone, s, fx)
		m.persistLocked(zone, fx)
	}

	slog.Info("capture completed", "zone", zoneID, "town", s.TownName(),
		"duration", duration.Round(time.Second))
	fx.emit(event.CaptureCompleted{ZoneID: zoneID, TownName: s.TownName(), Duration: duration})
	m.stopTrackingAfter(zoneID, fx)
	return true
}

// grantFirstCaptureBonusLocked deposits the one-time bonus to the
// initiator. The eligibility flag makes it idempotent across repeat
// captures before the next periodic reset.
func (m *Manager) grantFirstCaptureBonusLocked(zone *model.Zone, s *Session, fx *effects) {
	if !zone.ConsumeFirstCaptureBonus() {
		return
	}
	amount := m.cfg.FirstCaptureBonusMin
	if spread := m.cfg.FirstCaptureBonusMax - m.cfg.FirstCaptureBonusMin; spread > 0 {
		amount += rand.Int64N(spread + 1)
	}
	if amount <= 0 {
		return
	}
	ledger := m.ledger
	account := economy.ActorAccount(s.InitiatorID())
	memo := fmt.Sprintf("first capture bonus: %s", zone.ID())
	fx.after(func() {
		if err := ledger.Deposit(account, amount, memo); err != nil {
			slog.Error("first capture bonus deposit failed",
				"zone", zone.ID(), "account", account, "amount", amount, "err", err)
			return
		}
		slog.Info("first capture bonus granted",
			"zone", zone.ID(), "account", account, "amount", amount)
	})
}

// cancelLocked performs the cancel transition for a zone, emitting
// CaptureCancelled (or CaptureFailed for timeouts) with the reason.
// Returns false when no session was live.
func (m *Manager) cancelLocked(zoneID, reason string, fx *effects) bool {
	s, ok := m.registry.Remove(zoneID)
	if !ok {
		return false
	}
	if zone := m.zones[zoneID]; zone != nil {
		zone.SetCapturingTown("")
		m.persistLocked(zone, fx)
	}
	slog.Info("capture aborted", "zone", zoneID, "town", s.TownName(), "reason", reason)
	if reason == ReasonTimeout {
		fx.emit(event.CaptureFailed{ZoneID: zoneID, TownName: s.TownName(), Reason: reason})
	} else {
		fx.emit(event.CaptureCancelled{ZoneID: zoneID, TownName: s.TownName(), Reason: reason})
	}
	m.stopTrackingAfter(zoneID, fx)
	return true
}

// failByDeathLocked performs the death abort transition.
func (m *Manager) failByDeathLocked(zoneID, victimID, killerID string, fx *effects) bool {
	s, ok := m.registry.Remove(zoneID)
	if !ok {
		return false
	}
	if zone := m.zones[zoneID]; zone != nil {
		zone.SetCapturingTown("")
		m.persistLocked(zone, fx)
	}
	slog.Info("capture failed: participant killed",
		"zone", zoneID, "town", s.TownName(), "victim", victimID, "killer", killerID)
	fx.emit(event.CaptureFailedByDeath{
		ZoneID: zoneID, TownName: s.TownName(), VictimID: victimID, KillerID: killerID,
	})
	m.stopTrackingAfter(zoneID, fx)
	return true
}

// --- External triggers ---

// HandleMove processes an actor position update: cancels sessions whose
// initiator left the zone and tracks buffer-zone early warnings.
func (m *Manager) HandleMove(actorID string, loc model.Location) {
	var fx effects
	defer func() { m.flush(&fx) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.registry.Sessions() {
		if s.InitiatorID() != actorID {
			continue
		}
		zone := m.zones[s.ZoneID()]
		if zone == nil {
			continue
		}
		if !geo.IsWithinRadius(zone.Center(), loc, zone.ChunkRadius()) {
			m.cancelLocked(s.ZoneID(), ReasonLeftZone, &fx)
		}
	}

	m.trackBufferLocked(actorID, loc, &fx)
}

// trackBufferLocked emits BufferZoneEntered once per entry into the
// radius+1 ring of a zone owned by a town hostile to the actor.
func (m *Manager) trackBufferLocked(actorID string, loc model.Location, fx *effects) {
	actorTown := m.towns.TownOf(actorID)
	inside := m.bufferPresence[actorID]

	for id, zone := range m.zones {
		owner := zone.ControllingTown()
		hostile := owner != "" && owner != actorTown
		inBuffer := hostile && geo.IsWithinBuffer(zone.Center(), loc, zone.ChunkRadius())
		_, was := inside[id]
		switch {
		case inBuffer && !was:
			if inside == nil {
				inside = make(map[string]struct{}, 2)
				m.bufferPresence[actorID] = inside
			}
			inside[id] = struct{}{}
			fx.emit(event.BufferZoneEntered{ZoneID: id, ActorID: actorID})
		case !inBuffer && was:
			delete(inside, id)
		}
	}
	if len(inside) == 0 {
		delete(m.bufferPresence, actorID)
	}
}

// HandleDisconnect removes the actor from session participation.
// A session is cancelled when its initiator departs and no online
// participants remain, or when nobody is credited at all.
func (m *Manager) HandleDisconnect(actorID string) {
	var fx effects
	defer func() { m.flush(&fx) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.bufferPresence, actorID)

	for _, s := range m.registry.Sessions() {
		if !s.RemoveParticipant(actorID) {
			continue
		}
		if s.ParticipantCount() == 0 {
			m.cancelLocked(s.ZoneID(), ReasonDisconnected, &fx)
			continue
		}
		if s.InitiatorID() == actorID && !m.anyOnlineLocked(s.Participants()) {
			m.cancelLocked(s.ZoneID(), ReasonDisconnected, &fx)
		}
	}
}

func (m *Manager) anyOnlineLocked(actorIDs []string) bool {
	for _, id := range actorIDs {
		if m.world.IsActorOnline(id) {
			return true
		}
	}
	return false
}

// HandleDeath fails any session the victim participates in when the
// killer is hostile to the attempting town.
func (m *Manager) HandleDeath(victimID, killerID string) {
	var fx effects
	defer func() { m.flush(&fx) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	killerTown := m.towns.TownOf(killerID)
	for _, s := range m.registry.Sessions() {
		if !s.HasParticipant(victimID) {
			continue
		}
		if killerTown != "" && killerTown == s.TownName() {
			continue // friendly kill does not abort
		}
		m.failByDeathLocked(s.ZoneID(), victimID, killerID, &fx)
	}
}

// ReduceCaptureTime shaves seconds off a capturing session (kill
// feedback). Completion is re-evaluated immediately instead of waiting
// for the next tick. Returns the session clock and whether the session
// is still live.
func (m *Manager) ReduceCaptureTime(zoneID string, seconds int32) (elapsed, remaining int32, live bool) {
	var fx effects
	defer func() { m.flush(&fx) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.registry.Get(zoneID)
	if s == nil || s.Phase() != PhaseCapturing {
		return 0, 0, false
	}
	if s.ReduceCapture(seconds) == 0 {
		m.completeLocked(zoneID, &fx)
		return s.InitialCapture(), 0, false
	}
	return s.ElapsedCaptureSeconds(), s.RemainingCapture(), true
}

// ExpireSessions cancels sessions older than the absolute age ceiling.
// Returns how many were expired. Called by the timeout reaper.
func (m *Manager) ExpireSessions() int {
	var fx effects
	defer func() { m.flush(&fx) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.SessionTimeoutSeconds <= 0 {
		return 0
	}
	ceiling := m.cfg.SessionTimeout()
	now := m.now()
	expired := 0
	for _, s := range m.registry.Sessions() {
		if now.Sub(s.StartTime()) > ceiling {
			if m.cancelLocked(s.ZoneID(), ReasonTimeout, &fx) {
				expired++
			}
		}
	}
	return expired
}

// --- Administrative surface ---

// StopCapture cancels a zone's live session with the given reason.
// Returns false (and mutates nothing) when no session is live.
func (m *Manager) StopCapture(zoneID, reason string) bool {
	var fx effects
	defer func() { m.flush(&fx) }()

	m.mu.Lock()
	defer m.mu.Unlock()
	if reason == "" {
		reason = ReasonAdminStop
	}
	return m.cancelLocked(zoneID, reason, &fx)
}

// ForceCapture directly applies the complete transition's zone-field
// effects for the given town, without a session. Any live session is
// aborted first. Returns false if the zone or town does not exist.
func (m *Manager) ForceCapture(zoneID, townName string) bool {
	var fx effects
	defer func() { m.flush(&fx) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	zone := m.zones[zoneID]
	if zone == nil || !m.towns.TownExists(townName) {
		return false
	}
	m.cancelLocked(zoneID, ReasonAdminForce, &fx)
	zone.SetControllingTown(townName)
	zone.SetCapturingTown("")
	zone.SetLastCaptureTime(m.now())
	m.persistLocked(zone, &fx)

	slog.Info("capture forced", "zone", zoneID, "town", townName)
	fx.emit(event.CaptureCompleted{ZoneID: zoneID, TownName: townName})
	return true
}

// ResetZone clears ownership and re-arms the first-capture bonus,
// aborting any live session. Returns false if the zone does not exist.
func (m *Manager) ResetZone(zoneID string) bool {
	var fx effects
	defer func() { m.flush(&fx) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	zone := m.zones[zoneID]
	if zone == nil {
		return false
	}
	m.cancelLocked(zoneID, ReasonAdminStop, &fx)
	zone.Reset()
	m.persistLocked(zone, &fx)
	slog.Info("zone reset", "zone", zoneID)
	return true
}

// --- Effects ---

// effects accumulates events and collaborator calls while the manager
// lock is held; flush runs them after unlock so subscribers and the
// scheduler may safely call back into the manager.
type effects struct {
	events []event.Event
	afters []func()
}

func (fx *effects) emit(ev event.Event) { fx.events = append(fx.events, ev) }

func (fx *effects) after(f func()) { fx.afters = append(fx.afters, f) }

func (m *Manager) flush(fx *effects) {
	for _, f := range fx.afters {
		f()
	}
	for _, ev := range fx.events {
		m.bus.Publish(ev)
	}
}

func (m *Manager) stopTrackingAfter(zoneID string, fx *effects) {
	r := m.reinforcer
	fx.after(func() {
		if r != nil {
			r.StopTracking(zoneID)
		}
	})
}

// persistLocked schedules an asynchronous zone-state write.
func (m *Manager) persistLocked(zone *model.Zone, fx *effects) {
	if m.store == nil {
		return
	}
	store := m.store
	state := zone.State()
	fx.after(func() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := store.SaveZoneState(ctx, state); err != nil {
				slog.Error("zone state save failed", "zone", state.ZoneID, "err", err)
			}
		}()
	})
}
