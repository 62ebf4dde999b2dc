package capture

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vekshin/warground/internal/config"
	"github.com/vekshin/warground/internal/economy"
	"github.com/vekshin/warground/internal/event"
	"github.com/vekshin/warground/internal/model"
	"github.com/vekshin/warground/internal/town"
	"github.com/vekshin/warground/internal/world"
)

// env bundles a manager with in-memory collaborators and an event sink.
type env struct {
	world  *world.Local
	towns  *town.Memory
	ledger *economy.Memory
	bus    *event.Bus
	mgr    *Manager

	mu     sync.Mutex
	events []event.Event
}

func newEnv(cfg config.CaptureConfig) *env {
	e := &env{
		world:  world.NewLocal(64),
		towns:  town.NewMemory(),
		ledger: economy.NewMemory(),
		bus:    event.NewBus(),
	}
	e.bus.Subscribe(func(ev event.Event) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.events = append(e.events, ev)
	})
	e.mgr = NewManager(cfg, e.world, e.towns, e.ledger, e.bus)
	return e
}

func (e *env) eventsOf(tp event.Type) []event.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	var result []event.Event
	for _, ev := range e.events {
		if ev.EventType() == tp {
			result = append(result, ev)
		}
	}
	return result
}

func (e *env) addActor(actorID, townName string, loc model.Location) {
	e.world.Join(actorID, loc)
	if townName != "" {
		e.towns.SetMember(actorID, townName)
	}
}

func testCaptureConfig() config.CaptureConfig {
	return config.CaptureConfig{
		PreparationSeconds:    60,
		CaptureSeconds:        600,
		MinOnlinePlayers:      1,
		PreventSelfCapture:    true,
		SessionTimeoutSeconds: 2700,
	}
}

func testZone(prep, capture int32) *model.Zone {
	return model.NewZone("bridge", model.NewLocation("overworld", 0, 64, 0), 4, prep, capture)
}

func insideZone() model.Location { return model.NewLocation("overworld", 10, 64, 10) }

func outsideZone() model.Location { return model.NewLocation("overworld", 5000, 64, 5000) }

func TestStartCaptureAdmissionGuards(t *testing.T) {
	t.Parallel()

	cfg := testCaptureConfig()
	cfg.MinOnlinePlayers = 2
	cfg.CooldownEnabled = true
	cfg.CooldownSeconds = 300

	e := newEnv(cfg)
	zone := testZone(60, 600)
	e.mgr.AddZone(zone)

	if _, err := e.mgr.StartCapture("nowhere", "alice"); !errors.Is(err, ErrZoneNotFound) {
		t.Errorf("unknown zone: got %v, want ErrZoneNotFound", err)
	}

	zone.SetActive(false)
	e.addActor("alice", "Redtown", insideZone())
	if _, err := e.mgr.StartCapture("bridge", "alice"); !errors.Is(err, ErrZoneInactive) {
		t.Errorf("inactive zone: got %v, want ErrZoneInactive", err)
	}
	zone.SetActive(true)

	if _, err := e.mgr.StartCapture("bridge", "alice"); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Errorf("one player online: got %v, want ErrNotEnoughPlayers", err)
	}
	e.addActor("bob", "Bluetown", insideZone())

	e.addActor("loner", "", insideZone())
	if _, err := e.mgr.StartCapture("bridge", "loner"); !errors.Is(err, ErrNoTown) {
		t.Errorf("townless actor: got %v, want ErrNoTown", err)
	}

	e.world.MoveActor("alice", outsideZone())
	if _, err := e.mgr.StartCapture("bridge", "alice"); !errors.Is(err, ErrOutsideZone) {
		t.Errorf("outside zone: got %v, want ErrOutsideZone", err)
	}
	e.world.MoveActor("alice", insideZone())

	zone.SetControllingTown("Redtown")
	if _, err := e.mgr.StartCapture("bridge", "alice"); !errors.Is(err, ErrSelfCapture) {
		t.Errorf("self capture: got %v, want ErrSelfCapture", err)
	}
	zone.SetControllingTown("Bluetown")

	zone.SetLastCaptureTime(e.mgr.now())
	if _, err := e.mgr.StartCapture("bridge", "alice"); !errors.Is(err, ErrCooldown) {
		t.Errorf("cooldown: got %v, want ErrCooldown", err)
	}
	zone.SetLastCaptureTime(time.Time{})

	outcome, err := e.mgr.StartCapture("bridge", "alice")
	if err != nil {
		t.Fatalf("all guards satisfied: unexpected error %v", err)
	}
	if outcome != OutcomeStarted {
		t.Errorf("outcome = %v, want OutcomeStarted", outcome)
	}

	if _, err := e.mgr.StartCapture("bridge", "bob"); !errors.Is(err, ErrContested) {
		t.Errorf("hostile second start: got %v, want ErrContested", err)
	}
}

func TestStartCaptureGuardsMutateNothing(t *testing.T) {
	t.Parallel()

	e := newEnv(testCaptureConfig())
	e.mgr.AddZone(testZone(60, 600))
	e.addActor("alice", "", insideZone())

	if _, err := e.mgr.StartCapture("bridge", "alice"); err == nil {
		t.Fatal("expected admission error")
	}
	if got := e.mgr.ActiveSessionCount(); got != 0 {
		t.Errorf("sessions after rejected start = %d, want 0", got)
	}
	if got := len(e.eventsOf(event.TypeCaptureStarted)); got != 0 {
		t.Errorf("events after rejected start = %d, want 0", got)
	}
}

func TestStartCaptureJoinInProgress(t *testing.T) {
	t.Parallel()

	e := newEnv(testCaptureConfig())
	e.mgr.AddZone(testZone(60, 600))
	e.addActor("alice", "Redtown", insideZone())
	e.addActor("carol", "Redtown", insideZone())

	if _, err := e.mgr.StartCapture("bridge", "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	outcome, err := e.mgr.StartCapture("bridge", "carol")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if outcome != OutcomeJoined {
		t.Errorf("outcome = %v, want OutcomeJoined", outcome)
	}

	s := e.mgr.Session("bridge")
	if s == nil {
		t.Fatal("no session")
	}
	if got := s.ParticipantCount(); got != 2 {
		t.Errorf("participants = %d, want 2", got)
	}
	if got := len(e.eventsOf(event.TypeCaptureStarted)); got != 1 {
		t.Errorf("CaptureStarted events = %d, want 1 (join must not re-emit)", got)
	}
}

// Concurrent starts on one zone must yield exactly one session.
func TestStartCaptureConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	cfg := testCaptureConfig()
	e := newEnv(cfg)
	e.mgr.AddZone(testZone(60, 600))

	const n = 16
	actors := make([]string, n)
	for i := range actors {
		actors[i] = string(rune('a' + i))
		e.addActor(actors[i], "Town"+actors[i], insideZone())
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	started := 0
	for _, actor := range actors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := e.mgr.StartCapture("bridge", actor)
			if err == nil && outcome == OutcomeStarted {
				mu.Lock()
				started++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrContested) {
				t.Errorf("actor %s: got %v, want success or ErrContested", actor, err)
			}
		}()
	}
	wg.Wait()

	if started != 1 {
		t.Errorf("started = %d, want exactly 1", started)
	}
	if got := e.mgr.ActiveSessionCount(); got != 1 {
		t.Errorf("sessions = %d, want 1", got)
	}
}

// Full lifecycle on short countdowns: one preparation tick plus five
// capture ticks flips ownership.
func TestCaptureLifecycleCompletes(t *testing.T) {
	t.Parallel()

	e := newEnv(testCaptureConfig())
	zone := testZone(1, 5)
	e.mgr.AddZone(zone)
	e.addActor("p1", "F", insideZone())
	e.addActor("p2", "F", insideZone())

	if _, err := e.mgr.StartCapture("bridge", "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	e.mgr.Tick() // preparation 1 → 0, capture phase begins
	s := e.mgr.Session("bridge")
	if s == nil || s.Phase() != PhaseCapturing {
		t.Fatal("expected capturing phase after first tick")
	}
	if got := len(e.eventsOf(event.TypeCapturePhaseStarted)); got != 1 {
		t.Errorf("CapturePhaseStarted events = %d, want 1", got)
	}
	if got := zone.CapturingTown(); got != "F" {
		t.Errorf("capturing town = %q, want F", got)
	}

	for range 4 {
		e.mgr.Tick()
	}
	if e.mgr.Session("bridge") == nil {
		t.Fatal("session ended early")
	}

	e.mgr.Tick() // sixth tick overall completes

	if got := zone.ControllingTown(); got != "F" {
		t.Errorf("controlling town = %q, want F", got)
	}
	if got := zone.CapturingTown(); got != "" {
		t.Errorf("capturing town = %q, want cleared", got)
	}
	if zone.LastCaptureTime().IsZero() {
		t.Error("last capture time not recorded")
	}
	if e.mgr.Session("bridge") != nil {
		t.Error("session still live after completion")
	}
	if got := len(e.eventsOf(event.TypeCaptureCompleted)); got != 1 {
		t.Errorf("CaptureCompleted events = %d, want 1", got)
	}
}

func TestFirstCaptureBonusGrantedOnce(t *testing.T) {
	t.Parallel()

	cfg := testCaptureConfig()
	cfg.FirstCaptureBonusMin = 100
	cfg.FirstCaptureBonusMax = 100
	e := newEnv(cfg)
	zone := testZone(1, 1)
	e.mgr.AddZone(zone)
	e.addActor("p1", "F", insideZone())
	e.addActor("p2", "G", insideZone())

	if _, err := e.mgr.StartCapture("bridge", "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	e.mgr.Tick()
	e.mgr.Tick()
	if got := e.ledger.Balance(economy.ActorAccount("p1")); got != 100 {
		t.Fatalf("initiator balance = %d, want 100", got)
	}

	// Hostile recapture: bonus already consumed.
	if _, err := e.mgr.StartCapture("bridge", "p2"); err != nil {
		t.Fatalf("second start: %v", err)
	}
	e.mgr.Tick()
	e.mgr.Tick()
	if got := e.ledger.Balance(economy.ActorAccount("p2")); got != 0 {
		t.Errorf("second capturer balance = %d, want 0", got)
	}
}

// Sole participant disconnecting during preparation cancels the session
// within the same trigger, and the zone is immediately restartable.
func TestDisconnectCancelsAndAllowsRestart(t *testing.T) {
	t.Parallel()

	e := newEnv(testCaptureConfig())
	zone := testZone(60, 600)
	e.mgr.AddZone(zone)
	e.addActor("alice", "F", insideZone())
	e.addActor("bob", "F", insideZone())

	if _, err := e.mgr.StartCapture("bridge", "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}

	e.world.Leave("alice")
	e.mgr.HandleDisconnect("alice")

	if e.mgr.Session("bridge") != nil {
		t.Fatal("session survived sole participant disconnect")
	}
	if got := len(e.eventsOf(event.TypeCaptureCancelled)); got != 1 {
		t.Errorf("CaptureCancelled events = %d, want 1", got)
	}

	if _, err := e.mgr.StartCapture("bridge", "bob"); err != nil {
		t.Errorf("restart after cancel: %v", err)
	}
}

// The initiator disconnecting does not cancel while online participants
// remain credited.
func TestDisconnectInitiatorWithOnlineParticipants(t *testing.T) {
	t.Parallel()

	e := newEnv(testCaptureConfig())
	e.mgr.AddZone(testZone(60, 600))
	e.addActor("alice", "F", insideZone())
	e.addActor("carol", "F", insideZone())

	if _, err := e.mgr.StartCapture("bridge", "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := e.mgr.StartCapture("bridge", "carol"); err != nil {
		t.Fatalf("join: %v", err)
	}

	e.world.Leave("alice")
	e.mgr.HandleDisconnect("alice")

	if e.mgr.Session("bridge") == nil {
		t.Error("session cancelled despite online participant")
	}
}

func TestMoveOutOfZoneCancelsInitiatorSession(t *testing.T) {
	t.Parallel()

	e := newEnv(testCaptureConfig())
	e.mgr.AddZone(testZone(60, 600))
	e.addActor("alice", "F", insideZone())

	if _, err := e.mgr.StartCapture("bridge", "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Movement inside the radius keeps the session.
	e.world.MoveActor("alice", model.NewLocation("overworld", 30, 64, -20))
	e.mgr.HandleMove("alice", model.NewLocation("overworld", 30, 64, -20))
	if e.mgr.Session("bridge") == nil {
		t.Fatal("session cancelled by in-zone movement")
	}

	e.world.MoveActor("alice", outsideZone())
	e.mgr.HandleMove("alice", outsideZone())
	if e.mgr.Session("bridge") != nil {
		t.Error("session survived initiator leaving the zone")
	}
	if got := len(e.eventsOf(event.TypeCaptureCancelled)); got != 1 {
		t.Errorf("CaptureCancelled events = %d, want 1", got)
	}
}

// A participant killed by a hostile actor fails the attempt; ownership
// is untouched. A friendly kill is ignored.
func TestDeathByHostileFailsCapture(t *testing.T) {
	t.Parallel()

	e := newEnv(testCaptureConfig())
	zone := testZone(60, 600)
	zone.SetControllingTown("G")
	e.mgr.AddZone(zone)
	e.addActor("victim", "F", insideZone())
	e.addActor("friend", "F", insideZone())
	e.addActor("enemy", "G", insideZone())

	if _, err := e.mgr.StartCapture("bridge", "victim"); err != nil {
		t.Fatalf("start: %v", err)
	}

	e.mgr.HandleDeath("victim", "friend")
	if e.mgr.Session("bridge") == nil {
		t.Fatal("friendly kill aborted the session")
	}

	e.mgr.HandleDeath("victim", "enemy")
	if e.mgr.Session("bridge") != nil {
		t.Error("session survived hostile kill")
	}
	if got := zone.ControllingTown(); got != "G" {
		t.Errorf("controlling town = %q, want unchanged G", got)
	}

	deaths := e.eventsOf(event.TypeCaptureFailedByDeath)
	if len(deaths) != 1 {
		t.Fatalf("CaptureFailedByDeath events = %d, want 1", len(deaths))
	}
	ev := deaths[0].(event.CaptureFailedByDeath)
	if ev.VictimID != "victim" || ev.KillerID != "enemy" {
		t.Errorf("event = %+v, want victim/enemy", ev)
	}
}

// Restart right after a cooldown-guarded capture reports the remaining
// window through the typed error.
func TestCooldownReportsRemaining(t *testing.T) {
	t.Parallel()

	cfg := testCaptureConfig()
	cfg.CooldownEnabled = true
	cfg.CooldownSeconds = 300
	e := newEnv(cfg)
	zone := testZone(1, 1)
	e.mgr.AddZone(zone)
	e.addActor("p1", "F", insideZone())
	e.addActor("p2", "G", insideZone())

	base := time.Now()
	e.mgr.now = func() time.Time { return base }

	if _, err := e.mgr.StartCapture("bridge", "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	e.mgr.Tick()
	e.mgr.Tick()
	if got := zone.ControllingTown(); got != "F" {
		t.Fatalf("controlling town = %q, want F", got)
	}

	e.mgr.now = func() time.Time { return base.Add(1 * time.Second) }
	_, err := e.mgr.StartCapture("bridge", "p2")
	if !errors.Is(err, ErrCooldown) {
		t.Fatalf("got %v, want ErrCooldown", err)
	}
	var cooldownErr *CooldownError
	if !errors.As(err, &cooldownErr) {
		t.Fatalf("got %T, want *CooldownError", err)
	}
	if got, want := cooldownErr.Remaining, 299*time.Second; got != want {
		t.Errorf("remaining = %v, want %v", got, want)
	}

	// Window elapsed: the start goes through.
	e.mgr.now = func() time.Time { return base.Add(301 * time.Second) }
	if _, err := e.mgr.StartCapture("bridge", "p2"); err != nil {
		t.Errorf("start after cooldown: %v", err)
	}
}

// Kill feedback that drives the countdown to zero completes the capture
// immediately instead of waiting for the next tick.
func TestReduceCaptureTimeCompletesImmediately(t *testing.T) {
	t.Parallel()

	e := newEnv(testCaptureConfig())
	zone := testZone(1, 10)
	e.mgr.AddZone(zone)
	e.addActor("p1", "F", insideZone())

	if _, err := e.mgr.StartCapture("bridge", "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	e.mgr.Tick() // into capturing

	elapsed, remaining, live := e.mgr.ReduceCaptureTime("bridge", 3)
	if !live {
		t.Fatal("session reported dead after partial reduction")
	}
	if elapsed != 3 || remaining != 7 {
		t.Errorf("clock = (%d, %d), want (3, 7)", elapsed, remaining)
	}

	_, remaining, live = e.mgr.ReduceCaptureTime("bridge", 100)
	if live || remaining != 0 {
		t.Errorf("over-reduction: remaining=%d live=%v, want 0 false", remaining, live)
	}
	if got := zone.ControllingTown(); got != "F" {
		t.Errorf("controlling town = %q, want F", got)
	}

	// Session gone: further feedback is a no-op.
	if _, _, live := e.mgr.ReduceCaptureTime("bridge", 1); live {
		t.Error("reduction on dead session reported live")
	}
}

func TestReduceCaptureTimeIgnoresPreparationPhase(t *testing.T) {
	t.Parallel()

	e := newEnv(testCaptureConfig())
	e.mgr.AddZone(testZone(60, 600))
	e.addActor("p1", "F", insideZone())

	if _, err := e.mgr.StartCapture("bridge", "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, _, live := e.mgr.ReduceCaptureTime("bridge", 5); live {
		t.Error("kill feedback applied during preparation")
	}
	if got := e.mgr.Session("bridge").RemainingCapture(); got != 600 {
		t.Errorf("capture countdown = %d, want untouched 600", got)
	}
}

func TestExpireSessions(t *testing.T) {
	t.Parallel()

	cfg := testCaptureConfig()
	cfg.SessionTimeoutSeconds = 100
	e := newEnv(cfg)
	e.mgr.AddZone(testZone(60, 600))
	e.addActor("p1", "F", insideZone())

	base := time.Now()
	e.mgr.now = func() time.Time { return base }
	if _, err := e.mgr.StartCapture("bridge", "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	e.mgr.now = func() time.Time { return base.Add(99 * time.Second) }
	if n := e.mgr.ExpireSessions(); n != 0 {
		t.Errorf("expired %d sessions before ceiling, want 0", n)
	}

	e.mgr.now = func() time.Time { return base.Add(101 * time.Second) }
	if n := e.mgr.ExpireSessions(); n != 1 {
		t.Errorf("expired %d sessions past ceiling, want 1", n)
	}
	if e.mgr.Session("bridge") != nil {
		t.Error("session still live after expiry")
	}
	if got := len(e.eventsOf(event.TypeCaptureFailed)); got != 1 {
		t.Errorf("CaptureFailed events = %d, want 1", got)
	}
}

func TestStopCaptureIdempotent(t *testing.T) {
	t.Parallel()

	e := newEnv(testCaptureConfig())
	e.mgr.AddZone(testZone(60, 600))
	e.addActor("p1", "F", insideZone())

	if _, err := e.mgr.StartCapture("bridge", "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if !e.mgr.StopCapture("bridge", "maintenance") {
		t.Fatal("first stop reported no session")
	}
	if e.mgr.StopCapture("bridge", "maintenance") {
		t.Error("second stop reported a session")
	}
	if got := len(e.eventsOf(event.TypeCaptureCancelled)); got != 1 {
		t.Errorf("CaptureCancelled events = %d, want 1", got)
	}
}

func TestForceCapture(t *testing.T) {
	t.Parallel()

	e := newEnv(testCaptureConfig())
	zone := testZone(60, 600)
	e.mgr.AddZone(zone)
	e.addActor("p1", "F", insideZone())
	e.towns.AddTown("G")

	if _, err := e.mgr.StartCapture("bridge", "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if e.mgr.ForceCapture("bridge", "Nobody") {
		t.Error("force capture accepted unknown town")
	}
	if !e.mgr.ForceCapture("bridge", "G") {
		t.Fatal("force capture rejected")
	}
	if got := zone.ControllingTown(); got != "G" {
		t.Errorf("controlling town = %q, want G", got)
	}
	if e.mgr.Session("bridge") != nil {
		t.Error("live session survived force capture")
	}
}

func TestResetZone(t *testing.T) {
	t.Parallel()

	e := newEnv(testCaptureConfig())
	zone := testZone(60, 600)
	zone.SetControllingTown("F")
	zone.SetLastCaptureTime(time.Now())
	if !zone.ConsumeFirstCaptureBonus() {
		t.Fatal("bonus not armed")
	}
	e.mgr.AddZone(zone)

	if !e.mgr.ResetZone("bridge") {
		t.Fatal("reset rejected")
	}
	if zone.ControllingTown() != "" || !zone.LastCaptureTime().IsZero() {
		t.Error("ownership survived reset")
	}
	if !zone.IsFirstCaptureBonusAvailable() {
		t.Error("bonus not re-armed by reset")
	}
	if e.mgr.ResetZone("nowhere") {
		t.Error("reset accepted unknown zone")
	}
}

func TestRemoveZoneCancelsSession(t *testing.T) {
	t.Parallel()

	e := newEnv(testCaptureConfig())
	e.mgr.AddZone(testZone(60, 600))
	e.addActor("p1", "F", insideZone())

	if _, err := e.mgr.StartCapture("bridge", "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !e.mgr.RemoveZone("bridge") {
		t.Fatal("remove rejected")
	}
	if e.mgr.Zone("bridge") != nil {
		t.Error("zone still registered")
	}
	if got := len(e.eventsOf(event.TypeCaptureCancelled)); got != 1 {
		t.Errorf("CaptureCancelled events = %d, want 1", got)
	}
}

// Entering the radius+1 ring of a hostile-owned zone warns once per
// entry; leaving and re-entering warns again.
func TestBufferZoneEarlyWarning(t *testing.T) {
	t.Parallel()

	e := newEnv(testCaptureConfig())
	zone := testZone(60, 600)
	zone.SetControllingTown("G")
	e.mgr.AddZone(zone)
	e.addActor("scout", "F", outsideZone())

	// 4-chunk radius: the buffer ring ends at 5 chunks (80 units).
	ring := model.NewLocation("overworld", 78, 64, 0)
	far := model.NewLocation("overworld", 200, 64, 0)

	e.mgr.HandleMove("scout", ring)
	e.mgr.HandleMove("scout", model.NewLocation("overworld", 70, 64, 0))
	if got := len(e.eventsOf(event.TypeBufferZoneEntered)); got != 1 {
		t.Fatalf("warnings after entry = %d, want 1", got)
	}

	e.mgr.HandleMove("scout", far)
	e.mgr.HandleMove("scout", ring)
	if got := len(e.eventsOf(event.TypeBufferZoneEntered)); got != 2 {
		t.Errorf("warnings after re-entry = %d, want 2", got)
	}

	// Members of the owning town are never warned.
	e.addActor("owner", "G", far)
	e.mgr.HandleMove("owner", ring)
	if got := len(e.eventsOf(event.TypeBufferZoneEntered)); got != 2 {
		t.Errorf("warnings after friendly entry = %d, want 2", got)
	}
}

// fakeReinforcer records manager → scheduler hook calls.
type fakeReinforcer struct {
	mu      sync.Mutex
	begun   []string
	ticks   []string
	stopped []string
}

func (f *fakeReinforcer) BeginTracking(zone *model.Zone, attackingTown string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begun = append(f.begun, zone.ID()+"/"+attackingTown)
}

func (f *fakeReinforcer) OnCaptureTick(zone *model.Zone, elapsed, remaining int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks = append(f.ticks, zone.ID())
}

func (f *fakeReinforcer) StopTracking(zoneID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, zoneID)
}

func TestReinforcerHooks(t *testing.T) {
	t.Parallel()

	e := newEnv(testCaptureConfig())
	zone := testZone(1, 3)
	e.mgr.AddZone(zone)
	fake := &fakeReinforcer{}
	e.mgr.SetReinforcer(fake)
	e.addActor("p1", "F", insideZone())

	if _, err := e.mgr.StartCapture("bridge", "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	e.mgr.Tick() // capture begins
	fake.mu.Lock()
	begun := len(fake.begun)
	fake.mu.Unlock()
	if begun != 1 {
		t.Fatalf("BeginTracking calls = %d, want 1", begun)
	}

	e.mgr.Tick() // capture tick
	e.mgr.Tick()
	e.mgr.Tick() // completes

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.ticks) != 2 {
		t.Errorf("OnCaptureTick calls = %d, want 2", len(fake.ticks))
	}
	if len(fake.stopped) != 1 {
		t.Errorf("StopTracking calls = %d, want 1", len(fake.stopped))
	}
	if got := fake.begun[0]; got != "bridge/F" {
		t.Errorf("BeginTracking arg = %q, want bridge/F", got)
	}
}
