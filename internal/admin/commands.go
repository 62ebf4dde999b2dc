package admin

import (
	"fmt"
	"strings"

	"github.com/vekshin/warground/internal/game/capture"
	"github.com/vekshin/warground/internal/game/reinforce"
)

// RegisterAll registers the capture admin commands.
func RegisterAll(h *Handler, mgr *capture.Manager, sched *reinforce.Scheduler) {
	h.Register(&StopCapture{mgr: mgr})
	h.Register(&ForceCapture{mgr: mgr})
	h.Register(&ResetZone{mgr: mgr})
	h.Register(&ZoneInfo{mgr: mgr, sched: sched})
}

// StopCapture cancels a zone's live session.
type StopCapture struct {
	mgr *capture.Manager
}

func (c *StopCapture) Name() string  { return "stopcapture" }
func (c *StopCapture) Usage() string { return "stopcapture <zone> [reason...]" }

func (c *StopCapture) Execute(args []string) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("usage: %s", c.Usage())
	}
	reason := strings.Join(args[1:], " ")
	if !c.mgr.StopCapture(args[0], reason) {
		return fmt.Sprintf("no active capture on %s", args[0]), nil
	}
	return fmt.Sprintf("capture on %s stopped", args[0]), nil
}

// ForceCapture hands a zone to a town without a session.
type ForceCapture struct {
	mgr *capture.Manager
}

func (c *ForceCapture) Name() string  { return "forcecapture" }
func (c *ForceCapture) Usage() string { return "forcecapture <zone> <town>" }

func (c *ForceCapture) Execute(args []string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("usage: %s", c.Usage())
	}
	if !c.mgr.ForceCapture(args[0], args[1]) {
		return "", fmt.Errorf("unknown zone %q or town %q", args[0], args[1])
	}
	return fmt.Sprintf("%s now controlled by %s", args[0], args[1]), nil
}

// ResetZone clears ownership and re-arms the first-capture bonus.
type ResetZone struct {
	mgr *capture.Manager
}

func (c *ResetZone) Name() string  { return "resetzone" }
func (c *ResetZone) Usage() string { return "resetzone <zone>" }

func (c *ResetZone) Execute(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: %s", c.Usage())
	}
	if !c.mgr.ResetZone(args[0]) {
		return "", fmt.Errorf("unknown zone %q", args[0])
	}
	return fmt.Sprintf("%s reset", args[0]), nil
}

// ZoneInfo prints a zone's ownership, session and reinforcement state.
type ZoneInfo struct {
	mgr   *capture.Manager
	sched *reinforce.Scheduler
}

func (c *ZoneInfo) Name() string  { return "zoneinfo" }
func (c *ZoneInfo) Usage() string { return "zoneinfo <zone>" }

func (c *ZoneInfo) Execute(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: %s", c.Usage())
	}
	zone := c.mgr.Zone(args[0])
	if zone == nil {
		return "", fmt.Errorf("unknown zone %q", args[0])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "zone %s: radius=%d chunks, active=%v", zone.ID(), zone.ChunkRadius(), zone.IsActive())
	if owner := zone.ControllingTown(); owner != "" {
		fmt.Fprintf(&b, ", controlled by %s", owner)
	} else {
		b.WriteString(", unclaimed")
	}
	if s := c.mgr.Session(zone.ID()); s != nil {
		switch s.Phase() {
		case capture.PhasePreparing:
			fmt.Fprintf(&b, "; %s preparing (%ds left)", s.TownName(), s.RemainingPreparation())
		case capture.PhaseCapturing:
			fmt.Fprintf(&b, "; %s capturing (%ds left)", s.TownName(), s.RemainingCapture())
		}
		fmt.Fprintf(&b, ", participants=%d", s.ParticipantCount())
	}
	if c.sched != nil && c.sched.IsTracking(zone.ID()) {
		fmt.Fprintf(&b, "; reinforcements phase=%d active=%d",
			c.sched.CurrentPhase(zone.ID()), c.sched.ActiveCount(zone.ID()))
	}
	return b.String(), nil
}
