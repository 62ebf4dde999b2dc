package town

import "testing"

func TestMemoryDirectory(t *testing.T) {
	t.Parallel()

	dir := NewMemory()
	if dir.TownExists("Redtown") {
		t.Error("empty directory knows a town")
	}
	if got := dir.TownOf("alice"); got != "" {
		t.Errorf("town of unknown actor = %q, want empty", got)
	}

	dir.AddTown("Redtown")
	dir.SetMember("alice", "Bluetown") // registers the town implicitly

	if !dir.TownExists("Redtown") || !dir.TownExists("Bluetown") {
		t.Error("registered towns missing")
	}
	if got := dir.TownOf("alice"); got != "Bluetown" {
		t.Errorf("town of alice = %q, want Bluetown", got)
	}

	dir.SetMember("alice", "")
	if got := dir.TownOf("alice"); got != "" {
		t.Errorf("town after removal = %q, want empty", got)
	}
	if !dir.TownExists("Bluetown") {
		t.Error("town forgotten when its last member left")
	}
}
