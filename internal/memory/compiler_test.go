package memory

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"
)

func selfWith(observations ...Observation) *Entity {
	now := time.Now().UTC()
	return &Entity{
		Name:         "Mnemo",
		Type:         EntitySelf,
		Observations: observations,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestCompileSelfContextEmpty(t *testing.T) {
	if out := CompileSelfContext(nil, nil, 3000); out != "" {
		t.Errorf("nil self must compile to empty, got %q", out)
	}
	if out := CompileSelfContext(selfWith(), nil, 3000); out != "" {
		t.Errorf("observation-less self must compile to empty, got %q", out)
	}
}

func TestCompileSelfContextSectionOrder(t *testing.T) {
	self := selfWith(
		NewObservation("[mistake] Quoted an outdated API version", StageTrait),
		NewObservation("[user-preference-about-me] Answer in English", StageTrait),
		NewObservation("[improvement] Double-check version numbers before quoting", StageTrait),
		NewObservation("Curious and methodical", StageTrait),
	)

	out := CompileSelfContext(self, nil, 3000)

	rules := strings.Index(out, "RULES:")
	mistakes := strings.Index(out, "MISTAKES:")
	improvements := strings.Index(out, "IMPROVEMENTS:")
	identity := strings.Index(out, "IDENTITY:")
	if rules == -1 || mistakes == -1 || improvements == -1 || identity == -1 {
		t.Fatalf("missing sections in output:\n%s", out)
	}
	if !(rules < mistakes && mistakes < improvements && improvements < identity) {
		t.Errorf("sections out of order:\n%s", out)
	}
	if strings.Contains(out, "RELATIONS:") {
		t.Errorf("RELATIONS section must be absent without relations:\n%s", out)
	}
	if !strings.Contains(out, "- Answer in English") {
		t.Errorf("rule tag must be stripped from the bullet:\n%s", out)
	}
}

func TestCompileSelfContextDeterministic(t *testing.T) {
	self := selfWith(
		NewObservation("[user-preference-about-me] Answer in English", StageTrait),
		NewObservation("Curious and methodical", StageBelief),
	)
	rels := []Relation{{From: "Mnemo", To: "Go", Type: "uses", CreatedAt: time.Now().UTC()}}

	first := CompileSelfContext(self, rels, 3000)
	second := CompileSelfContext(self, rels, 3000)
	if first != second {
		t.Error("identical input must yield identical output")
	}
}

func TestCompileSelfContextCap(t *testing.T) {
	var observations []Observation
	for i := 0; i < 200; i++ {
		observations = append(observations, NewObservation("[user-preference-about-me] "+strings.Repeat("detail ", 20), StageTrait))
	}
	self := selfWith(observations...)

	maxLen := 3000
	out := CompileSelfContext(self, nil, maxLen)
	if len(out) > maxLen+len(TruncationMarker) {
		t.Errorf("output exceeds cap: %d > %d", len(out), maxLen+len(TruncationMarker))
	}
	if !strings.HasSuffix(out, TruncationMarker) {
		t.Error("truncated output must end with the marker")
	}
}

func TestCompileSelfContextCapKeepsRunesIntact(t *testing.T) {
	self := selfWith(NewObservation("[user-preference-about-me] "+strings.Repeat("界", 200), StageTrait))

	// Sweep the cap across rune boundaries; the cut must never split one
	for maxLen := 40; maxLen < 60; maxLen++ {
		out := CompileSelfContext(self, nil, maxLen)
		if !utf8.ValidString(out) {
			t.Fatalf("maxLen=%d produced invalid UTF-8:\n%q", maxLen, out)
		}
		if len(out) > maxLen+len(TruncationMarker) {
			t.Fatalf("maxLen=%d output exceeds cap: %d", maxLen, len(out))
		}
	}
}

func TestTruncateString(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "h"},
		{"世界", 4, "世"},
		{"abc", 0, ""},
		{"abc", -1, ""},
	}
	for _, tc := range cases {
		if got := TruncateString(tc.in, tc.max); got != tc.want {
			t.Errorf("TruncateString(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestCompileSelfContextNoiseFilter(t *testing.T) {
	self := selfWith(
		NewObservation("likes go", StageExtracted, "extracted"),
		NewObservation("<div>some scraped fragment</div>", StageTrait),
		NewObservation("[user-preference-about-me] Keep answers short", StageTrait),
	)

	out := CompileSelfContext(self, nil, 3000)
	if strings.Contains(out, "likes go") {
		t.Errorf("short extracted fragment must be filtered:\n%s", out)
	}
	if strings.Contains(out, "scraped") {
		t.Errorf("markup-bearing content must be filtered:\n%s", out)
	}
	if !strings.Contains(out, "Keep answers short") {
		t.Errorf("legitimate rule dropped:\n%s", out)
	}
}

func TestCompileSelfContextSkipsSuperseded(t *testing.T) {
	old := NewObservation("[user-preference-about-me] Answer in French", StageTrait)
	now := time.Now().UTC()
	old.SupersededAt = &now
	self := selfWith(
		old,
		NewObservation("[user-preference-about-me] Answer in English", StageTrait),
	)

	out := CompileSelfContext(self, nil, 3000)
	if strings.Contains(out, "French") {
		t.Errorf("superseded rule leaked into context:\n%s", out)
	}
	if !strings.Contains(out, "English") {
		t.Errorf("active rule missing:\n%s", out)
	}
}

func TestRenderSelfRelationsDirection(t *testing.T) {
	self := selfWith(NewObservation("Methodical", StageTrait))
	rels := []Relation{
		{From: "Mnemo", To: "Go", Type: "uses"},
		{From: "Ada", To: "mnemo", Type: "learned_from"},
	}

	out := CompileSelfContext(self, rels, 3000)
	if !strings.Contains(out, "- I uses Go") {
		t.Errorf("outgoing relation missing:\n%s", out)
	}
	if !strings.Contains(out, "- Ada learned from me") {
		t.Errorf("incoming relation missing or underscores kept:\n%s", out)
	}
}

func TestStoreSelfContextWithoutSelf(t *testing.T) {
	s := NewStore("Mnemo")
	if out := s.SelfContext(3000); out != "" {
		t.Errorf("no self entity must mean empty context, got %q", out)
	}
}

func TestStoreSelfContextConcurrentWithMutations(t *testing.T) {
	s := NewStore("Mnemo")
	s.SelfObserve("[user-preference-about-me] Answer in English", StageTrait)
	s.AddRelation("Mnemo", "Go", "uses")

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			s.SelfObserve(fmt.Sprintf("Trait observed in round %d", i), StageTrait)
			s.AddRelation("Mnemo", fmt.Sprintf("tool-%d", i%7), "uses")
		}
	}()

	// The entity and relation copies happen in one lock section, so every
	// render sees a consistent store state
	for i := 0; i < 200; i++ {
		out := s.SelfContext(3000)
		if !strings.Contains(out, "Answer in English") {
			close(stop)
			wg.Wait()
			t.Fatalf("established rule missing from context:\n%s", out)
		}
	}
	close(stop)
	wg.Wait()
}
