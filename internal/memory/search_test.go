package memory

import (
	"testing"
)

func seedSearchStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore("Assistant")
	if _, err := s.AddEntity("Postgres", EntityTechnology, []Observation{
		NewObservation("Primary database for billing", StageFact),
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := s.AddEntity("Alice", EntityPerson, []Observation{
		NewObservation("Owns the billing migration", StageFact),
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return s
}

func TestSearchKnowledgeSkipsSuperseded(t *testing.T) {
	s := seedSearchStore(t)
	ent, _ := s.GetEntity("Alice")
	s.RemoveFact("Alice", ent.Observations[0].ID)

	hits := s.SearchKnowledge("billing", 0)
	if len(hits) != 1 {
		t.Fatalf("expected 1 active hit, got %d", len(hits))
	}
	if hits[0].Entity != "Postgres" {
		t.Errorf("superseded observation matched: %+v", hits[0])
	}
}

func TestSearchKnowledgeCaseInsensitiveAndLimited(t *testing.T) {
	s := seedSearchStore(t)

	hits := s.SearchKnowledge("BILLING", 1)
	if len(hits) != 1 {
		t.Errorf("expected limit to apply, got %d", len(hits))
	}
	if hits := s.SearchKnowledge("   ", 0); hits != nil {
		t.Errorf("blank query must return nothing, got %+v", hits)
	}
}

func TestSearchEntitiesByName(t *testing.T) {
	s := seedSearchStore(t)

	hits := s.SearchEntities("post", 0)
	if len(hits) != 1 || hits[0].Name != "Postgres" {
		t.Errorf("unexpected entity hits: %+v", hits)
	}
}

func TestSearchExchangesSeesOnlyCurrentWindow(t *testing.T) {
	s := NewStore("Assistant")
	u := NewSessionUpdater(s, 10)
	u.UpdateEntitySession("Bob", exchangesN(2), "")

	hits := s.SearchExchanges("message 1", 0)
	if len(hits) != 1 || hits[0].Entity != "Bob" {
		t.Fatalf("expected a session hit for Bob, got %+v", hits)
	}

	// Replacing the window makes the old content unfindable
	u.UpdateEntitySession("Bob", exchangesN(1), "")
	if hits := s.SearchExchanges("message 1", 0); len(hits) != 0 {
		t.Errorf("replaced window content still findable: %+v", hits)
	}
}
