package memory

import (
	"testing"
)

func TestAddRelationVocabulary(t *testing.T) {
	s := NewStore("Assistant")

	_, err := s.AddRelation("Alice", "Vim", "worships")
	if err == nil {
		t.Fatal("out-of-vocabulary type must be rejected")
	}
	if _, ok := err.(ErrInvalidRelationType); !ok {
		t.Errorf("expected ErrInvalidRelationType, got %T", err)
	}
	if got := len(s.GetAllRelations("")); got != 0 {
		t.Errorf("rejected relation must not be stored, got %d", got)
	}

	created, err := s.AddRelation("Alice", "Vim", "uses")
	if err != nil {
		t.Fatalf("valid relation rejected: %v", err)
	}
	if !created {
		t.Error("first insert must report created")
	}
}

func TestAddRelationDuplicateTriple(t *testing.T) {
	s := NewStore("Assistant")

	if _, err := s.AddRelation("Alice", "Vim", "uses"); err != nil {
		t.Fatalf("AddRelation failed: %v", err)
	}

	// Same triple with different casing and spacing is the same relation
	created, err := s.AddRelation("  ALICE ", "vim", "USES")
	if err != nil {
		t.Fatalf("duplicate triple errored: %v", err)
	}
	if created {
		t.Error("duplicate triple must not be created again")
	}
	if got := len(s.GetAllRelations("")); got != 1 {
		t.Errorf("expected 1 relation, got %d", got)
	}

	// A different type between the same endpoints is a new relation
	created, err = s.AddRelation("Alice", "Vim", "prefers")
	if err != nil || !created {
		t.Errorf("distinct type must create: created=%v err=%v", created, err)
	}
}

func TestGetAllRelationsFilter(t *testing.T) {
	s := NewStore("Assistant")
	s.AddRelation("Alice", "Vim", "uses")
	s.AddRelation("Bob", "Emacs", "uses")
	s.AddRelation("Alice", "Bob", "knows")

	all := s.GetAllRelations("")
	if len(all) != 3 {
		t.Fatalf("expected 3 relations, got %d", len(all))
	}

	alice := s.GetAllRelations("alice")
	if len(alice) != 2 {
		t.Errorf("expected 2 relations touching Alice, got %d", len(alice))
	}
	for _, rel := range alice {
		if CanonicalName(rel.From) != "alice" && CanonicalName(rel.To) != "alice" {
			t.Errorf("filter leaked unrelated relation: %+v", rel)
		}
	}
}

func TestRelationsTouchingSelf(t *testing.T) {
	s := NewStore("Mnemo")
	s.SelfObserve("Methodical", StageTrait)

	s.AddRelation("Mnemo", "Go", "uses")
	s.AddRelation("Ada", "Mnemo", "learned_from")
	s.AddRelation("Alice", "Vim", "uses")

	touching := s.RelationsTouchingSelf()
	if len(touching) != 2 {
		t.Fatalf("expected 2 relations touching self, got %d", len(touching))
	}
}

func TestCanonicalName(t *testing.T) {
	cases := map[string]string{
		"John Smith":    "john smith",
		"  JOHN  smith": "john smith",
		"john\tsmith":   "john smith",
		"   ":           "",
	}
	for in, want := range cases {
		if got := CanonicalName(in); got != want {
			t.Errorf("CanonicalName(%q) = %q, want %q", in, got, want)
		}
	}
}
