package memory

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func exchangesN(n int) []Exchange {
	out := make([]Exchange, 0, n)
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < n; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		out = append(out, Exchange{
			Role:      role,
			Content:   fmt.Sprintf("message %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return out
}

func TestUpdateEntitySessionWindowsToLastN(t *testing.T) {
	s := NewStore("Assistant")
	u := NewSessionUpdater(s, 10)

	if err := u.UpdateEntitySession("Bob", exchangesN(15), "discord"); err != nil {
		t.Fatalf("UpdateEntitySession failed: %v", err)
	}

	ent, err := s.GetEntity("Bob")
	if err != nil {
		t.Fatalf("entity not created lazily: %v", err)
	}
	if ent.Type != EntityPerson {
		t.Errorf("lazily created entity must be a person, got %s", ent.Type)
	}

	// Header line plus exactly the last 10 messages, oldest first
	lines := strings.Split(ent.SessionContext, "\n")
	if len(lines) != 11 {
		t.Fatalf("expected header + 10 lines, got %d:\n%s", len(lines), ent.SessionContext)
	}
	if !strings.Contains(lines[0], "10 messages") {
		t.Errorf("header wrong: %q", lines[0])
	}
	if !strings.Contains(lines[0], "via discord") {
		t.Errorf("channel missing from header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "message 5") {
		t.Errorf("window must start at message 5: %q", lines[1])
	}
	if !strings.Contains(lines[10], "message 14") {
		t.Errorf("window must end at message 14: %q", lines[10])
	}
	if strings.Contains(ent.SessionContext, "message 4") {
		t.Error("messages outside the window leaked in")
	}
}

func TestUpdateEntitySessionReplacesNotAppends(t *testing.T) {
	s := NewStore("Assistant")
	u := NewSessionUpdater(s, 10)

	u.UpdateEntitySession("Bob", exchangesN(3), "")
	u.UpdateEntitySession("Bob", []Exchange{{Role: "user", Content: "only this now", Timestamp: time.Now().UTC()}}, "")

	ent, _ := s.GetEntity("Bob")
	if strings.Contains(ent.SessionContext, "message 0") {
		t.Error("previous window must be fully replaced")
	}
	if !strings.Contains(ent.SessionContext, "only this now") {
		t.Error("new window missing")
	}
	if len(ent.Observations) != 0 {
		t.Error("session updates must never create observations")
	}
}

func TestUpdateEntitySessionClampsLongMessages(t *testing.T) {
	s := NewStore("Assistant")
	u := NewSessionUpdater(s, 10)

	long := strings.Repeat("x", maxExchangeLen+50)
	u.UpdateEntitySession("Bob", []Exchange{{Role: "user", Content: long, Timestamp: time.Now().UTC()}}, "")

	ent, _ := s.GetEntity("Bob")
	if strings.Contains(ent.SessionContext, long) {
		t.Error("long message must be clamped")
	}
	if !strings.Contains(ent.SessionContext, strings.Repeat("x", maxExchangeLen)+"…") {
		t.Error("clamp marker missing")
	}
}

func TestUpdateEntitySessionClampKeepsRunesIntact(t *testing.T) {
	s := NewStore("Assistant")
	u := NewSessionUpdater(s, 10)

	// 3-byte runes, so the byte cap lands inside a rune
	long := strings.Repeat("世", maxExchangeLen)
	u.UpdateEntitySession("Bob", []Exchange{{Role: "user", Content: long, Timestamp: time.Now().UTC()}}, "")

	ent, _ := s.GetEntity("Bob")
	if !utf8.ValidString(ent.SessionContext) {
		t.Error("clamped session context contains invalid UTF-8")
	}
	if strings.Contains(ent.SessionContext, long) {
		t.Error("long message must be clamped")
	}
}

func TestUpdateEntitySessionNoOps(t *testing.T) {
	s := NewStore("Assistant")
	u := NewSessionUpdater(s, 10)

	if err := u.UpdateEntitySession("", exchangesN(2), ""); err != nil {
		t.Errorf("empty name must silently no-op: %v", err)
	}
	if err := u.UpdateEntitySession("Bob", nil, ""); err != nil {
		t.Errorf("empty exchanges must silently no-op: %v", err)
	}
	if len(s.GetAllEntities()) != 0 {
		t.Error("no-op paths must not create entities")
	}
}
