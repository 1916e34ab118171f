package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeMessage_InboundFrame(t *testing.T) {
	raw := `{"id":"m1","sender_id":"other","sender_name":"Bruno","sender_role":"nurse","message":"Oi","timestamp":"2024-01-01T10:05:00Z","read":false}`
	msg, err := DecodeMessage([]byte(raw))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !msg.ID.IsConfirmed() || msg.ID.String() != "m1" {
		t.Fatalf("expected confirmed id m1, got %+v", msg.ID)
	}
	if msg.SenderRole != RoleNurse {
		t.Fatalf("expected normalized role NURSE, got %q", msg.SenderRole)
	}
	if msg.Body != "Oi" || msg.Timestamp.IsZero() {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestDecodeMessage_NumericID(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"id":42,"sender_id":"x","message":"a","timestamp":"2024-01-01T10:05:00Z"}`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if msg.ID.String() != "42" || msg.ID.IsLocal() {
		t.Fatalf("expected confirmed id 42, got %+v", msg.ID)
	}
}

func TestDecodeMessage_Invalid(t *testing.T) {
	cases := []string{
		`not json`,
		`{"id":"m1","message":"sin sender"}`,
		`{"id":true,"sender_id":"x"}`,
	}
	for i, c := range cases {
		if _, err := DecodeMessage([]byte(c)); !errors.Is(err, ErrInvalidFrame) {
			t.Fatalf("case %d expected ErrInvalidFrame, got %v", i, err)
		}
	}
}

func TestMessageID_LocalMarshalsAsPlainString(t *testing.T) {
	out, err := json.Marshal(Message{ID: LocalID("local-1"), SenderID: "me"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(out, &generic); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if generic["id"] != "local-1" {
		t.Fatalf("expected plain id, got %v", generic["id"])
	}
}

func TestRoleCounterpart(t *testing.T) {
	if RolePatient.Counterpart() != RoleNurse || RoleNurse.Counterpart() != RolePatient {
		t.Fatalf("unexpected counterparts")
	}
	if Role("ADMIN").Counterpart() != "" {
		t.Fatalf("expected empty counterpart for unknown role")
	}
	if _, err := ParseRole("admin"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
	if r, err := ParseRole(" nurse "); err != nil || r != RoleNurse {
		t.Fatalf("expected NURSE, got %q err=%v", r, err)
	}
}
