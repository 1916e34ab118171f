package chat

import (
	"reflect"
	"testing"
	"time"

	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/domain"
)

func msgAt(id, ts string) domain.Message {
	return domain.Message{ID: domain.ConfirmedID(id), SenderID: "x", Timestamp: mustTime(ts)}
}

func TestGroupByDay_LabelsTodayYesterdayAndDate(t *testing.T) {
	labels := DayLabels{Today: "Today", Yesterday: "Yesterday", DateLayout: "02/01/2006", Location: time.UTC}
	now := mustTime("2024-03-10T15:00:00Z")
	timeline := []domain.Message{
		msgAt("old", "2024-03-01T08:00:00Z"),
		msgAt("y1", "2024-03-09T23:59:00Z"),
		msgAt("t1", "2024-03-10T00:00:00Z"),
		msgAt("t2", "2024-03-10T14:00:00Z"),
	}

	buckets := GroupByDay(timeline, now, labels)
	if len(buckets) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(buckets))
	}
	wantLabels := []string{"01/03/2024", "Yesterday", "Today"}
	for i, want := range wantLabels {
		if buckets[i].Label != want {
			t.Fatalf("bucket %d: expected %q, got %q", i, want, buckets[i].Label)
		}
	}
	if len(buckets[2].Messages) != 2 || buckets[2].Messages[0].ID.String() != "t1" || buckets[2].Messages[1].ID.String() != "t2" {
		t.Fatalf("expected today bucket in timeline order, got %+v", buckets[2].Messages)
	}
}

func TestGroupByDay_UsesLocation(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	labels := DayLabels{Today: "Hoje", Yesterday: "Ontem", DateLayout: "02/01/2006", Location: saoPaulo}
	now := mustTime("2024-03-10T12:00:00Z")
	// 01:30 UTC del día 10 sigue siendo el día 9 en UTC-3.
	buckets := GroupByDay([]domain.Message{msgAt("m1", "2024-03-10T01:30:00Z")}, now, labels)
	if len(buckets) != 1 || buckets[0].Label != "Ontem" {
		t.Fatalf("expected Ontem in local time, got %+v", buckets)
	}
}

func TestGroupByDay_DifferentDaysKeepRelativeOrder(t *testing.T) {
	labels := DayLabels{Location: time.UTC}
	now := mustTime("2024-06-01T00:00:00Z")
	timeline := []domain.Message{
		msgAt("a", "2024-01-01T10:00:00Z"),
		msgAt("b", "2024-01-01T11:00:00Z"),
		msgAt("c", "2024-01-02T09:00:00Z"),
		msgAt("d", "2024-01-02T10:00:00Z"),
	}
	buckets := GroupByDay(timeline, now, labels)
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}
	if buckets[0].Messages[0].ID.String() != "a" || buckets[0].Messages[1].ID.String() != "b" {
		t.Fatalf("unexpected first bucket order %+v", buckets[0].Messages)
	}
	if buckets[1].Messages[0].ID.String() != "c" || buckets[1].Messages[1].ID.String() != "d" {
		t.Fatalf("unexpected second bucket order %+v", buckets[1].Messages)
	}
	if buckets[0].Label != "01/01/2024" {
		t.Fatalf("expected default date layout, got %q", buckets[0].Label)
	}
}

func TestGroupByDay_Idempotent(t *testing.T) {
	labels := DefaultDayLabels()
	labels.Location = time.UTC
	now := mustTime("2024-01-02T12:00:00Z")
	timeline := []domain.Message{
		msgAt("a", "2024-01-01T10:00:00Z"),
		msgAt("b", "2024-01-02T10:00:00Z"),
		msgAt("c", "2024-01-02T11:00:00Z"),
	}
	first := GroupByDay(timeline, now, labels)
	second := GroupByDay(timeline, now, labels)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical grouping, got %+v vs %+v", first, second)
	}
	if len(timeline) != 3 || timeline[0].ID.String() != "a" {
		t.Fatalf("grouping must not mutate the timeline")
	}
}

func TestGroupByDay_Empty(t *testing.T) {
	if got := GroupByDay(nil, time.Now(), DefaultDayLabels()); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil buckets, got %+v", got)
	}
}
