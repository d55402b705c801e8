package models

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestUser_Fields(t *testing.T) {
	typ := reflect.TypeOf(User{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "size:36")
	assertGormTag(t, typ, "Phone", "uniqueIndex")
	assertGormTag(t, typ, "Phone", "not null")
	assertGormTag(t, typ, "Name", "size:128")
	assertGormTag(t, typ, "PinHash", "not null")
	assertGormTag(t, typ, "Timezone", "size:64")

	assertFieldType(t, typ, "CreatedAt", "time.Time")
}

func TestEvent_Fields(t *testing.T) {
	typ := reflect.TypeOf(Event{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "UserID", "idx_event_user_start")
	assertGormTag(t, typ, "StartsAt", "idx_event_user_start")
	assertGormTag(t, typ, "Title", "not null")
	assertGormTag(t, typ, "Notes", "type:text")

	assertFieldType(t, typ, "StartsAt", "time.Time")
	assertFieldType(t, typ, "EndsAt", "time.Time")
}

func TestReminder_Fields(t *testing.T) {
	typ := reflect.TypeOf(Reminder{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "UserID", "index")
	assertGormTag(t, typ, "RemindAt", "index")
	assertGormTag(t, typ, "Recurrence", "size:16")
	assertGormTag(t, typ, "Recurrence", "default:none")
	assertGormTag(t, typ, "Active", "default:true")
	assertGormTag(t, typ, "ParentID", "size:36")

	assertFieldType(t, typ, "Recurrence", "models.Recurrence")
	assertFieldType(t, typ, "Active", "bool")
}

func TestTask_Fields(t *testing.T) {
	typ := reflect.TypeOf(Task{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "DueAt", "index")
	assertGormTag(t, typ, "Done", "default:false")

	assertFieldType(t, typ, "DueAt", "*time.Time")
	assertFieldType(t, typ, "CompletedAt", "*time.Time")
}

func TestContact_Fields(t *testing.T) {
	typ := reflect.TypeOf(Contact{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "UserID", "index")
	assertGormTag(t, typ, "Name", "not null")
	assertGormTag(t, typ, "Phone", "size:64")
}

func TestReminder_Recurring(t *testing.T) {
	tests := []struct {
		r    Recurrence
		want bool
	}{
		{"", false},
		{RecurNone, false},
		{RecurDaily, true},
		{RecurWeekdays, true},
		{RecurYearly, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.r), func(t *testing.T) {
			if got := (Reminder{Recurrence: tt.r}).Recurring(); got != tt.want {
				t.Errorf("Recurring() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReminder_JobID(t *testing.T) {
	r := Reminder{ID: "abc"}
	if got := r.JobID(); got != "reminder:abc" {
		t.Errorf("JobID() = %q, want reminder:abc", got)
	}
}

func TestRecurrence_Valid(t *testing.T) {
	for _, r := range Recurrences {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	if Recurrence("hourly").Valid() {
		t.Error("hourly should not be valid")
	}
}

func TestEntityKind_Valid(t *testing.T) {
	for _, k := range []EntityKind{KindEvent, KindReminder, KindTask} {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if EntityKind("note").Valid() {
		t.Error("note should not be valid")
	}
}

func TestEvent_Overlaps(t *testing.T) {
	base := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	e := Event{StartsAt: base, EndsAt: base.Add(time.Hour)}

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"inside", base.Add(15 * time.Minute), base.Add(30 * time.Minute), true},
		{"straddles start", base.Add(-30 * time.Minute), base.Add(30 * time.Minute), true},
		{"ends at start", base.Add(-time.Hour), base, false},
		{"starts at end", base.Add(time.Hour), base.Add(2 * time.Hour), false},
		{"covers", base.Add(-time.Hour), base.Add(2 * time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Overlaps(tt.start, tt.end); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
		})
	}
}
