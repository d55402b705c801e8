package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/zulandar/agenda/internal/db"
	"github.com/zulandar/agenda/internal/models"
	"gorm.io/gorm"
)

var now = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func openCalendarTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return gdb
}

func createTestUser(t *testing.T, gdb *gorm.DB, phone string) *models.User {
	t.Helper()
	u, err := CreateUser(gdb, phone, "Ana", "hash", "UTC")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestCreateUser_Validation(t *testing.T) {
	gdb := openCalendarTestDB(t)
	if _, err := CreateUser(gdb, "", "Ana", "h", ""); err == nil {
		t.Error("expected error for empty phone")
	}
	if _, err := CreateUser(gdb, "+1", "  ", "h", ""); err == nil {
		t.Error("expected error for blank name")
	}
}

func TestUserByPhone(t *testing.T) {
	gdb := openCalendarTestDB(t)
	u := createTestUser(t, gdb, "+5511900000001")

	got, err := UserByPhone(gdb, "+5511900000001")
	if err != nil || got.ID != u.ID {
		t.Fatalf("UserByPhone = %+v, %v", got, err)
	}
	if _, err := UserByPhone(gdb, "+000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing phone err = %v", err)
	}
	ok, err := PhoneRegistered(gdb, "+000")
	if err != nil || ok {
		t.Errorf("PhoneRegistered = %v, %v", ok, err)
	}
}

func TestCreateUser_DuplicatePhone(t *testing.T) {
	gdb := openCalendarTestDB(t)
	createTestUser(t, gdb, "+1")
	if _, err := CreateUser(gdb, "+1", "Bob", "h", ""); err == nil {
		t.Error("expected unique constraint error")
	}
}

func TestEvent_CreateDefaultsDuration(t *testing.T) {
	gdb := openCalendarTestDB(t)
	u := createTestUser(t, gdb, "+1")

	e, err := CreateEvent(gdb, EventOpts{UserID: u.ID, Title: " Dentist ", StartsAt: now})
	if err != nil {
		t.Fatal(err)
	}
	if e.Title != "Dentist" {
		t.Errorf("Title = %q", e.Title)
	}
	if got := e.EndsAt.Sub(e.StartsAt); got != time.Hour {
		t.Errorf("duration = %v, want 1h", got)
	}
}

func TestEvent_Validation(t *testing.T) {
	gdb := openCalendarTestDB(t)
	tests := []EventOpts{
		{Title: "x", StartsAt: now},
		{UserID: "u", StartsAt: now},
		{UserID: "u", Title: "x"},
		{UserID: "u", Title: "x", StartsAt: now, EndsAt: now.Add(-time.Minute)},
	}
	for i, opts := range tests {
		if _, err := CreateEvent(gdb, opts); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestEvent_OwnershipScoped(t *testing.T) {
	gdb := openCalendarTestDB(t)
	owner := createTestUser(t, gdb, "+1")
	other := createTestUser(t, gdb, "+2")
	e, _ := CreateEvent(gdb, EventOpts{UserID: owner.ID, Title: "Gym", StartsAt: now})

	if _, err := GetEvent(gdb, other.ID, e.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign Get err = %v", err)
	}
	if err := DeleteEvent(gdb, other.ID, e.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign Delete err = %v", err)
	}
	if err := RenameEvent(gdb, other.ID, e.ID, "Hacked"); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign Rename err = %v", err)
	}
	got, err := GetEvent(gdb, owner.ID, e.ID)
	if err != nil || got.Title != "Gym" {
		t.Errorf("owner Get = %+v, %v", got, err)
	}
}

func TestConflicts(t *testing.T) {
	gdb := openCalendarTestDB(t)
	u := createTestUser(t, gdb, "+1")
	e, _ := CreateEvent(gdb, EventOpts{UserID: u.ID, Title: "Meeting", StartsAt: now, EndsAt: now.Add(time.Hour)})

	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"overlap start", now.Add(30 * time.Minute), now.Add(90 * time.Minute), 1},
		{"contains", now.Add(-time.Hour), now.Add(2 * time.Hour), 1},
		{"touching end", now.Add(time.Hour), now.Add(2 * time.Hour), 0},
		{"touching start", now.Add(-time.Hour), now, 0},
		{"disjoint", now.Add(3 * time.Hour), now.Add(4 * time.Hour), 0},
	}
	for _, tt := range tests {
		got, err := Conflicts(gdb, u.ID, tt.start, tt.end, "")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != tt.want {
			t.Errorf("%s: conflicts = %d, want %d", tt.name, len(got), tt.want)
		}
	}
	if got, _ := Conflicts(gdb, u.ID, now, now.Add(time.Hour), e.ID); len(got) != 0 {
		t.Errorf("excluded event still conflicts")
	}
}

func TestRescheduleEvent_KeepsDuration(t *testing.T) {
	gdb := openCalendarTestDB(t)
	u := createTestUser(t, gdb, "+1")
	e, _ := CreateEvent(gdb, EventOpts{UserID: u.ID, Title: "Call", StartsAt: now, EndsAt: now.Add(30 * time.Minute)})

	moved, err := RescheduleEvent(gdb, u.ID, e.ID, now.Add(2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if d := moved.EndsAt.Sub(moved.StartsAt); d != 30*time.Minute {
		t.Errorf("duration = %v", d)
	}
	got, _ := GetEvent(gdb, u.ID, e.ID)
	if !got.StartsAt.Equal(now.Add(2 * time.Hour)) {
		t.Errorf("StartsAt = %v", got.StartsAt)
	}
}

func TestReminder_Lifecycle(t *testing.T) {
	gdb := openCalendarTestDB(t)
	u := createTestUser(t, gdb, "+1")

	r, err := CreateReminder(gdb, ReminderOpts{UserID: u.ID, Title: "Pay rent", RemindAt: now, Recurrence: models.RecurMonthly})
	if err != nil {
		t.Fatal(err)
	}
	if !r.Active || !r.Recurring() {
		t.Errorf("reminder = %+v", r)
	}
	if r.JobID() != "reminder:"+r.ID {
		t.Errorf("JobID = %q", r.JobID())
	}
	if _, err := CreateReminder(gdb, ReminderOpts{UserID: u.ID, Title: "x", RemindAt: now, Recurrence: "hourly"}); err == nil {
		t.Error("expected error for unknown recurrence")
	}

	later := now.Add(24 * time.Hour)
	if err := SetReminderAnchor(gdb, u.ID, r.ID, later); err != nil {
		t.Fatal(err)
	}
	if err := DeactivateReminder(gdb, u.ID, r.ID); err != nil {
		t.Fatal(err)
	}
	active, _ := ActiveReminders(gdb)
	if len(active) != 0 {
		t.Errorf("active = %d, want 0", len(active))
	}
}

func TestTask_CompleteAndList(t *testing.T) {
	gdb := openCalendarTestDB(t)
	u := createTestUser(t, gdb, "+1")
	due := now.Add(48 * time.Hour)

	undated, _ := CreateTask(gdb, u.ID, "Read book", nil)
	dated, _ := CreateTask(gdb, u.ID, "File taxes", &due)

	open, err := ListOpenTasks(gdb, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 2 || open[0].ID != dated.ID || open[1].ID != undated.ID {
		t.Errorf("open order = %+v", open)
	}

	if err := CompleteTask(gdb, u.ID, dated.ID, now); err != nil {
		t.Fatal(err)
	}
	open, _ = ListOpenTasks(gdb, u.ID)
	if len(open) != 1 || open[0].ID != undated.ID {
		t.Errorf("open after complete = %+v", open)
	}
	got, _ := GetTask(gdb, u.ID, dated.ID)
	if !got.Done || got.CompletedAt == nil {
		t.Errorf("completed task = %+v", got)
	}
}

func TestAgenda_MergesKinds(t *testing.T) {
	gdb := openCalendarTestDB(t)
	u := createTestUser(t, gdb, "+1")
	due := now.Add(3 * time.Hour)

	CreateEvent(gdb, EventOpts{UserID: u.ID, Title: "Lunch", StartsAt: now.Add(2 * time.Hour)})
	CreateReminder(gdb, ReminderOpts{UserID: u.ID, Title: "Pills", RemindAt: now.Add(time.Hour)})
	CreateTask(gdb, u.ID, "Report", &due)
	CreateEvent(gdb, EventOpts{UserID: u.ID, Title: "Tomorrow thing", StartsAt: now.Add(30 * time.Hour)})

	items, err := Agenda(gdb, u.ID, now, now.Add(24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Pills", "Lunch", "Report"}
	if len(items) != len(want) {
		t.Fatalf("items = %+v", items)
	}
	for i, w := range want {
		if items[i].Title != w {
			t.Errorf("items[%d] = %q, want %q", i, items[i].Title, w)
		}
	}
}

func TestSearch_Fuzzy(t *testing.T) {
	gdb := openCalendarTestDB(t)
	u := createTestUser(t, gdb, "+1")
	other := createTestUser(t, gdb, "+2")

	CreateEvent(gdb, EventOpts{UserID: u.ID, Title: "Reunião com equipe", StartsAt: now.Add(time.Hour)})
	CreateTask(gdb, u.ID, "Comprar pão", nil)
	CreateEvent(gdb, EventOpts{UserID: other.ID, Title: "Reunião secreta", StartsAt: now.Add(time.Hour)})

	hits, err := Search(gdb, u.ID, "reuniao", now, 0.45)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Title != "Reunião com equipe" {
		t.Errorf("hits = %+v", hits)
	}

	tasksOnly, _ := Search(gdb, u.ID, "reuniao", now, 0.45, models.KindTask)
	if len(tasksOnly) != 0 {
		t.Errorf("kind filter ignored: %+v", tasksOnly)
	}
}

func TestResolveAndDelete(t *testing.T) {
	gdb := openCalendarTestDB(t)
	u := createTestUser(t, gdb, "+1")
	other := createTestUser(t, gdb, "+2")
	task, _ := CreateTask(gdb, u.ID, "Walk dog", nil)
	ref := models.EntityRef{Kind: models.KindTask, ID: task.ID}

	item, err := Resolve(gdb, u.ID, ref)
	if err != nil || item.Title != "Walk dog" {
		t.Fatalf("Resolve = %+v, %v", item, err)
	}
	if _, err := Resolve(gdb, other.ID, ref); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign Resolve err = %v", err)
	}
	if err := Delete(gdb, other.ID, ref); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign Delete err = %v", err)
	}
	if err := Delete(gdb, u.ID, ref); err != nil {
		t.Fatal(err)
	}
	if _, err := Resolve(gdb, u.ID, ref); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve after delete err = %v", err)
	}
	if _, err := Resolve(gdb, u.ID, models.EntityRef{Kind: "note", ID: "x"}); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestContacts(t *testing.T) {
	gdb := openCalendarTestDB(t)
	u := createTestUser(t, gdb, "+1")
	AddContact(gdb, u.ID, "Zoe", "+9")
	AddContact(gdb, u.ID, "Bruno", "+8")
	cs, err := ListContacts(gdb, u.ID)
	if err != nil || len(cs) != 2 || cs[0].Name != "Bruno" {
		t.Errorf("contacts = %+v, %v", cs, err)
	}
}
