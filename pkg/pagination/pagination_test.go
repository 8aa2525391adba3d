package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 123, time.UTC), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, want)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if c, err := ParseCursor("  "); err != nil || c != nil {
		t.Fatalf("blank cursor should be nil, got %+v err=%v", c, err)
	}
	if _, err := ParseCursor("%%%"); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := ParseCursor(EncodeCursor(Cursor{})[:4]); err == nil {
		t.Fatalf("expected format error for truncated cursor")
	}
}

func TestNormalizeLimit(t *testing.T) {
	if NormalizeLimit(0) != DefaultLimit || NormalizeLimit(500) != MaxLimit || NormalizeLimit(7) != 7 {
		t.Fatalf("unexpected normalization")
	}
	if LimitWithBuffer(7) != 8 {
		t.Fatalf("buffer should add one row")
	}
}

func TestBuildSetsNextCursorOnlyWhenMoreRows(t *testing.T) {
	type row struct {
		id uuid.UUID
		at time.Time
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []row{{uuid.New(), base.Add(3 * time.Hour)}, {uuid.New(), base.Add(2 * time.Hour)}, {uuid.New(), base.Add(time.Hour)}}
	cursorOf := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page := Build(rows, 2, cursorOf)
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("expected two items and a cursor, got %+v", page)
	}
	next, err := ParseCursor(page.NextCursor)
	if err != nil || next.ID != rows[1].id {
		t.Fatalf("cursor should point at last returned row, got %+v err=%v", next, err)
	}

	last := Build(rows[:2], 2, cursorOf)
	if last.NextCursor != "" {
		t.Fatalf("final page must not carry a cursor")
	}
}
