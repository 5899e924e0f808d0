package mapdata

import (
	"strings"
	"testing"
)

func TestParseValidMap(t *testing.T) {
	r := strings.NewReader("0 0 0 0 1\n10 0 10 0 1\n20 0 20 0 1\n")
	m, err := parse(r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(m.Waypoints) != 3 {
		t.Fatalf("got %d waypoints, want 3", len(m.Waypoints))
	}
	if m.Waypoints[1].X != 10 || m.Waypoints[1].S != 10 {
		t.Errorf("waypoint 1 = %+v, want X=10 S=10", m.Waypoints[1])
	}
}

func TestParseSkipsBlankLines(t *testing.T) {
	r := strings.NewReader("0 0 0 0 1\n\n   \n10 0 10 0 1\n")
	m, err := parse(r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(m.Waypoints) != 2 {
		t.Fatalf("got %d waypoints, want 2", len(m.Waypoints))
	}
}

func TestParseRejectsMalformedLine(t *testing.T) {
	r := strings.NewReader("0 0 0 0 1\nnotanumber 0 10 0 1\n")
	if _, err := parse(r); err == nil {
		t.Fatal("expected error for malformed field, got nil")
	}
}

func TestParseRejectsWrongFieldCount(t *testing.T) {
	r := strings.NewReader("0 0 0\n")
	if _, err := parse(r); err == nil {
		t.Fatal("expected error for wrong field count, got nil")
	}
}

func TestParseRejectsEmptyFile(t *testing.T) {
	r := strings.NewReader("")
	if _, err := parse(r); err == nil {
		t.Fatal("expected error for empty file, got nil")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/to/map.csv"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
