// Package mapdata loads the highway reference map: a whitespace-delimited
// text file of waypoints, one per line, read once at process startup.
package mapdata

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"highwayplanner/internal/geometry"
)

// MaxS is the arclength at which the track wraps back to s=0.
const MaxS = 6945.554

// Map is the immutable, cyclic sequence of waypoints the Frenet frame is
// built against. It is safe to share across goroutines once loaded: nothing
// ever mutates it after Load returns.
type Map struct {
	Waypoints []geometry.Waypoint
}

// Load reads a waypoint file formatted as five whitespace-separated numbers
// per line: x y s dx dy. Ordering and s-monotonicity are trusted, not
// validated, per the loader's contract.
func Load(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapdata: open %s: %w", path, err)
	}
	defer f.Close()

	return parse(f)
}

func parse(r io.Reader) (*Map, error) {
	var waypoints []geometry.Waypoint

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 5 {
			return nil, fmt.Errorf("mapdata: line %d: want 5 fields, got %d", lineNum, len(fields))
		}

		vals := make([]float64, 5)
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("mapdata: line %d: field %d: %w", lineNum, i, err)
			}
			vals[i] = v
		}

		waypoints = append(waypoints, geometry.Waypoint{
			X: vals[0], Y: vals[1], S: vals[2], Dx: vals[3], Dy: vals[4],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("mapdata: scan: %w", err)
	}
	if len(waypoints) == 0 {
		return nil, fmt.Errorf("mapdata: no waypoints parsed")
	}

	return &Map{Waypoints: waypoints}, nil
}
