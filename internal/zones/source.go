// Package zones models the campus zone graph used for proximity search.
package zones

import (
	"context"
	"fmt"
)

// Source answers zone adjacency queries.
//
// AdjacentZones returns the zones reachable from zoneID within maxDistance
// hops, ordered nearest first (BFS order). The zone itself is excluded.
// An unknown zone yields an empty result, not an error: alerts can carry
// zone IDs the campus map does not know yet.
type Source interface {
	AdjacentZones(ctx context.Context, zoneID string, maxDistance int) ([]string, error)
}

// StaticSource serves adjacency from an in-memory undirected graph.
type StaticSource struct {
	adjacency map[string][]string
}

// DefaultCampusMap is the built-in campus zone graph.
func DefaultCampusMap() map[string][]string {
	return map[string][]string{
		"LIB_ENT":     {"CAF_01", "ADMIN_LOBBY", "AUDITORIUM"},
		"LAB_101":     {"LAB_102", "LAB_305", "ADMIN_LOBBY"},
		"LAB_102":     {"LAB_101", "LAB_305"},
		"LAB_305":     {"LAB_101", "LAB_102"},
		"CAF_01":      {"LIB_ENT", "GYM", "AUDITORIUM"},
		"GYM":         {"CAF_01", "HOSTEL_GATE"},
		"HOSTEL_GATE": {"GYM", "ADMIN_LOBBY"},
		"ADMIN_LOBBY": {"LIB_ENT", "LAB_101", "HOSTEL_GATE", "SEM_01"},
		"AUDITORIUM":  {"LIB_ENT", "CAF_01", "SEM_01"},
		"SEM_01":      {"ADMIN_LOBBY", "AUDITORIUM", "ROOM_A1"},
		"ROOM_A1":     {"ROOM_A2", "SEM_01"},
		"ROOM_A2":     {"ROOM_A1"},
	}
}

// NewStaticSource validates the map: every referenced neighbor must have
// its own entry, and edges must be symmetric.
func NewStaticSource(adjacency map[string][]string) (*StaticSource, error) {
	for zone, neighbors := range adjacency {
		seen := make(map[string]struct{}, len(neighbors))
		for _, n := range neighbors {
			if n == zone {
				return nil, fmt.Errorf("zone %s lists itself as adjacent", zone)
			}
			if _, dup := seen[n]; dup {
				return nil, fmt.Errorf("zone %s lists %s twice", zone, n)
			}
			seen[n] = struct{}{}

			back, ok := adjacency[n]
			if !ok {
				return nil, fmt.Errorf("zone %s references unknown zone %s", zone, n)
			}
			symmetric := false
			for _, b := range back {
				if b == zone {
					symmetric = true
					break
				}
			}
			if !symmetric {
				return nil, fmt.Errorf("edge %s -> %s is not symmetric", zone, n)
			}
		}
	}

	// Defensive copy so the caller cannot mutate the graph underneath us.
	cp := make(map[string][]string, len(adjacency))
	for z, ns := range adjacency {
		cp[z] = append([]string(nil), ns...)
	}
	return &StaticSource{adjacency: cp}, nil
}

// MustDefault builds the static source from the built-in campus map.
func MustDefault() *StaticSource {
	s, err := NewStaticSource(DefaultCampusMap())
	if err != nil {
		panic(err)
	}
	return s
}

// Knows reports whether the zone has an entry in the graph.
func (s *StaticSource) Knows(zoneID string) bool {
	_, ok := s.adjacency[zoneID]
	return ok
}

// Zones returns all zone IDs in the graph.
func (s *StaticSource) Zones() []string {
	out := make([]string, 0, len(s.adjacency))
	for z := range s.adjacency {
		out = append(out, z)
	}
	return out
}

// AdjacentZones runs a BFS out to maxDistance hops.
func (s *StaticSource) AdjacentZones(_ context.Context, zoneID string, maxDistance int) ([]string, error) {
	if _, ok := s.adjacency[zoneID]; !ok {
		return nil, nil
	}
	if maxDistance <= 0 {
		return nil, nil
	}

	visited := map[string]struct{}{zoneID: {}}
	var result []string
	currentLevel := []string{zoneID}

	for distance := 1; distance <= maxDistance; distance++ {
		var nextLevel []string
		for _, zone := range currentLevel {
			for _, adjacent := range s.adjacency[zone] {
				if _, ok := visited[adjacent]; ok {
					continue
				}
				visited[adjacent] = struct{}{}
				nextLevel = append(nextLevel, adjacent)
				result = append(result, adjacent)
			}
		}
		currentLevel = nextLevel
		if len(currentLevel) == 0 {
			break
		}
	}
	return result, nil
}
