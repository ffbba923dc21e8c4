package commands

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/glowkit/glow-go/pkg/log"
)

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	TeamActions       map[log.TeamAction]int
	Observers         map[string]*ObserverStats
	Protocols         map[int32]int
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// ObserverStats holds statistics for a single observer connection.
type ObserverStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Rewrites  int
	Forced    int
	Entities  map[int32]struct{}
}

// RunStats analyzes the capture file and prints statistics.
func RunStats(path string, w io.Writer) error {
	events, closeFn, err := openEvents(path, log.Filter{})
	if err != nil {
		return err
	}
	defer closeFn()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		TeamActions:       make(map[log.TeamAction]int),
		Observers:         make(map[string]*ObserverStats),
		Protocols:         make(map[int32]int),
	}

	for event, err := range events {
		if err != nil {
			return err
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++
	if event.Protocol != 0 {
		s.Protocols[event.Protocol]++
	}

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	if event.Team != nil {
		s.TeamActions[event.Team.Action]++
	}
	if event.Error != nil {
		s.Errors++
	}

	// Engine-wide events carry no observer.
	if event.ObserverID == "" {
		return
	}
	obs, ok := s.Observers[event.ObserverID]
	if !ok {
		obs = &ObserverStats{
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
			Entities:  make(map[int32]struct{}),
		}
		s.Observers[event.ObserverID] = obs
	}
	obs.Events++
	if event.Timestamp.After(obs.LastSeen) {
		obs.LastSeen = event.Timestamp
	}
	if rw := event.Rewrite; rw != nil {
		if rw.Forced {
			obs.Forced++
		} else {
			obs.Rewrites++
		}
		obs.Entities[rw.EntityID] = struct{}{}
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Glow Capture Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	if len(stats.Protocols) > 0 {
		var versions []string
		for _, v := range slices.Sorted(maps.Keys(stats.Protocols)) {
			versions = append(versions, fmt.Sprint(v))
		}
		fmt.Fprintf(w, "Protocols:    %s\n", strings.Join(versions, ", "))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerIntercept, log.LayerEngine} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for cat := log.CategoryPacket; cat <= log.CategoryError; cat++ {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.TeamActions) > 0 {
		fmt.Fprintln(w, "Team Actions:")
		for a := log.TeamCreated; a <= log.TeamForeign; a++ {
			if count := stats.TeamActions[a]; count > 0 {
				fmt.Fprintf(w, "  %-12s %d\n", a.String()+":", count)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Observers: %d\n", len(stats.Observers))
	if len(stats.Observers) > 0 {
		ids := slices.SortedFunc(maps.Keys(stats.Observers), func(a, b string) int {
			return stats.Observers[a].FirstSeen.Compare(stats.Observers[b].FirstSeen)
		})

		fmt.Fprintln(w)
		for _, id := range ids {
			obs := stats.Observers[id]
			duration := obs.LastSeen.Sub(obs.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenObserverID(id), obs.Events, duration)
			if obs.Rewrites > 0 || obs.Forced > 0 {
				fmt.Fprintf(w, "           Rewrites: %d, forced: %d, entities: %d\n",
					obs.Rewrites, obs.Forced, len(obs.Entities))
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
