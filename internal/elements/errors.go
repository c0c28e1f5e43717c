package elements

import (
	"fmt"
	"sort"
	"strings"
)

// ScheduleElementGraphSchemaError reports a graph that cannot be adopted
// as a schedule element graph because required structure is missing.
type ScheduleElementGraphSchemaError struct {
	Reason string
}

func (e *ScheduleElementGraphSchemaError) Error() string {
	return fmt.Sprintf("schedule element graph schema violation: %s", e.Reason)
}

// RouteInitialisationError reports insufficient or contradictory arguments
// to a route constructor.
type RouteInitialisationError struct {
	Reason string
}

func (e *RouteInitialisationError) Error() string {
	return fmt.Sprintf("cannot initialise route: %s", e.Reason)
}

// ServiceInitialisationError reports insufficient or contradictory
// arguments to a service constructor.
type ServiceInitialisationError struct {
	Reason string
}

func (e *ServiceInitialisationError) Error() string {
	return fmt.Sprintf("cannot initialise service: %s", e.Reason)
}

// ScheduleInitialisationError reports insufficient or contradictory
// arguments to a schedule constructor or a schedule-level merge.
type ScheduleInitialisationError struct {
	Reason string
}

func (e *ScheduleInitialisationError) Error() string {
	return fmt.Sprintf("cannot initialise schedule: %s", e.Reason)
}

// RouteIndexError reports a route ID that does not exist, or a reindex
// target that already does.
type RouteIndexError struct {
	ID     string
	Reason string
}

func (e *RouteIndexError) Error() string {
	return fmt.Sprintf("route %q: %s", e.ID, e.Reason)
}

// ServiceIndexError reports a service ID that does not exist, or a
// reindex target that already does.
type ServiceIndexError struct {
	ID     string
	Reason string
}

func (e *ServiceIndexError) Error() string {
	return fmt.Sprintf("service %q: %s", e.ID, e.Reason)
}

// StopIndexError reports a stop ID that does not exist in the graph.
type StopIndexError struct {
	ID     string
	Reason string
}

func (e *StopIndexError) Error() string {
	return fmt.Sprintf("stop %q: %s", e.ID, e.Reason)
}

// ConflictingStopDataError reports incoming stops whose data disagrees
// with stops already present in the schedule.
type ConflictingStopDataError struct {
	StopIDs []string
}

func (e *ConflictingStopDataError) Error() string {
	ids := append([]string(nil), e.StopIDs...)
	sort.Strings(ids)
	return fmt.Sprintf("stops %s have data conflicting with the schedule; pass force to keep the schedule's data", strings.Join(ids, ", "))
}

// InconsistentVehicleModeError reports a vehicle used by trips of routes
// with different modes.
type InconsistentVehicleModeError struct {
	VehicleID string
	Modes     []string
}

func (e *InconsistentVehicleModeError) Error() string {
	modes := append([]string(nil), e.Modes...)
	sort.Strings(modes)
	return fmt.Sprintf("vehicle %q is used by routes of different modes: %s", e.VehicleID, strings.Join(modes, ", "))
}

// SeparabilityError reports two schedules that cannot be structurally
// unioned because their element sets overlap.
type SeparabilityError struct {
	Overlaps map[string][]string // element kind -> clashing IDs
}

func (e *SeparabilityError) Error() string {
	kinds := make([]string, 0, len(e.Overlaps))
	for kind := range e.Overlaps {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	parts := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		ids := append([]string(nil), e.Overlaps[kind]...)
		sort.Strings(ids)
		parts = append(parts, fmt.Sprintf("%s: %s", kind, strings.Join(ids, ", ")))
	}
	return fmt.Sprintf("schedules are not separable, overlapping %s", strings.Join(parts, "; "))
}

// ForbiddenIDChangeError reports an attempt to change an element's ID via
// the attribute-application path instead of reindexing.
type ForbiddenIDChangeError struct {
	ObjectType string
	ID         string
}

func (e *ForbiddenIDChangeError) Error() string {
	return fmt.Sprintf("cannot change id of %s %q via attribute application; use Reindex", e.ObjectType, e.ID)
}
