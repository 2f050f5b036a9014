package domain

import (
	"fmt"
	"time"
)

// ReferenceType is the closed set of edge kinds between resources.
type ReferenceType string

const (
	ReferenceRelated   ReferenceType = "related"
	ReferenceDependsOn ReferenceType = "depends_on"
	ReferenceCites     ReferenceType = "references"
)

// ParseReferenceType validates a raw reference type string.
func ParseReferenceType(s string) (ReferenceType, error) {
	switch ReferenceType(s) {
	case ReferenceRelated, ReferenceDependsOn, ReferenceCites:
		return ReferenceType(s), nil
	}
	return "", fmt.Errorf("unknown reference type %q", s)
}

// ReferenceDirection selects which edges a listing returns relative to a
// resource: edges it points out of, edges pointing into it, or both.
type ReferenceDirection string

const (
	DirectionSource ReferenceDirection = "source"
	DirectionTarget ReferenceDirection = "target"
	DirectionBoth   ReferenceDirection = "both"
)

// ParseReferenceDirection validates a direction, defaulting to both.
func ParseReferenceDirection(s string) (ReferenceDirection, error) {
	switch ReferenceDirection(s) {
	case DirectionSource, DirectionTarget, DirectionBoth:
		return ReferenceDirection(s), nil
	case "":
		return DirectionBoth, nil
	}
	return "", fmt.Errorf("unknown reference direction %q", s)
}

// Reference is a directed edge between two resources of the same owner.
// Cycles are allowed; deleting either endpoint deletes the edge.
type Reference struct {
	ID        int64         `json:"id"`
	SourceID  int64         `json:"source_id"`
	TargetID  int64         `json:"target_id"`
	Type      ReferenceType `json:"type"`
	CreatedAt time.Time     `json:"created_at"`
}
