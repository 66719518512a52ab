package crs

import (
	"errors"
	"slices"
)

// ErrUnknownCRS is returned when an identifier has no registry entry.
var ErrUnknownCRS = errors.New("unknown coordinate reference system")

// Kind classifies a coordinate reference system.
type Kind string

const (
	KindUnknown     Kind = "unknown"
	KindGeographic  Kind = "geographic"
	KindProjected   Kind = "projected"
	KindGeocentric  Kind = "geocentric"
	KindCompound    Kind = "compound"
	KindEngineering Kind = "engineering"
)

// SpatialReference identifies a coordinate reference system.
//
// SpatialReference is a value type; copies never share mutable state, so a
// reference handed to a published coverage cannot change underneath it.
// The zero value means "unresolved".
type SpatialReference struct {
	// Code is the canonical identifier, e.g. "EPSG:4326". It is empty for
	// systems parsed from well-known text without an authority.
	Code string `json:"code,omitempty"`

	// Name is the human readable name.
	Name string `json:"name"`

	// Kind is the class of the system.
	Kind Kind `json:"kind"`

	// Aliases are alternative identifiers for the same system.
	Aliases []string `json:"aliases,omitempty"`

	// WKT is the well-known text the reference was parsed from, if any.
	WKT string `json:"wkt,omitempty"`
}

// Alias returns the identifier used to tag rasters: the code when known,
// otherwise the name.
func (s SpatialReference) Alias() string {
	if s.Code != "" {
		return s.Code
	}
	return s.Name
}

// IsZero reports whether s is unresolved.
func (s SpatialReference) IsZero() bool {
	return s.Code == "" && s.Name == ""
}

// Equal reports whether s and o denote the same system. References with
// codes compare by code; others compare by name and kind.
func (s SpatialReference) Equal(o SpatialReference) bool {
	if s.Code != "" || o.Code != "" {
		return s.Code == o.Code
	}
	return s.Name == o.Name && s.Kind == o.Kind
}

func (s SpatialReference) clone() SpatialReference {
	s.Aliases = slices.Clone(s.Aliases)
	return s
}

func (s SpatialReference) String() string {
	if s.IsZero() {
		return "<unresolved>"
	}
	if s.Code != "" && s.Name != "" {
		return s.Code + " (" + s.Name + ")"
	}
	return s.Alias()
}
