// Package crs identifies coordinate reference systems by authority and code, and knows
// the little about them that tile arithmetic needs: the axis order and the linear unit.
package crs

import (
	"fmt"
	"regexp"
	"strings"
)

// MetresPerDegree is the length of one degree at the equator. It is used instead of a
// real unit conversion when a CRS measures in degrees.
const MetresPerDegree = 111319

type AxisOrder int

const (
	AxisOrderUnknown AxisOrder = iota
	EastNorth
	NorthEast
)

func (a AxisOrder) String() string {
	switch a {
	case EastNorth:
		return "EAST_NORTH"
	case NorthEast:
		return "NORTH_EAST"
	default:
		return "UNKNOWN"
	}
}

type Unit int

const (
	Metre Unit = iota
	Degree
	USSurveyFoot
	Foot
)

func (u Unit) String() string {
	switch u {
	case Degree:
		return "degree"
	case USSurveyFoot:
		return "US survey foot"
	case Foot:
		return "foot"
	default:
		return "metre"
	}
}

// FromMetres converts a length in metres into this unit.
// Degrees are approximated with MetresPerDegree.
func (u Unit) FromMetres(m float64) float64 {
	switch u {
	case Degree:
		return m / MetresPerDegree
	case USSurveyFoot:
		return m / (1200.0 / 3937.0)
	case Foot:
		return m / 0.3048
	default:
		return m
	}
}

// ToMetres converts a length in this unit into metres.
func (u Unit) ToMetres(v float64) float64 {
	switch u {
	case Degree:
		return v * MetresPerDegree
	case USSurveyFoot:
		return v * (1200.0 / 3937.0)
	case Foot:
		return v * 0.3048
	default:
		return v
	}
}

// CRS is a coordinate reference system as far as tiling is concerned.
type CRS struct {
	Authority string
	Code      string
	AxisOrder AxisOrder
	Unit      Unit
}

type known struct {
	axisOrder AxisOrder
	unit      Unit
}

var registry = map[string]known{
	"EPSG:4326":   {NorthEast, Degree},
	"EPSG:4258":   {NorthEast, Degree},
	"EPSG:4979":   {NorthEast, Degree},
	"OGC:CRS84":   {EastNorth, Degree},
	"EPSG:3857":   {EastNorth, Metre},
	"EPSG:900913": {EastNorth, Metre},
	"EPSG:3785":   {EastNorth, Metre},
	"EPSG:102100": {EastNorth, Metre},
	"EPSG:102113": {EastNorth, Metre},
	"EPSG:3395":   {EastNorth, Metre},
	"EPSG:28992":  {EastNorth, Metre},
	"EPSG:3035":   {NorthEast, Metre},
	"EPSG:2193":   {NorthEast, Metre},
	"EPSG:3978":   {EastNorth, Metre},
	"EPSG:2263":   {EastNorth, USSurveyFoot},
	"EPSG:27700":  {EastNorth, Metre},
}

var (
	WGS84          = FromAuthority("EPSG", "4326")
	CRS84          = FromAuthority("OGC", "CRS84")
	WebMercator    = FromAuthority("EPSG", "3857")
	crsURIRegexURL = regexp.MustCompile(`^https?://.+/def/crs/(?P<authority>[^/]+)/[^/]*/(?P<code>[^/]+)$`)
	crsURIRegexURN = regexp.MustCompile(`(?i)^urn:ogc:def:crs:(?P<authority>[^:]+):[^:]*:(?P<code>[^:]+)$`)
	crsGMLRegex    = regexp.MustCompile(`(?i)^https?://www\.opengis\.net/gml/srs/epsg\.xml#(?P<code>\d+)$`)
)

// FromAuthority returns the CRS for an authority and code. Codes missing from the
// registry are assumed to be projected, easting first and in metres.
func FromAuthority(authority, code string) CRS {
	authority = strings.ToUpper(strings.TrimSpace(authority))
	code = strings.TrimSpace(code)
	if authority == "CRS" && code == "84" {
		authority, code = "OGC", "CRS84"
	}
	if authority == "OGC" {
		code = strings.ToUpper(code)
	}
	c := CRS{Authority: authority, Code: code, AxisOrder: EastNorth, Unit: Metre}
	if k, ok := registry[c.String()]; ok {
		c.AxisOrder = k.axisOrder
		c.Unit = k.unit
	}
	return c
}

// Parse accepts "EPSG:4326", "CRS:84", OGC URNs and OGC http URIs.
func Parse(s string) (CRS, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CRS{}, fmt.Errorf("empty crs")
	}
	if parts := crsURIRegexURL.FindStringSubmatch(s); parts != nil {
		return FromAuthority(parts[1], parts[2]), nil
	}
	if parts := crsURIRegexURN.FindStringSubmatch(s); parts != nil {
		return FromAuthority(parts[1], parts[2]), nil
	}
	if parts := crsGMLRegex.FindStringSubmatch(s); parts != nil {
		return FromAuthority("EPSG", parts[1]), nil
	}
	if strings.EqualFold(s, "CRS84") || strings.EqualFold(s, "WGS84") {
		return CRS84, nil
	}
	authority, code, found := strings.Cut(s, ":")
	if !found || authority == "" || code == "" {
		return CRS{}, fmt.Errorf(`could not parse crs "%v"`, s)
	}
	return FromAuthority(authority, code), nil
}

// MustParse is like Parse but panics when s cannot be parsed.
func MustParse(s string) CRS {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// WithOrderedAxes overrides the axis order with an explicit axis listing
// such as ["X","Y"], ["E","N"] or ["Lat","Lon"].
func (c CRS) WithOrderedAxes(axes []string) CRS {
	if len(axes) != 2 {
		return c
	}
	first := strings.ToLower(axes[0])
	switch first {
	case "x", "e", "east", "easting", "lon", "long", "longitude":
		c.AxisOrder = EastNorth
	case "y", "n", "north", "northing", "lat", "latitude":
		c.AxisOrder = NorthEast
	}
	return c
}

func (c CRS) String() string {
	if c.IsZero() {
		return ""
	}
	return c.Authority + ":" + c.Code
}

func (c CRS) IsZero() bool {
	return c.Authority == "" && c.Code == ""
}

// Equal compares the identity of two CRSs, ignoring axis order and unit.
func (c CRS) Equal(o CRS) bool {
	return c.Authority == o.Authority && c.Code == o.Code
}
