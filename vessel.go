package aisbridge

import "time"

// Kind identifies which AIS message shape a VesselRecord should be encoded
// as. It is set by the decoder from the upstream variant it saw and consulted
// by the encoder to pick a field layout.
type Kind uint8

const (
	// KindUnknown is the zero value; records in this state are not encodable.
	KindUnknown Kind = iota
	// KindPositionClassA corresponds to AIS message types 1/2/3.
	KindPositionClassA
	// KindStaticVoyage corresponds to AIS message type 5.
	KindStaticVoyage
	// KindPositionClassB corresponds to AIS message type 18.
	KindPositionClassB
	// KindStaticReport corresponds to AIS message type 24 (parts A and B).
	KindStaticReport
)

func (k Kind) String() string {
	switch k {
	case KindPositionClassA:
		return "PositionClassA"
	case KindStaticVoyage:
		return "StaticVoyage"
	case KindPositionClassB:
		return "PositionClassB"
	case KindStaticReport:
		return "StaticReport"
	default:
		return "Unknown"
	}
}

// Sentinel "not available" values shared by the decoder defaults and the
// encoder's clamping rules.
const (
	NoLat        = 91.0
	NoLon        = 181.0
	NoSOGRaw     = 1023
	NoCOGRaw     = 3600
	NoHeading    = 511
	NoROTWire    = 128
	NoNavStatus  = 0
	NoTimestamp  = 60
	defaultEPFD  = 1 // GPS
	vendorIDFill = "GENERIC"
)

// VesselRecord is the normalized, transport-agnostic representation of a
// single vessel report, regardless of which upstream message variant it
// originated from. The encoder consults only the fields relevant to Kind.
type VesselRecord struct {
	MMSI uint32
	Kind Kind

	Lat, Lon float64 // decimal degrees; NoLat/NoLon sentinel means absent

	SOG *float64 // knots, 0..102.2
	COG *float64 // degrees, 0..<360
	Heading *int // degrees, 0..359
	ROT     *int // -127..127

	NavStatus         uint8
	PositionAccuracy  bool
	RAIM              bool
	TimestampSeconds  uint8

	VesselName  string
	CallSign    string
	VesselType  uint8
	Destination string

	ObservedAt time.Time
}

// HasPosition reports whether the record carries a usable latitude/longitude,
// i.e. they are not the AIS "not available" sentinels.
func (v VesselRecord) HasPosition() bool {
	return v.Lat != NoLat && v.Lon != NoLon
}
