package aisbridge

import (
	"encoding/json"
	"fmt"
	"time"
)

// upstreamFrame mirrors the JSON envelope sent by the streaming provider: a
// MetaData block common to every message, and a Message block carrying
// one of several named variants. Variants absent from the frame are left as
// nil pointers by encoding/json; when more than one is present, decodeFrame
// picks one by priority.
type upstreamFrame struct {
	MetaData upstreamMetaData `json:"MetaData"`
	Message  upstreamMessage  `json:"Message"`
}

type upstreamMetaData struct {
	MMSI      uint32  `json:"MMSI"`
	TimeUTC   string  `json:"time_utc"`
	ShipName  string  `json:"ShipName"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type upstreamMessage struct {
	PositionReport                *positionReportVariant       `json:"PositionReport,omitempty"`
	StandardClassBPositionReport  *classBPositionVariant       `json:"StandardClassBPositionReport,omitempty"`
	ShipStaticData                *shipStaticDataVariant       `json:"ShipStaticData,omitempty"`
	ShipAndVoyageData             *shipStaticDataVariant       `json:"ShipAndVoyageData,omitempty"`
	StaticDataReport              *staticDataReportVariant     `json:"StaticDataReport,omitempty"`
}

type positionReportVariant struct {
	Latitude           float64 `json:"Latitude"`
	Longitude          float64 `json:"Longitude"`
	Sog                float64 `json:"Sog"`
	Cog                float64 `json:"Cog"`
	TrueHeading        int     `json:"TrueHeading"`
	RateOfTurn         int     `json:"RateOfTurn"`
	NavigationalStatus uint8   `json:"NavigationalStatus"`
	PositionAccuracy   bool    `json:"PositionAccuracy"`
	Raim               bool    `json:"Raim"`
	Timestamp          uint8   `json:"Timestamp"`
}

type classBPositionVariant struct {
	Latitude         float64 `json:"Latitude"`
	Longitude        float64 `json:"Longitude"`
	Sog              float64 `json:"Sog"`
	Cog              float64 `json:"Cog"`
	TrueHeading      int     `json:"TrueHeading"`
	PositionAccuracy bool    `json:"PositionAccuracy"`
	Raim             bool    `json:"Raim"`
	Timestamp        uint8   `json:"Timestamp"`
}

type shipStaticDataVariant struct {
	Name        string `json:"Name"`
	CallSign    string `json:"CallSign"`
	Type        uint8  `json:"Type"`
	Destination string `json:"Destination"`
}

type staticDataReportVariant struct {
	PartNumber int               `json:"PartNumber"`
	ReportA    *staticReportPart `json:"ReportA,omitempty"`
	ReportB    *staticReportPart `json:"ReportB,omitempty"`
}

type staticReportPart struct {
	Name     string `json:"Name,omitempty"`
	CallSign string `json:"CallSign,omitempty"`
	Type     uint8  `json:"Type,omitempty"`
}

// ErrIgnoredFrame is returned by DecodeFrame for frames that are
// syntactically valid but carry no variant this system understands. It is
// not wrapped in ErrUpstreamDecode: an ignored frame is expected traffic,
// not a decode failure.
var ErrIgnoredFrame = fmt.Errorf("aisbridge: frame carries no recognised message variant")

// DecodeFrame is the exported entry point used by the stream client to turn
// one upstream wire frame into a VesselRecord.
func DecodeFrame(raw []byte) (VesselRecord, error) {
	return decodeFrame(raw)
}

// decodeFrame parses one upstream JSON frame into a VesselRecord. Variant
// priority, when more than one is present in a single frame, follows the
// order PositionReport, StandardClassBPositionReport, ShipStaticData /
// ShipAndVoyageData, StaticDataReport.
func decodeFrame(raw []byte) (VesselRecord, error) {
	var frame upstreamFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return VesselRecord{}, fmt.Errorf("%w: %v", ErrUpstreamDecode, err)
	}

	observedAt := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, frame.MetaData.TimeUTC); err == nil {
		observedAt = t
	}

	base := VesselRecord{
		MMSI:        frame.MetaData.MMSI,
		Lat:         NoLat,
		Lon:         NoLon,
		NavStatus:   NoNavStatus,
		VesselName:  frame.MetaData.ShipName,
		ObservedAt:  observedAt,
	}

	metaLat, metaLon := frame.MetaData.Latitude, frame.MetaData.Longitude

	switch {
	case frame.Message.PositionReport != nil:
		return decodePositionClassA(base, frame.Message.PositionReport, metaLat, metaLon), nil
	case frame.Message.StandardClassBPositionReport != nil:
		return decodePositionClassB(base, frame.Message.StandardClassBPositionReport, metaLat, metaLon), nil
	case frame.Message.ShipStaticData != nil:
		return decodeStaticVoyage(base, frame.Message.ShipStaticData), nil
	case frame.Message.ShipAndVoyageData != nil:
		return decodeStaticVoyage(base, frame.Message.ShipAndVoyageData), nil
	case frame.Message.StaticDataReport != nil:
		return decodeStaticReport(base, frame.Message.StaticDataReport), nil
	default:
		return VesselRecord{}, ErrIgnoredFrame
	}
}

func decodePositionClassA(v VesselRecord, p *positionReportVariant, metaLat, metaLon float64) VesselRecord {
	v.Kind = KindPositionClassA
	v.Lat, v.Lon = orMeta(p.Latitude, p.Longitude, metaLat, metaLon)
	sog := p.Sog
	cog := p.Cog
	heading := p.TrueHeading
	rot := p.RateOfTurn
	v.SOG = &sog
	v.COG = &cog
	v.Heading = &heading
	v.ROT = &rot
	v.NavStatus = p.NavigationalStatus
	v.PositionAccuracy = p.PositionAccuracy
	v.RAIM = p.Raim
	v.TimestampSeconds = p.Timestamp
	return v
}

func decodePositionClassB(v VesselRecord, p *classBPositionVariant, metaLat, metaLon float64) VesselRecord {
	v.Kind = KindPositionClassB
	v.Lat, v.Lon = orMeta(p.Latitude, p.Longitude, metaLat, metaLon)
	sog := p.Sog
	cog := p.Cog
	heading := p.TrueHeading
	v.SOG = &sog
	v.COG = &cog
	v.Heading = &heading
	v.PositionAccuracy = p.PositionAccuracy
	v.RAIM = p.Raim
	v.TimestampSeconds = p.Timestamp
	return v
}

func decodeStaticVoyage(v VesselRecord, s *shipStaticDataVariant) VesselRecord {
	v.Kind = KindStaticVoyage
	if s.Name != "" {
		v.VesselName = s.Name
	}
	v.CallSign = s.CallSign
	v.VesselType = s.Type
	v.Destination = s.Destination
	return v
}

func decodeStaticReport(v VesselRecord, s *staticDataReportVariant) VesselRecord {
	v.Kind = KindStaticReport
	if s.ReportA != nil && s.ReportA.Name != "" {
		v.VesselName = s.ReportA.Name
	}
	if s.ReportB != nil {
		v.CallSign = s.ReportB.CallSign
		v.VesselType = s.ReportB.Type
	}
	return v
}

// orMeta prefers the position-variant's own lat/lon, falling back to the
// frame's MetaData position when the variant reports the AIS zero-value
// (which upstream providers sometimes send interchangeably with omission).
func orMeta(lat, lon, metaLat, metaLon float64) (float64, float64) {
	if lat == 0 && lon == 0 && (metaLat != 0 || metaLon != 0) {
		return metaLat, metaLon
	}
	return lat, lon
}
