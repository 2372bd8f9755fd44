package aisbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	test_test "github.com/tidewatch/aisbridge/test"
)

func TestDecodeFramePositionReport(t *testing.T) {
	raw := []byte(`{
		"MetaData": {"MMSI": 123456789, "time_utc": "2024-03-01T12:00:00Z", "ShipName": "TEST SHIP"},
		"Message": {"PositionReport": {"Latitude": 48.5, "Longitude": -122.8, "Sog": 12.5, "Cog": 89.9, "TrueHeading": 90, "NavigationalStatus": 0, "PositionAccuracy": true}}
	}`)

	v, err := decodeFrame(raw)
	assert.NoError(t, err)
	assert.Equal(t, KindPositionClassA, v.Kind)
	assert.EqualValues(t, 123456789, v.MMSI)
	assert.InDelta(t, 48.5, v.Lat, 1e-9)
	assert.InDelta(t, -122.8, v.Lon, 1e-9)
	assert.NotNil(t, v.SOG)
	assert.InDelta(t, 12.5, *v.SOG, 1e-9)
}

func TestDecodeFrameStaticDataReport(t *testing.T) {
	raw := []byte(`{
		"MetaData": {"MMSI": 987654321},
		"Message": {"StaticDataReport": {"PartNumber": 0, "ReportA": {"Name": "FISHING VESSEL"}}}
	}`)
	v, err := decodeFrame(raw)
	assert.NoError(t, err)
	assert.Equal(t, KindStaticReport, v.Kind)
	assert.Equal(t, "FISHING VESSEL", v.VesselName)
}

func TestDecodeFrameIgnoresUnknownVariant(t *testing.T) {
	raw := []byte(`{"MetaData": {"MMSI": 1}, "Message": {}}`)
	_, err := decodeFrame(raw)
	assert.ErrorIs(t, err, ErrIgnoredFrame)
}

func TestDecodeFrameRejectsMalformedJSON(t *testing.T) {
	_, err := decodeFrame([]byte(`not json`))
	assert.ErrorIs(t, err, ErrUpstreamDecode)
}

func TestDecodeFrameFromFixture(t *testing.T) {
	raw := test_test.LoadBytes(t, "position_report.json")

	v, err := decodeFrame(raw)
	assert.NoError(t, err)
	assert.Equal(t, KindPositionClassA, v.Kind)
	assert.EqualValues(t, 366123456, v.MMSI)
	assert.Equal(t, "COASTAL RUNNER", v.VesselName)
	assert.Equal(t, test_test.UTCTime(1718440200), v.ObservedAt)
}

func TestDecodeFrameVariantPriority(t *testing.T) {
	raw := []byte(`{
		"MetaData": {"MMSI": 1},
		"Message": {
			"PositionReport": {"Latitude": 1, "Longitude": 1},
			"ShipStaticData": {"Name": "SHOULD NOT WIN"}
		}
	}`)
	v, err := decodeFrame(raw)
	assert.NoError(t, err)
	assert.Equal(t, KindPositionClassA, v.Kind)
}
