package aisbridge

import (
	"fmt"
	"math"
)

var messageIDCounter int

// nextMessageID returns a monotonic digit string, wrapping modulo 10, used to
// correlate the fragments of a multi-sentence message (type 5).
func nextMessageID() string {
	id := messageIDCounter % 10
	messageIDCounter++
	return fmt.Sprintf("%d", id)
}

// Encode converts a VesselRecord into one or more NmeaSentence fragments.
// Types 1/18 produce exactly one sentence; type 24 always produces two
// (Part A then Part B); type 5 produces however many 82-character fragments
// its 424-bit payload requires. A record with no MMSI or an unrecognised
// Kind yields no sentences and an error wrapping ErrEncoderUnsupported; the
// caller counts it as a skip, not a fatal condition.
func Encode(v VesselRecord) ([]NmeaSentence, error) {
	if v.MMSI == 0 {
		return nil, fmt.Errorf("%w: zero MMSI", ErrEncoderUnsupported)
	}
	switch v.Kind {
	case KindPositionClassA:
		return []NmeaSentence{encodeClassAPosition(v)}, nil
	case KindPositionClassB:
		return []NmeaSentence{encodeClassBPosition(v)}, nil
	case KindStaticReport:
		return encodeStaticReport(v), nil
	case KindStaticVoyage:
		return encodeStaticVoyage(v), nil
	default:
		return nil, fmt.Errorf("%w: kind %s", ErrEncoderUnsupported, v.Kind)
	}
}

func latRaw(lat float64) int64 {
	if lat == NoLat {
		return 91 * 600000
	}
	raw := int64(math.Round(lat * 600000))
	const max = 54_000_000
	if raw > max {
		raw = max
	}
	if raw < -max {
		raw = -max
	}
	return raw
}

func lonRaw(lon float64) int64 {
	if lon == NoLon {
		return 181 * 600000
	}
	raw := int64(math.Round(lon * 600000))
	const max = 108_000_000
	if raw > max {
		raw = max
	}
	if raw < -max {
		raw = -max
	}
	return raw
}

func sogRaw(sog *float64) uint64 {
	if sog == nil || *sog >= 102.3 || *sog < 0 {
		return NoSOGRaw
	}
	v := uint64(math.Round(*sog * 10))
	if v > NoSOGRaw {
		v = NoSOGRaw
	}
	return v
}

func cogRaw(cog *float64) uint64 {
	if cog == nil || math.IsNaN(*cog) || *cog >= 360 || *cog < 0 {
		return NoCOGRaw
	}
	return uint64(math.Round(*cog * 10))
}

func headingRaw(heading *int) uint64 {
	if heading == nil || *heading < 0 || *heading > 359 {
		return NoHeading
	}
	return uint64(*heading)
}

func rotRaw(rot *int) uint64 {
	if rot == nil || *rot < -127 || *rot > 127 {
		return NoROTWire
	}
	return uint64(int64(*rot)) & 0xFF
}

func timestampRaw(ts uint8) uint64 {
	if ts > 63 {
		return NoTimestamp
	}
	return uint64(ts)
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func packToSentence(w *bitWriter, channel string) NmeaSentence {
	payload, fill := armorPayload(w.Bytes(), w.Len())
	return NmeaSentence{
		FragmentCount:  1,
		FragmentNumber: 1,
		Channel:        channel,
		ArmoredPayload: payload,
		FillBits:       fill,
	}
}

func encodeClassAPosition(v VesselRecord) NmeaSentence {
	w := newBitWriter(168)
	w.WriteUint(0, 6, 1) // message type 1
	w.WriteUint(6, 2, 0) // repeat indicator
	w.WriteUint(8, 30, uint64(v.MMSI))
	w.WriteUint(38, 4, uint64(v.NavStatus))
	w.WriteUint(42, 8, rotRaw(v.ROT))
	w.WriteUint(50, 10, sogRaw(v.SOG))
	w.WriteUint(60, 1, boolBit(v.PositionAccuracy))
	w.WriteInt(61, 28, lonRaw(v.Lon))
	w.WriteInt(89, 27, latRaw(v.Lat))
	w.WriteUint(116, 12, cogRaw(v.COG))
	w.WriteUint(128, 9, headingRaw(v.Heading))
	w.WriteUint(137, 6, timestampRaw(v.TimestampSeconds))
	w.WriteUint(143, 2, 0) // maneuver indicator, not modeled
	w.WriteUint(145, 3, 0) // spare
	w.WriteUint(148, 1, boolBit(v.RAIM))
	w.WriteUint(149, 19, 0) // radio status, not modeled
	return packToSentence(w, "A")
}

func encodeClassBPosition(v VesselRecord) NmeaSentence {
	w := newBitWriter(168)
	w.WriteUint(0, 6, 18)
	w.WriteUint(6, 2, 0)
	w.WriteUint(8, 30, uint64(v.MMSI))
	w.WriteUint(38, 8, 0) // reserved
	w.WriteUint(46, 10, sogRaw(v.SOG))
	w.WriteUint(56, 1, boolBit(v.PositionAccuracy))
	w.WriteInt(57, 28, lonRaw(v.Lon))
	w.WriteInt(85, 27, latRaw(v.Lat))
	w.WriteUint(112, 12, cogRaw(v.COG))
	w.WriteUint(124, 9, headingRaw(v.Heading))
	w.WriteUint(133, 6, timestampRaw(v.TimestampSeconds))
	w.WriteUint(139, 2, 0)
	w.WriteUint(141, 1, 1) // CS unit
	w.WriteUint(142, 1, 0) // display
	w.WriteUint(143, 1, 1) // DSC
	w.WriteUint(144, 1, 1) // band
	w.WriteUint(145, 1, 1) // message 22 capable
	w.WriteUint(146, 1, 0) // assigned mode
	w.WriteUint(147, 1, boolBit(v.RAIM))
	w.WriteUint(148, 1, 1) // comm state selector
	w.WriteUint(149, 19, 0)
	return packToSentence(w, "B")
}

func encodeStaticReport(v VesselRecord) []NmeaSentence {
	wa := newBitWriter(168)
	wa.WriteUint(0, 6, 24)
	wa.WriteUint(6, 2, 0)
	wa.WriteUint(8, 30, uint64(v.MMSI))
	wa.WriteUint(38, 2, 0) // part number A
	wa.WriteString(40, 20, v.VesselName)
	wa.WriteUint(160, 8, 0) // spare
	partA := packToSentence(wa, "A")

	wb := newBitWriter(168)
	wb.WriteUint(0, 6, 24)
	wb.WriteUint(6, 2, 0)
	wb.WriteUint(8, 30, uint64(v.MMSI))
	wb.WriteUint(38, 2, 1) // part number B
	wb.WriteUint(40, 8, uint64(v.VesselType))
	wb.WriteString(48, 7, vendorIDFill)
	wb.WriteString(90, 7, v.CallSign)
	wb.WriteUint(132, 9, 0) // to bow
	wb.WriteUint(141, 9, 0) // to stern
	wb.WriteUint(150, 6, 0) // to port
	wb.WriteUint(156, 6, 0) // to starboard
	wb.WriteUint(162, 4, defaultEPFD)
	wb.WriteUint(166, 2, 0)
	partB := packToSentence(wb, "B")

	return []NmeaSentence{partA, partB}
}

const type5BitLen = 424

func encodeStaticVoyage(v VesselRecord) []NmeaSentence {
	w := newBitWriter(type5BitLen)
	w.WriteUint(0, 6, 5)
	w.WriteUint(6, 2, 0)
	w.WriteUint(8, 30, uint64(v.MMSI))
	w.WriteUint(38, 2, 0)  // AIS version
	w.WriteUint(40, 30, 0) // IMO number, not modeled
	w.WriteString(70, 7, v.CallSign)
	w.WriteString(112, 20, v.VesselName)
	w.WriteUint(232, 8, uint64(v.VesselType))
	w.WriteUint(240, 9, 0) // dimension to bow
	w.WriteUint(249, 9, 0) // dimension to stern
	w.WriteUint(258, 6, 0) // dimension to port
	w.WriteUint(264, 6, 0) // dimension to starboard
	w.WriteUint(270, 4, defaultEPFD)
	w.WriteUint(274, 4, 0)  // ETA month
	w.WriteUint(278, 5, 0)  // ETA day
	w.WriteUint(283, 5, 24) // ETA hour, not available
	w.WriteUint(288, 6, 60) // ETA minute, not available
	w.WriteUint(294, 8, 0)  // draught
	w.WriteString(302, 20, v.Destination)
	w.WriteUint(422, 1, 1) // DTE, not available
	w.WriteUint(423, 1, 0) // spare

	return fragmentPayload(w)
}

// fragmentPayload splits a long armored payload across as many `!AIVDM`
// sentences as needed to keep each one at or under 82 characters including
// the CRLF the controller appends later. Every fragment of a multi-fragment
// message shares the same MessageID.
func fragmentPayload(w *bitWriter) []NmeaSentence {
	payload, fillBits := armorPayload(w.Bytes(), w.Len())

	const maxSentenceLen = 82 // including "!...*HH\r\n"
	const crlfLen = 2
	const checksumLen = 3 // "*HH"

	// Fixed overhead for "!AIVDM,C,N,ID,CH,,F" plus checksum and CRLF, worst
	// case (two-digit fragment count/number never occurs here: max 9
	// fragments).
	const fixedOverhead = len("!AIVDM,9,9,9,A,,0") + checksumLen + crlfLen
	maxDataPerFragment := maxSentenceLen - fixedOverhead

	if len(payload) <= maxDataPerFragment {
		return []NmeaSentence{{
			FragmentCount:  1,
			FragmentNumber: 1,
			Channel:        "A",
			ArmoredPayload: payload,
			FillBits:       fillBits,
		}}
	}

	msgID := nextMessageID()
	var sentences []NmeaSentence
	total := (len(payload) + maxDataPerFragment - 1) / maxDataPerFragment
	for i := 0; i < total; i++ {
		start := i * maxDataPerFragment
		end := start + maxDataPerFragment
		if end > len(payload) {
			end = len(payload)
		}
		fb := 0
		if i == total-1 {
			fb = fillBits
		}
		sentences = append(sentences, NmeaSentence{
			FragmentCount:  total,
			FragmentNumber: i + 1,
			MessageID:      msgID,
			Channel:        "A",
			ArmoredPayload: payload[start:end],
			FillBits:       fb,
		})
	}
	return sentences
}
