package aisbridge

import "fmt"

// NmeaSentence is one `!AIVDM` fragment ready for transmission. Render
// returns the sentence body without a trailing CRLF; callers (the service
// controller) are responsible for appending CRLF exactly once before writing
// to a sink, so that encoding stays a pure function of the VesselRecord.
type NmeaSentence struct {
	FragmentCount  int
	FragmentNumber int
	MessageID      string // empty when FragmentCount == 1
	Channel        string // "A", "B", or ""
	ArmoredPayload string
	FillBits       int
}

// Render formats the sentence as `!AIVDM,...*HH` with no trailing CRLF.
func (s NmeaSentence) Render() string {
	body := fmt.Sprintf("AIVDM,%d,%d,%s,%s,%s,%d",
		s.FragmentCount, s.FragmentNumber, s.MessageID, s.Channel, s.ArmoredPayload, s.FillBits)
	return "!" + body + "*" + nmeaChecksum(body)
}
