//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseUserID tests that parsing never panics on arbitrary input
// and always returns either a valid ID or an error.
func FuzzParseUserID(f *testing.F) {
	f.Add("")
	f.Add("1")
	f.Add("0")
	f.Add("-3")
	f.Add("'; DROP TABLE users;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("12\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseUserID(input)
		if err == nil {
			if id.IsNil() {
				t.Error("accepted ID must not be nil")
			}
			roundTrip, err2 := ParseUserID(id.String())
			if err2 != nil {
				t.Errorf("valid ID failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed ID value")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseAllIDs ensures all ID types share the same validation.
func FuzzParseAllIDs(f *testing.F) {
	f.Add("17")
	f.Add("")
	f.Add("invalid")

	f.Fuzz(func(t *testing.T, input string) {
		_, errUser := ParseUserID(input)
		_, errZone := ParseZoneID(input)
		_, errCenter := ParseCenterID(input)
		_, errRecord := ParseRecordID(input)

		if errUser == nil && (errZone != nil || errCenter != nil || errRecord != nil) {
			t.Error("inconsistent parsing across ID types")
		}
		if errUser != nil && (errZone == nil || errCenter == nil || errRecord == nil) {
			t.Error("inconsistent rejection across ID types")
		}
	})
}
