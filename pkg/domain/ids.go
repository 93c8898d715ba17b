package domain

import (
	"strconv"
	"strings"

	dErrors "recensement/pkg/domain-errors"
)

// Typed identifiers for every persisted entity. IDs are assigned by the store,
// start at 1, and increase monotonically per entity type. The zero value means
// "no reference" and maps to SQL NULL.
type (
	UserID   int64
	ZoneID   int64
	CenterID int64
	RecordID int64
)

func (id UserID) IsNil() bool   { return id == 0 }
func (id ZoneID) IsNil() bool   { return id == 0 }
func (id CenterID) IsNil() bool { return id == 0 }
func (id RecordID) IsNil() bool { return id == 0 }

func (id UserID) String() string   { return strconv.FormatInt(int64(id), 10) }
func (id ZoneID) String() string   { return strconv.FormatInt(int64(id), 10) }
func (id CenterID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id RecordID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseUserID parses a positive decimal user identifier from external input.
func ParseUserID(s string) (UserID, error) {
	v, err := parseID(s, "user")
	return UserID(v), err
}

// ParseZoneID parses a positive decimal zone identifier from external input.
func ParseZoneID(s string) (ZoneID, error) {
	v, err := parseID(s, "zone")
	return ZoneID(v), err
}

// ParseCenterID parses a positive decimal center identifier from external input.
func ParseCenterID(s string) (CenterID, error) {
	v, err := parseID(s, "center")
	return CenterID(v), err
}

// ParseRecordID parses a positive decimal record identifier from external input.
func ParseRecordID(s string) (RecordID, error) {
	v, err := parseID(s, "record")
	return RecordID(v), err
}

func parseID(s, kind string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, kind+" ID required")
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" ID")
	}
	if v <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, kind+" ID must be positive")
	}
	return v, nil
}
