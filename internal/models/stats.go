package models

import id "recensement/pkg/domain"

// ZoneStats summarises collection progress in one zone.
// Objective is nil when the zone has none; Progression is nil unless the
// objective is positive.
type ZoneStats struct {
	ZoneID      id.ZoneID `json:"zone_id"`
	Total       int       `json:"total"`
	Approved    int       `json:"approved"`
	Objective   *int      `json:"objective"`
	Progression *float64  `json:"progression"`
}

// NewZoneStats derives progression from the counts and the zone objective.
// Progression is approved/objective when objective > 0 and nil otherwise.
func NewZoneStats(zoneID id.ZoneID, total, approved int, objective *int) ZoneStats {
	stats := ZoneStats{ZoneID: zoneID, Total: total, Approved: approved}
	if objective != nil {
		v := *objective
		stats.Objective = &v
		if v > 0 {
			p := float64(approved) / float64(v)
			stats.Progression = &p
		}
	}
	return stats
}
