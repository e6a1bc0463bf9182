package domain

import "time"

// HistoryEntry records the aggregate line coverage of one successful run.
type HistoryEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	Executed     int       `json:"executed"`
	Instrumented int       `json:"instrumented"`
	Percent      float64   `json:"percent"`
}

// History is the ordered list of recorded runs, oldest first.
type History struct {
	Entries []HistoryEntry `json:"entries"`
}

// Latest returns the most recent entry, if any.
func (h History) Latest() (HistoryEntry, bool) {
	if len(h.Entries) == 0 {
		return HistoryEntry{}, false
	}
	return h.Entries[len(h.Entries)-1], true
}
