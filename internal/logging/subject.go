package logging

import "strings"

// FormatSubject builds the record/resource subject shown in console output,
// e.g. "a1b2_de image".
func FormatSubject(recordID, kind string) string {
	recordID = strings.TrimSpace(recordID)
	kind = strings.TrimSpace(kind)
	if len(recordID) > 12 {
		if idx := strings.LastIndexByte(recordID, '_'); idx > 0 && idx >= len(recordID)-6 {
			recordID = recordID[:8] + recordID[idx:]
		} else {
			recordID = recordID[:12]
		}
	}
	switch {
	case recordID != "" && kind != "":
		return recordID + " " + kind
	case recordID != "":
		return recordID
	default:
		return kind
	}
}
