package standardize

import (
	"strings"

	"drivetest/pkg/contracts/domain"
)

// eventCodes maps vendor-specific event strings and numeric codes onto the
// canonical event enum. Canonical names map to themselves. Unknown codes
// classify as EventNone and are counted in the validation summary.
var eventCodes = map[string]domain.EventType{
	// canonical
	"handover_attempt": domain.EventHandoverAttempt,
	"handover_success": domain.EventHandoverSuccess,
	"handover_failure": domain.EventHandoverFailure,
	"call_attempt":     domain.EventCallAttempt,
	"call_end":         domain.EventCallEnd,
	"call_drop":        domain.EventCallDrop,
	"none":             domain.EventNone,

	// vendor text variants
	"ho_att":              domain.EventHandoverAttempt,
	"ho_attempt":          domain.EventHandoverAttempt,
	"ho attempt":          domain.EventHandoverAttempt,
	"handover attempt":    domain.EventHandoverAttempt,
	"a3 report":           domain.EventHandoverAttempt,
	"ho_succ":             domain.EventHandoverSuccess,
	"ho_success":          domain.EventHandoverSuccess,
	"ho complete":         domain.EventHandoverSuccess,
	"handover success":    domain.EventHandoverSuccess,
	"handover complete":   domain.EventHandoverSuccess,
	"hof":                 domain.EventHandoverFailure,
	"ho_fail":             domain.EventHandoverFailure,
	"ho_failure":          domain.EventHandoverFailure,
	"ho failure":          domain.EventHandoverFailure,
	"handover failure":    domain.EventHandoverFailure,
	"l3_ho_fail":          domain.EventHandoverFailure,
	"call attempt":        domain.EventCallAttempt,
	"call_setup":          domain.EventCallAttempt,
	"call setup":          domain.EventCallAttempt,
	"rrc_conn_req":        domain.EventCallAttempt,
	"call end":            domain.EventCallEnd,
	"call_complete":       domain.EventCallEnd,
	"call complete":       domain.EventCallEnd,
	"normal_release":      domain.EventCallEnd,
	"normal release":      domain.EventCallEnd,
	"drop":                domain.EventCallDrop,
	"dropped":             domain.EventCallDrop,
	"dropped call":        domain.EventCallDrop,
	"call drop":           domain.EventCallDrop,
	"abnormal_release":    domain.EventCallDrop,
	"abnormal release":    domain.EventCallDrop,
	"rrc_connection_drop": domain.EventCallDrop,

	// numeric codes used by the binary trace format
	"0": domain.EventNone,
	"1": domain.EventHandoverAttempt,
	"2": domain.EventHandoverSuccess,
	"3": domain.EventHandoverFailure,
	"4": domain.EventCallDrop,
	"5": domain.EventCallAttempt,
	"6": domain.EventCallEnd,
}

// classifyEvent resolves a raw event value to the canonical enum. The second
// return value is false when the code is unknown.
func classifyEvent(raw string) (domain.EventType, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return domain.EventNone, true
	}
	if ev, ok := eventCodes[key]; ok {
		return ev, true
	}
	return domain.EventNone, false
}
