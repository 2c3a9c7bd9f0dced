package standardize

import (
	"strings"
)

// Canonical field names. Parser output is mapped onto exactly this schema;
// source fields with no resolvable alias are dropped, not retained as
// unknown extras.
const (
	FieldTimestamp    = "timestamp"
	FieldLatitude     = "latitude"
	FieldLongitude    = "longitude"
	FieldRSRP         = "rsrp"
	FieldRSRQ         = "rsrq"
	FieldSINR         = "sinr"
	FieldServingCell  = "serving_cell_id"
	FieldNeighbors    = "neighbor_cell_ids"
	FieldThroughputDL = "throughput_dl"
	FieldThroughputUL = "throughput_ul"
	FieldEvent        = "event_type"

	// Intermediate fields used only to derive throughput when no direct
	// throughput column exists.
	fieldBytesDL    = "bytes_dl"
	fieldBytesUL    = "bytes_ul"
	fieldIntervalMS = "interval_ms"
)

// fieldAliases is the declarative alias table: canonical field -> known
// vendor synonyms. Matching is case, whitespace and punctuation insensitive,
// so "RSRP (dBm)" and "rsrp_dbm" both resolve. Every canonical name is its
// own alias, which keeps standardization idempotent over re-exported
// canonical data.
var fieldAliases = map[string][]string{
	FieldTimestamp: {
		"timestamp", "time", "date", "datetime", "time_stamp", "timestamp_ms",
		"gps time", "measurement time", "log time",
	},
	FieldLatitude: {
		"latitude", "lat", "gps_lat", "gps latitude", "pos lat", "wgs84 latitude",
	},
	FieldLongitude: {
		"longitude", "lon", "lng", "long", "gps_lon", "gps longitude", "pos lon",
		"wgs84 longitude",
	},
	FieldRSRP: {
		"rsrp", "rsrp_dbm", "rsrp (dbm)", "serving rsrp", "serving rsrp (dbm)",
		"lte rsrp", "rsrp serving", "rsrp avg",
	},
	FieldRSRQ: {
		"rsrq", "rsrq_db", "rsrq (db)", "serving rsrq", "lte rsrq",
	},
	FieldSINR: {
		"sinr", "sinr_db", "sinr (db)", "cinr", "rs snr", "snr", "lte sinr",
	},
	FieldServingCell: {
		"serving_cell_id", "cell_id", "cell id", "cell", "serving cell", "eci",
		"cell identity", "serving cell id", "ci",
	},
	FieldNeighbors: {
		"neighbor_cell_ids", "neighbor_cells", "neighbors", "neighbor list",
		"ncell list", "ncells", "neighbor ids",
	},
	FieldThroughputDL: {
		"throughput_dl", "dl throughput", "dl_tput", "dl thp", "pdsch throughput",
		"app throughput dl", "dl_thp_kbps", "throughput dl (kbps)",
	},
	FieldThroughputUL: {
		"throughput_ul", "ul throughput", "ul_tput", "ul thp", "pusch throughput",
		"app throughput ul", "ul_thp_kbps", "throughput ul (kbps)",
	},
	FieldEvent: {
		"event_type", "event", "event_code", "event code", "signaling event",
		"l3 event", "event name",
	},
	fieldBytesDL: {
		"bytes_dl", "dl_bytes", "dl bytes", "rx bytes", "rlc dl bytes",
	},
	fieldBytesUL: {
		"bytes_ul", "ul_bytes", "ul bytes", "tx bytes", "rlc ul bytes",
	},
	fieldIntervalMS: {
		"interval_ms", "interval", "duration_ms", "sample interval", "sample_interval_ms",
	},
}

// aliasTable resolves normalized source field names to canonical fields.
// Built once, reused for every dataset.
type aliasTable map[string]string

func buildAliasTable() aliasTable {
	t := make(aliasTable)
	for canonical, aliases := range fieldAliases {
		for _, alias := range aliases {
			t[normalizeFieldName(alias)] = canonical
		}
	}
	return t
}

// resolve maps a source field name to its canonical field, or "" when the
// name has no known alias.
func (t aliasTable) resolve(name string) string {
	return t[normalizeFieldName(name)]
}

// normalizeFieldName lowercases and strips everything that is not a letter or
// digit, so case, whitespace, underscores and unit suffixes in parentheses do
// not defeat the alias match.
func normalizeFieldName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
