package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// hidden keys are either rendered in the line prefix or only useful when
// correlating raw files.
var hidden = map[string]bool{
	"ts":         true,
	"level":      true,
	"msg":        true,
	"component":  true,
	"session_id": true,
}

// FormatLine renders a JSON log record as a single readable line. Lines that
// are not JSON objects are returned unchanged.
func FormatLine(raw string) string {
	var record map[string]any
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&record); err != nil || record == nil {
		return raw
	}
	var b strings.Builder
	if ts, ok := record["ts"].(string); ok {
		b.WriteString(ts)
		b.WriteByte(' ')
	}
	level, _ := record["level"].(string)
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(level))
	if component, ok := record["component"].(string); ok && component != "" {
		b.WriteString(" [" + component + "]")
	}
	if msg, ok := record["msg"].(string); ok {
		b.WriteString(" " + msg)
	}

	keys := make([]string, 0, len(record))
	for key := range record {
		if !hidden[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		b.WriteString(" " + key + "=" + formatField(record[key]))
	}
	return b.String()
}

func formatField(v any) string {
	switch val := v.(type) {
	case string:
		if val == "" || strings.ContainsAny(val, " \t\"=") {
			return fmt.Sprintf("%q", val)
		}
		return val
	case json.Number:
		return val.String()
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
