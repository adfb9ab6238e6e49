package scrape

import "encoding/json"

// maxSerializedErrors bounds the error list carried in persisted
// snapshots and journal payloads.
const maxSerializedErrors = 10

// Progress is the serializable state of a scrape run. A persisted
// snapshot seeds a later resume.
type Progress struct {
	TotalItems     int
	ProcessedItems int
	CurrentPage    int
	LastID         string
	Errors         []string
}

// Map renders the snapshot as a plain mapping for persistence. Only the
// most recent 10 errors are kept; older ones are dropped deliberately
// to bound journal payload size.
func (p *Progress) Map() map[string]any {
	start := 0
	if len(p.Errors) > maxSerializedErrors {
		start = len(p.Errors) - maxSerializedErrors
	}
	errs := make([]string, 0, len(p.Errors)-start)
	errs = append(errs, p.Errors[start:]...)

	return map[string]any{
		"total_items":     p.TotalItems,
		"processed_items": p.ProcessedItems,
		"current_page":    p.CurrentPage,
		"last_id":         p.LastID,
		"errors":          errs,
	}
}

// FromMap reconstructs a snapshot from a plain mapping, defaulting
// every missing field. Numeric values survive a JSON round trip
// (float64) as well as in-process use (int).
func FromMap(m map[string]any) *Progress {
	p := &Progress{}
	if m == nil {
		return p
	}
	p.TotalItems = intField(m, "total_items")
	p.ProcessedItems = intField(m, "processed_items")
	p.CurrentPage = intField(m, "current_page")
	if s, ok := m["last_id"].(string); ok {
		p.LastID = s
	}
	p.Errors = stringsField(m, "errors")
	return p
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}

func stringsField(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return nil
}
