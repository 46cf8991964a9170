package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Raw is a decoded backend JSON object. A nil Raw means no data arrived.
type Raw map[string]any

// Decode parses a response body into a Raw object. Bodies that are not a
// JSON object decode to nil and are treated as "no data".
func Decode(data []byte) Raw {
	if len(data) == 0 {
		return nil
	}
	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	return raw
}

// first returns the first of keys holding a usable value. Null and empty
// strings are skipped so renamed fields fall through to their aliases.
func (r Raw) first(keys ...string) any {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		return v
	}
	return nil
}

func (r Raw) num(keys ...string) *float64 {
	return ExtractNumeric(r.first(keys...))
}

func (r Raw) str(keys ...string) *string {
	return stringOf(r.first(keys...))
}

func (r Raw) boolean(keys ...string) bool {
	b, ok := r.first(keys...).(bool)
	return ok && b
}

func (r Raw) list(key string) ([]any, bool) {
	items, ok := r[key].([]any)
	return items, ok
}

func (r Raw) object(key string) Raw {
	obj, ok := r[key].(map[string]any)
	if !ok {
		return nil
	}
	return obj
}

// ErrorMarker returns the backend's error message when the body carries an
// explicit error ({"status":"error"}, {"error":...} or {"ok":false}).
func (r Raw) ErrorMarker() (string, bool) {
	if r == nil {
		return "", false
	}
	msg := ""
	if s := r.str("error", "err", "message"); s != nil {
		msg = *s
	}
	if status, _ := r["status"].(string); status == "error" {
		return msg, true
	}
	if ok, isBool := r["ok"].(bool); isBool && !ok {
		return msg, true
	}
	if e := r.first("error"); e != nil {
		if b, isBool := e.(bool); isBool && !b {
			return "", false
		}
		return msg, true
	}
	return "", false
}

func stringOf(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	case json.Number:
		s = t.String()
	default:
		s = fmt.Sprint(t)
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func stringMap(v any) map[string]string {
	out := map[string]string{}
	obj, ok := v.(map[string]any)
	if !ok {
		return out
	}
	for k, val := range obj {
		if s := stringOf(val); s != nil {
			out[k] = *s
		}
	}
	return out
}
