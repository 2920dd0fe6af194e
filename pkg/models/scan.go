package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ScanResult is the loosely typed payload produced by a bill scanner. Any key may be
// absent, null, or of an unexpected type; the getters below never fail.
//
// Known keys: fileName, fileType, fileSize, scanTimestamp, merchantName, amount, currency,
// transactionDate, category, description, invoiceNumber, taxAmount, totalAmount,
// paymentMethod, items, extractedText, aiConfidence, processingStatus, errorMessage.
type ScanResult map[string]any

// ParseScanResult decodes a JSON object into a ScanResult.
func ParseScanResult(data []byte) (ScanResult, error) {
	var r ScanResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r == nil {
		r = ScanResult{}
	}
	return r, nil
}

// String returns the value under key as a trimmed string. Non-zero numbers and true are
// formatted; empty strings, zero, false and any other type are reported as absent.
func (r ScanResult) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), val != 0
	case json.Number:
		f, err := val.Float64()
		return val.String(), err == nil && f != 0
	case int:
		return strconv.Itoa(val), val != 0
	case bool:
		return strconv.FormatBool(val), val
	default:
		return "", false
	}
}

// StringOr returns the string under key, or def when it is absent or empty.
func (r ScanResult) StringOr(key, def string) string {
	if s, ok := r.String(key); ok {
		return s
	}
	return def
}

// Float returns the value under key as a number. Numeric strings are accepted.
// A zero value is reported as absent so callers can apply fallbacks.
func (r ScanResult) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	return f, f != 0
}

// Items returns the receipt lines. Entries may be plain strings or {name, price} objects;
// anything else is skipped.
func (r ScanResult) Items() []Item {
	raw, ok := r["items"].([]any)
	if !ok {
		return []Item{}
	}
	items := make([]Item, 0, len(raw))
	for _, entry := range raw {
		switch val := entry.(type) {
		case string:
			if name := strings.TrimSpace(val); name != "" {
				items = append(items, Item{Name: name})
			}
		case map[string]any:
			sub := ScanResult(val)
			price, _ := sub.Float("price")
			items = append(items, Item{Name: sub.StringOr("name", ""), Price: price})
		}
	}
	return items
}

// Clone returns a shallow copy, so the raw payload kept on a Transaction is not affected
// by later edits to the scan result.
func (r ScanResult) Clone() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
