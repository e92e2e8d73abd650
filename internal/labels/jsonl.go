package labels

import (
	"encoding/json"
	"log"
	"sort"
	"strings"

	"github.com/cory-btc/ancestry/internal/coreerr"
)

// ParseJSONLRecords parses JSONL content into a label map, skipping blank
// lines. A malformed line is reported as a *coreerr.LabelParseError naming
// its 1-indexed line number. A duplicate (type, ref) key overwrites the
// earlier record and is logged, not rejected — the last line wins.
func ParseJSONLRecords(content string) (map[LabelKey]Bip329Record, error) {
	result := make(map[LabelKey]Bip329Record)
	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var record Bip329Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, &coreerr.LabelParseError{Line: i + 1, Msg: err.Error()}
		}

		key := record.key()
		if _, exists := result[key]; exists {
			log.Printf("[labels] line %d: duplicate entry for (%s, %s) overwrites previous value", i+1, record.Type, record.Ref)
		}
		result[key] = record
	}
	return result, nil
}

// ExportMapToJSONL serializes a label map to JSONL, sorted by (type, ref)
// so repeated exports of the same data are byte-identical.
func ExportMapToJSONL(m map[LabelKey]Bip329Record) string {
	keys := make([]LabelKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}
		return keys[i].RefID < keys[j].RefID
	})

	var sb strings.Builder
	for _, k := range keys {
		line, err := json.Marshal(m[k])
		if err != nil {
			continue
		}
		sb.Write(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// NormalizeLabelFileID turns a human-entered name into a stable,
// lowercase, hyphen-separated identifier. Folder structure (path
// separators) is preserved so names like "exchanges/binance" round-trip
// as subfolders; each segment is normalized independently.
func NormalizeLabelFileID(name string) string {
	segments := strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' })
	normalized := make([]string, 0, len(segments))
	for _, segment := range segments {
		n := normalizeSegment(segment)
		if n != "" {
			normalized = append(normalized, n)
		}
	}
	return strings.Join(normalized, "/")
}

func normalizeSegment(segment string) string {
	lower := strings.ToLower(segment)
	var sb strings.Builder
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('-')
		}
	}
	parts := strings.FieldsFunc(sb.String(), func(r rune) bool { return r == '-' })
	return strings.Join(parts, "-")
}

// ParseLocalFileName validates a user-supplied file name, strips a
// trailing ".jsonl" extension, and derives its normalized id.
func ParseLocalFileName(raw string) (id, name string, err error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", "", EmptyFileNameError{}
	}

	name = strings.TrimSpace(strings.TrimSuffix(trimmed, ".jsonl"))
	if name == "" {
		return "", "", EmptyFileNameError{}
	}

	id = NormalizeLabelFileID(name)
	if id == "" {
		return "", "", EmptyFileNameError{}
	}

	return id, name, nil
}
