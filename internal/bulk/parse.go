package bulk

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidFormat is the parent of every payload-level parse failure.
	ErrInvalidFormat = errors.New("invalid format")
	ErrNotAList      = fmt.Errorf("%w: top level is not a list", ErrInvalidFormat)
	ErrMalformed     = fmt.Errorf("%w: malformed payload", ErrInvalidFormat)
)

// RequiredFields must all be present in a record for it to be imported.
var RequiredFields = []string{"question_text", "option_a", "option_b", "option_c", "option_d", "correct_option", "explanation"}

// Record is one decoded question object. A nil Record stands for a list
// element that was not an object.
type Record map[string]any

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// DetectFormat goes by file extension first, then sniffs the payload:
// a leading '[' or '{' means JSON, anything else is tried as YAML.
func DetectFormat(name string, payload []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".csv":
		return FormatCSV
	}
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return FormatJSON
	}
	return FormatYAML
}

// Parse decodes payload into records. On any error no records are returned.
func Parse(name string, payload []byte) ([]Record, error) {
	if !utf8.Valid(payload) {
		return nil, fmt.Errorf("%w: not valid UTF-8", ErrMalformed)
	}
	switch DetectFormat(name, payload) {
	case FormatCSV:
		return parseCSV(payload)
	case FormatYAML:
		var doc any
		if err := yaml.Unmarshal(payload, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return fromList(doc)
	default:
		var doc any
		if err := json.Unmarshal(payload, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return fromList(doc)
	}
}

func fromList(doc any) ([]Record, error) {
	list, ok := doc.([]any)
	if !ok {
		return nil, ErrNotAList
	}
	out := make([]Record, 0, len(list))
	for _, el := range list {
		out = append(out, toRecord(el))
	}
	return out, nil
}

// toRecord returns nil for non-object elements. YAML mappings with
// non-string keys keep their string keys; the rest are unknown keys anyway.
func toRecord(el any) Record {
	switch m := el.(type) {
	case map[string]any:
		return Record(m)
	case map[any]any:
		rec := make(Record, len(m))
		for k, v := range m {
			if ks, ok := k.(string); ok {
				rec[ks] = v
			}
		}
		return rec
	}
	return nil
}

func parseCSV(payload []byte) ([]Record, error) {
	cr := csv.NewReader(bytes.NewReader(payload))
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	cols := make([]string, len(hdr))
	for i, h := range hdr {
		cols[i] = strings.ToLower(strings.TrimSpace(h))
	}
	out := []Record{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		rec := Record{}
		for i, c := range cols {
			if c != "" {
				rec[c] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// ValidateRecord succeeds iff every required key is present. A key present
// with a null value still counts as present.
func ValidateRecord(r Record) error {
	if r == nil {
		return errors.New("record is not an object")
	}
	var missing []string
	for _, f := range RequiredFields {
		if _, ok := r[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
