package models

import (
	"fmt"
	"sort"
	"strings"
)

// Field names one of the eight top-level sections of an RFQ record.
type Field string

const (
	GeneralInformation     Field = "GENERAL_INFORMATION"
	Requirements           Field = "REQUIREMENTS"
	Deliverables           Field = "DELIVERABLES"
	PeriodOfPerformance    Field = "PERIOD_OF_PERFORMANCE"
	EvaluationCriteria     Field = "EVALUATION_CRITERIA"
	SubmissionRequirements Field = "SUBMISSION_REQUIREMENTS"
	TermsAndConditions     Field = "TERMS_AND_CONDITIONS"
	ContactInformation     Field = "CONTACT_INFORMATION"
)

// Kind is the JSON shape of a field's value.
type Kind int

const (
	// KindObject fields hold a key/value mapping.
	KindObject Kind = iota
	// KindList fields hold an ordered list of items.
	KindList
)

// String returns the JSON Schema type name for the kind.
func (k Kind) String() string {
	if k == KindList {
		return "array"
	}
	return "object"
}

// Fields lists every record field in document order.
var Fields = []Field{
	GeneralInformation,
	Requirements,
	Deliverables,
	PeriodOfPerformance,
	EvaluationCriteria,
	SubmissionRequirements,
	TermsAndConditions,
	ContactInformation,
}

// Schema is the fixed field -> kind mapping every record follows.
var Schema = map[Field]Kind{
	GeneralInformation:     KindObject,
	Requirements:           KindList,
	Deliverables:           KindList,
	PeriodOfPerformance:    KindObject,
	EvaluationCriteria:     KindList,
	SubmissionRequirements: KindList,
	TermsAndConditions:     KindList,
	ContactInformation:     KindObject,
}

// Title returns a human-readable heading for the field, e.g. "Period of Performance".
func (f Field) Title() string {
	switch f {
	case GeneralInformation:
		return "General Information"
	case Requirements:
		return "Requirements"
	case Deliverables:
		return "Deliverables"
	case PeriodOfPerformance:
		return "Period of Performance"
	case EvaluationCriteria:
		return "Evaluation Criteria"
	case SubmissionRequirements:
		return "Submission Requirements"
	case TermsAndConditions:
		return "Terms and Conditions"
	case ContactInformation:
		return "Contact Information"
	}
	return string(f)
}

// Record is a structured RFQ mapping keyed by field name. A partial record
// (one chunk's extraction) may be missing fields or be empty; a final record
// built by NewRecord always carries all eight.
type Record map[string]any

// NewRecord returns a record with every field set to its empty default.
func NewRecord() Record {
	r := make(Record, len(Fields))
	for _, f := range Fields {
		if Schema[f] == KindList {
			r[string(f)] = []any{}
		} else {
			r[string(f)] = map[string]any{}
		}
	}
	return r
}

// Object returns the mapping stored under f, or nil if it is absent or not a mapping.
func (r Record) Object(f Field) map[string]any {
	m, _ := r[string(f)].(map[string]any)
	return m
}

// List returns the items stored under f, or nil if it is absent or not a list.
func (r Record) List(f Field) []any {
	l, _ := r[string(f)].([]any)
	return l
}

// IsEmpty reports whether no field carries any data. A record produced from a
// document where every chunk failed extraction is empty.
func (r Record) IsEmpty() bool {
	for _, f := range Fields {
		switch v := r[string(f)].(type) {
		case nil:
		case map[string]any:
			if len(v) > 0 {
				return false
			}
		case []any:
			if len(v) > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Text flattens every populated field into plain text, one line per field,
// for full-text indexing.
func (r Record) Text() string {
	var lines []string
	for _, f := range Fields {
		var words []string
		flatten(r[string(f)], &words)
		if len(words) > 0 {
			lines = append(lines, f.Title()+": "+strings.Join(words, " "))
		}
	}
	return strings.Join(lines, "\n")
}

func flatten(v any, out *[]string) {
	switch t := v.(type) {
	case nil:
	case string:
		if s := strings.TrimSpace(t); s != "" {
			*out = append(*out, s)
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			*out = append(*out, strings.ReplaceAll(k, "_", " "))
			flatten(t[k], out)
		}
	case []any:
		for _, item := range t {
			flatten(item, out)
		}
	default:
		*out = append(*out, fmt.Sprint(t))
	}
}
