// Package reconcile extracts a canonical list of property records from search
// responses whose shape is not guaranteed by the upstream service.
package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/stwalsh4118/propsearch/internal/models"
)

var (
	// ErrNoRecognizedShape means no strategy located a property list. It is fatal
	// for the submission.
	ErrNoRecognizedShape = errors.New("response contains no recognizable property list")

	// ErrShapeMismatch is a warning: records were recovered by structural search
	// and should be presented with reduced confidence.
	ErrShapeMismatch = errors.New("response did not match a known envelope")
)

// Strategy identifies how the property list was located.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyCanonicalEnvelope
	StrategyFlatEnvelope
	StrategyBareArray
	StrategyStructuralSearch
)

func (s Strategy) String() string {
	switch s {
	case StrategyCanonicalEnvelope:
		return "canonical_envelope"
	case StrategyFlatEnvelope:
		return "flat_envelope"
	case StrategyBareArray:
		return "bare_array"
	case StrategyStructuralSearch:
		return "structural_search"
	default:
		return "none"
	}
}

const (
	canonicalPath = "data.selected_properties"
	flatPath      = "selected_properties"
	insightsPath  = "data.location_insights"
	rootPath      = "$"
)

// Result is the outcome of a successful reconciliation.
type Result struct {
	Records  []models.PropertyRecord
	Insights []models.LocationInsight
	Strategy Strategy
	// Path is where the property list was found, e.g. "data.selected_properties".
	Path string
	// Dropped counts elements that failed record validation.
	Dropped int
	// Warning wraps ErrShapeMismatch when the structural search was needed.
	Warning error
}

// Degraded reports whether the records came from the structural fallback.
func (r *Result) Degraded() bool {
	return r.Warning != nil
}

// Reconciler turns decoded payloads into property records.
// It is safe for concurrent use.
type Reconciler struct {
	validate *validator.Validate
}

// New creates a Reconciler.
func New() *Reconciler {
	return &Reconciler{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

var defaultReconciler = New()

// Reconcile runs the package-level Reconciler.
func Reconcile(payload Value) (*Result, error) {
	return defaultReconciler.Reconcile(payload)
}

// Reconcile locates the property list in payload using, in order: the canonical
// envelope, the flat envelope, a bare array, and finally a depth-first structural
// search. Elements that are not valid records are dropped.
func (r *Reconciler) Reconcile(payload Value) (*Result, error) {
	items, strategy, path := selectList(payload)
	if strategy == StrategyNone {
		return nil, fmt.Errorf("%w: top-level %s", ErrNoRecognizedShape, payload.Kind())
	}

	result := &Result{
		Records:  make([]models.PropertyRecord, 0, len(items)),
		Insights: []models.LocationInsight{},
		Strategy: strategy,
		Path:     path,
	}

	for _, item := range items {
		record, ok := r.decodeRecord(item)
		if !ok {
			result.Dropped++
			continue
		}
		result.Records = append(result.Records, record)
	}

	if strategy == StrategyCanonicalEnvelope {
		result.Insights = r.decodeInsights(payload)
	}
	if strategy == StrategyStructuralSearch {
		result.Warning = fmt.Errorf("%w: property list recovered from %q", ErrShapeMismatch, path)
	}

	return result, nil
}

// selectList applies the recognition strategies in priority order.
func selectList(payload Value) ([]Value, Strategy, string) {
	if list, ok := payload.Lookup(canonicalPath); ok && list.Kind() == KindArray {
		return list.Items(), StrategyCanonicalEnvelope, canonicalPath
	}
	if list, ok := payload.Get(flatPath); ok && list.Kind() == KindArray {
		return list.Items(), StrategyFlatEnvelope, flatPath
	}
	if payload.Kind() == KindArray {
		return payload.Items(), StrategyBareArray, rootPath
	}

	finder := &candidateFinder{}
	finder.visit(payload, "")
	if finder.found {
		return finder.items, StrategyStructuralSearch, finder.path
	}
	return nil, StrategyNone, ""
}

// candidateFinder walks the payload depth-first in document order and remembers
// the last list that looks like property records. Later candidates replace
// earlier ones.
type candidateFinder struct {
	items []Value
	path  string
	found bool
}

func (f *candidateFinder) visit(v Value, path string) {
	switch v.Kind() {
	case KindObject:
		for _, m := range v.Members() {
			childPath := joinPath(path, m.Key)
			if isCandidate(m.Value) {
				f.items = m.Value.Items()
				f.path = childPath
				f.found = true
				continue
			}
			f.visit(m.Value, childPath)
		}
	case KindArray:
		for i, item := range v.Items() {
			if item.Kind() == KindObject || item.Kind() == KindArray {
				f.visit(item, fmt.Sprintf("%s[%d]", path, i))
			}
		}
	}
}

// isCandidate reports whether v is a non-empty array whose first element is an
// object carrying a usable name: a non-blank string or a number.
func isCandidate(v Value) bool {
	items := v.Items()
	if len(items) == 0 {
		return false
	}
	name, ok := items[0].Get("name")
	if !ok {
		return false
	}
	if s, ok := name.AsString(); ok {
		return strings.TrimSpace(s) != ""
	}
	_, ok = name.AsNumber()
	return ok
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func (r *Reconciler) decodeRecord(v Value) (models.PropertyRecord, bool) {
	if v.Kind() != KindObject {
		return models.PropertyRecord{}, false
	}

	record := models.PropertyRecord{
		Name:          textField(v, "name"),
		Location:      textField(v, "location"),
		Price:         textField(v, "price"),
		ImageURL:      textField(v, "image_url", "imageUrl"),
		KeyFeatures:   listField(v, "key_features", "keyFeatures"),
		Pros:          listField(v, "pros"),
		Cons:          listField(v, "cons"),
		PriceAnalysis: textField(v, "price_analysis", "priceAnalysis"),
		PropertyURL:   textField(v, "property_url", "propertyUrl"),
	}

	if err := r.validate.Struct(record); err != nil {
		return models.PropertyRecord{}, false
	}
	return record, true
}

func (r *Reconciler) decodeInsights(payload Value) []models.LocationInsight {
	list, ok := payload.Lookup(insightsPath)
	if !ok {
		return []models.LocationInsight{}
	}

	insights := make([]models.LocationInsight, 0, len(list.Items()))
	for _, item := range list.Items() {
		if item.Kind() != KindObject {
			continue
		}
		insight := models.LocationInsight{
			Area:       textField(item, "area"),
			Advantages: listField(item, "advantages"),
		}
		if err := r.validate.Struct(insight); err != nil {
			continue
		}
		insights = append(insights, insight)
	}
	return insights
}

// textField returns the first of keys holding a string or number, trimmed.
func textField(v Value, keys ...string) string {
	for _, key := range keys {
		field, ok := v.Get(key)
		if !ok {
			continue
		}
		if s, ok := field.AsString(); ok {
			return strings.TrimSpace(s)
		}
		if n, ok := field.AsNumber(); ok {
			return n.String()
		}
	}
	return ""
}

// listField returns the textual elements of the first of keys holding an array.
// Non-text elements are skipped.
func listField(v Value, keys ...string) []string {
	for _, key := range keys {
		field, ok := v.Get(key)
		if !ok || field.Kind() != KindArray {
			continue
		}
		out := make([]string, 0, len(field.Items()))
		for _, item := range field.Items() {
			if s, ok := item.AsString(); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
				continue
			}
			if n, ok := item.AsNumber(); ok {
				out = append(out, n.String())
			}
		}
		return out
	}
	return []string{}
}
