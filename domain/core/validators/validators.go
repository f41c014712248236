package validators

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"projectgraph/domain/core/aggregates"
	"projectgraph/domain/core/entities"
	apperrors "projectgraph/pkg/errors"
	"projectgraph/pkg/utils"
)

func init() {
	utils.RegisterValidation("node_kind", func(fl validator.FieldLevel) bool {
		return entities.NodeKind(fl.Field().String()).IsValid()
	})
	utils.RegisterValidation("relationship_type", func(fl validator.FieldLevel) bool {
		return entities.RelationshipType(fl.Field().String()).IsValid()
	})
}

// Constraint names reported for failures that are not struct tags.
const (
	ConstraintUnknownField = "unknown_field"
	ConstraintType         = "type"
	ConstraintUnique       = "unique"
	ConstraintFormat       = "format"
)

var timestampFields = []string{"createdAt", "updatedAt", "decidedAt", "lastInteraction"}

// ValidateNode checks an untyped node record against the schema of its kind
// and returns the typed node. A field that is legal for no part of the kind's
// schema is rejected, so a feature record cannot carry logic fields.
func ValidateNode(record entities.Record) (*entities.Node, error) {
	verrs := apperrors.NewValidationErrors()

	kind := entities.NodeKind(record.String("kind"))
	switch {
	case record["kind"] == nil:
		verrs.Add("kind", "required", "kind is required")
		return nil, verrs
	case !kind.IsValid():
		verrs.Add("kind", "node_kind", fmt.Sprintf("kind %q is not a known node kind", record["kind"]))
		return nil, verrs
	}

	allowed := fieldSet(entities.Node{})
	for k := range fieldSet(entities.NewDetails(kind)) {
		allowed[k] = true
	}
	checkFields(record, allowed, verrs)
	checkTimestamps(record, verrs)
	if verrs.HasErrors() {
		return nil, verrs
	}

	var node entities.Node
	if err := decode(record, &node); err != nil {
		return nil, err
	}
	collect(verrs, utils.ValidateStruct(&node, ""))
	collect(verrs, utils.ValidateStruct(node.Details, ""))
	if verrs.HasErrors() {
		return nil, verrs
	}
	return &node, nil
}

// ValidateRelationship checks an untyped relationship record and returns the
// typed edge. A missing strength defaults to 1. Endpoints are not checked
// against node existence.
func ValidateRelationship(record entities.Record) (*entities.Relationship, error) {
	verrs := apperrors.NewValidationErrors()
	checkFields(record, fieldSet(entities.Relationship{}), verrs)
	checkTimestamps(record, verrs)
	if verrs.HasErrors() {
		return nil, verrs
	}

	rec := record
	if _, ok := record["strength"]; !ok || record["strength"] == nil {
		rec = record.Merge(entities.Record{"strength": entities.DefaultStrength})
	}

	var rel entities.Relationship
	if err := decode(rec, &rel); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(&rel, ""); err != nil {
		return nil, err
	}
	return &rel, nil
}

// ValidateGraph checks a whole untyped graph record, including every node and
// relationship, and returns the typed aggregate. Nested failures are reported
// with their position, e.g. "nodes[2].name".
func ValidateGraph(record entities.Record) (*aggregates.Graph, error) {
	verrs := apperrors.NewValidationErrors()
	checkFields(record, fieldSet(aggregates.Graph{}), verrs)
	checkTimestamps(record, verrs)

	nodeRecords, ok := recordList(record, "nodes", verrs)
	relRecords, ok2 := recordList(record, "relationships", verrs)
	if verrs.HasErrors() || !ok || !ok2 {
		return nil, verrs
	}

	shell := make(entities.Record, len(record))
	for k, v := range record {
		if k != "nodes" && k != "relationships" {
			shell[k] = v
		}
	}
	var graph aggregates.Graph
	if err := decode(shell, &graph); err != nil {
		return nil, err
	}
	collect(verrs, utils.ValidateStruct(&graph, ""))

	graph.Nodes = make([]*entities.Node, 0, len(nodeRecords))
	seenNodes := make(map[string]bool, len(nodeRecords))
	for i, nr := range nodeRecords {
		prefix := fmt.Sprintf("nodes[%d]", i)
		node, err := ValidateNode(nr)
		if err != nil {
			collectPrefixed(verrs, prefix, err)
			continue
		}
		if seenNodes[node.ID] {
			verrs.Add(prefix+".id", ConstraintUnique, fmt.Sprintf("duplicate node id %q", node.ID))
			continue
		}
		seenNodes[node.ID] = true
		graph.Nodes = append(graph.Nodes, node)
	}

	graph.Relationships = make([]*entities.Relationship, 0, len(relRecords))
	seenRels := make(map[string]bool, len(relRecords))
	for i, rr := range relRecords {
		prefix := fmt.Sprintf("relationships[%d]", i)
		rel, err := ValidateRelationship(rr)
		if err != nil {
			collectPrefixed(verrs, prefix, err)
			continue
		}
		if seenRels[rel.ID] {
			verrs.Add(prefix+".id", ConstraintUnique, fmt.Sprintf("duplicate relationship id %q", rel.ID))
			continue
		}
		seenRels[rel.ID] = true
		graph.Relationships = append(graph.Relationships, rel)
	}

	if verrs.HasErrors() {
		return nil, verrs
	}
	if graph.Metadata.Tags == nil {
		graph.Metadata.Tags = make([]string, 0)
	}
	return &graph, nil
}

// DecodeGraph parses stored bytes into a record and validates it.
func DecodeGraph(data []byte) (*aggregates.Graph, error) {
	var record entities.Record
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&record); err != nil {
		return nil, apperrors.NewFieldError("graph", ConstraintFormat, "stored graph is not a JSON object").WithCause(err)
	}
	return ValidateGraph(record)
}

func recordList(record entities.Record, key string, verrs *apperrors.ValidationErrors) ([]entities.Record, bool) {
	raw, present := record[key]
	if !present || raw == nil {
		return nil, true
	}
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []map[string]any:
		for _, m := range v {
			items = append(items, m)
		}
	case []entities.Record:
		for _, m := range v {
			items = append(items, map[string]any(m))
		}
	default:
		verrs.Add(key, ConstraintType, key+" must be a list")
		return nil, false
	}

	out := make([]entities.Record, 0, len(items))
	for i, item := range items {
		switch m := item.(type) {
		case map[string]any:
			out = append(out, entities.Record(m))
		case entities.Record:
			out = append(out, m)
		default:
			verrs.Add(fmt.Sprintf("%s[%d]", key, i), ConstraintType, "entry must be an object")
			return nil, false
		}
	}
	return out, true
}

func checkFields(record entities.Record, allowed map[string]bool, verrs *apperrors.ValidationErrors) {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !allowed[k] {
			verrs.Add(k, ConstraintUnknownField, fmt.Sprintf("%s is not a field of this record", k))
		}
	}
}

func checkTimestamps(record entities.Record, verrs *apperrors.ValidationErrors) {
	for _, k := range timestampFields {
		s, ok := record[k].(string)
		if !ok {
			continue
		}
		if _, err := time.Parse(time.RFC3339Nano, s); err != nil {
			verrs.Add(k, ConstraintFormat, fmt.Sprintf("%s must be an ISO-8601 timestamp", k))
		}
	}
}

// decode round-trips a record through JSON into a typed value, translating
// type mismatches into field errors.
func decode(record entities.Record, out any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return apperrors.NewFieldError("record", ConstraintType, "record is not serializable").WithCause(err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "record"
			}
			return apperrors.NewFieldError(field, ConstraintType,
				fmt.Sprintf("%s must be of type %s", field, typeErr.Type)).WithCause(err)
		}
		return apperrors.NewFieldError("record", ConstraintFormat, err.Error()).WithCause(err)
	}
	return nil
}

func collect(verrs *apperrors.ValidationErrors, err error) {
	if err == nil {
		return
	}
	if ve, ok := apperrors.AsValidationErrors(err); ok {
		verrs.Errors = append(verrs.Errors, ve.Errors...)
		return
	}
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		verrs.AddError(de)
		return
	}
	verrs.Add("record", ConstraintFormat, err.Error())
}

func collectPrefixed(verrs *apperrors.ValidationErrors, prefix string, err error) {
	inner := apperrors.NewValidationErrors()
	collect(inner, err)
	for _, e := range inner.Errors {
		c := e.Clone()
		field := c.Field()
		if field == "" {
			field = prefix
		} else {
			field = prefix + "." + field
		}
		c.Details["field"] = field
		if e.Field() != "" {
			c.Message = strings.Replace(c.Message, e.Field(), field, 1)
		}
		verrs.AddError(c)
	}
}

// fieldSet returns the json keys of a struct value's exported fields.
func fieldSet(v any) map[string]bool {
	set := map[string]bool{}
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		set[name] = true
	}
	return set
}
