/*
Package toolbox – command options.

Options are plain structs validated with go-playground/validator; the
`option` tag gives the public option name used in error messages and by
DecodeOptions. Rules that span several fields or need the table (index
existence, consistent reads on global indexes, segments, select) are checked
by hand after the struct validation.
*/
package toolbox

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
)

// Capacity is the ReturnConsumedCapacity option.
type Capacity string

const (
	CapacityNone    Capacity = "NONE"
	CapacityTotal   Capacity = "TOTAL"
	CapacityIndexes Capacity = "INDEXES"
)

// Metrics is the ReturnItemCollectionMetrics option.
type Metrics string

const (
	MetricsNone Metrics = "NONE"
	MetricsSize Metrics = "SIZE"
)

// ReturnValues selects the item attributes returned by writes.
type ReturnValues string

const (
	ReturnNone       ReturnValues = "NONE"
	ReturnAllOld     ReturnValues = "ALL_OLD"
	ReturnAllNew     ReturnValues = "ALL_NEW"
	ReturnUpdatedOld ReturnValues = "UPDATED_OLD"
	ReturnUpdatedNew ReturnValues = "UPDATED_NEW"
)

// Select is the Select option of scans and queries.
type Select string

const (
	SelectAllAttributes          Select = "ALL_ATTRIBUTES"
	SelectAllProjectedAttributes Select = "ALL_PROJECTED_ATTRIBUTES"
	SelectCount                  Select = "COUNT"
	SelectSpecificAttributes     Select = "SPECIFIC_ATTRIBUTES"
)

// GetItemOptions configures GetItem.
type GetItemOptions struct {
	Capacity   Capacity `option:"capacity" validate:"omitempty,oneof=NONE TOTAL INDEXES"`
	Consistent bool     `option:"consistent"`
	Attributes []string `option:"attributes"`
}

// PutItemOptions configures PutItem.
type PutItemOptions struct {
	Capacity     Capacity     `option:"capacity" validate:"omitempty,oneof=NONE TOTAL INDEXES"`
	Metrics      Metrics      `option:"metrics" validate:"omitempty,oneof=NONE SIZE"`
	ReturnValues ReturnValues `option:"returnValues" validate:"omitempty,oneof=NONE ALL_OLD"`
	Condition    *Condition   `option:"condition"`
}

// DeleteItemOptions configures DeleteItem.
type DeleteItemOptions struct {
	Capacity     Capacity     `option:"capacity" validate:"omitempty,oneof=NONE TOTAL INDEXES"`
	Metrics      Metrics      `option:"metrics" validate:"omitempty,oneof=NONE SIZE"`
	ReturnValues ReturnValues `option:"returnValues" validate:"omitempty,oneof=NONE ALL_OLD"`
	Condition    *Condition   `option:"condition"`
}

// UpdateItemOptions configures UpdateItem.
type UpdateItemOptions struct {
	Capacity     Capacity     `option:"capacity" validate:"omitempty,oneof=NONE TOTAL INDEXES"`
	Metrics      Metrics      `option:"metrics" validate:"omitempty,oneof=NONE SIZE"`
	ReturnValues ReturnValues `option:"returnValues" validate:"omitempty,oneof=NONE ALL_OLD ALL_NEW UPDATED_OLD UPDATED_NEW"`
	Condition    *Condition   `option:"condition"`
}

// ScanOptions configures Scan. MaxPages is validated but pagination is left
// to the caller.
type ScanOptions struct {
	Capacity          Capacity             `option:"capacity" validate:"omitempty,oneof=NONE TOTAL INDEXES"`
	Consistent        bool                 `option:"consistent"`
	ExclusiveStartKey Item                 `option:"exclusiveStartKey"`
	Index             string               `option:"index"`
	Limit             int                  `option:"limit" validate:"gte=0,lte=2147483647"`
	MaxPages          int                  `option:"maxPages" validate:"gte=0"`
	Select            Select               `option:"select" validate:"omitempty,oneof=ALL_ATTRIBUTES ALL_PROJECTED_ATTRIBUTES COUNT SPECIFIC_ATTRIBUTES"`
	Segment           *int                 `option:"segment" validate:"omitempty,gte=0,lte=2147483647"`
	TotalSegments     *int                 `option:"totalSegments" validate:"omitempty,gte=1,lte=2147483647"`
	Filters           map[string]Condition `option:"filters"`
	Attributes        []string             `option:"attributes"`
}

// QueryOptions configures Query.
type QueryOptions struct {
	Capacity          Capacity             `option:"capacity" validate:"omitempty,oneof=NONE TOTAL INDEXES"`
	Consistent        bool                 `option:"consistent"`
	ExclusiveStartKey Item                 `option:"exclusiveStartKey"`
	Index             string               `option:"index"`
	Limit             int                  `option:"limit" validate:"gte=0,lte=2147483647"`
	MaxPages          int                  `option:"maxPages" validate:"gte=0"`
	Select            Select               `option:"select" validate:"omitempty,oneof=ALL_ATTRIBUTES ALL_PROJECTED_ATTRIBUTES COUNT SPECIFIC_ATTRIBUTES"`
	Reverse           bool                 `option:"reverse"`
	Filters           map[string]Condition `option:"filters"`
	Attributes        []string             `option:"attributes"`
}

// TransactWriteOptions configures TransactWrite.
type TransactWriteOptions struct {
	Capacity           Capacity `option:"capacity" validate:"omitempty,oneof=NONE TOTAL INDEXES"`
	Metrics            Metrics  `option:"metrics" validate:"omitempty,oneof=NONE SIZE"`
	ClientRequestToken string   `option:"clientRequestToken" validate:"omitempty,max=36"`
}

// TransactItemOptions configures one write of a transaction.
type TransactItemOptions struct {
	Condition *Condition `option:"condition"`
}

var validate = newOptionValidator()

func newOptionValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("option"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// optionErrorCodes maps option struct fields to the code raised when they are invalid.
var optionErrorCodes = map[string]ErrorCode{
	"Capacity":           ErrInvalidCapacityOption,
	"Metrics":            ErrInvalidMetricsOption,
	"ReturnValues":       ErrInvalidReturnValuesOption,
	"Consistent":         ErrInvalidConsistentOption,
	"Index":              ErrInvalidIndexOption,
	"Limit":              ErrInvalidLimitOption,
	"MaxPages":           ErrInvalidMaxPagesOption,
	"Select":             ErrInvalidSelectOption,
	"Segment":            ErrInvalidSegmentOption,
	"TotalSegments":      ErrInvalidSegmentOption,
	"ClientRequestToken": ErrInvalidClientRequestToken,
	"Condition":          ErrInvalidCondition,
	"Filters":            ErrInvalidCondition,
	"Attributes":         ErrInvalidProjection,
	"ExclusiveStartKey":  ErrInvalidItem,
	"Reverse":            ErrUnknownOption,
}

func optionCode(field string) ErrorCode {
	if code, ok := optionErrorCodes[field]; ok {
		return code
	}
	return ErrUnknownOption
}

// validateOptions runs the struct rules of an options value.
func validateOptions(opts any) error {
	err := validate.Struct(opts)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	rule := fe.Tag()
	if fe.Param() != "" {
		rule += "=" + fe.Param()
	}
	return NewError(optionCode(fe.StructField()),
		fmt.Sprintf("Invalid %s option: '%v'. Expected: %s.", fe.Field(), fe.Value(), rule),
		WithPayload(map[string]any{"option": fe.Field(), "received": fe.Value(), "rule": rule}))
}

func checkIndexOption(t *Table, index string) error {
	if index == "" {
		return nil
	}
	if _, ok := t.Indexes[index]; !ok {
		return NewError(ErrInvalidIndexOption,
			fmt.Sprintf("Invalid index option: '%s'. Index is not defined on Table %s.", index, t.Name),
			WithPayload(map[string]any{"index": index}))
	}
	return nil
}

func checkConsistentOption(t *Table, consistent bool, index string) error {
	if !consistent || index == "" {
		return nil
	}
	if t.Indexes[index].Type == GlobalIndex {
		return NewError(ErrInvalidConsistentOption,
			fmt.Sprintf("Invalid consistent option: '%v'. Consistent reads are not supported on global index %s.", consistent, index),
			WithPayload(map[string]any{"consistent": consistent, "index": index}))
	}
	return nil
}

func checkSelectOption(sel Select, index string, attributes []string) error {
	switch {
	case sel == "":
		return nil
	case sel == SelectAllProjectedAttributes && index == "":
		return NewError(ErrInvalidSelectOption,
			"Invalid select option: 'ALL_PROJECTED_ATTRIBUTES'. Please provide an 'index' option.",
			WithPayload(map[string]any{"select": sel}))
	case attributes != nil && sel != SelectSpecificAttributes:
		return NewError(ErrInvalidSelectOption,
			fmt.Sprintf("Invalid select option: '%s'. Select must be 'SPECIFIC_ATTRIBUTES' when attributes are provided.", sel),
			WithPayload(map[string]any{"select": sel}))
	case sel == SelectSpecificAttributes && attributes == nil:
		return NewError(ErrInvalidSelectOption,
			"Invalid select option: 'SPECIFIC_ATTRIBUTES'. Please provide an 'attributes' option.",
			WithPayload(map[string]any{"select": sel}))
	}
	return nil
}

func checkSegmentOptions(segment, totalSegments *int) error {
	switch {
	case segment == nil && totalSegments == nil:
		return nil
	case segment == nil || totalSegments == nil:
		return NewError(ErrInvalidSegmentOption,
			"Invalid segment options: segment and totalSegments must be provided together.")
	case *totalSegments < 1:
		return NewError(ErrInvalidSegmentOption,
			fmt.Sprintf("Invalid totalSegments option: '%d'. 'totalSegments' must be a strictly positive integer.", *totalSegments),
			WithPayload(map[string]any{"totalSegments": *totalSegments}))
	case *segment < 0 || *segment >= *totalSegments:
		return NewError(ErrInvalidSegmentOption,
			fmt.Sprintf("Invalid segment option: '%d'. 'segment' must be a positive integer strictly lower than 'totalSegments'.", *segment),
			WithPayload(map[string]any{"segment": *segment, "totalSegments": *totalSegments}))
	}
	return nil
}

// ─── loosely typed options ───────────────────────────────────────────────────

// DecodeOptions copies loosely typed options (as read from JSON or YAML)
// into the options struct pointed to by dst. Unknown option names raise
// operations.unknownOption; values of the wrong type raise the code of the
// option they were given for.
func DecodeOptions(raw map[string]any, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("toolbox: DecodeOptions expects a pointer to an options struct, got %T", dst)
	}
	st := rv.Elem()
	fields := map[string]int{}
	for i := 0; i < st.NumField(); i++ {
		if name := st.Type().Field(i).Tag.Get("option"); name != "" {
			fields[name] = i
		}
	}
	for _, name := range sortedKeys(raw) {
		i, ok := fields[name]
		if !ok {
			return NewError(ErrUnknownOption,
				fmt.Sprintf("Unknown option: %s.", name),
				WithPayload(map[string]any{"option": name}))
		}
		value := raw[name]
		if value == nil {
			continue
		}
		field := st.Field(i)
		if !assignOption(field, value) {
			sf := st.Type().Field(i)
			return NewError(optionCode(sf.Name),
				fmt.Sprintf("Invalid %s option: '%v'. Expected a %s.", name, value, sf.Type),
				WithPayload(map[string]any{"option": name, "received": value}))
		}
	}
	return nil
}

// assignOption stores value in field, converting between compatible kinds.
func assignOption(field reflect.Value, value any) bool {
	if field.Kind() == reflect.Pointer {
		elem := reflect.New(field.Type().Elem())
		if !assignOption(elem.Elem(), value) {
			return false
		}
		field.Set(elem)
		return true
	}
	v := reflect.ValueOf(value)
	switch field.Kind() {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			if v.Kind() != reflect.String {
				return false
			}
			s = v.String()
		}
		field.SetString(s)
		return true
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return false
		}
		field.SetBool(b)
		return true
	case reflect.Int, reflect.Int64, reflect.Int32:
		n, ok := toInt(value)
		if !ok {
			return false
		}
		field.SetInt(int64(n))
		return true
	case reflect.Slice:
		list, ok := toAnySlice(value)
		if !ok {
			return false
		}
		out := reflect.MakeSlice(field.Type(), len(list), len(list))
		for i, e := range list {
			if !assignOption(out.Index(i), e) {
				return false
			}
		}
		field.Set(out)
		return true
	case reflect.Map:
		if field.Type() == reflect.TypeOf(Item{}) {
			if m, ok := toStringMap(value); ok {
				field.Set(reflect.ValueOf(Item(m)))
				return true
			}
		}
	}
	if v.Type().AssignableTo(field.Type()) {
		field.Set(v)
		return true
	}
	return false
}
