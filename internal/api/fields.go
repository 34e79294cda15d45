// Package api implements the scoring API daemon: the historical
// POST /method interface with its envelope validation, token auth and the
// online_score / clients_interests methods.
// api 包实现评分 API 守护进程：历史 POST /method 接口及其信封校验、
// 令牌认证和 online_score / clients_interests 方法。
package api

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Gender codes accepted by the online_score arguments.
// online_score 参数接受的性别编码。
const (
	GenderUnknown = 0
	GenderMale    = 1
	GenderFemale  = 2
)

// dateLayout is the wire format for date arguments (DD.MM.YYYY).
const dateLayout = "02.01.2006"

// fieldSpec declares how a single field of a raw JSON object is validated:
// whether the key must be present, whether an empty value is acceptable, an
// optional JSON type to enforce, and an optional format check.
// fieldSpec 声明原始 JSON 对象中单个字段的校验规则。
type fieldSpec struct {
	name     string
	required bool
	nullable bool

	// typeName enforces the JSON type when non-empty ("string", "object",
	// "int", "list"). Typed fields reject null.
	typeName string

	// check runs on non-null values after the type and emptiness checks.
	check func(v any) error
}

type fieldSet []fieldSpec

// fieldReport is the outcome of validating a raw object against a field
// set. Filled holds the keys whose values were non-empty; Errors maps
// offending fields to messages and is empty for a valid object.
type fieldReport struct {
	Filled map[string]bool
	Errors map[string]string
}

// validate checks every declared field against the raw object. Unknown keys
// are ignored; the caller surfaces them from decode metadata if it cares.
func (fs fieldSet) validate(raw map[string]any) fieldReport {
	rep := fieldReport{
		Filled: make(map[string]bool, len(fs)),
		Errors: make(map[string]string),
	}
	for _, f := range fs {
		v, ok := raw[f.name]
		if !ok {
			if f.required {
				rep.Errors[f.name] = "field is required, but not filled"
			}
			continue
		}
		if !emptyValue(v) {
			rep.Filled[f.name] = true
		}
		if err := f.checkValue(v); err != nil {
			rep.Errors[f.name] = err.Error()
		}
	}
	return rep
}

func (f fieldSpec) checkValue(v any) error {
	if f.typeName != "" {
		if err := checkType(v, f.typeName); err != nil {
			return err
		}
	}
	if emptyValue(v) && !f.nullable {
		return fmt.Errorf("field %s must not be empty", f.name)
	}
	if v == nil || f.check == nil {
		return nil
	}
	return f.check(v)
}

// emptyValue reports whether a decoded JSON value counts as empty: null,
// empty string, numeric zero, false, or an empty array/object.
func emptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case float64:
		return t == 0
	case bool:
		return !t
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

func checkType(v any, want string) error {
	ok := false
	switch want {
	case "string":
		_, ok = v.(string)
	case "object":
		_, ok = v.(map[string]any)
	case "int":
		f, isNum := v.(float64)
		ok = isNum && f == math.Trunc(f)
	case "list":
		_, ok = v.([]any)
	}
	if !ok {
		return fmt.Errorf("value %v is not of type %s", v, want)
	}
	return nil
}

// methodFields validates the POST /method request envelope.
var methodFields = fieldSet{
	{name: "account", nullable: true, typeName: "string"},
	{name: "login", required: true, nullable: true, typeName: "string"},
	{name: "token", required: true, nullable: true, typeName: "string"},
	{name: "arguments", required: true, nullable: true, typeName: "object"},
	{name: "method", required: true, typeName: "string"},
}

// onlineScoreFields validates the online_score arguments. Every field is
// optional on its own; the handler additionally requires one filled pair.
var onlineScoreFields = fieldSet{
	{name: "first_name", nullable: true, typeName: "string"},
	{name: "last_name", nullable: true, typeName: "string"},
	{name: "email", nullable: true, typeName: "string", check: checkEmail},
	{name: "phone", nullable: true, check: checkPhone},
	{name: "birthday", nullable: true, check: checkBirthday},
	{name: "gender", nullable: true, typeName: "int", check: checkGender},
}

// clientsInterestsFields validates the clients_interests arguments.
var clientsInterestsFields = fieldSet{
	{name: "client_ids", required: true, typeName: "list", check: checkClientIDs},
	{name: "date", nullable: true, check: checkDate},
}

// scorePairs lists the argument pairs of which at least one must be fully
// filled for online_score to produce a meaningful score.
var scorePairs = [3][2]string{
	{"phone", "email"},
	{"first_name", "last_name"},
	{"gender", "birthday"},
}

func hasValidPair(filled map[string]bool) bool {
	for _, p := range scorePairs {
		if filled[p[0]] && filled[p[1]] {
			return true
		}
	}
	return false
}

func checkEmail(v any) error {
	s, _ := v.(string)
	if !strings.Contains(s, "@") {
		return fmt.Errorf("email has wrong format")
	}
	return nil
}

// checkPhone accepts a string or an integral number of exactly 11 digits
// starting with 7.
func checkPhone(v any) error {
	var s string
	switch p := v.(type) {
	case string:
		s = p
	case float64:
		if p != math.Trunc(p) {
			return fmt.Errorf("phone must be a string or a whole number")
		}
		s = strconv.FormatFloat(p, 'f', -1, 64)
	default:
		return fmt.Errorf("phone must be a string or a whole number")
	}
	if len(s) != 11 {
		return fmt.Errorf("phone must consist of exactly 11 digits")
	}
	if !strings.HasPrefix(s, "7") {
		return fmt.Errorf("phone must start with 7")
	}
	return nil
}

func checkDate(v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("date must be a DD.MM.YYYY string")
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return fmt.Errorf("wrong date format, expected DD.MM.YYYY")
	}
	return nil
}

// checkBirthday bounds the birth year to the last 70 years.
func checkBirthday(v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("birthday must be a DD.MM.YYYY string")
	}
	birth, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("wrong date format, expected DD.MM.YYYY")
	}
	years := time.Now().Year() - birth.Year()
	if years <= 0 || years > 70 {
		return fmt.Errorf("birthday must fall within the last 70 years")
	}
	return nil
}

func checkGender(v any) error {
	g, _ := v.(float64)
	if g != GenderUnknown && g != GenderMale && g != GenderFemale {
		return fmt.Errorf("gender must be one of 0, 1 or 2")
	}
	return nil
}

func checkClientIDs(v any) error {
	ids, _ := v.([]any)
	for _, id := range ids {
		f, ok := id.(float64)
		if !ok || f != math.Trunc(f) {
			return fmt.Errorf("client_ids must contain only integers")
		}
	}
	return nil
}
