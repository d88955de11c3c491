// Package validate checks struct fields against rules declared in a
// `validate` tag, using the rule names of Laravel's validator.
//
//	required        non-zero, non-blank; slices and maps must be non-empty
//	nullable        skip the remaining rules when the field is empty
//	email, uuid     format checks
//	numeric         parses as a number
//	integer         parses as a whole number
//	date            YYYY-MM-DD or RFC 3339
//	min=N, max=N    numbers: value; strings: rune count; slices: element count
//	between=A,B     min and max together
//	gt=N, gte=N     numeric lower bounds
//	in=a,b,c        membership
//
//	type createOrder struct {
//	    Stock string `json:"stock" validate:"required,max=50"`
//	    Type  string `json:"order_type" validate:"required,in=Buy,Sell,Withdraw"`
//	}
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type rule func(field string, v reflect.Value, param string) string

var rules map[string]rule

func init() {
	rules = map[string]rule{
		"required": func(f string, v reflect.Value, _ string) string {
			if isEmpty(v) {
				return fmt.Sprintf("The %s field is required.", f)
			}
			return ""
		},
		"email": matchRule(emailRE, "The %s must be a valid email address."),
		"uuid":  matchRule(uuidRE, "The %s must be a valid UUID."),
		"numeric": func(f string, v reflect.Value, _ string) string {
			if _, ok := number(v); !ok {
				return fmt.Sprintf("The %s field must be a number.", f)
			}
			return ""
		},
		"integer": func(f string, v reflect.Value, _ string) string {
			if _, err := strconv.ParseInt(text(v), 10, 64); err != nil {
				return fmt.Sprintf("The %s field must be an integer.", f)
			}
			return ""
		},
		"date": func(f string, v reflect.Value, _ string) string {
			if _, err := ParseDate(text(v)); err != nil {
				return fmt.Sprintf("The %s is not a valid date.", f)
			}
			return ""
		},
		"min": func(f string, v reflect.Value, p string) string {
			n, unit := measure(v)
			if n < parseFloat(p) {
				return fmt.Sprintf("The %s must be at least %s%s.", f, p, unit)
			}
			return ""
		},
		"max": func(f string, v reflect.Value, p string) string {
			n, unit := measure(v)
			if n > parseFloat(p) {
				return fmt.Sprintf("The %s must not be greater than %s%s.", f, p, unit)
			}
			return ""
		},
		"between": func(f string, v reflect.Value, p string) string {
			lo, hi, _ := strings.Cut(p, ",")
			n, unit := measure(v)
			if n < parseFloat(lo) || n > parseFloat(hi) {
				return fmt.Sprintf("The %s must be between %s and %s%s.", f, lo, hi, unit)
			}
			return ""
		},
		"gt": func(f string, v reflect.Value, p string) string {
			if n, ok := number(v); !ok || n <= parseFloat(p) {
				return fmt.Sprintf("The %s must be greater than %s.", f, p)
			}
			return ""
		},
		"gte": func(f string, v reflect.Value, p string) string {
			if n, ok := number(v); !ok || n < parseFloat(p) {
				return fmt.Sprintf("The %s must be greater than or equal to %s.", f, p)
			}
			return ""
		},
		"in": func(f string, v reflect.Value, p string) string {
			raw := text(v)
			for _, a := range strings.Split(p, ",") {
				if raw == strings.TrimSpace(a) {
					return ""
				}
			}
			return fmt.Sprintf("The selected %s is invalid.", f)
		},
	}
}

// Struct validates exported fields of v and returns json-name → message.
// Only the first failing rule per field is reported.
func Struct(v any) map[string]string {
	errs := make(map[string]string)
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return errs
	}
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		tag := sf.Tag.Get("validate")
		if tag == "" || !sf.IsExported() {
			continue
		}
		name := jsonName(sf)
		fv := rv.Field(i)
		parsed := splitRules(tag)

		if contains(parsed, "nullable") && isEmpty(fv) {
			continue
		}
		for _, r := range parsed {
			key, param, _ := strings.Cut(r, "=")
			fn, ok := rules[key]
			if !ok {
				continue
			}
			if msg := fn(name, fv, param); msg != "" {
				errs[name] = msg
				break
			}
		}
	}
	return errs
}

func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

var (
	emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	uuidRE  = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

func matchRule(re *regexp.Regexp, msg string) rule {
	return func(f string, v reflect.Value, _ string) string {
		if !re.MatchString(text(v)) {
			return fmt.Sprintf(msg, f)
		}
		return ""
	}
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as date", s)
}

type zeroer interface{ IsZero() bool }

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		return false
	}
	if z, ok := v.Interface().(zeroer); ok {
		return z.IsZero()
	}
	return v.IsZero()
}

func text(v reflect.Value) string {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	return fmt.Sprintf("%v", v.Interface())
}

// number handles Go numeric kinds, numeric strings and types that print
// as numbers (decimal.Decimal).
func number(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(text(v)), 64)
	return f, err == nil
}

func measure(v reflect.Value) (float64, string) {
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return float64(v.Len()), " items"
	case reflect.String:
		return float64(len([]rune(v.String()))), " characters"
	}
	n, _ := number(v)
	return n, ""
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	return name
}

// splitRules keeps the comma-separated values of in= and between= intact:
// "required,in=a,b,max=3" → [required in=a,b max=3].
func splitRules(tag string) []string {
	var out []string
	for _, tok := range strings.Split(tag, ",") {
		key, _, hasParam := strings.Cut(tok, "=")
		if _, known := rules[key]; (known && (hasParam || !takesParam(key))) || key == "nullable" || len(out) == 0 {
			out = append(out, tok)
			continue
		}
		last := out[len(out)-1]
		if k, _, _ := strings.Cut(last, "="); k == "in" || k == "between" {
			out[len(out)-1] = last + "," + tok
			continue
		}
		out = append(out, tok)
	}
	return out
}

func takesParam(key string) bool {
	switch key {
	case "min", "max", "between", "gt", "gte", "in":
		return true
	}
	return false
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
