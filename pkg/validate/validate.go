// Package validate checks request structs against `validate` tags.
//
//	type createProduct struct {
//	    Name  string          `json:"name"  validate:"required,max=200"`
//	    Price decimal.Decimal `json:"price" validate:"gte=0,scale=2" messages:"scale=Price cannot have more than two decimal places."`
//	    Lines []line          `json:"lines" validate:"required,dive"`
//	}
//
// Rules run in tag order and the first failure per field wins. Errors are
// keyed by JSON name; elements reached through dive are keyed like
// lines[0].quantity. A `messages` tag replaces the default sentence per
// rule, separated by semicolons.
//
// Rules: required, nullable (skip the rest when empty), email, uuid,
// min=N and max=N (length for strings and slices, value for numbers),
// gt=N, gte=N, lt=N, lte=N, scale=N (at most N fractional digits),
// oneof=a b c, dive.
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

// Struct validates v, a struct or pointer to one. The result is empty when
// v passes.
func Struct(v any) map[string]string {
	errs := map[string]string{}
	check(reflect.ValueOf(v), "", errs)
	return errs
}

// HasErrors reports whether errs holds any failure.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

type rule struct {
	name  string
	param string
	num   float64
	check func(r rule, v reflect.Value) bool
	msg   func(r rule, field string, v reflect.Value) string
}

type fieldPlan struct {
	index    int
	name     string
	nullable bool
	dive     bool
	rules    []rule
	messages map[string]string
}

var plans sync.Map // reflect.Type -> []fieldPlan

func planFor(t reflect.Type) []fieldPlan {
	if p, ok := plans.Load(t); ok {
		return p.([]fieldPlan)
	}
	var out []fieldPlan
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, ok := f.Tag.Lookup("validate")
		if !ok || !f.IsExported() {
			continue
		}
		fp := fieldPlan{index: i, name: jsonName(f), messages: messages(f.Tag.Get("messages"))}
		for _, part := range strings.Split(tag, ",") {
			name, param, _ := strings.Cut(strings.TrimSpace(part), "=")
			switch name {
			case "":
				continue
			case "nullable":
				fp.nullable = true
				continue
			case "dive":
				fp.dive = true
				continue
			}
			def, known := registry[name]
			if !known {
				panic(fmt.Sprintf("validate: unknown rule %q on %s.%s", name, t.Name(), f.Name))
			}
			r := def
			r.name, r.param = name, param
			if param != "" {
				r.num, _ = strconv.ParseFloat(param, 64)
			}
			fp.rules = append(fp.rules, r)
		}
		out = append(out, fp)
	}
	p, _ := plans.LoadOrStore(t, out)
	return p.([]fieldPlan)
}

func check(v reflect.Value, prefix string, errs map[string]string) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}

	for _, fp := range planFor(v.Type()) {
		fv := v.Field(fp.index)
		key := prefix + fp.name
		if fp.nullable && empty(fv) {
			continue
		}
		if msg, failed := firstFailure(fp, fv); failed {
			errs[key] = msg
			continue
		}
		if fp.dive && (fv.Kind() == reflect.Slice || fv.Kind() == reflect.Array) {
			for j := 0; j < fv.Len(); j++ {
				check(fv.Index(j), fmt.Sprintf("%s[%d].", key, j), errs)
			}
		}
	}
}

func firstFailure(fp fieldPlan, v reflect.Value) (string, bool) {
	for _, r := range fp.rules {
		if r.check(r, v) {
			continue
		}
		if m, ok := fp.messages[r.name]; ok {
			return m, true
		}
		return r.msg(r, fp.name, v), true
	}
	return "", false
}

var (
	emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	uuidRE  = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

func say(format string) func(rule, string, reflect.Value) string {
	return func(_ rule, field string, _ reflect.Value) string {
		return fmt.Sprintf(format, field)
	}
}

func sayParam(format string) func(rule, string, reflect.Value) string {
	return func(r rule, field string, _ reflect.Value) string {
		return fmt.Sprintf(format, field, r.param)
	}
}

func bound(cmp func(a, b float64) bool) func(rule, reflect.Value) bool {
	return func(r rule, v reflect.Value) bool {
		n, ok := number(v)
		return !ok || cmp(n, r.num)
	}
}

var registry map[string]rule

func init() {
	registry = map[string]rule{
		"required": {
			check: func(_ rule, v reflect.Value) bool { return !empty(v) },
			msg:   say("The %s field is required."),
		},
		"email": {
			check: func(_ rule, v reflect.Value) bool { return emailRE.MatchString(text(v)) },
			msg:   say("The %s must be a valid email address."),
		},
		"uuid": {
			check: func(_ rule, v reflect.Value) bool { return uuidRE.MatchString(text(v)) },
			msg:   say("The %s must be a valid UUID."),
		},
		"min": {
			check: func(r rule, v reflect.Value) bool { return size(v) >= r.num },
			msg:   sized("The %s must be at least %s.", "The %s must be at least %s characters."),
		},
		"max": {
			check: func(r rule, v reflect.Value) bool { return size(v) <= r.num },
			msg:   sized("The %s must not be greater than %s.", "The %s must not exceed %s characters."),
		},
		"gt":  {check: bound(func(a, b float64) bool { return a > b }), msg: sayParam("The %s must be greater than %s.")},
		"gte": {check: bound(func(a, b float64) bool { return a >= b }), msg: sayParam("The %s must be greater than or equal to %s.")},
		"lt":  {check: bound(func(a, b float64) bool { return a < b }), msg: sayParam("The %s must be less than %s.")},
		"lte": {check: bound(func(a, b float64) bool { return a <= b }), msg: sayParam("The %s must be less than or equal to %s.")},
		"scale": {
			check: func(r rule, v reflect.Value) bool {
				_, frac, found := strings.Cut(strings.TrimRight(text(v), "0"), ".")
				return !found || float64(len(frac)) <= r.num
			},
			msg: sayParam("The %s must have at most %s decimal places."),
		},
		"oneof": {
			check: func(r rule, v reflect.Value) bool {
				s := text(v)
				for _, opt := range strings.Fields(r.param) {
					if s == opt {
						return true
					}
				}
				return false
			},
			msg: say("The selected %s is invalid."),
		},
	}
}

// sized picks the character wording for strings and the value wording for
// everything else.
func sized(value, chars string) func(rule, string, reflect.Value) string {
	return func(r rule, field string, v reflect.Value) string {
		if v.Kind() == reflect.String {
			return fmt.Sprintf(chars, field, r.param)
		}
		return fmt.Sprintf(value, field, r.param)
	}
}

// text renders v the way it would appear in JSON without quotes. Types
// like decimal.Decimal and uuid.UUID come through their String method.
func text(v reflect.Value) string {
	if v.Kind() == reflect.String {
		return v.String()
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v.Interface())
}

func number(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Struct:
		f, err := strconv.ParseFloat(text(v), 64)
		return f, err == nil
	}
	return 0, false
}

// size is the rune count for strings, the length for collections and the
// value for numbers.
func size(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.String:
		return float64(utf8.RuneCountInString(v.String()))
	case reflect.Slice, reflect.Array, reflect.Map:
		return float64(v.Len())
	}
	n, _ := number(v)
	return n
}

func empty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		return false
	}
	return v.IsZero()
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name[:1]) + f.Name[1:]
	}
	return name
}

func messages(tag string) map[string]string {
	if tag == "" {
		return nil
	}
	out := map[string]string{}
	for _, part := range strings.Split(tag, ";") {
		if rule, msg, ok := strings.Cut(part, "="); ok {
			out[strings.TrimSpace(rule)] = strings.TrimSpace(msg)
		}
	}
	return out
}
