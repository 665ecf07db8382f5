// Package cfgstruct reflects over a config struct's `default` tags and
// registers one pflag flag per leaf field, the same binder shape the
// teacher's cmd/* binaries use to turn a typed Config struct into a
// flag set without hand-writing a flag per field. internal/config
// layers viper's `wio_`-prefixed env var resolution on top of the
// flags this package registers.
package cfgstruct

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// BindOpt customizes how Bind substitutes $CONFDIR/${CONFDIR} in
// default tags.
type BindOpt func(*bindOpts)

type bindOpts struct {
	confDir       string
	confDirNested bool
}

// ConfDir substitutes $CONFDIR and ${CONFDIR} in every default tag
// with dir, unqualified.
func ConfDir(dir string) BindOpt {
	return func(o *bindOpts) { o.confDir = dir }
}

// ConfDirNested substitutes $CONFDIR/${CONFDIR} with dir joined to the
// kebab-cased path of enclosing struct field names, so each nested
// component gets its own subdirectory under dir.
func ConfDirNested(dir string) BindOpt {
	return func(o *bindOpts) { o.confDir = dir; o.confDirNested = true }
}

// Bind walks config (a pointer to a struct) and registers one flag per
// leaf field using its `default` struct tag, skipping fields that have
// no such tag. Flag names are the kebab-cased field path, dot-joined
// ("my-struct1.another-string"); fixed-size array fields insert a
// zero-padded numeric path segment per element.
func Bind(flags *pflag.FlagSet, config interface{}, opts ...BindOpt) {
	var o bindOpts
	for _, opt := range opts {
		opt(&o)
	}
	v := reflect.ValueOf(config)
	if v.Kind() != reflect.Ptr {
		panic("cfgstruct: Bind requires a pointer to a struct")
	}
	bindStruct(flags, v.Elem(), nil, nil, o)
}

func bindStruct(flags *pflag.FlagSet, v reflect.Value, flagPath, dirPath []string, o bindOpts) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" { // unexported
			continue
		}
		fieldValue := v.Field(i)
		name := kebabCase(field.Name)

		switch field.Type.Kind() {
		case reflect.Struct:
			bindStruct(flags, fieldValue, append(flagPath, name), append(dirPath, name), o)
		case reflect.Array:
			n := field.Type.Len()
			width := len(strconv.Itoa(n))
			for idx := 0; idx < n; idx++ {
				elem := fieldValue.Index(idx)
				idxSeg := fmt.Sprintf("%0*d", width, idx)
				if elem.Kind() == reflect.Struct {
					bindStruct(flags, elem, append(flagPath, name, idxSeg), append(dirPath, name, idxSeg), o)
				}
			}
		default:
			def, ok := field.Tag.Lookup("default")
			if !ok {
				continue
			}
			bindLeaf(flags, fieldValue, strings.Join(append(flagPath, name), "."), def, dirPath, o)
		}
	}
}

// bindLeaf registers v's own address as the flag target, so parsing
// writes straight back into the caller's config struct.
func bindLeaf(flags *pflag.FlagSet, v reflect.Value, flagName, def string, dirPath []string, o bindOpts) {
	def = substituteConfDir(def, dirPath, o)
	addr := v.Addr()

	switch v.Kind() {
	case reflect.String:
		flags.StringVar(addr.Interface().(*string), flagName, def, "")
	case reflect.Bool:
		b, _ := strconv.ParseBool(def)
		flags.BoolVar(addr.Interface().(*bool), flagName, b, "")
	case reflect.Int:
		n, _ := strconv.Atoi(def)
		flags.IntVar(addr.Interface().(*int), flagName, n, "")
	case reflect.Int64:
		if v.Type() == reflect.TypeOf(time.Duration(0)) {
			d, _ := time.ParseDuration(def)
			flags.DurationVar(addr.Interface().(*time.Duration), flagName, d, "")
			return
		}
		n, _ := strconv.ParseInt(def, 10, 64)
		flags.Int64Var(addr.Interface().(*int64), flagName, n, "")
	case reflect.Uint:
		n, _ := strconv.ParseUint(def, 10, 64)
		flags.UintVar(addr.Interface().(*uint), flagName, uint(n), "")
	case reflect.Uint64:
		n, _ := strconv.ParseUint(def, 10, 64)
		flags.Uint64Var(addr.Interface().(*uint64), flagName, n, "")
	case reflect.Float64:
		f, _ := strconv.ParseFloat(def, 64)
		flags.Float64Var(addr.Interface().(*float64), flagName, f, "")
	default:
		panic(fmt.Sprintf("cfgstruct: unsupported field kind %s for flag %q", v.Kind(), flagName))
	}
}

func substituteConfDir(def string, dirPath []string, o bindOpts) string {
	if o.confDir == "" {
		return def
	}
	dir := o.confDir
	if o.confDirNested && len(dirPath) > 0 {
		dir = filepath.Join(append([]string{o.confDir}, dirPath...)...)
	}
	def = strings.ReplaceAll(def, "${CONFDIR}", dir)
	def = strings.ReplaceAll(def, "$CONFDIR", dir)
	return def
}

// kebabCase turns a Go exported field name into its flag form
// ("MyStruct1" -> "my-struct1"), treating a run of consecutive
// uppercase letters as one acronym ("HTTPConfig" -> "http-config")
// rather than hyphenating every letter in it.
func kebabCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		isUpper := r >= 'A' && r <= 'Z'
		if i > 0 && isUpper {
			prevUpper := runes[i-1] >= 'A' && runes[i-1] <= 'Z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if !prevUpper || nextLower {
				b.WriteByte('-')
			}
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
