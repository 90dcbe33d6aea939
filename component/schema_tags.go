// Schema tags let adapter config structs declare their own ConfigSchema
// inline, the way json tags declare wire names. The struct is the single
// source of truth; GenerateConfigSchema reads the tags once at init and
// the result is served to discovery, validation and the schema exporter.
//
// A tagged config struct looks like:
//
//	type Config struct {
//	    Host string `json:"host" schema:"type:string,description:Bind address,category:basic"`
//	    Port int    `json:"port" schema:"type:int,description:Listen port,min:1,max:65535,default:8087"`
//	}
//
//	var schema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

package component

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/c360/flowgate/errors"
)

// SchemaDirectives is the parsed form of one schema tag.
type SchemaDirectives struct {
	Type        string // required
	Description string // falls back to the field name when empty

	// Presentation
	Category string // basic, advanced, security, limits
	ReadOnly bool
	Editable bool
	Hidden   bool

	// Constraints
	Default  any // held as the raw tag string until coerceDefault runs
	Required bool
	Min      *int
	Max      *int
	Enum     []string

	// Accepted and stored for forward compatibility; nothing reads
	// these yet.
	Help        string
	Placeholder string
	Pattern     string
	Format      string
}

// schemaTypes are the values the type directive accepts.
var schemaTypes = map[string]bool{
	"string": true,
	"int":    true,
	"bool":   true,
	"float":  true,
	"enum":   true,
	"array":  true,
	"object": true,
}

// schemaCategories are the values the category directive accepts. They
// group properties for presentation.
var schemaCategories = map[string]bool{
	"basic":    true,
	"advanced": true,
	"security": true,
	"limits":   true,
}

// ParseSchemaTag parses one schema tag into directives.
//
// Directives are comma-separated. Key-value directives use a colon
// ("min:1"); bare words are boolean flags ("required"). Enum values are
// pipe-separated ("enum:debug|info|warn"). Whitespace around directives
// and values is ignored. The type directive is mandatory; everything
// else is optional. Unknown directives are errors rather than silently
// dropped, so tag typos surface in tests instead of as missing schema
// fields.
func ParseSchemaTag(tag string) (SchemaDirectives, error) {
	var d SchemaDirectives

	if tag == "" {
		return d, errors.WrapInvalid(
			fmt.Errorf("empty schema tag"),
			"SchemaTag", "ParseSchemaTag", "tag validation")
	}

	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, isKV := strings.Cut(part, ":")
		var err error
		if isKV {
			err = d.set(strings.TrimSpace(key), strings.TrimSpace(value))
		} else {
			err = d.setFlag(part)
		}
		if err != nil {
			return d, err
		}
	}

	if d.Type == "" {
		return d, errors.WrapInvalid(
			fmt.Errorf("type directive is required"),
			"SchemaTag", "ParseSchemaTag", "required field validation")
	}
	return d, nil
}

// setFlag applies a bare boolean directive.
func (d *SchemaDirectives) setFlag(flag string) error {
	switch flag {
	case "readonly":
		d.ReadOnly = true
	case "editable":
		d.Editable = true
	case "hidden":
		d.Hidden = true
	case "required":
		d.Required = true
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown boolean flag: %s", flag),
			"SchemaTag", "ParseSchemaTag", "flag parsing")
	}
	return nil
}

// set applies one key-value directive.
func (d *SchemaDirectives) set(key, value string) error {
	if value == "" {
		return errors.WrapInvalid(
			fmt.Errorf("empty value for directive: %s", key),
			"SchemaTag", "ParseSchemaTag", "value validation")
	}

	switch key {
	case "type":
		if !schemaTypes[value] {
			return errors.WrapInvalid(
				fmt.Errorf("invalid type: %s", value),
				"SchemaTag", "ParseSchemaTag", "type validation")
		}
		d.Type = value
	case "description":
		d.Description = value
	case "category":
		if !schemaCategories[value] {
			return errors.WrapInvalid(
				fmt.Errorf("invalid category: %s (must be basic, advanced, security, or limits)", value),
				"SchemaTag", "ParseSchemaTag", "category validation")
		}
		d.Category = value
	case "default":
		// Kept as the raw string; coerceDefault converts it once the
		// field type is known.
		d.Default = value
	case "min":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.WrapInvalid(
				fmt.Errorf("invalid min value: %s", value),
				"SchemaTag", "ParseSchemaTag", "min parsing")
		}
		d.Min = &n
	case "max":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.WrapInvalid(
				fmt.Errorf("invalid max value: %s", value),
				"SchemaTag", "ParseSchemaTag", "max parsing")
		}
		d.Max = &n
	case "enum":
		d.Enum = strings.Split(value, "|")
		for i := range d.Enum {
			d.Enum[i] = strings.TrimSpace(d.Enum[i])
		}
	case "help":
		d.Help = value
	case "placeholder":
		d.Placeholder = value
	case "pattern":
		d.Pattern = value
	case "format":
		d.Format = value
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown directive: %s", key),
			"SchemaTag", "ParseSchemaTag", "directive validation")
	}
	return nil
}

// GenerateConfigSchema builds a ConfigSchema from a struct type's schema
// tags. Callers run it once at package init and cache the result, so the
// reflection cost never lands on a request path:
//
//	var schema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))
//
// Pointer types are dereferenced; non-struct types yield an empty schema.
// A field contributes a property only when it carries both a json name
// and a schema tag. Fields whose schema tag fails to parse are skipped
// rather than failing the whole schema, so one bad tag degrades a single
// property instead of an adapter.
func GenerateConfigSchema(configType reflect.Type) ConfigSchema {
	schema := ConfigSchema{
		Properties: make(map[string]PropertySchema),
		Required:   []string{},
	}

	if configType.Kind() == reflect.Ptr {
		configType = configType.Elem()
	}
	if configType.Kind() != reflect.Struct {
		return schema
	}

	for i := 0; i < configType.NumField(); i++ {
		name, prop, required, ok := propertyFromField(configType.Field(i))
		if !ok {
			continue
		}

		schema.Properties[name] = prop
		if required {
			schema.Required = append(schema.Required, name)
		}
	}

	return schema
}

// propertyFromField turns one struct field into a named property. ok is
// false for fields without tags and for tags that fail to parse.
func propertyFromField(field reflect.StructField) (string, PropertySchema, bool, bool) {
	jsonTag := field.Tag.Get("json")
	if jsonTag == "" || jsonTag == "-" {
		return "", PropertySchema{}, false, false
	}
	name, _, _ := strings.Cut(jsonTag, ",")
	if name == "" {
		return "", PropertySchema{}, false, false
	}

	schemaTag := field.Tag.Get("schema")
	if schemaTag == "" {
		return "", PropertySchema{}, false, false
	}

	d, err := ParseSchemaTag(schemaTag)
	if err != nil {
		return "", PropertySchema{}, false, false
	}

	description := d.Description
	if description == "" {
		description = name
	}

	prop := PropertySchema{
		Type:        d.Type,
		Description: description,
		Category:    d.Category,
		Default:     coerceDefault(d.Default, d.Type),
		Minimum:     d.Min,
		Maximum:     d.Max,
		Enum:        d.Enum,
	}
	return name, prop, d.Required, true
}

// coerceDefault converts the raw default string into the declared type.
// Unconvertible defaults become nil rather than surfacing a wrongly
// typed value in the schema.
func coerceDefault(value any, fieldType string) any {
	if value == nil {
		return nil
	}
	raw, ok := value.(string)
	if !ok {
		return value
	}

	switch fieldType {
	case "string", "enum":
		return raw
	case "int":
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil
		}
		return n
	case "bool":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil
		}
		return b
	case "float":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil
		}
		return f
	case "array":
		// A single tag value seeds a one-element list. Richer array
		// defaults belong in the config itself, not in a struct tag.
		if raw == "" {
			return []string{}
		}
		return []string{raw}
	case "object":
		return nil
	default:
		return raw
	}
}
