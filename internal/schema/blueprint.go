package schema

import (
	"fmt"
	"sort"

	"github.com/spf13/viper"
)

// LoadBlueprint reads type definitions from a blueprint file. The format is
// whatever viper can read (yaml, toml, json, ini); types default to enabled
// and fields default to type string. The tree is walked as raw mapping nodes
// rather than unmarshalled into structs: a field declared with an empty body
// must still yield a column.
func LoadBlueprint(path string) ([]TypeDef, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("schema: read blueprint: %w", err)
	}
	types := v.GetStringMap("types")

	typeNames := make([]string, 0, len(types))
	for name := range types {
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)

	defs := make([]TypeDef, 0, len(typeNames))
	for _, name := range typeNames {
		node, err := blueprintNode(types[name])
		if err != nil {
			return nil, fmt.Errorf("schema: blueprint type %s: %w", name, err)
		}
		def := TypeDef{Name: name, Enabled: true}
		if enabled, ok := node["enabled"].(bool); ok {
			def.Enabled = enabled
		}

		fields, err := blueprintNode(node["fields"])
		if err != nil {
			return nil, fmt.Errorf("schema: blueprint type %s: %w", name, err)
		}
		fieldNames := make([]string, 0, len(fields))
		for fieldName := range fields {
			fieldNames = append(fieldNames, fieldName)
		}
		sort.Strings(fieldNames)

		for _, fieldName := range fieldNames {
			fieldNode, err := blueprintNode(fields[fieldName])
			if err != nil {
				return nil, fmt.Errorf("schema: blueprint field %s.%s: %w", name, fieldName, err)
			}
			typeName, _ := fieldNode["type"].(string)
			if typeName == "" {
				typeName = "string"
			}
			columnType, err := ParseColumnType(typeName)
			if err != nil {
				return nil, fmt.Errorf("schema: blueprint type %s: %w", name, err)
			}
			refModel, _ := fieldNode["ref_model"].(string)
			nullable, _ := fieldNode["nullable"].(bool)
			unique, _ := fieldNode["unique"].(bool)
			label, _ := fieldNode["label"].(string)
			description, _ := fieldNode["description"].(string)
			def.Fields = append(def.Fields, FieldDef{
				Name:        fieldName,
				Type:        columnType,
				TypeName:    typeName,
				RefModel:    refModel,
				Nullable:    nullable,
				Unique:      unique,
				Label:       label,
				Description: description,
			})
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// blueprintNode coerces a parsed mapping node into a string-keyed map. A nil
// node (empty or absent mapping) becomes an empty map so defaults apply.
func blueprintNode(raw any) (map[string]any, error) {
	switch m := raw.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return m, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v", k)
			}
			out[key] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a mapping, got %T", raw)
	}
}
