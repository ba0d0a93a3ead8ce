package schema

import (
	"fmt"
	"regexp"
	"time"
)

// ColumnKind distinguishes plain value columns from relation columns. The
// kind is decided at schema-definition time and carried in the descriptor,
// never discovered by reflection when serializing.
type ColumnKind int

// Column kinds.
const (
	KindPlain ColumnKind = iota
	KindRelation
)

// ColumnType is the tagged variant of storable column types.
type ColumnType int

// Column types.
const (
	TypeString ColumnType = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeDate
	TypeForeignKey
)

var columnTypeNames = map[ColumnType]string{
	TypeString:     "string",
	TypeInt:        "int",
	TypeFloat:      "float",
	TypeBool:       "bool",
	TypeDate:       "date",
	TypeForeignKey: "foreign_key",
}

// String returns the stored name of the column type.
func (c ColumnType) String() string {
	if name, ok := columnTypeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ColumnType(%d)", int(c))
}

// ParseColumnType maps a stored type name to its variant.
func ParseColumnType(name string) (ColumnType, error) {
	for typ, n := range columnTypeNames {
		if n == name {
			return typ, nil
		}
	}
	return 0, fmt.Errorf("schema: unknown column type %q", name)
}

// SQL returns the PostgreSQL column type for the variant.
func (c ColumnType) SQL() string {
	switch c {
	case TypeString:
		return "VARCHAR(255)"
	case TypeInt:
		return "BIGINT"
	case TypeFloat:
		return "DOUBLE PRECISION"
	case TypeBool:
		return "BOOLEAN"
	case TypeDate:
		return "TIMESTAMPTZ"
	case TypeForeignKey:
		return "BIGINT"
	}
	return ""
}

// Kind returns the column kind implied by the type.
func (c ColumnType) Kind() ColumnKind {
	if c == TypeForeignKey {
		return KindRelation
	}
	return KindPlain
}

// FieldDef describes one column of a generated model.
type FieldDef struct {
	ID          int64      `json:"id,omitempty"`
	Name        string     `json:"name"`
	Type        ColumnType `json:"-"`
	TypeName    string     `json:"type"`
	RefModel    string     `json:"ref_model,omitempty"`
	Nullable    bool       `json:"nullable"`
	Unique      bool       `json:"unique"`
	Label       string     `json:"label,omitempty"`
	Description string     `json:"description,omitempty"`
}

// Kind returns the explicit per-field kind tag.
func (f FieldDef) Kind() ColumnKind {
	return f.Type.Kind()
}

// TypeDef describes a generated model: a name and an ordered list of typed
// field definitions. Every materialized table additionally carries an id and
// an owner relation to users.
type TypeDef struct {
	ID        int64      `json:"id,omitempty"`
	Name      string     `json:"name"`
	Enabled   bool       `json:"enabled"`
	Fields    []FieldDef `json:"fields"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
}

var identPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// reservedModels are the built-in tables a generated type may not shadow.
var reservedModels = map[string]bool{
	"users":             true,
	"types":             true,
	"fields":            true,
	"access_rules":      true,
	"eternal_tokens":    true,
	"audit_logs":        true,
	"schema_migrations": true,
}

// reservedColumns are implicit on every generated table.
var reservedColumns = map[string]bool{
	"id":    true,
	"owner": true,
}

// Validate checks the descriptor before it is persisted or materialized.
func (t TypeDef) Validate() error {
	if !identPattern.MatchString(t.Name) {
		return fmt.Errorf("schema: invalid type name %q", t.Name)
	}
	if reservedModels[t.Name] {
		return fmt.Errorf("schema: type name %q is reserved", t.Name)
	}
	seen := make(map[string]bool, len(t.Fields))
	for _, field := range t.Fields {
		if !identPattern.MatchString(field.Name) {
			return fmt.Errorf("schema: invalid field name %q", field.Name)
		}
		if reservedColumns[field.Name] {
			return fmt.Errorf("schema: field name %q is reserved", field.Name)
		}
		if seen[field.Name] {
			return fmt.Errorf("schema: duplicate field %q", field.Name)
		}
		seen[field.Name] = true
		if _, ok := columnTypeNames[field.Type]; !ok {
			return fmt.Errorf("schema: field %q has unknown type", field.Name)
		}
		if field.Type == TypeForeignKey && field.RefModel == "" {
			return fmt.Errorf("schema: field %q needs a referenced model", field.Name)
		}
		if field.Type != TypeForeignKey && field.RefModel != "" {
			return fmt.Errorf("schema: field %q is not a relation", field.Name)
		}
	}
	return nil
}

// Field returns the named field definition.
func (t TypeDef) Field(name string) (FieldDef, bool) {
	for _, field := range t.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldDef{}, false
}
