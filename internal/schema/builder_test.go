package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCreateSQL(t *testing.T) {
	def := TypeDef{
		Name: "contacts",
		Fields: []FieldDef{
			{Name: "full_name", Type: TypeString},
			{Name: "age", Type: TypeInt, Nullable: true},
			{Name: "email", Type: TypeString, Unique: true},
			{Name: "company", Type: TypeForeignKey, RefModel: "companies", Nullable: true},
		},
	}

	sql := BuildCreateSQL(def)
	assert.Equal(t, `CREATE TABLE contacts (
	id BIGSERIAL PRIMARY KEY,
	owner BIGINT NOT NULL REFERENCES users (id),
	"full_name" VARCHAR(255) NOT NULL,
	"age" BIGINT,
	"email" VARCHAR(255) NOT NULL UNIQUE,
	"company" BIGINT REFERENCES companies (id)
)`, sql)
}

func TestTypeDefValidate(t *testing.T) {
	valid := TypeDef{
		Name: "contacts",
		Fields: []FieldDef{
			{Name: "full_name", Type: TypeString},
		},
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name string
		def  TypeDef
	}{
		{"uppercase type name", TypeDef{Name: "Contacts"}},
		{"sql in type name", TypeDef{Name: "contacts; drop table users"}},
		{"reserved type name", TypeDef{Name: "users"}},
		{"reserved migrations table", TypeDef{Name: "schema_migrations"}},
		{"invalid field name", TypeDef{Name: "contacts", Fields: []FieldDef{{Name: "Full Name", Type: TypeString}}}},
		{"reserved field name", TypeDef{Name: "contacts", Fields: []FieldDef{{Name: "id", Type: TypeInt}}}},
		{"duplicate field", TypeDef{Name: "contacts", Fields: []FieldDef{
			{Name: "age", Type: TypeInt}, {Name: "age", Type: TypeInt},
		}}},
		{"unknown field type", TypeDef{Name: "contacts", Fields: []FieldDef{{Name: "age", Type: ColumnType(99)}}}},
		{"relation without target", TypeDef{Name: "contacts", Fields: []FieldDef{{Name: "company", Type: TypeForeignKey}}}},
		{"target on plain column", TypeDef{Name: "contacts", Fields: []FieldDef{{Name: "age", Type: TypeInt, RefModel: "companies"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.def.Validate())
		})
	}
}

func TestParseColumnType(t *testing.T) {
	for _, typ := range []ColumnType{TypeString, TypeInt, TypeFloat, TypeBool, TypeDate, TypeForeignKey} {
		parsed, err := ParseColumnType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}
	_, err := ParseColumnType("blob")
	assert.Error(t, err)
}

func TestColumnKind(t *testing.T) {
	assert.Equal(t, KindRelation, TypeForeignKey.Kind())
	assert.Equal(t, KindPlain, TypeString.Kind())
	assert.Equal(t, KindPlain, TypeInt.Kind())
}
