package heading

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		sqlType   string
		tag       Tag
		precision int
		scale     int
	}{
		{"int", TagInt, 0, 0},
		{"int(10) unsigned", TagInt, 10, 0},
		{"tinyint unsigned", TagInt, 0, 0},
		{"BIGINT", TagInt, 0, 0},
		{"decimal(5,2)", TagDecimal, 5, 2},
		{"decimal(5, 2) unsigned", TagDecimal, 5, 2},
		{"numeric", TagDecimal, 0, 0},
		{"double precision", TagFloat, 0, 0},
		{"float", TagFloat, 0, 0},
		{"varchar(32)", TagString, 32, 0},
		{"character varying(64)", TagString, 64, 0},
		{"longtext", TagString, 0, 0},
		{"enum('a','b')", TagEnum, 0, 0},
		{"date", TagDate, 0, 0},
		{"time", TagTime, 0, 0},
		{"time without time zone", TagTime, 0, 0},
		{"datetime(6)", TagDatetime, 6, 0},
		{"timestamp", TagTimestamp, 0, 0},
		{"timestamp without time zone", TagTimestamp, 0, 0},
		{"timestamp(3) with time zone", TagTimestamp, 3, 0},
		{"uuid", TagUUID, 0, 0},
		{"longblob", TagBlob, 0, 0},
		{"bytea", TagBlob, 0, 0},
		{"binary(16)", TagBlob, 16, 0},
		{"boolean", TagBool, 0, 0},
		{"jsonb", TagJSON, 0, 0},
		{"geometry", TagOther, 0, 0},
		{"", TagOther, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.sqlType, func(t *testing.T) {
			tag, precision, scale := ParseType(tt.sqlType)
			assert.Equal(t, tt.tag, tag)
			assert.Equal(t, tt.precision, precision)
			assert.Equal(t, tt.scale, scale)
		})
	}
}

func TestNewOrdersKeyFirst(t *testing.T) {
	name := NewAttribute("a_name", "varchar(32)")
	id := NewAttribute("a_id", "int")
	id.InKey = true
	note := NewAttribute("note", "longblob")
	sub := NewAttribute("sub_id", "int")
	sub.InKey = true

	h := New([]Attribute{name, id, note, sub})

	assert.Equal(t, []string{"a_id", "sub_id", "a_name", "note"}, h.Names())
	assert.Equal(t, []string{"a_id", "sub_id"}, h.PrimaryKey())
	assert.Len(t, h.Secondary(), 2)
	assert.True(t, h.Has("note"))
	assert.False(t, h.Has("missing"))

	got, ok := h.Get("note")
	require.True(t, ok)
	assert.True(t, got.IsBlob)
}

func TestSelect(t *testing.T) {
	id := NewAttribute("a_id", "int")
	id.InKey = true
	h := New([]Attribute{id, NewAttribute("a_name", "varchar(32)"), NewAttribute("a_date", "date")})

	attrs, unknown := h.Select([]string{"a_date", "bogus", "a_id"})
	assert.Equal(t, []string{"bogus"}, unknown)
	require.Len(t, attrs, 2)
	assert.Equal(t, "a_id", attrs[0].Name)
	assert.Equal(t, "a_date", attrs[1].Name)
}

func TestDefinition(t *testing.T) {
	id := NewAttribute("a_id", "int")
	id.InKey = true
	name := NewAttribute("a_name", "varchar(32)")
	name.Nullable = true
	name.Comment = "display name"

	def := New([]Attribute{id, name}).Definition("")
	assert.Contains(t, def, "a_id")
	assert.Contains(t, def, "---\n")
	assert.Contains(t, def, "a_name = null")
	assert.Contains(t, def, "# display name")
	assert.Less(t, strings.Index(def, "a_id"), strings.Index(def, "---"))
}
