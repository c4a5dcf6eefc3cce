package heading

import (
	"strconv"
	"strings"
)

// Tag classifies a declared column type into the families the projector and
// the restriction compiler care about.
type Tag int

const (
	TagOther Tag = iota
	TagInt
	TagFloat
	TagDecimal
	TagBool
	TagString
	TagEnum
	TagJSON
	TagDate
	TagTime
	TagDatetime
	TagTimestamp
	TagUUID
	TagBlob
)

var tagNames = map[Tag]string{
	TagOther:     "other",
	TagInt:       "int",
	TagFloat:     "float",
	TagDecimal:   "decimal",
	TagBool:      "bool",
	TagString:    "string",
	TagEnum:      "enum",
	TagJSON:      "json",
	TagDate:      "date",
	TagTime:      "time",
	TagDatetime:  "datetime",
	TagTimestamp: "timestamp",
	TagUUID:      "uuid",
	TagBlob:      "blob",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return "other"
}

// Temporal reports whether values of this tag are projected to epoch-based numbers.
func (t Tag) Temporal() bool {
	switch t {
	case TagDate, TagTime, TagDatetime, TagTimestamp:
		return true
	}
	return false
}

var baseTags = map[string]Tag{
	"tinyint":     TagInt,
	"smallint":    TagInt,
	"mediumint":   TagInt,
	"int":         TagInt,
	"integer":     TagInt,
	"bigint":      TagInt,
	"int2":        TagInt,
	"int4":        TagInt,
	"int8":        TagInt,
	"serial":      TagInt,
	"smallserial": TagInt,
	"bigserial":   TagInt,
	"float":       TagFloat,
	"float4":      TagFloat,
	"float8":      TagFloat,
	"double":      TagFloat,
	"real":        TagFloat,
	"decimal":     TagDecimal,
	"numeric":     TagDecimal,
	"bool":        TagBool,
	"boolean":     TagBool,
	"char":        TagString,
	"varchar":     TagString,
	"character":   TagString,
	"nchar":       TagString,
	"nvarchar":    TagString,
	"text":        TagString,
	"tinytext":    TagString,
	"mediumtext":  TagString,
	"longtext":    TagString,
	"clob":        TagString,
	"citext":      TagString,
	"enum":        TagEnum,
	"json":        TagJSON,
	"jsonb":       TagJSON,
	"date":        TagDate,
	"time":        TagTime,
	"timetz":      TagTime,
	"datetime":    TagDatetime,
	"timestamp":   TagTimestamp,
	"timestamptz": TagTimestamp,
	"uuid":        TagUUID,
	"tinyblob":    TagBlob,
	"blob":        TagBlob,
	"mediumblob":  TagBlob,
	"longblob":    TagBlob,
	"bytea":       TagBlob,
	"binary":      TagBlob,
	"varbinary":   TagBlob,
}

// ParseType maps a declared SQL type such as "decimal(5,2) unsigned" or
// "timestamp with time zone" to its tag. Precision and scale are returned for
// parameterized types and are zero otherwise.
func ParseType(sqlType string) (tag Tag, precision, scale int) {
	t := strings.ToLower(strings.TrimSpace(sqlType))
	if t == "" {
		return TagOther, 0, 0
	}

	base := t
	args := ""
	if open := strings.IndexByte(t, '('); open >= 0 {
		base = strings.TrimSpace(t[:open])
		if closing := strings.IndexByte(t[open:], ')'); closing > 0 {
			args = t[open+1 : open+closing]
		}
	}

	switch {
	case strings.HasPrefix(base, "double precision"):
		base = "double"
	case strings.HasPrefix(base, "character varying"):
		base = "varchar"
	case strings.HasPrefix(base, "timestamp") && strings.Contains(t, "with time zone") && !strings.Contains(t, "without"):
		base = "timestamptz"
	case strings.HasPrefix(base, "time") && !strings.HasPrefix(base, "timestamp"):
		base = "time"
	}
	if fields := strings.Fields(base); len(fields) > 0 {
		base = fields[0]
	}

	tag, ok := baseTags[base]
	if !ok {
		return TagOther, 0, 0
	}

	if tag == TagDecimal && args != "" {
		parts := strings.SplitN(args, ",", 2)
		precision, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
		if len(parts) == 2 {
			scale, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
		}
	} else if args != "" && tag != TagEnum {
		precision, _ = strconv.Atoi(strings.TrimSpace(strings.SplitN(args, ",", 2)[0]))
	}
	return tag, precision, scale
}
