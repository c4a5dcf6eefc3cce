package common

// FetchResponse is the body returned for a record fetch
type FetchResponse struct {
	RecordHeader []string        `json:"recordHeader"`
	Records      [][]interface{} `json:"records"`
	TotalCount   int             `json:"totalCount"`
}

// AttributeHeaders names the positional fields of an attribute entry
var AttributeHeaders = []string{"name", "type", "nullable", "default", "autoincrement"}

// AttributeValue is one entry of a distinct-value enumeration
type AttributeValue struct {
	Text  string      `json:"text"`
	Value interface{} `json:"value"`
}

// AttributeEntry is the positional metadata of one attribute. When distinct values were
// requested the enumeration is appended as a sixth element.
type AttributeEntry []interface{}

// AttributeLists holds primary and secondary attributes in declared order
type AttributeLists struct {
	Primary   []AttributeEntry `json:"primary"`
	Secondary []AttributeEntry `json:"secondary"`
}

// AttributesResponse is the body returned for an attributes request
type AttributesResponse struct {
	AttributeHeaders []string       `json:"attributeHeaders"`
	Attributes       AttributeLists `json:"attributes"`
}

// DependencyRecord reports the rows of one descendant table affected by a restriction.
// Count is absent when the table is not accessible to the caller.
type DependencyRecord struct {
	Schema     string `json:"schema"`
	Table      string `json:"table"`
	Accessible bool   `json:"accessible"`
	Count      *int   `json:"count,omitempty"`
}

// DependencyResponse is the body returned for a dependency preview
type DependencyResponse struct {
	Dependencies []DependencyRecord `json:"dependencies"`
}

// TableListing groups the tables of a schema by tier. Part tables are reported as Master.Part.
type TableListing struct {
	Manual   []string `json:"manual_tables"`
	Lookup   []string `json:"lookup_tables"`
	Computed []string `json:"computed_tables"`
	Imported []string `json:"imported_tables"`
	Part     []string `json:"part_tables"`
}

// SchemaListing is the body returned when listing schemas
type SchemaListing struct {
	Schemas []string `json:"schemaNames"`
}

// DefinitionResponse is the body returned for a table definition
type DefinitionResponse struct {
	Definition string `json:"definition"`
}

// ErrorResponse is the body returned for any failed call
type ErrorResponse struct {
	Error        string `json:"error"`
	ErrorMessage string `json:"errorMessage"`
	ChildSchema  string `json:"childSchema,omitempty"`
	ChildTable   string `json:"childTable,omitempty"`
}

// MessageResponse acknowledges a successful mutation
type MessageResponse struct {
	Message string `json:"message"`
	Count   int64  `json:"count,omitempty"`
}

// OrderTerm is one attribute/direction pair of an ordering
type OrderTerm struct {
	Attribute string
	Direction string
}

// FetchSpec is the paging request handed to the store's fetch primitive
type FetchSpec struct {
	Attributes []string
	Limit      int
	Offset     int
	Order      []OrderTerm
}

// Row is a raw fetched row keyed by attribute name
type Row = map[string]interface{}
