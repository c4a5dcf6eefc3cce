package sqlstore

import (
	"strings"
	"unicode"

	"github.com/bitechdev/RecordSpec/pkg/common"
)

// tier is the role of a table inferred from its name prefix
type tier int

const (
	tierManual tier = iota
	tierLookup
	tierImported
	tierComputed
	tierHidden
)

// tableName splits a physical table name into its tier, master and part
type tableName struct {
	Physical string
	Tier     tier
	Master   string
	Part     string
}

func parseTableName(physical string) tableName {
	n := tableName{Physical: physical}
	rest := physical
	switch {
	case strings.HasPrefix(rest, "~"):
		n.Tier = tierHidden
		rest = rest[1:]
	case strings.HasPrefix(rest, "__"):
		n.Tier = tierComputed
		rest = rest[2:]
	case strings.HasPrefix(rest, "_"):
		n.Tier = tierImported
		rest = rest[1:]
	case strings.HasPrefix(rest, "#"):
		n.Tier = tierLookup
		rest = rest[1:]
	}
	if i := strings.Index(rest, "__"); i > 0 {
		n.Master = rest[:i]
		n.Part = rest[i+2:]
	} else {
		n.Master = rest
	}
	return n
}

// Display is the CamelCase name; part tables read Master.Part
func (n tableName) Display() string {
	if n.Part != "" {
		return toCamelCase(n.Master) + "." + toCamelCase(n.Part)
	}
	return toCamelCase(n.Master)
}

func toCamelCase(snake string) string {
	var b strings.Builder
	upper := true
	for _, r := range snake {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DisplayTableName renders a physical table name for clients
func DisplayTableName(physical string) string {
	return parseTableName(physical).Display()
}

func listingOf(physical []string) common.TableListing {
	listing := common.TableListing{
		Manual:   []string{},
		Lookup:   []string{},
		Computed: []string{},
		Imported: []string{},
		Part:     []string{},
	}
	for _, p := range physical {
		n := parseTableName(p)
		if n.Part != "" {
			if n.Tier != tierHidden {
				listing.Part = append(listing.Part, n.Display())
			}
			continue
		}
		switch n.Tier {
		case tierManual:
			listing.Manual = append(listing.Manual, n.Display())
		case tierLookup:
			listing.Lookup = append(listing.Lookup, n.Display())
		case tierImported:
			listing.Imported = append(listing.Imported, n.Display())
		case tierComputed:
			listing.Computed = append(listing.Computed, n.Display())
		}
	}
	return listing
}

// resolveTableName finds the physical table for a physical or display name
func resolveTableName(physical []string, name string) (string, bool) {
	for _, p := range physical {
		if p == name {
			return p, true
		}
	}
	for _, p := range physical {
		n := parseTableName(p)
		if n.Tier != tierHidden && n.Display() == name {
			return p, true
		}
	}
	return "", false
}
