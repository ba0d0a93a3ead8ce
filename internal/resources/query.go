package resources

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/vulcan-api/vulcan-api/internal/schema"
	"github.com/vulcan-api/vulcan-api/internal/shared"
)

// Filter operators, decoded from the value prefix: `<` at most, `>` at
// least, `!` not equal, `-` is null, none equality.
const (
	OpEq   = "eq"
	OpLte  = "lte"
	OpGte  = "gte"
	OpNe   = "ne"
	OpNull = "null"
)

// Filter restricts a collection query on one column.
type Filter struct {
	Column string
	Op     string
	Value  string
}

// Order sorts a collection query on one column.
type Order struct {
	Column string
	Desc   bool
}

// Query is a parsed collection request.
type Query struct {
	Filters []Filter
	Order   *Order
	Page    int
	Items   int
}

const defaultPageSize = 20

// queryable reports whether a request parameter addresses a column of the
// descriptor. id and owner are implicit on every generated table.
func queryable(def schema.TypeDef, name string) bool {
	if name == "id" || name == "owner" {
		return true
	}
	_, ok := def.Field(name)
	return ok
}

// ParseQuery decodes filters, ordering and pagination from request
// parameters, rejecting anything that does not address a descriptor column.
func ParseQuery(def schema.TypeDef, values url.Values) (Query, error) {
	q := Query{Page: 1, Items: defaultPageSize}

	for key, args := range values {
		switch key {
		case "page":
			page, err := strconv.Atoi(args[0])
			if err != nil || page < 1 {
				return q, shared.Invalidf("invalid page %q", args[0])
			}
			q.Page = page
		case "items":
			items, err := strconv.Atoi(args[0])
			if err != nil || items < 1 {
				return q, shared.Invalidf("invalid items %q", args[0])
			}
			q.Items = items
		case "order_by":
			order, err := parseOrder(def, args[0])
			if err != nil {
				return q, err
			}
			q.Order = order
		default:
			if !queryable(def, key) {
				return q, shared.Invalidf("unknown column %q", key)
			}
			for _, arg := range args {
				q.Filters = append(q.Filters, parseFilter(key, arg))
			}
		}
	}
	return q, nil
}

func parseFilter(column, arg string) Filter {
	switch {
	case strings.HasPrefix(arg, "<"):
		return Filter{Column: column, Op: OpLte, Value: arg[1:]}
	case strings.HasPrefix(arg, ">"):
		return Filter{Column: column, Op: OpGte, Value: arg[1:]}
	case strings.HasPrefix(arg, "!"):
		return Filter{Column: column, Op: OpNe, Value: arg[1:]}
	case arg == "-":
		return Filter{Column: column, Op: OpNull}
	default:
		return Filter{Column: column, Op: OpEq, Value: arg}
	}
}

func parseOrder(def schema.TypeDef, arg string) (*Order, error) {
	order := &Order{Column: arg}
	switch {
	case strings.HasPrefix(arg, "<"):
		order.Column = arg[1:]
		order.Desc = true
	case strings.HasPrefix(arg, ">"):
		order.Column = arg[1:]
	}
	if !queryable(def, order.Column) {
		return nil, shared.Invalidf("unknown column %q", order.Column)
	}
	return order, nil
}

// LastPage returns the number of the last page for a total row count.
func LastPage(count int64, items int) int {
	if items < 1 {
		return 1
	}
	pages := int(count) / items
	if int(count)%items != 0 || pages == 0 {
		pages++
	}
	return pages
}
