package reminder

import "errors"

type OrderBy struct {
	v string
}

func (o OrderBy) String() string {
	return o.v
}

var (
	OrderByNotSet     OrderBy = OrderBy{}
	OrderByIDAsc      OrderBy = OrderBy{v: "id_asc"}
	OrderByFireAtAsc  OrderBy = OrderBy{v: "fire_at_asc"}
	OrderByFireAtDesc OrderBy = OrderBy{v: "fire_at_desc"}
)

var ErrParseOrderBy = errors.New("invalid order")

func ParseOrderBy(value string) (OrderBy, error) {
	switch value {
	case "id_asc":
		return OrderByIDAsc, nil
	case "fire_at_asc":
		return OrderByFireAtAsc, nil
	case "fire_at_desc":
		return OrderByFireAtDesc, nil
	default:
		return OrderByNotSet, ErrParseOrderBy
	}
}
