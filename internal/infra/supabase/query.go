package supabase

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/boddenberg/onsite-analytics-go/internal/port"
)

// encodeQuery renders q in PostgREST's query-string dialect:
// select=a,b&col=eq.v&order=col.desc&limit=n&offset=n.
// forCount drops projection, ordering and paging.
func encodeQuery(q port.Query, forCount bool) string {
	v := url.Values{}

	if !forCount && len(q.Cols) > 0 {
		v.Set("select", strings.Join(q.Cols, ","))
	}

	for _, f := range q.Filters {
		switch f.Op {
		case port.OpIsNull, port.OpNotNull:
			v.Add(f.Column, string(f.Op))
		default:
			v.Add(f.Column, fmt.Sprintf("%s.%s", f.Op, f.Value))
		}
	}

	if forCount {
		return v.Encode()
	}

	if len(q.Orders) > 0 {
		parts := make([]string, 0, len(q.Orders))
		for _, o := range q.Orders {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			parts = append(parts, o.Column+"."+dir)
		}
		v.Set("order", strings.Join(parts, ","))
	}
	if q.Max > 0 {
		v.Set("limit", strconv.Itoa(q.Max))
	}
	if q.Skip > 0 {
		v.Set("offset", strconv.Itoa(q.Skip))
	}
	return v.Encode()
}

// parseContentRange extracts the total from "0-24/45" or "*/45".
func parseContentRange(h string) (int, error) {
	i := strings.LastIndex(h, "/")
	if i < 0 || i == len(h)-1 {
		return 0, fmt.Errorf("invalid Content-Range %q", h)
	}
	total := h[i+1:]
	if total == "*" {
		return 0, fmt.Errorf("Content-Range %q has no exact count", h)
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, fmt.Errorf("invalid Content-Range %q: %w", h, err)
	}
	return n, nil
}
