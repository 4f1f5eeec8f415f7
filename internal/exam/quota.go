package exam

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// QuotaSpec maps a kind to the number of items requested for it.
type QuotaSpec map[Kind]int

// Validate rejects negative counts, non-canonical kinds and empty quotas.
func (q QuotaSpec) Validate() error {
	if len(q) == 0 {
		return fmt.Errorf("%w: no kinds requested", ErrInvalidQuotaSpec)
	}
	total := 0
	for k, n := range q {
		if !k.IsCanonical() {
			return fmt.Errorf("%w: unknown kind %q", ErrInvalidQuotaSpec, k)
		}
		if n < 0 {
			return fmt.Errorf("%w: negative count %d for %s", ErrInvalidQuotaSpec, n, k)
		}
		total += n
	}
	if total == 0 {
		return fmt.Errorf("%w: total is zero", ErrInvalidQuotaSpec)
	}
	return nil
}

// Total returns the sum of all counts.
func (q QuotaSpec) Total() int {
	total := 0
	for _, n := range q {
		if n > 0 {
			total += n
		}
	}
	return total
}

// Kinds returns the kinds with a positive count, in assembly order.
func (q QuotaSpec) Kinds() []Kind {
	var out []Kind
	for _, k := range Kinds {
		if q[k] > 0 {
			out = append(out, k)
		}
	}
	return out
}

// Sub returns q minus other, floored at zero. Kinds that reach zero are
// omitted.
func (q QuotaSpec) Sub(other map[Kind]int) QuotaSpec {
	out := QuotaSpec{}
	for k, n := range q {
		if rest := n - other[k]; rest > 0 {
			out[k] = rest
		}
	}
	return out
}

// Clone returns a copy of q.
func (q QuotaSpec) Clone() QuotaSpec {
	out := make(QuotaSpec, len(q))
	for k, n := range q {
		out[k] = n
	}
	return out
}

// String renders q as "kind=n,..." in assembly order.
func (q QuotaSpec) String() string {
	parts := make([]string, 0, len(q))
	for _, k := range q.Kinds() {
		parts = append(parts, fmt.Sprintf("%s=%d", k, q[k]))
	}
	var unknown []string
	for k, n := range q {
		if !k.IsCanonical() {
			unknown = append(unknown, fmt.Sprintf("%s=%d", k, n))
		}
	}
	sort.Strings(unknown)
	return strings.Join(append(parts, unknown...), ",")
}

// ParseQuota parses "multiple_choice=3,tf=2" style input. Kind names go
// through ResolveKind, so aliases are accepted. Repeated kinds add up.
func ParseQuota(s string) (QuotaSpec, error) {
	q := QuotaSpec{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, count, ok := strings.Cut(part, "=")
		if !ok {
			name, count, ok = strings.Cut(part, ":")
		}
		if !ok {
			return nil, fmt.Errorf("%w: %q is not kind=count", ErrInvalidQuotaSpec, part)
		}
		k := ResolveKind(name)
		if k == KindUnrecognized {
			return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidQuotaSpec, strings.TrimSpace(name))
		}
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil {
			return nil, fmt.Errorf("%w: count %q is not an integer", ErrInvalidQuotaSpec, strings.TrimSpace(count))
		}
		q[k] += n
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}
