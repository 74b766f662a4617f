package matrix

import "slices"

// Order sorts rows by severity rank ascending and, within one rank, by
// creation time descending. Rows are grouped by rank first and each group is
// sorted on its own; ties keep their input order.
func Order(rows []Row) []Row {
	groups := make(map[int][]Row)

	var ranks []int

	for _, row := range rows {
		if _, seen := groups[row.SeverityRank]; !seen {
			ranks = append(ranks, row.SeverityRank)
		}

		groups[row.SeverityRank] = append(groups[row.SeverityRank], row)
	}

	slices.Sort(ranks)

	ordered := make([]Row, 0, len(rows))

	for _, rank := range ranks {
		group := groups[rank]
		slices.SortStableFunc(group, func(a, b Row) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})

		ordered = append(ordered, group...)
	}

	return ordered
}
