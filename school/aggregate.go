package school

// Fallback categories for records missing the grouped field.
const (
	NotInformed = "Not informed"
	Others      = "Others"
)

// Aggregate derives the by-dependency and by-municipality distributions of
// schools. Categories appear in the order they are first seen scanning the
// input left to right; empty values fall into NotInformed and Others
// respectively. An empty input yields two empty distributions.
func Aggregate(schools []School) (byDependency, byMunicipality Distribution) {
	byDependency = groupCount(schools, func(s School) string { return s.Dependency }, NotInformed)
	byMunicipality = groupCount(schools, func(s School) string { return s.Municipality }, Others)
	return byDependency, byMunicipality
}

// groupCount counts schools per key in a single pass, keeping insertion order.
func groupCount(schools []School, key func(School) string, fallback string) Distribution {
	dist := Distribution{}
	index := make(map[string]int)
	for _, s := range schools {
		k := key(s)
		if k == "" {
			k = fallback
		}
		i, ok := index[k]
		if !ok {
			index[k] = len(dist)
			dist = append(dist, Entry{Category: k, Count: 1})
			continue
		}
		dist[i].Count++
	}
	return dist
}

// Total returns the sum of all counts.
func (d Distribution) Total() int {
	var n int
	for _, e := range d {
		n += e.Count
	}
	return n
}

// PieData converts d into pie series data, keeping order.
func (d Distribution) PieData() []PieSlice {
	out := make([]PieSlice, len(d))
	for i, e := range d {
		out[i] = PieSlice{Name: e.Category, Value: e.Count}
	}
	return out
}

// BarSeries splits d into parallel category and value slices for a bar chart.
func (d Distribution) BarSeries() (categories []string, values []int) {
	categories = make([]string, len(d))
	values = make([]int, len(d))
	for i, e := range d {
		categories[i] = e.Category
		values[i] = e.Count
	}
	return categories, values
}

// DuplicateIDs reports ids that occur more than once in schools, in the
// order their second occurrence is seen. Used for diagnostics only.
func DuplicateIDs(schools []School) []int {
	seen := make(map[int]int, len(schools))
	var dups []int
	for _, s := range schools {
		seen[s.ID]++
		if seen[s.ID] == 2 {
			dups = append(dups, s.ID)
		}
	}
	return dups
}
