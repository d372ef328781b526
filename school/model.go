package school

// School is one institution as returned by the remote API's /schools endpoint.
type School struct {
	ID           int    `json:"id_escola"`
	Name         string `json:"nome"`
	Municipality string `json:"municipio"`
	// Dependency is the administrative category: "Estadual", "Municipal",
	// or a private/other value. May be empty.
	Dependency string `json:"dependencia"`
	Address    string `json:"endereco,omitempty"`
}

// Entry is one (category, count) pair of a Distribution. Count is always >= 1.
type Entry struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Distribution is a sequence of entries in first-seen category order.
type Distribution []Entry

// PieSlice is the {name, value} shape pie chart series expect.
type PieSlice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}
