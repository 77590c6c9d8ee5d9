package db

// KNNQuery is the input for vector similarity search. Scores come back as
// raw L2 distances, lower first.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64 // raw L2 distance
	Fields map[string]string
}
