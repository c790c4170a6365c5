package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Field        string
	Vector       []float32
	K            int
	ReturnFields []string
}

// TagQuery selects documents whose TAG field contains any of Values.
// KeyPrefix is used by backends that answer the query with SCAN.
// Offset and Limit select one page of the matches.
type TagQuery struct {
	IndexName    string
	KeyPrefix    string
	Field        string
	Separator    string // defaults to ","
	Values       []string
	Offset       int
	Limit        int
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
	Score  float64
	Fields map[string]string
}
