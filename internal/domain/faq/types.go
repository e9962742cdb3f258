package faq

import "time"

// Entry is one question/answer pair of the knowledge base. Its position in the
// loaded slice identifies it inside a built index.
type Entry struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// combinedText is what gets embedded for an entry so answers contribute to matching.
func (e Entry) combinedText() string {
	return e.Question + " " + e.Answer
}

// Match is one FAQ entry retrieved for a sub-question.
type Match struct {
	SubQuestion     string  `json:"question"`
	MatchedQuestion string  `json:"matchedFaq"`
	Answer          string  `json:"answer"`
	Distance        float64 `json:"distance"`
	Position        int     `json:"position"`
}

// SearchOptions tunes a single FindMatches call. A non-positive K or a nil
// Threshold uses the service config. A zero Threshold keeps exact matches only.
type SearchOptions struct {
	K         int
	Threshold *float64
}

// Threshold returns a pointer to v for SearchOptions.Threshold.
func Threshold(v float64) *float64 {
	return &v
}

// Result bundles the ranked matches of a query.
type Result struct {
	SubQuestions []string `json:"subQuestions"`
	Matches      []Match  `json:"matches"`
	// Unembedded counts sub-questions skipped because no vector was available.
	Unembedded int `json:"unembedded"`
}

// Degraded reports whether some sub-questions could not be embedded.
func (r Result) Degraded() bool {
	return r.Unembedded > 0
}

// BuildStats summarizes an index build.
type BuildStats struct {
	Entries  int `json:"entries"`
	Indexed  int `json:"indexed"`
	Cached   int `json:"cached"`
	Computed int `json:"computed"`
	Failed   int `json:"failed"`
	// CacheErrors counts batches whose vectors could not be persisted. The
	// vectors are still indexed from the in-memory cache.
	CacheErrors int           `json:"cacheErrors"`
	Duration    time.Duration `json:"duration"`
}

// IndexStats describes the index currently served.
type IndexStats struct {
	Ready     bool       `json:"ready"`
	Entries   int        `json:"entries"`
	Indexed   int        `json:"indexed"`
	Model     string     `json:"model"`
	BuiltAt   *time.Time `json:"builtAt,omitempty"`
	LastBuild BuildStats `json:"lastBuild"`
}

// TrendingQuery represents a frequently asked sub-question.
type TrendingQuery struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// ProgressFunc receives build progress as processed/total entries.
type ProgressFunc func(processed, total int)

// BatchReport describes the outcome of EmbedBatch.
type BatchReport struct {
	Requested   int
	Skipped     int
	Computed    int
	Failed      int
	CacheErrors int
}
