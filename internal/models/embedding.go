package models

// ChunkRecord is one stored chunk with its embedding and originating file.
type ChunkRecord struct {
	ID        int64
	ChunkText string
	Embedding []float32
	Source    string
}

// Match is a scored record returned by retrieval
type Match struct {
	ChunkText  string  `json:"chunk_text"`
	Source     string  `json:"source"`
	Similarity float64 `json:"similarity"`
}

type Citation struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Answer is the response of a query: the generated text and where it came from.
type Answer struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Matches   []Match    `json:"-"`
}

type UploadResult struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
	Stored   int    `json:"stored"`
	Skipped  int    `json:"skipped"`
}
