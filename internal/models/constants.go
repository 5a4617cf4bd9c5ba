package models

const (
	// PromptTemplate takes the retrieved context and the user query.
	PromptTemplate   = "Context:\n%s\n\nUser Query: %s\n\nAnswer:"
	ContextSeparator = "\n\n"
	DefaultTopK      = 3
	TableName        = "pdf_embeddings"
)
