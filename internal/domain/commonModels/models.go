package commonModels

import (
	"path/filepath"
	"strings"
	"time"
)

// Batch is the set of documents handed in with one Process action.
type Batch struct {
	IndexId    string
	SessionId  string
	Documents  []string
	IngestedAt time.Time
}

type DocChunk struct {
	Batch          Batch
	ChunkId        string `json:"chunk_id"`
	Chunk          string `json:"content"`
	ChunkOrder     int    `json:"chunk_order"`
	EmbeddingModel string `json:"embedding_model"`
}

// RetrievedChunk is one nearest neighbour returned by the vector store.
type RetrievedChunk struct {
	ChunkId    string
	Content    string
	ChunkOrder int
	Documents  []string
	Score      float32
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var TXT DocType = "TXT"
var ERR DocType = "ERROR"

func GetDocType(docPath string) DocType {
	switch strings.ToLower(filepath.Ext(docPath)) {
	case ".pdf":
		return PDF
	case ".docx", ".odt", ".rtf":
		return DOCX
	case ".txt", ".md":
		return TXT
	default:
		return ERR
	}
}
