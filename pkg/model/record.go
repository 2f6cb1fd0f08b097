package model

import (
	"time"
)

// Chunk is a bounded-length substring of an ingested document, the unit of
// storage and retrieval for the knowledge base.
type Chunk struct {
	ID        ChunkID   `json:"id"`
	Source    string    `json:"source"`
	Index     int       `json:"chunk_idx"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Memory is a single stored fact or observation.
type Memory struct {
	ID        MemoryID  `json:"id"`
	Text      string    `json:"text"`
	Category  string    `json:"category"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ChunkHit is one knowledge search result, ordered by descending cosine
// similarity.
type ChunkHit struct {
	ID     ChunkID `json:"id"`
	Source string  `json:"source"`
	Index  int     `json:"chunk_idx"`
	Text   string  `json:"text"`
	Score  float32 `json:"score"`
}

// MemoryHit is one recall result.
type MemoryHit struct {
	ID       MemoryID `json:"id"`
	Text     string   `json:"text"`
	Category string   `json:"category"`
	Score    float32  `json:"score"`
}

// CollectionStats is a read-only aggregate over one collection.
type CollectionStats struct {
	Count     int    `json:"count"`
	Dimension int    `json:"dimension"`
	Path      string `json:"path"`
}

// Status is the combined server status exposed by the status tool.
type Status struct {
	DataDir      string           `json:"data_dir"`
	Backend      string           `json:"embedding_backend"`
	Dimension    int              `json:"embedding_dim"`
	ChunkSize    int              `json:"chunk_size"`
	ChunkOverlap int              `json:"chunk_overlap"`
	Knowledge    *CollectionStats `json:"knowledge"`
	Memory       *CollectionStats `json:"memory"`
}

// DefaultCategory is assigned to memories stored without an explicit
// category.
const DefaultCategory = "general"

// DefaultSource labels text ingested directly rather than from a file.
const DefaultSource = "manual"
