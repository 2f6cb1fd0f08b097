package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

type ChunkID string

type MemoryID string

// NewChunkID derives a content-addressed ID from the source label and the
// chunk's position within it. Re-ingesting the same (source, index) always
// yields the same ID, so an upsert is a clean overwrite.
func NewChunkID(source string, index int) ChunkID {
	return ChunkID("kb_" + digest(fmt.Sprintf("%s:%d", source, index)))
}

// NewMemoryID derives a content-addressed ID from the memory text itself.
// Storing identical text twice resolves to the same ID.
func NewMemoryID(text string) MemoryID {
	return MemoryID("mem_" + digest(text))
}

func digest(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])[:16]
}
