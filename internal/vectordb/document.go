package vectordb

import (
	"strconv"
	"time"
)

// Document is one embedded chunk of a collection file.
type Document struct {
	ID       string
	Content  string
	Metadata DocumentMetadata
}

// DocumentMetadata holds structured information about a chunk.
type DocumentMetadata struct {
	Collection  string
	FilePath    string
	ChunkIndex  int
	TotalChunks int
	ContentHash string
	Strategy    string
	LastUpdated time.Time
}

// SearchResult pairs a document with its similarity score.
type SearchResult struct {
	Document   Document
	Similarity float32
}

// metadataToMap converts DocumentMetadata to a flat map[string]string for chromem.
func metadataToMap(m DocumentMetadata) map[string]string {
	return map[string]string{
		"collection":   m.Collection,
		"file_path":    m.FilePath,
		"chunk_index":  strconv.Itoa(m.ChunkIndex),
		"total_chunks": strconv.Itoa(m.TotalChunks),
		"content_hash": m.ContentHash,
		"strategy":     m.Strategy,
		"last_updated": m.LastUpdated.Format(time.RFC3339),
	}
}

// mapToMetadata converts a flat map[string]string back to DocumentMetadata.
func mapToMetadata(m map[string]string) DocumentMetadata {
	chunkIndex, _ := strconv.Atoi(m["chunk_index"])
	totalChunks, _ := strconv.Atoi(m["total_chunks"])
	lastUpdated, _ := time.Parse(time.RFC3339, m["last_updated"])

	return DocumentMetadata{
		Collection:  m["collection"],
		FilePath:    m["file_path"],
		ChunkIndex:  chunkIndex,
		TotalChunks: totalChunks,
		ContentHash: m["content_hash"],
		Strategy:    m["strategy"],
		LastUpdated: lastUpdated,
	}
}
