package service

import (
	"encoding/json"
	"testing"

	"github.com/meilisearch/meilisearch-go"
)

func TestDecodeHitsUnpacksRawDocuments(t *testing.T) {
	raw := meilisearch.Hits{
		{
			"id":           json.RawMessage(`"j1"`),
			"title":        json.RawMessage(`"Paint two rooms"`),
			"wage_offered": json.RawMessage(`800`),
			"is_open":      json.RawMessage(`true`),
		},
		{
			"id":   json.RawMessage(`"j2"`),
			"city": json.RawMessage(`"Pune"`),
		},
	}

	docs := decodeHits(IndexJobs, raw)
	if len(docs) != 2 {
		t.Fatalf("decoded %d hits, want 2", len(docs))
	}

	if docs[0]["id"] != "j1" {
		t.Errorf("id = %v, want j1", docs[0]["id"])
	}
	if docs[0]["title"] != "Paint two rooms" {
		t.Errorf("title = %v", docs[0]["title"])
	}
	if docs[0]["wage_offered"] != float64(800) {
		t.Errorf("wage_offered = %v, want 800", docs[0]["wage_offered"])
	}
	if docs[0]["is_open"] != true {
		t.Errorf("is_open = %v, want true", docs[0]["is_open"])
	}
	if docs[1]["city"] != "Pune" {
		t.Errorf("city = %v, want Pune", docs[1]["city"])
	}
}

func TestDecodeHitsDropsUndecodableRows(t *testing.T) {
	raw := meilisearch.Hits{
		{"id": json.RawMessage(`"ok"`)},
		{"id": json.RawMessage(`{not json`)},
	}

	docs := decodeHits(IndexWorkers, raw)
	if len(docs) != 1 {
		t.Fatalf("decoded %d hits, want 1", len(docs))
	}
	if docs[0]["id"] != "ok" {
		t.Errorf("id = %v, want ok", docs[0]["id"])
	}
}

func TestDecodeHitsEmpty(t *testing.T) {
	if docs := decodeHits(IndexJobs, nil); len(docs) != 0 {
		t.Errorf("decoded %d hits from nil input", len(docs))
	}
}
