package service

import (
	"log"

	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	"kaamkhoj.in/hireease/internal/entity"
)

const (
	IndexJobs    = "jobs"
	IndexWorkers = "workers"
)

// SearchService keeps the Meilisearch job and worker indexes in sync with
// the database. All methods are safe to call with a nil receiver check at
// the call site; index writes are best-effort.
type SearchService interface {
	IndexJob(job *entity.Job) error
	DeleteJob(id string) error
	IndexWorker(worker *entity.Worker) error
	DeleteWorker(id string) error
	// Search runs a full-text query against one of the indexes and returns
	// the raw document hits.
	Search(index, query string, limit, offset int) ([]map[string]any, int64, error)
}

type searchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	s := &searchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *searchService) initIndexes() {
	jobFilterable := []any{"category", "city", "skill_needed", "is_open"}
	if _, err := s.client.Index(IndexJobs).UpdateFilterableAttributes(&jobFilterable); err != nil {
		log.Printf("failed to update jobs filterable attributes: %v", err)
	}

	jobSortable := []string{"created_at", "wage_offered"}
	if _, err := s.client.Index(IndexJobs).UpdateSortableAttributes(&jobSortable); err != nil {
		log.Printf("failed to update jobs sortable attributes: %v", err)
	}

	workerFilterable := []any{"skill", "city", "available"}
	if _, err := s.client.Index(IndexWorkers).UpdateFilterableAttributes(&workerFilterable); err != nil {
		log.Printf("failed to update workers filterable attributes: %v", err)
	}

	workerSortable := []string{"daily_wage", "years_experience"}
	if _, err := s.client.Index(IndexWorkers).UpdateSortableAttributes(&workerSortable); err != nil {
		log.Printf("failed to update workers sortable attributes: %v", err)
	}
}

func (s *searchService) IndexJob(job *entity.Job) error {
	doc := map[string]any{
		"id":           job.ID.String(),
		"title":        job.Title,
		"description":  s.sanitizer.Sanitize(job.Description),
		"category":     job.Category,
		"skill_needed": job.SkillNeeded,
		"city":         job.City,
		"wage_offered": job.WageOffered,
		"is_open":      job.IsOpen,
		"created_at":   job.CreatedAt.Unix(),
	}

	_, err := s.client.Index(IndexJobs).AddDocuments([]map[string]any{doc}, nil)
	return err
}

func (s *searchService) DeleteJob(id string) error {
	_, err := s.client.Index(IndexJobs).DeleteDocument(id)
	return err
}

func (s *searchService) IndexWorker(worker *entity.Worker) error {
	doc := map[string]any{
		"id":               worker.ID.String(),
		"name":             worker.Name,
		"skill":            worker.Skill,
		"city":             worker.City,
		"daily_wage":       worker.DailyWage,
		"years_experience": worker.YearsExperience,
		"available":        worker.Available,
	}
	if worker.About != nil {
		doc["about"] = s.sanitizer.Sanitize(*worker.About)
	}

	_, err := s.client.Index(IndexWorkers).AddDocuments([]map[string]any{doc}, nil)
	return err
}

func (s *searchService) DeleteWorker(id string) error {
	_, err := s.client.Index(IndexWorkers).DeleteDocument(id)
	return err
}

func (s *searchService) Search(index, query string, limit, offset int) ([]map[string]any, int64, error) {
	if index != IndexJobs && index != IndexWorkers {
		index = IndexJobs
	}
	if limit <= 0 {
		limit = 20
	}

	res, err := s.client.Index(index).Search(query, &meilisearch.SearchRequest{
		Limit:  int64(limit),
		Offset: int64(offset),
	})
	if err != nil {
		return nil, 0, err
	}

	return decodeHits(index, res.Hits), res.EstimatedTotalHits, nil
}

// decodeHits unpacks raw index hits into plain documents. Rows that fail to
// decode are dropped rather than failing the whole page.
func decodeHits(index string, raw meilisearch.Hits) []map[string]any {
	hits := make([]map[string]any, 0, len(raw))
	for _, hit := range raw {
		doc := map[string]any{}
		if err := hit.DecodeInto(&doc); err != nil {
			log.Printf("failed to decode %s hit: %v", index, err)
			continue
		}
		hits = append(hits, doc)
	}
	return hits
}
