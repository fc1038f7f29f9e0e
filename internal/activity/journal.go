package activity

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"easemyday/internal/models"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"
)

const (
	journalSchema = "1"
	pageSize      = 100
	dayLayout     = "2006-01-02"
	perDayFacet   = "per_day"
)

var journalSchemaKey = []byte("journal_schema")

var keywordFields = []string{
	"action", "object_type", "user_id", "email_domain", "provider_type", "mode", "visitor_id",
}

// visitor_id stays internal.
var responseFields = []string{
	"action", "object_type", "user_id", "email_domain", "provider_type", "mode", "message",
}

type journalEntry struct {
	Action       string    `json:"action"`
	ObjectType   string    `json:"object_type"`
	UserID       string    `json:"user_id"`
	EmailDomain  string    `json:"email_domain"`
	ProviderType string    `json:"provider_type"`
	Mode         string    `json:"mode"`
	VisitorID    string    `json:"visitor_id"`
	Message      string    `json:"message"`
	At           time.Time `json:"timestamp"`
	Snapshot     string    `json:"object"`
}

func entryFromActivity(a models.Activity) (journalEntry, error) {
	nanos, err := strconv.ParseInt(a.Filter.Timestamp, 10, 64)
	if err != nil {
		return journalEntry{}, fmt.Errorf("invalid activity timestamp %q: %w", a.Filter.Timestamp, err)
	}

	fields := a.Filter.Fields
	entry := journalEntry{
		Action:       fields["action"],
		ObjectType:   fields["object_type"],
		UserID:       fields["user_id"],
		EmailDomain:  fields["email_domain"],
		ProviderType: fields["provider_type"],
		Mode:         fields["mode"],
		VisitorID:    fields["visitor_id"],
		Message:      a.Message,
		At:           time.Unix(0, nanos),
	}

	if a.Object != nil && isAuthorizedObject(entry.ObjectType) {
		snapshot, err := json.Marshal(a.Object)
		if err != nil {
			return journalEntry{}, fmt.Errorf("failed to marshal activity object: %w", err)
		}
		entry.Snapshot = string(snapshot)
	}
	return entry, nil
}

// hitToMap turns the stored fields of a hit into the API shape.
func hitToMap(fields map[string]any) map[string]any {
	out := make(map[string]any, len(responseFields)+2)
	for _, name := range responseFields {
		value, _ := fields[name].(string)
		out[name] = value
	}

	if raw, ok := fields["timestamp"].(string); ok {
		if at, err := time.Parse(time.RFC3339, raw); err == nil {
			out["timestamp"] = strconv.FormatInt(at.UnixNano(), 10)
		}
	}

	if raw, _ := fields["object"].(string); raw != "" {
		var snapshot map[string]any
		if json.Unmarshal([]byte(raw), &snapshot) == nil {
			out["object"] = snapshot
		}
	}
	return out
}

func journalMapping() *mapping.IndexMappingImpl {
	doc := bleve.NewDocumentMapping()
	for _, name := range keywordFields {
		doc.AddFieldMappingsAt(name, bleve.NewKeywordFieldMapping())
	}
	doc.AddFieldMappingsAt("timestamp", bleve.NewDateTimeFieldMapping())
	doc.AddFieldMappingsAt("message", bleve.NewTextFieldMapping())

	storedOnly := bleve.NewTextFieldMapping()
	storedOnly.Index = false
	doc.AddFieldMappingsAt("object", storedOnly)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Journal keeps auth activity in a local bleve index.
type Journal struct {
	index bleve.Index
	now   func() time.Time
}

// OpenJournal opens the journal under dir, creating it on first use. A journal
// written with another schema is refused rather than reinterpreted.
func OpenJournal(dir string) (*Journal, error) {
	index, err := bleve.Open(dir)
	switch {
	case errors.Is(err, bleve.ErrorIndexPathDoesNotExist), errors.Is(err, bleve.ErrorIndexMetaMissing):
		index, err = bleve.New(dir, journalMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create activity journal: %w", err)
		}
		if err = index.SetInternal(journalSchemaKey, []byte(journalSchema)); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to stamp activity journal schema: %w", err)
		}

	case err != nil:
		return nil, fmt.Errorf("failed to open activity journal: %w", err)

	default:
		schema, err := index.GetInternal(journalSchemaKey)
		if err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to read activity journal schema: %w", err)
		}
		if string(schema) != journalSchema {
			_ = index.Close()
			return nil, fmt.Errorf("activity journal at %s has schema %q, expected %q", dir, schema, journalSchema)
		}
	}

	return &Journal{index: index, now: time.Now}, nil
}

func (j *Journal) Close() error {
	return j.index.Close()
}

func (j *Journal) Send(a models.Activity) error {
	entry, err := entryFromActivity(a)
	if err != nil {
		return err
	}
	if err = j.index.Index(uuid.NewString(), entry); err != nil {
		return fmt.Errorf("failed to index activity: %w", err)
	}
	return nil
}

// Search returns the newest entries of the last days matching criteria.
func (j *Journal) Search(criteria map[string][]string, days int) ([]map[string]any, error) {
	req := bleve.NewSearchRequestOptions(j.window(criteria, days), pageSize, 0, false)
	req.SortBy([]string{"-timestamp"})
	req.Fields = []string{"*"}

	result, err := j.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search activity: %w", err)
	}

	entries := make([]map[string]any, 0, len(result.Hits))
	for _, hit := range result.Hits {
		entries = append(entries, hitToMap(hit.Fields))
	}
	return entries, nil
}

// CountByDay buckets the matching entries of the last days by UTC day, oldest
// first. Empty days are left out.
func (j *Journal) CountByDay(criteria map[string][]string, days int) ([]models.TimeSeriesPoint, error) {
	req := bleve.NewSearchRequestOptions(j.window(criteria, days), 0, 0, false)

	end := j.now()
	facet := bleve.NewFacetRequest("timestamp", days+1)
	for i := days; i >= 0; i-- {
		day := end.AddDate(0, 0, -i).Truncate(24 * time.Hour)
		facet.AddDateTimeRange(day.Format(dayLayout), day, day.Add(24*time.Hour))
	}
	req.AddFacet(perDayFacet, facet)

	result, err := j.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to count activity by day: %w", err)
	}

	points := []models.TimeSeriesPoint{}
	counts, ok := result.Facets[perDayFacet]
	if !ok {
		return points, nil
	}
	for _, bucket := range counts.DateRanges {
		if bucket.Count > 0 {
			points = append(points, models.TimeSeriesPoint{Date: bucket.Name, Count: int64(bucket.Count)})
		}
	}
	sort.Slice(points, func(a, b int) bool { return points[a].Date < points[b].Date })
	return points, nil
}

func (j *Journal) window(criteria map[string][]string, days int) query.Query {
	end := j.now()
	within := bleve.NewDateRangeQuery(end.AddDate(0, 0, -days), end)
	within.SetField("timestamp")
	return bleve.NewConjunctionQuery(criteriaQuery(criteria), within)
}

// criteriaQuery ANDs the fields together and ORs the values of each field.
func criteriaQuery(criteria map[string][]string) query.Query {
	var clauses []query.Query
	for field, values := range criteria {
		terms := make([]query.Query, 0, len(values))
		for _, value := range values {
			term := bleve.NewTermQuery(value)
			term.SetField(field)
			terms = append(terms, term)
		}

		switch len(terms) {
		case 0:
		case 1:
			clauses = append(clauses, terms[0])
		default:
			anyOf := bleve.NewDisjunctionQuery(terms...)
			anyOf.SetMin(1)
			clauses = append(clauses, anyOf)
		}
	}

	if len(clauses) == 0 {
		return bleve.NewMatchAllQuery()
	}
	return bleve.NewConjunctionQuery(clauses...)
}

var _ IActivityLogger = (*Journal)(nil)
