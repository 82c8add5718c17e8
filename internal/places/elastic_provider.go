package places

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"explorer.placeexplorer.org/internal/geo"
	"explorer.placeexplorer.org/internal/models"
	"github.com/olivere/elastic/v7"
)

// elasticPageSize mirrors the single page a hosted places API returns.
const elasticPageSize = 20

const placeIndexMapping = `{
	"mappings": {
		"properties": {
			"place_id":           {"type": "keyword"},
			"name":               {"type": "text"},
			"vicinity":           {"type": "text"},
			"location":           {"type": "geo_point"},
			"categories":         {"type": "keyword"},
			"rating":             {"type": "float"},
			"user_ratings_total": {"type": "integer"},
			"open_now":           {"type": "boolean"},
			"photo_ref":          {"type": "keyword"}
		}
	}
}`

// PlaceDocument is how a place is stored in the index.
type PlaceDocument struct {
	PlaceID     string           `json:"place_id"`
	Name        string           `json:"name"`
	Vicinity    string           `json:"vicinity"`
	Location    elastic.GeoPoint `json:"location"`
	Categories  []string         `json:"categories"`
	Rating      *float64         `json:"rating,omitempty"`
	RatingCount *int             `json:"user_ratings_total,omitempty"`
	OpenNow     *bool            `json:"open_now,omitempty"`
	PhotoRef    string           `json:"photo_ref,omitempty"`
}

func (d PlaceDocument) raw() models.RawPlace {
	lat, lon := d.Location.Lat, d.Location.Lon
	return models.RawPlace{
		ID:          d.PlaceID,
		Name:        d.Name,
		Latitude:    &lat,
		Longitude:   &lon,
		Vicinity:    d.Vicinity,
		Types:       d.Categories,
		Rating:      d.Rating,
		RatingCount: d.RatingCount,
		OpenNow:     d.OpenNow,
		PhotoRef:    d.PhotoRef,
	}
}

// ElasticProvider serves searches and details from a self-hosted place index.
type ElasticProvider struct {
	client *elastic.Client
	index  string
	logger *slog.Logger
}

// NewElasticClient connects to a single node without sniffing, which suits
// both local clusters and hosted endpoints behind a load balancer.
func NewElasticClient(url string, options ...elastic.ClientOptionFunc) (*elastic.Client, error) {
	opts := append([]elastic.ClientOptionFunc{
		elastic.SetURL(url),
		elastic.SetSniff(false),
	}, options...)
	client, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return client, nil
}

func NewElasticProvider(client *elastic.Client, index string, logger *slog.Logger) *ElasticProvider {
	return &ElasticProvider{client: client, index: index, logger: logger}
}

func (p *ElasticProvider) Search(ctx context.Context, center geo.Coordinate, radiusMeters float64, category string) (Status, []models.RawPlace, error) {
	query := elastic.NewBoolQuery().Filter(
		elastic.NewTermQuery("categories", category),
		elastic.NewGeoDistanceQuery("location").
			Lat(center.Latitude).
			Lon(center.Longitude).
			Distance(fmt.Sprintf("%.0fm", radiusMeters)),
	)

	result, err := p.client.Search().
		Index(p.index).
		Query(query).
		SortBy(elastic.NewGeoDistanceSort("location").
			Point(center.Latitude, center.Longitude).
			Asc().
			Unit("m").
			DistanceType("arc")).
		Size(elasticPageSize).
		Do(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("elasticsearch search on %s: %w", p.index, err)
	}

	if result.Hits == nil || len(result.Hits.Hits) == 0 {
		return StatusZeroResults, nil, nil
	}

	raw := make([]models.RawPlace, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		var doc PlaceDocument
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			p.logger.Warn("Skipping unreadable place document", "id", hit.Id, "error", err)
			continue
		}
		if doc.PlaceID == "" {
			doc.PlaceID = hit.Id
		}
		raw = append(raw, doc.raw())
	}
	return StatusOK, raw, nil
}

func (p *ElasticProvider) Details(ctx context.Context, placeID string, _ []string) (Status, models.RawPlace, error) {
	result, err := p.client.Get().Index(p.index).Id(placeID).Do(ctx)
	if err != nil {
		if elastic.IsNotFound(err) {
			return StatusNotFound, models.RawPlace{}, nil
		}
		return "", models.RawPlace{}, fmt.Errorf("elasticsearch get %s/%s: %w", p.index, placeID, err)
	}
	if !result.Found || result.Source == nil {
		return StatusNotFound, models.RawPlace{}, nil
	}

	var doc PlaceDocument
	if err := json.Unmarshal(result.Source, &doc); err != nil {
		return "", models.RawPlace{}, fmt.Errorf("decode place document %s: %w", placeID, err)
	}
	if doc.PlaceID == "" {
		doc.PlaceID = placeID
	}
	return StatusOK, doc.raw(), nil
}

// EnsureIndex creates the place index with its geo_point mapping when missing.
func (p *ElasticProvider) EnsureIndex(ctx context.Context) error {
	exists, err := p.client.IndexExists(p.index).Do(ctx)
	if err != nil {
		return fmt.Errorf("check index %s: %w", p.index, err)
	}
	if exists {
		return nil
	}

	created, err := p.client.CreateIndex(p.index).BodyString(placeIndexMapping).Do(ctx)
	if err != nil {
		return fmt.Errorf("create index %s: %w", p.index, err)
	}
	if !created.Acknowledged {
		p.logger.Warn("CreateIndex was not acknowledged", "index", p.index)
	}
	p.logger.Info("Created place index", "index", p.index)
	return nil
}

// IndexPlaces bulk-loads documents keyed by place id.
func (p *ElasticProvider) IndexPlaces(ctx context.Context, docs []PlaceDocument) error {
	if len(docs) == 0 {
		return nil
	}

	bulk := p.client.Bulk()
	for _, doc := range docs {
		bulk = bulk.Add(elastic.NewBulkIndexRequest().Index(p.index).Id(doc.PlaceID).Doc(doc))
	}

	resp, err := bulk.Do(ctx)
	if err != nil {
		return fmt.Errorf("bulk index into %s: %w", p.index, err)
	}
	if failed := resp.Failed(); len(failed) > 0 {
		reason := "unknown"
		if failed[0].Error != nil {
			reason = failed[0].Error.Reason
		}
		return fmt.Errorf("bulk index into %s: %d of %d documents failed, first: %s", p.index, len(failed), len(docs), reason)
	}
	return nil
}

// LoadSeedFile reads a JSON array of PlaceDocument from disk.
func LoadSeedFile(path string) ([]PlaceDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var docs []PlaceDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	return docs, nil
}
