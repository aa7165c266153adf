package search

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// ItemFilter is the structured filter applied on the vector index.
type ItemFilter struct {
	Veg      *bool
	PriceMin *float64
	PriceMax *float64
	Category string
	ZoneID   *int
}

// VectorIndex is the k-NN surface of the semantic branch. Collections
// follow the <module>_items_v2 naming scheme.
type VectorIndex interface {
	Query(ctx context.Context, collection string, vector []float32, filter ItemFilter, k int) ([]Item, error)
}

// QdrantIndex is the production VectorIndex.
type QdrantIndex struct {
	client *qdrant.Client
}

func NewQdrantIndex(host string, port int, apiKey string, useTLS bool) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant client: %w", err)
	}
	return &QdrantIndex{client: client}, nil
}

var _ VectorIndex = (*QdrantIndex)(nil)

func (q *QdrantIndex) Close() error { return q.client.Close() }

func (q *QdrantIndex) Query(ctx context.Context, collection string, vector []float32, filter ItemFilter, k int) ([]Item, error) {
	req := &qdrant.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if f := buildFilter(filter); len(f.Must) > 0 {
		req.Filter = f
	}

	result, err := q.client.GetPointsClient().Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search %s: %w", collection, err)
	}
	return convertPoints(result.Result), nil
}

func buildFilter(f ItemFilter) *qdrant.Filter {
	var must []*qdrant.Condition

	if f.Veg != nil {
		must = append(must, fieldCondition("veg", &qdrant.Match{
			MatchValue: &qdrant.Match_Boolean{Boolean: *f.Veg},
		}, nil))
	}
	if f.Category != "" {
		must = append(must, fieldCondition("category", &qdrant.Match{
			MatchValue: &qdrant.Match_Keyword{Keyword: f.Category},
		}, nil))
	}
	if f.ZoneID != nil {
		must = append(must, fieldCondition("zone_id", &qdrant.Match{
			MatchValue: &qdrant.Match_Integer{Integer: int64(*f.ZoneID)},
		}, nil))
	}
	if f.PriceMin != nil || f.PriceMax != nil {
		r := &qdrant.Range{}
		if f.PriceMin != nil {
			r.Gte = f.PriceMin
		}
		if f.PriceMax != nil {
			r.Lte = f.PriceMax
		}
		must = append(must, fieldCondition("price", nil, r))
	}

	return &qdrant.Filter{Must: must}
}

func fieldCondition(key string, match *qdrant.Match, r *qdrant.Range) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key:   key,
				Match: match,
				Range: r,
			},
		},
	}
}

func convertPoints(points []*qdrant.ScoredPoint) []Item {
	items := make([]Item, 0, len(points))
	for _, p := range points {
		item := Item{Score: float64(p.Score)}

		if p.Id != nil {
			switch id := p.Id.PointIdOptions.(type) {
			case *qdrant.PointId_Uuid:
				item.ID = id.Uuid
			case *qdrant.PointId_Num:
				item.ID = fmt.Sprintf("%d", id.Num)
			}
		}

		for key, value := range p.Payload {
			switch key {
			case "name":
				item.Name = value.GetStringValue()
			case "price":
				item.Price = numeric(value)
			case "store_name":
				item.StoreName = value.GetStringValue()
			case "category":
				item.Category = value.GetStringValue()
			case "veg":
				v := value.GetBoolValue()
				item.Veg = &v
			case "rating":
				r := numeric(value)
				item.Rating = &r
			case "image":
				item.ImageURL = value.GetStringValue()
			case "lat":
				item.Latitude = numeric(value)
			case "lng":
				item.Longitude = numeric(value)
			}
		}
		items = append(items, item)
	}
	return items
}

func numeric(v *qdrant.Value) float64 {
	switch kind := v.Kind.(type) {
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_IntegerValue:
		return float64(kind.IntegerValue)
	}
	return 0
}
