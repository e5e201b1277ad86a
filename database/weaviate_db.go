package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/tieubaoca/embedding-be/config"
	"github.com/tieubaoca/embedding-be/types"
)

const BATCH_SIZE = 200

var (
	CHUNK_CLASS        = "DocumentChunk"
	CHUNK_CLASS_OBJECT = &models.Class{
		Class: CHUNK_CLASS,
		Properties: []*models.Property{
			{Name: "content", DataType: []string{"text"}},
			{Name: "filename", DataType: []string{"text"}},
			{Name: "fileType", DataType: []string{"text"}},
			{Name: "fileHash", DataType: []string{"text"}},
			{Name: "chunkIndex", DataType: []string{"int"}},
			{Name: "totalChunks", DataType: []string{"int"}},
			{Name: "pages", DataType: []string{"int[]"}},
			{Name: "pageRange", DataType: []string{"text"}},
			{Name: "charStart", DataType: []string{"int"}},
			{Name: "charEnd", DataType: []string{"int"}},
			{Name: "bookType", DataType: []string{"text"}},
			{Name: "subject", DataType: []string{"text"}},
			{Name: "publisher", DataType: []string{"text"}},
			{Name: "grade", DataType: []string{"text"}},
			{Name: "bookFullName", DataType: []string{"text"}},
			{Name: "productName", DataType: []string{"text"}},
			{Name: "custom", DataType: []string{"text"}},
			{Name: "createdAt", DataType: []string{"int"}},
		},
		// Embeddings are computed by the pipeline, never by weaviate.
		Vectorizer:      "none",
		VectorIndexType: "hnsw",
	}
)

type WeaviateStore struct {
	client *weaviate.Client
	class  string
}

func NewWeaviateStore(cfg config.WeaviateStoreConfig) (*WeaviateStore, error) {
	scheme := cfg.Scheme
	if strings.Contains(cfg.Host, "https") {
		scheme = "https"
	} else if scheme == "" {
		scheme = "http"
	}
	host := strings.TrimPrefix(strings.TrimPrefix(cfg.Host, "https://"), "http://")
	clientConfig := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if cfg.APIKey != "" {
		clientConfig.AuthConfig = auth.ApiKey{
			Value: cfg.APIKey,
		}
		clientConfig.Headers = map[string]string{
			"X-Weaviate-Api-Key":     cfg.APIKey,
			"X-Weaviate-Cluster-Url": fmt.Sprintf("%s://%s", scheme, host),
		}
	}
	client, err := weaviate.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %v", err)
	}

	class := cfg.Class
	if class == "" {
		class = CHUNK_CLASS
	}

	schema, err := client.Schema().Getter().Do(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %v", err)
	}

	hasChunkClass := false
	for _, c := range schema.Classes {
		if c.Class == class {
			hasChunkClass = true
			break
		}
	}
	// Create DocumentChunk class if it doesn't exist
	if !hasChunkClass {
		classObject := *CHUNK_CLASS_OBJECT
		classObject.Class = class
		err = client.Schema().ClassCreator().WithClass(&classObject).Do(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to create DocumentChunk class: %v", err)
		}
	}
	return &WeaviateStore{
		client: client,
		class:  class,
	}, nil
}

func (s *WeaviateStore) ReInit() error {
	err := s.client.Schema().ClassDeleter().WithClassName(s.class).Do(context.Background())
	if err != nil {
		return fmt.Errorf("failed to delete DocumentChunk class: %v", err)
	}

	classObject := *CHUNK_CLASS_OBJECT
	classObject.Class = s.class
	err = s.client.Schema().ClassCreator().WithClass(&classObject).Do(context.Background())
	if err != nil {
		return fmt.Errorf("failed to create DocumentChunk class: %v", err)
	}
	return nil
}

// BatchInsertChunks writes chunks in batches of BATCH_SIZE with their
// precomputed embeddings.
func (s *WeaviateStore) BatchInsertChunks(ctx context.Context, chunks []StoredChunk, embeddings [][]float32) error {
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("chunk count %d does not match embedding count %d", len(chunks), len(embeddings))
	}

	total := len(chunks)
	for i := 0; i < total; i += BATCH_SIZE {
		end := i + BATCH_SIZE
		if end > total {
			end = total
		}

		batcher := s.client.Batch().ObjectsBatcher()
		for j := i; j < end; j++ {
			batcher = batcher.WithObjects(&models.Object{
				Class:      s.class,
				Properties: chunkProperties(chunks[j]),
				Vector:     embeddings[j],
			})
		}

		if _, err := batcher.Do(ctx); err != nil {
			return fmt.Errorf("failed to insert batch %d-%d: %v", i, end, err)
		}

		log.Printf("Inserted batch %d-%d of %d chunks", i, end, total)
	}

	return nil
}

// DeleteByFileHash removes every chunk belonging to a document.
func (s *WeaviateStore) DeleteByFileHash(ctx context.Context, fileHash string) error {
	where := filters.Where().
		WithPath([]string{"fileHash"}).
		WithOperator(filters.Equal).
		WithValueString(fileHash)

	result, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(s.class).
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %v", err)
	}
	if result != nil && result.Results != nil {
		log.Printf("Deleted %d chunks for document %s", result.Results.Successful, fileHash)
	}
	return nil
}

// SearchSimilar runs a nearVector query with optional metadata
// filters and returns the matched chunks ordered by distance.
func (s *WeaviateStore) SearchSimilar(ctx context.Context, vector []float32, filter SearchFilter, limit int) ([]StoredChunk, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	getBuilder := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(chunkFields()...).
		WithNearVector(nearVector)
	if limit > 0 {
		getBuilder = getBuilder.WithLimit(limit)
	}
	if where := buildSearchFilter(filter); where != nil {
		getBuilder = getBuilder.WithWhere(where)
	}

	result, err := getBuilder.Do(ctx)
	if err != nil {
		return nil, err
	}
	if result.Errors != nil {
		return nil, fmt.Errorf("search failed: %v", result.Errors[0].Message)
	}
	return s.parseChunks(result.Data), nil
}

// CollectionInfo reports the chunk class schema and its object count.
func (s *WeaviateStore) CollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	class, err := s.client.Schema().ClassGetter().WithClassName(s.class).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get class %s: %v", s.class, err)
	}

	result, err := s.client.GraphQL().Aggregate().
		WithClassName(s.class).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count objects: %v", err)
	}
	if result.Errors != nil {
		return nil, fmt.Errorf("failed to count objects: %v", result.Errors[0].Message)
	}

	info := &CollectionInfo{
		Class:       s.class,
		ObjectCount: aggregateCount(result.Data, s.class),
		Vectorizer:  class.Vectorizer,
	}
	for _, prop := range class.Properties {
		info.Properties = append(info.Properties, prop.Name)
	}
	return info, nil
}

// Live reports whether the weaviate instance answers its liveness
// probe.
func (s *WeaviateStore) Live(ctx context.Context) error {
	ok, err := s.client.Misc().LiveChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate liveness check failed: %v", err)
	}
	if !ok {
		return fmt.Errorf("weaviate is not live")
	}
	return nil
}

func aggregateCount(data map[string]models.JSONObject, class string) int64 {
	aggregate, ok := data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0
	}
	items, ok := aggregate[class].([]interface{})
	if !ok || len(items) == 0 {
		return 0
	}
	obj, ok := items[0].(map[string]interface{})
	if !ok {
		return 0
	}
	meta, ok := obj["meta"].(map[string]interface{})
	if !ok {
		return 0
	}
	count, _ := meta["count"].(float64)
	return int64(count)
}

// ChunksByFileHash fetches the stored chunks of one document.
func (s *WeaviateStore) ChunksByFileHash(ctx context.Context, fileHash string, limit int) ([]StoredChunk, error) {
	where := filters.Where().
		WithPath([]string{"fileHash"}).
		WithOperator(filters.Equal).
		WithValueString(fileHash)

	getBuilder := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(chunkFields()...).
		WithWhere(where)
	if limit > 0 {
		getBuilder = getBuilder.WithLimit(limit)
	}

	result, err := getBuilder.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search failed: %v", err)
	}
	if result.Errors != nil {
		return nil, fmt.Errorf("search failed: %v", result.Errors[0].Message)
	}
	return s.parseChunks(result.Data), nil
}

func chunkFields() []graphql.Field {
	return []graphql.Field{
		{Name: "content"},
		{Name: "filename"},
		{Name: "fileType"},
		{Name: "fileHash"},
		{Name: "chunkIndex"},
		{Name: "totalChunks"},
		{Name: "pages"},
		{Name: "pageRange"},
		{Name: "charStart"},
		{Name: "charEnd"},
		{Name: "bookType"},
		{Name: "subject"},
		{Name: "publisher"},
		{Name: "grade"},
		{Name: "bookFullName"},
		{Name: "productName"},
		{Name: "custom"},
		{Name: "createdAt"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}, {Name: "id"}}},
	}
}

func chunkProperties(chunk StoredChunk) map[string]interface{} {
	meta := chunk.Metadata
	properties := map[string]interface{}{
		"content":      chunk.Content,
		"filename":     meta.Filename,
		"fileType":     meta.FileType,
		"fileHash":     meta.FileHash,
		"chunkIndex":   meta.ChunkIndex,
		"totalChunks":  meta.TotalChunks,
		"pages":        meta.Pages,
		"pageRange":    meta.PageRange,
		"charStart":    meta.CharStart,
		"charEnd":      meta.CharEnd,
		"bookType":     meta.BookType,
		"subject":      meta.Subject,
		"publisher":    meta.Publisher,
		"grade":        meta.Grade,
		"bookFullName": meta.BookFullName,
		"productName":  meta.ProductName,
		"createdAt":    chunk.CreatedAt,
	}
	if len(meta.Extra) > 0 {
		if raw, err := json.Marshal(meta.Extra); err == nil {
			properties["custom"] = string(raw)
		}
	} else if meta.RawMetadata != "" {
		properties["custom"] = meta.RawMetadata
	}
	return properties
}

func (s *WeaviateStore) parseChunks(data map[string]models.JSONObject) []StoredChunk {
	var chunks []StoredChunk
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return chunks
	}
	items, ok := get[s.class].([]interface{})
	if !ok {
		return chunks
	}
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		chunk := StoredChunk{
			Content: asString(obj["content"]),
			Metadata: types.ChunkMetadata{
				Filename:     asString(obj["filename"]),
				FileType:     asString(obj["fileType"]),
				FileHash:     asString(obj["fileHash"]),
				ChunkIndex:   asInt(obj["chunkIndex"]),
				TotalChunks:  asInt(obj["totalChunks"]),
				Pages:        asIntSlice(obj["pages"]),
				PageRange:    asString(obj["pageRange"]),
				CharStart:    asInt(obj["charStart"]),
				CharEnd:      asInt(obj["charEnd"]),
				BookType:     asString(obj["bookType"]),
				Subject:      asString(obj["subject"]),
				Publisher:    asString(obj["publisher"]),
				Grade:        asString(obj["grade"]),
				BookFullName: asString(obj["bookFullName"]),
				ProductName:  asString(obj["productName"]),
			},
			CreatedAt: int64(asInt(obj["createdAt"])),
		}
		if custom := asString(obj["custom"]); custom != "" {
			var extra map[string]any
			if err := json.Unmarshal([]byte(custom), &extra); err == nil {
				chunk.Metadata.Extra = extra
			} else {
				chunk.Metadata.RawMetadata = custom
			}
		}
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			chunk.ID = asString(additional["id"])
			if distance, ok := additional["distance"].(float64); ok {
				chunk.Distance = float32(distance)
			}
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

func buildSearchFilter(filter SearchFilter) *filters.WhereBuilder {
	var whereFilter *filters.WhereBuilder

	addEqual := func(path, value string) {
		if value == "" {
			return
		}
		next := filters.Where().
			WithPath([]string{path}).
			WithOperator(filters.Equal).
			WithValueString(value)
		if whereFilter == nil {
			whereFilter = next
		} else {
			whereFilter = filters.Where().
				WithOperator(filters.And).
				WithOperands([]*filters.WhereBuilder{whereFilter, next})
		}
	}

	addEqual("subject", filter.Subject)
	addEqual("grade", filter.Grade)
	addEqual("fileHash", filter.FileHash)

	return whereFilter
}

// Helper functions
func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt(v interface{}) int {
	f, _ := v.(float64)
	return int(f)
}

func asIntSlice(v interface{}) []int {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	result := make([]int, 0, len(arr))
	for _, item := range arr {
		if f, ok := item.(float64); ok {
			result = append(result, int(f))
		}
	}
	return result
}
