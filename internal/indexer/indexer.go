// Package indexer creates the OpenSearch ASR/OCR indices and bulk-loads
// documents into them from the Postgres-backed metadata store, the
// native engine's one-time or incremental population path.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/mvkhanh/keyframesearch/internal/models"
	"github.com/mvkhanh/keyframesearch/pkg/logger"
	"github.com/mvkhanh/keyframesearch/pkg/opensearch"
)

// Service indexes keyframe OCR text and ASR captions into OpenSearch.
type Service struct {
	osClient *opensearch.Client
	asrIndex string
	ocrIndex string
}

// New creates an indexing Service targeting the given ASR/OCR indices.
func New(osClient *opensearch.Client, asrIndex, ocrIndex string) *Service {
	return &Service{osClient: osClient, asrIndex: asrIndex, ocrIndex: ocrIndex}
}

// OCRDocument is one on-screen-text document, keyed by the keyframe it
// was extracted from.
type OCRDocument struct {
	KeyframeKey uint64 `json:"keyframe_key"`
	Text        string `json:"text"`
}

// ASRDocument is one transcript segment, scoped to a (group, video) and
// a [start, end) time window within it.
type ASRDocument struct {
	GroupNum int     `json:"group_num"`
	VideoNum int     `json:"video_num"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Text     string  `json:"text"`
}

// InitializeIndices creates the ASR and OCR indices if they do not
// already exist.
func (s *Service) InitializeIndices(ctx context.Context) error {
	indices := map[string]string{
		s.ocrIndex: ocrIndexMapping,
		s.asrIndex: asrIndexMapping,
	}
	for name, mapping := range indices {
		if err := s.createIndexIfNotExists(ctx, name, mapping); err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
		logger.Info("opensearch index ready", map[string]interface{}{"index": name})
	}
	return nil
}

func (s *Service) createIndexIfNotExists(ctx context.Context, indexName, mapping string) error {
	existsReq := opensearchapi.IndicesExistsRequest{Index: []string{indexName}}
	res, err := existsReq.Do(ctx, s.osClient.GetClient())
	if err != nil {
		return fmt.Errorf("check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	createReq := opensearchapi.IndicesCreateRequest{Index: indexName, Body: strings.NewReader(mapping)}
	createRes, err := createReq.Do(ctx, s.osClient.GetClient())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		body, _ := io.ReadAll(createRes.Body)
		return fmt.Errorf("create index: %s - %s", createRes.Status(), string(body))
	}
	return nil
}

// BulkIndexOCR writes a batch of OCR documents, one per keyframe.
func (s *Service) BulkIndexOCR(ctx context.Context, docs []OCRDocument) error {
	if len(docs) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, doc := range docs {
		writeBulkPair(&buf, s.ocrIndex, fmt.Sprintf("%d", doc.KeyframeKey), doc)
	}
	return s.bulkRequest(ctx, &buf)
}

// BulkIndexASR writes a batch of ASR caption documents.
func (s *Service) BulkIndexASR(ctx context.Context, docs []ASRDocument) error {
	if len(docs) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for i, doc := range docs {
		docID := fmt.Sprintf("%d_%d_%d", doc.GroupNum, doc.VideoNum, i)
		writeBulkPair(&buf, s.asrIndex, docID, doc)
	}
	return s.bulkRequest(ctx, &buf)
}

func writeBulkPair(buf *bytes.Buffer, index, docID string, doc interface{}) {
	meta := map[string]interface{}{"index": map[string]interface{}{"_index": index, "_id": docID}}
	metaJSON, _ := json.Marshal(meta)
	buf.Write(metaJSON)
	buf.WriteByte('\n')

	docJSON, _ := json.Marshal(doc)
	buf.Write(docJSON)
	buf.WriteByte('\n')
}

func (s *Service) bulkRequest(ctx context.Context, body *bytes.Buffer) error {
	req := opensearchapi.BulkRequest{Body: body}
	res, err := req.Do(ctx, s.osClient.GetClient())
	if err != nil {
		return fmt.Errorf("bulk request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		return fmt.Errorf("bulk request error: %s - %s", res.Status(), string(bodyBytes))
	}

	var bulkRes map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&bulkRes); err != nil {
		return fmt.Errorf("parse bulk response: %w", err)
	}
	if hasErrors, ok := bulkRes["errors"].(bool); ok && hasErrors {
		logger.Warn("bulk indexing had item-level failures", nil)
	}
	return nil
}

const ocrIndexMapping = `{
  "settings": {"analysis": {"analyzer": {"default": {"type": "standard"}}}},
  "mappings": {
    "properties": {
      "keyframe_key": {"type": "long"},
      "text": {"type": "text"}
    }
  }
}`

const asrIndexMapping = `{
  "settings": {"analysis": {"analyzer": {"default": {"type": "standard"}}}},
  "mappings": {
    "properties": {
      "group_num": {"type": "integer"},
      "video_num": {"type": "integer"},
      "start": {"type": "double"},
      "end": {"type": "double"},
      "text": {"type": "text"}
    }
  }
}`

// ToOCRDocument converts a Keyframe's flattened OCR text into the
// index's document shape.
func ToOCRDocument(key uint64, text string) OCRDocument {
	return OCRDocument{KeyframeKey: key, Text: text}
}

// ToASRDocument converts a SpeechCaption into the index's document shape.
func ToASRDocument(c models.SpeechCaption) ASRDocument {
	return ASRDocument{GroupNum: c.GroupNum, VideoNum: c.VideoNum, Start: c.Start, End: c.End, Text: c.Text}
}
