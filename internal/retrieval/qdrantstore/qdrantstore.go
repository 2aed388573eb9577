// Package qdrantstore adapts Qdrant's gRPC API to the retrieval.VectorStore
// interface. The teacher repo declares github.com/qdrant/go-client as a
// dependency for its vector store integration; this adapter exercises it
// directly via the Points service.
package qdrantstore

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"ragcore/internal/ragtype"
)

// Store wraps a Qdrant gRPC connection scoped to one collection.
type Store struct {
	conn       *grpc.ClientConn
	points     pb.PointsClient
	collection string
}

// New dials addr (host:port) and binds to collection.
func New(addr, collection string) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrantstore: dial %s: %w", addr, err)
	}
	return &Store{
		conn:       conn,
		points:     pb.NewPointsClient(conn),
		collection: collection,
	}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.conn.Close() }

// Search implements retrieval.VectorStore. Results are filtered to the given
// tenant via a payload match on "tenant_id".
func (s *Store) Search(ctx context.Context, embedding []float32, tenantID string, topK int) ([]ragtype.Chunk, error) {
	limit := uint64(topK)
	withPayload := &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}}

	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          limit,
		WithPayload:    withPayload,
		Filter: &pb.Filter{
			Must: []*pb.Condition{
				{
					ConditionOneOf: &pb.Condition_Field{
						Field: &pb.FieldCondition{
							Key:   "tenant_id",
							Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: tenantID}},
						},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrantstore: search: %w", err)
	}

	chunks := make([]ragtype.Chunk, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		chunks = append(chunks, pointToChunk(point, tenantID))
	}
	return chunks, nil
}

func pointToChunk(point *pb.ScoredPoint, tenantID string) ragtype.Chunk {
	payload := point.GetPayload()

	c := ragtype.Chunk{
		VectorID: pointIDToString(point.GetId()),
		Score:    float64(point.GetScore()),
		TenantID: tenantID,
	}
	if v, ok := payload["doc_id"]; ok {
		c.DocID = v.GetStringValue()
	}
	if v, ok := payload["chunk_id"]; ok {
		c.ChunkID = v.GetStringValue()
	}
	if v, ok := payload["user_id"]; ok {
		c.UserID = v.GetStringValue()
	}
	if v, ok := payload["text"]; ok {
		c.Text = v.GetStringValue()
	}
	return c
}

func pointIDToString(id *pb.PointId) string {
	if id == nil {
		return ""
	}
	switch v := id.GetPointIdOptions().(type) {
	case *pb.PointId_Uuid:
		return v.Uuid
	case *pb.PointId_Num:
		return fmt.Sprintf("%d", v.Num)
	default:
		return ""
	}
}
