package qdrantstore

// Store.Search talks to a live Qdrant instance over gRPC and has no fake
// transport available without a running server, so coverage here is scoped
// to the pure point-to-chunk translation helpers.

import (
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
)

func TestPointToChunk_MapsPayloadFieldsAndScore(t *testing.T) {
	point := &pb.ScoredPoint{
		Id:    &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: "abc-123"}},
		Score: 0.87,
		Payload: map[string]*pb.Value{
			"doc_id":   {Kind: &pb.Value_StringValue{StringValue: "doc-1"}},
			"chunk_id": {Kind: &pb.Value_StringValue{StringValue: "chunk-1"}},
			"user_id":  {Kind: &pb.Value_StringValue{StringValue: "user-1"}},
			"text":     {Kind: &pb.Value_StringValue{StringValue: "some chunk text"}},
		},
	}

	c := pointToChunk(point, "tenant-1")
	assert.Equal(t, "abc-123", c.VectorID)
	assert.InDelta(t, 0.87, c.Score, 1e-9)
	assert.Equal(t, "tenant-1", c.TenantID)
	assert.Equal(t, "doc-1", c.DocID)
	assert.Equal(t, "chunk-1", c.ChunkID)
	assert.Equal(t, "user-1", c.UserID)
	assert.Equal(t, "some chunk text", c.Text)
}

func TestPointToChunk_MissingPayloadFieldsLeaveZeroValues(t *testing.T) {
	point := &pb.ScoredPoint{
		Id:    &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: 42}},
		Score: 0.1,
	}

	c := pointToChunk(point, "tenant-2")
	assert.Equal(t, "42", c.VectorID)
	assert.Empty(t, c.DocID)
	assert.Empty(t, c.Text)
}

func TestPointIDToString_HandlesUUIDNumAndNil(t *testing.T) {
	assert.Equal(t, "u1", pointIDToString(&pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: "u1"}}))
	assert.Equal(t, "7", pointIDToString(&pb.PointId{PointIdOptions: &pb.PointId_Num{Num: 7}}))
	assert.Equal(t, "", pointIDToString(nil))
}
