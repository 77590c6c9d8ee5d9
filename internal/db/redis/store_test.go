package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/evidex/internal/db"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewStore_NoAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error for missing addrs")
	}
}

// --- kv.go tests ---

func TestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisString("value")))

	s := NewStoreForTest(c)
	got, err := s.Get(context.Background(), "mykey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "value" {
		t.Errorf("unexpected value: %q", got)
	}
}

func TestGet_Missing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "missing")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "mykey", "v")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.Set(context.Background(), "mykey", []byte("v")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetWithTTL_BuildsExpiry(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return len(cmd) == 5 && cmd[0] == "SET" && cmd[3] == "EX" && cmd[4] == "60"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.SetWithTTL(context.Background(), "mykey", []byte("v"), 60*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- search.go tests ---

func TestSearchKNN_Validation(t *testing.T) {
	s := NewStoreForTest(nil)
	ctx := context.Background()

	if _, err := s.SearchKNN(ctx, &db.KNNQuery{Vector: []float32{1}, K: 3}); err == nil {
		t.Error("expected error for missing index name")
	}
	if _, err := s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", K: 3}); err == nil {
		t.Error("expected error for missing vector")
	}
	if _, err := s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", Vector: []float32{1}}); err == nil {
		t.Error("expected error for non-positive k")
	}
}

func TestSearchKNN_CommandShape(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			if cmd[0] != "FT.SEARCH" || cmd[1] != "evidex:docs:idx" {
				return false
			}
			if cmd[2] != "*=>[KNN 3 @vector $BLOB]" {
				return false
			}
			var hasLimit, hasParams, hasDialect bool
			for i, a := range cmd {
				switch a {
				case "LIMIT":
					hasLimit = i+2 < len(cmd) && cmd[i+1] == "0" && cmd[i+2] == "3"
				case "PARAMS":
					hasParams = i+2 < len(cmd) && cmd[i+1] == "2" && cmd[i+2] == "BLOB"
				case "DIALECT":
					hasDialect = i+1 < len(cmd) && cmd[i+1] == "2"
				}
			}
			return hasLimit && hasParams && hasDialect
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c)
	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "evidex:docs:idx",
		Vector:       []float32{0.1, 0.2},
		K:            3,
		ReturnFields: []string{"__content", "__vector_score"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 0 || len(res.Entries) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestSearchKNN_ParsesEntries(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("evidex:docs:chunk-1"),
			mock.RedisArray(
				mock.RedisString("__vector_score"), mock.RedisString("0.42"),
				mock.RedisString("__content"), mock.RedisString("pressure table"),
				mock.RedisString("source"), mock.RedisString("manual.pdf"),
			),
			mock.RedisString("evidex:docs:chunk-2"),
			mock.RedisArray(
				mock.RedisString("__vector_score"), mock.RedisString("0.58"),
				mock.RedisString("__content"), mock.RedisString("torque table"),
			),
		)))

	s := NewStoreForTest(c)
	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "evidex:docs:idx",
		Vector:    []float32{0.1},
		K:         2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 2 || len(res.Entries) != 2 {
		t.Fatalf("unexpected result shape: total=%d entries=%d", res.Total, len(res.Entries))
	}

	e := res.Entries[0]
	if e.Key != "evidex:docs:chunk-1" {
		t.Errorf("unexpected key: %q", e.Key)
	}
	if e.Score != 0.42 {
		t.Errorf("expected raw L2 score 0.42, got %v", e.Score)
	}
	if _, ok := e.Fields["__vector_score"]; ok {
		t.Error("score field must be stripped from Fields")
	}
	if e.Fields["source"] != "manual.pdf" {
		t.Errorf("unexpected fields: %v", e.Fields)
	}
}

func TestSearchKNN_IndexNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisError("No such index evidex:docs:idx")))

	s := NewStoreForTest(c)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "evidex:docs:idx",
		Vector:    []float32{0.1},
		K:         2,
	})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestVectorToBytes(t *testing.T) {
	got := vectorToBytes([]float32{1.5, -2.25})
	if len(got) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(got))
	}
	first := math.Float32frombits(binary.LittleEndian.Uint32([]byte(got[:4])))
	second := math.Float32frombits(binary.LittleEndian.Uint32([]byte(got[4:])))
	if first != 1.5 || second != -2.25 {
		t.Errorf("round-trip mismatch: %v, %v", first, second)
	}
}

func TestIsRedisErr_NonRedisError(t *testing.T) {
	// Transport-level errors are not protocol errors and must never be
	// mistaken for a missing index.
	if isRedisErr(errors.New("no such index"), "no such index") {
		t.Error("plain error matched as a redis protocol error")
	}
	if isRedisErr(nil, "no such index") {
		t.Error("nil error matched")
	}
}
