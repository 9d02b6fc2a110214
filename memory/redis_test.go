package memory_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/petasbytes/code-whisperer/memory"
	"github.com/redis/go-redis/v9"
)

func newArchive(t *testing.T, ttl time.Duration) (*memory.RedisArchive, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return memory.NewRedisArchive(rdb, ttl), mr
}

func TestRedisArchive_RoundTrip(t *testing.T) {
	a, mr := newArchive(t, time.Hour)
	ctx := context.Background()
	in := sampleTranscript(t)

	if err := a.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !mr.Exists("transcript:" + in.SessionID) {
		t.Fatalf("expected key transcript:%s, have %v", in.SessionID, mr.Keys())
	}

	out, err := a.Load(ctx, in.SessionID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out == nil || !reflect.DeepEqual(*out, in) {
		t.Fatalf("mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestRedisArchive_MissingKey(t *testing.T) {
	a, _ := newArchive(t, time.Hour)

	out, err := a.Load(context.Background(), "no-such-session")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil transcript for missing key, got %#v", out)
	}
}

func TestRedisArchive_TTL(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
		want time.Duration
	}{
		{"explicit", time.Hour, time.Hour},
		{"default", 0, memory.DefaultArchiveTTL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, mr := newArchive(t, tt.ttl)
			if err := a.Save(context.Background(), memory.Transcript{SessionID: "s1"}); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if got := mr.TTL("transcript:s1"); got != tt.want {
				t.Fatalf("TTL = %v, want %v", got, tt.want)
			}

			mr.FastForward(tt.want + time.Second)
			out, err := a.Load(context.Background(), "s1")
			if err != nil || out != nil {
				t.Fatalf("expected expired transcript, got %v %v", out, err)
			}
		})
	}
}

func TestRedisArchive_CorruptValue(t *testing.T) {
	a, mr := newArchive(t, time.Hour)
	if err := mr.Set("transcript:bad", "{oops"); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Load(context.Background(), "bad"); err == nil {
		t.Fatal("expected unmarshal error")
	}
}
