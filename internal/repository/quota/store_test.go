package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/knowbase/internal/db"
)

type mockKV struct {
	data    map[string][]byte
	ttls    map[string]time.Duration
	ttlNX   map[string]bool
	incrErr error
	expErr  error
	getErr  error
}

func newMockKV() *mockKV {
	return &mockKV{
		data:  make(map[string][]byte),
		ttls:  make(map[string]time.Duration),
		ttlNX: make(map[string]bool),
	}
}

func (m *mockKV) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return data, nil
}

func (m *mockKV) IncrBy(_ context.Context, key string, val int64) error {
	if m.incrErr != nil {
		return m.incrErr
	}
	current := int64(0)
	if data, ok := m.data[key]; ok {
		for _, b := range data {
			current = current*10 + int64(b-'0')
		}
	}
	current += val
	m.data[key] = []byte(itoa(current))
	return nil
}

func (m *mockKV) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	if m.expErr != nil {
		return m.expErr
	}
	m.ttls[key] = ttl
	m.ttlNX[key] = nx
	return nil
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	var digits []byte
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	return string(digits)
}

func TestIncrBy_SetsTTLByPeriod(t *testing.T) {
	kv := newMockKV()
	s := New(kv, 48*time.Hour, 62*24*time.Hour)

	daily := "knowbase:budget:openai:daily:2026-08-28"
	monthly := "knowbase:budget:openai:monthly:2026-08"

	if err := s.IncrBy(context.Background(), daily, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.IncrBy(context.Background(), monthly, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if kv.ttls[daily] != 48*time.Hour {
		t.Errorf("daily TTL = %v", kv.ttls[daily])
	}
	if kv.ttls[monthly] != 62*24*time.Hour {
		t.Errorf("monthly TTL = %v", kv.ttls[monthly])
	}
	if !kv.ttlNX[daily] || !kv.ttlNX[monthly] {
		t.Error("TTL must be set with NX so repeat increments keep the original expiry")
	}
}

func TestIncrBy_Accumulates(t *testing.T) {
	kv := newMockKV()
	s := New(kv, time.Hour, time.Hour)
	key := "knowbase:budget:openai:daily:2026-08-28"

	_ = s.IncrBy(context.Background(), key, 100)
	_ = s.IncrBy(context.Background(), key, 23)

	val, err := s.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 123 {
		t.Errorf("counter = %d, want 123", val)
	}
}

func TestIncrBy_StoreFailure(t *testing.T) {
	kv := newMockKV()
	kv.incrErr = errors.New("down")
	s := New(kv, time.Hour, time.Hour)

	if err := s.IncrBy(context.Background(), "k", 1); err == nil {
		t.Fatal("expected error")
	}
}

func TestGet_MissingKeyIsZero(t *testing.T) {
	s := New(newMockKV(), time.Hour, time.Hour)

	val, err := s.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 0 {
		t.Errorf("val = %d, want 0", val)
	}
}

func TestGet_MalformedValue(t *testing.T) {
	kv := newMockKV()
	kv.data["bad"] = []byte("not-a-number")
	s := New(kv, time.Hour, time.Hour)

	if _, err := s.Get(context.Background(), "bad"); err == nil {
		t.Fatal("expected parse error")
	}
}
