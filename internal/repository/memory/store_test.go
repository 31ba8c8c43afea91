package memory

import (
	"context"
	"errors"
	"testing"
)

type item struct {
	Key  string
	Tags []string
}

func copyItem(i *item) *item {
	c := *i
	c.Tags = append([]string(nil), i.Tags...)
	return &c
}

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := New(func(i *item) string { return i.Key })

	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing: got %v", err)
	}
	_ = s.Set(ctx, &item{Key: "a"})
	if !s.Has(ctx, "a") || s.Len() != 1 {
		t.Fatal("expected key a")
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete missing: got %v", err)
	}
}

func TestStore_CopyingIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	s := NewCopying(func(i *item) string { return i.Key }, copyItem)

	in := &item{Key: "a", Tags: []string{"x"}}
	_ = s.Set(ctx, in)
	in.Tags[0] = "mutated-after-set"

	got, _ := s.Get(ctx, "a")
	if got.Tags[0] != "x" {
		t.Fatalf("stored value changed through caller alias: %v", got.Tags)
	}
	got.Tags[0] = "mutated-after-get"

	again, _ := s.Get(ctx, "a")
	if again.Tags[0] != "x" {
		t.Fatalf("stored value changed through Get alias: %v", again.Tags)
	}
}

func TestStore_FilterSortedByKey(t *testing.T) {
	ctx := context.Background()
	s := New(func(i *item) string { return i.Key })
	for _, k := range []string{"c", "a", "b", "d"} {
		_ = s.Set(ctx, &item{Key: k})
	}

	all, _ := s.All(ctx)
	var keys string
	for _, i := range all {
		keys += i.Key
	}
	if keys != "abcd" {
		t.Errorf("All order: got %q, want abcd", keys)
	}

	odd, _ := s.Filter(ctx, func(i *item) bool { return i.Key == "a" || i.Key == "c" })
	if len(odd) != 2 || odd[0].Key != "a" || odd[1].Key != "c" {
		t.Errorf("Filter: got %+v", odd)
	}
}
