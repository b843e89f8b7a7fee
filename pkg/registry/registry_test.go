package registry

import (
	"reflect"
	"sync"
	"testing"
)

type Website struct {
	WebsiteID string `po:"website_id,primaryKey"`
	Name      string `po:"name,notNull"`
}

func (Website) TableName() string { return "websites" }

type websiteWithDomains struct {
	WebsiteID string `po:"website_id,primaryKey"`
	Domains   []byte `po:"domains,aggregate"`
}

func (websiteWithDomains) TableName() string { return "websites" }

type Page struct {
	PageID int64 `po:"page_id,primaryKey,identity"`
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()

	t.Run("register new model", func(t *testing.T) {
		if err := registry.Register(Website{}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if !registry.Has(reflect.TypeOf(Website{})) {
			t.Error("expected model to be registered")
		}
	})

	t.Run("register duplicate model", func(t *testing.T) {
		if err := registry.Register(Website{}); err != nil {
			t.Errorf("Duplicate register failed: %v", err)
		}
	})

	t.Run("register pointer model", func(t *testing.T) {
		if err := registry.Register(&Page{}); err != nil {
			t.Fatalf("Register with pointer failed: %v", err)
		}
		if !registry.Has(reflect.TypeOf(Page{})) {
			t.Error("expected model to be registered")
		}
	})

	t.Run("register invalid type", func(t *testing.T) {
		if err := registry.Register("not a struct"); err == nil {
			t.Error("expected error for non-struct type")
		}
	})

	t.Run("read model on the same table", func(t *testing.T) {
		if err := registry.Register(websiteWithDomains{}); err != nil {
			t.Errorf("Register failed: %v", err)
		}
		table, err := registry.Get(reflect.TypeOf(websiteWithDomains{}))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if col := table.GetColumnByName("domains"); col == nil || !col.Aggregate {
			t.Errorf("expected aggregate column, got %+v", col)
		}
	})
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(Website{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	t.Run("get registered model", func(t *testing.T) {
		table, err := registry.Get(reflect.TypeOf(&Website{}))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if table.Name != "websites" {
			t.Errorf("expected table name 'websites', got '%s'", table.Name)
		}
	})

	t.Run("get unregistered model", func(t *testing.T) {
		if _, err := registry.Get(reflect.TypeOf(Page{})); err == nil {
			t.Error("expected error for unregistered model")
		}
	})

	t.Run("get by name", func(t *testing.T) {
		if _, err := registry.GetByName("websites"); err != nil {
			t.Errorf("GetByName failed: %v", err)
		}
		if _, err := registry.GetByName("nonexistent"); err == nil {
			t.Error("expected error for unknown table")
		}
	})
}

func TestRegistry_Names(t *testing.T) {
	registry := NewRegistry()
	_ = registry.Register(Website{})
	_ = registry.Register(Page{})

	names := registry.Names()
	if !reflect.DeepEqual(names, []string{"page", "websites"}) {
		t.Errorf("unexpected names %v", names)
	}
}

func TestRegistry_ConcurrentGetOrRegister(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := registry.GetOrRegister(Website{}); err != nil {
				t.Errorf("GetOrRegister failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(registry.Names()) != 1 {
		t.Errorf("expected exactly one table, got %v", registry.Names())
	}
}
