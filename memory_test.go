package propstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func TestNewMemory(t *testing.T) {
	d := NewMemory()
	if d == nil {
		t.Fatal("NewMemory returned nil")
	}
	if d.data == nil {
		t.Error("NewMemory did not initialize data map")
	}
}

func TestMemoryDriver_LoadEmpty(t *testing.T) {
	d := NewMemory()
	entries, err := d.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Load on fresh driver = %v, want empty", entries)
	}
}

func TestMemoryDriver_SaveCopiesInput(t *testing.T) {
	d := NewMemory()
	ctx := context.Background()
	in := map[string]string{"NS1:a": "1"}

	if err := d.Save(ctx, in); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	in["NS1:a"] = "changed"

	got, _ := d.Load(ctx)
	if got["NS1:a"] != "1" {
		t.Errorf("Save kept a reference to its input: %v", got)
	}

	got["NS1:b"] = "2"
	again, _ := d.Load(ctx)
	if _, ok := again["NS1:b"]; ok {
		t.Error("Load returned the driver's internal map")
	}
}

func TestMemoryDriver_SaveReplaces(t *testing.T) {
	d := NewMemory()
	ctx := context.Background()
	_ = d.Save(ctx, map[string]string{"NS1:a": "1", "NS1:b": "2"})
	_ = d.Save(ctx, map[string]string{"NS2:c": "3"})

	got, _ := d.Load(ctx)
	want := map[string]string{"NS2:c": "3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load = %v, want %v", got, want)
	}

	_ = d.Save(ctx, nil)
	got, _ = d.Load(ctx)
	if got == nil || len(got) != 0 {
		t.Errorf("Save(nil) should leave an empty map, got %v", got)
	}
}

func TestMemoryDriver_CanceledContext(t *testing.T) {
	d := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Load error = %v, want context.Canceled", err)
	}
	if err := d.Save(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Save error = %v, want context.Canceled", err)
	}
}

func TestMemoryDriver_Concurrent(t *testing.T) {
	d := NewMemory()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = d.Save(ctx, map[string]string{"NS:k": "v"})
				_, _ = d.Load(ctx)
			}
		}()
	}
	wg.Wait()
}

func TestStore_MemoryDriverRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := NewMemory()

	s := New(WithDriver(d))
	v, _ := s.Claim("NS1")
	_ = v.SetInt("INT", 1322)
	_ = v.SetString("STRING", "hey")
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	fresh := New(WithDriver(d))
	if err := fresh.Load(ctx); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	fv, _ := fresh.Claim("NS1")
	if got := fv.GetString("STRING", ""); got != "hey" {
		t.Errorf("GetString = %q, want %q", got, "hey")
	}
}

func TestFileDriver_MissingFileLoadsEmpty(t *testing.T) {
	d := NewFileDriver(filepath.Join(t.TempDir(), "absent.xml"), DocumentOptions{})
	entries, err := d.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Load = %v, want empty", entries)
	}
}

func TestFileDriver_RoundTrip(t *testing.T) {
	for _, name := range []string{"props.xml", "props.yaml"} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "nested", name)
			d := NewFileDriver(path, DocumentOptions{Comment: "test"})

			s := New(WithDriver(d))
			ns1, _ := s.Claim("NS1")
			_ = ns1.SetInt("INT", 1322)
			_ = ns1.SetString("STRING", "hey")
			ns2, _ := s.Claim("NS2")
			_ = ns2.SetInt("eep", 1000)
			if err := s.Save(ctx); err != nil {
				t.Fatalf("Save returned error: %v", err)
			}

			raw, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("reading saved file: %v", err)
			}
			if !strings.Contains(string(raw), "NS2:eep") {
				t.Errorf("saved file lacks NS2:eep:\n%s", raw)
			}

			fresh := New(WithDriver(NewFileDriver(path, DocumentOptions{})))
			if err := fresh.Load(ctx); err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			f1, _ := fresh.Claim("NS1")
			f2, _ := fresh.Claim("NS2")
			if got := f1.GetInt("INT", -1); got != 1322 {
				t.Errorf("NS1 INT = %d, want 1322", got)
			}
			if got := f2.GetInt("INT", -1); got != -1 {
				t.Errorf("NS2 leaked NS1's INT: %d", got)
			}

			leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".*"))
			if len(leftovers) != 0 {
				t.Errorf("temporary files left behind: %v", leftovers)
			}
		})
	}
}

func TestFileDriver_ParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xml")
	if err := os.WriteFile(path, []byte("<properties><entry"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := New(WithDriver(NewFileDriver(path, DocumentOptions{})))

	err := s.Load(context.Background())
	var pe *PersistError
	if !errors.As(err, &pe) || pe.Op != "load" {
		t.Errorf("Load error = %v, want PersistError{load}", err)
	}
}
