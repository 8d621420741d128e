package persistence

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mash-protocol/netcomm-go/pkg/netcommissioning"
)

var testSecret = []byte("0123456789abcdef-device-secret")

func testSealer(t *testing.T) *Sealer {
	t.Helper()
	s, err := NewSealer(testSecret, []byte("device-1"))
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}
	return s
}

func testRecords(t *testing.T) []netcommissioning.Record {
	t.Helper()
	xpanid := [netcommissioning.ExtendedPANIDLength]byte{0xde, 0xad, 0x00, 0xbe, 0xef, 0x00, 0xca, 0xfe}
	ds, err := (&netcommissioning.DatasetBuilder{}).
		Channel(15).
		PANID(0x1234).
		ExtendedPANID(xpanid).
		NetworkName("OpenThread").
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return []netcommissioning.Record{
		{
			Index:       0,
			Type:        netcommissioning.NetworkTypeWiFi,
			NetworkID:   []byte("home"),
			Enabled:     true,
			SSID:        []byte("home"),
			Credentials: []byte("hunter22"),
		},
		{
			Index:     2,
			Type:      netcommissioning.NetworkTypeThread,
			NetworkID: xpanid[:],
			Dataset:   ds,
		},
	}
}

func equalRecords(t *testing.T, got, want []netcommissioning.Record) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.Index != w.Index || g.Type != w.Type || g.Enabled != w.Enabled {
			t.Errorf("record %d = %+v, want %+v", i, g, w)
		}
		for _, f := range []struct {
			name string
			g, w []byte
		}{
			{"NetworkID", g.NetworkID, w.NetworkID},
			{"SSID", g.SSID, w.SSID},
			{"Credentials", g.Credentials, w.Credentials},
			{"Dataset", g.Dataset, w.Dataset},
		} {
			if !bytes.Equal(f.g, f.w) {
				t.Errorf("record %d %s = %x, want %x", i, f.name, f.g, f.w)
			}
		}
	}
}

func TestSealer(t *testing.T) {
	t.Run("WeakSecret", func(t *testing.T) {
		if _, err := NewSealer([]byte("short"), nil); !errors.Is(err, ErrWeakSecret) {
			t.Errorf("NewSealer() error = %v, want ErrWeakSecret", err)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		s := testSealer(t)
		sealed, err := s.Seal([]byte("hunter22"), []byte("aad"))
		if err != nil {
			t.Fatalf("Seal() error = %v", err)
		}
		if bytes.Contains(sealed, []byte("hunter22")) {
			t.Error("sealed value contains plaintext")
		}
		got, err := s.Open(sealed, []byte("aad"))
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if string(got) != "hunter22" {
			t.Errorf("Open() = %q, want hunter22", got)
		}
	})

	t.Run("WrongAAD", func(t *testing.T) {
		s := testSealer(t)
		sealed, _ := s.Seal([]byte("hunter22"), []byte("slot0"))
		if _, err := s.Open(sealed, []byte("slot1")); !errors.Is(err, ErrUnseal) {
			t.Errorf("Open() error = %v, want ErrUnseal", err)
		}
	})

	t.Run("WrongKey", func(t *testing.T) {
		sealed, _ := testSealer(t).Seal([]byte("hunter22"), nil)
		other, err := NewSealer(testSecret, []byte("device-2"))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := other.Open(sealed, nil); !errors.Is(err, ErrUnseal) {
			t.Errorf("Open() error = %v, want ErrUnseal", err)
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		if _, err := testSealer(t).Open([]byte{1, 2, 3}, nil); !errors.Is(err, ErrUnseal) {
			t.Errorf("Open() error = %v, want ErrUnseal", err)
		}
	})

	t.Run("EmptyStaysEmpty", func(t *testing.T) {
		sealed, err := testSealer(t).Seal(nil, nil)
		if err != nil || sealed != nil {
			t.Errorf("Seal(nil) = %x, %v, want nil, nil", sealed, err)
		}
	})
}

func TestFileStore(t *testing.T) {
	t.Run("LoadNonExistent", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "nonexistent.json"), nil)
		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got != nil {
			t.Errorf("Load() = %v, want nil for non-existent file", got)
		}
	})

	t.Run("SaveAndLoadSealed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sub", "state.json")
		store := NewFileStore(path, testSealer(t))
		want := testRecords(t)

		if err := store.Save(want); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if bytes.Contains(raw, []byte("hunter22")) || strings.Contains(string(raw), "aHVudGVyMjI") {
			t.Error("state file contains clear-text credentials")
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("file mode = %o, want 600", perm)
		}

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		equalRecords(t, got, want)
	})

	t.Run("SealedWithoutSealer", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		if err := NewFileStore(path, testSealer(t)).Save(testRecords(t)); err != nil {
			t.Fatal(err)
		}
		if _, err := NewFileStore(path, nil).Load(); err == nil {
			t.Error("Load() without sealer succeeded on sealed file")
		}
	})

	t.Run("Plaintext", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "state.json"), nil)
		want := testRecords(t)
		if err := store.Save(want); err != nil {
			t.Fatal(err)
		}
		got, err := store.Load()
		if err != nil {
			t.Fatal(err)
		}
		equalRecords(t, got, want)
	})

	t.Run("VersionMismatch", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		if err := os.WriteFile(path, []byte(`{"version": 99}`), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := NewFileStore(path, nil).Load(); err == nil {
			t.Error("Load() accepted unknown version")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		store := NewFileStore(path, nil)
		if err := store.Save(testRecords(t)); err != nil {
			t.Fatal(err)
		}
		if err := store.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("state file still exists after Clear()")
		}
		if err := store.Clear(); err != nil {
			t.Errorf("second Clear() error = %v", err)
		}
	})
}

func TestBoltStore(t *testing.T) {
	open := func(t *testing.T, path string) *BoltStore {
		t.Helper()
		s, err := NewBoltStore(path, testSealer(t))
		if err != nil {
			t.Fatalf("NewBoltStore() error = %v", err)
		}
		return s
	}

	t.Run("EmptyLoad", func(t *testing.T) {
		s := open(t, filepath.Join(t.TempDir(), "net.db"))
		defer s.Close()
		got, err := s.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got != nil {
			t.Errorf("Load() = %v, want nil", got)
		}
	})

	t.Run("SurvivesReopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "net.db")
		want := testRecords(t)

		s := open(t, path)
		if err := s.Save(want); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		s.Close()

		s = open(t, path)
		defer s.Close()
		got, err := s.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		equalRecords(t, got, want)
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		s := open(t, filepath.Join(t.TempDir(), "net.db"))
		defer s.Close()
		records := testRecords(t)
		if err := s.Save(records); err != nil {
			t.Fatal(err)
		}
		if err := s.Save(records[:1]); err != nil {
			t.Fatal(err)
		}
		got, err := s.Load()
		if err != nil {
			t.Fatal(err)
		}
		equalRecords(t, got, records[:1])
	})

	t.Run("Clear", func(t *testing.T) {
		s := open(t, filepath.Join(t.TempDir(), "net.db"))
		defer s.Close()
		if err := s.Save(testRecords(t)); err != nil {
			t.Fatal(err)
		}
		if err := s.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		got, err := s.Load()
		if err != nil || got != nil {
			t.Errorf("Load() after Clear = %v, %v, want nil, nil", got, err)
		}
	})
}

func TestAttach(t *testing.T) {
	t.Run("RestoresAndPersists", func(t *testing.T) {
		backend := NewFileStore(filepath.Join(t.TempDir(), "state.json"), testSealer(t))
		if err := backend.Save(testRecords(t)); err != nil {
			t.Fatal(err)
		}

		store := netcommissioning.NewStore(4, netcommissioning.AllFeatures)
		syncer, err := Attach(store, backend, nil)
		if err != nil {
			t.Fatalf("Attach() error = %v", err)
		}
		if store.Len() != 2 {
			t.Fatalf("Len() = %d, want 2", store.Len())
		}
		if _, idx, ok := store.FindByID([]byte("home")); !ok || idx != 0 {
			t.Errorf("FindByID(home) = %d, %v, want 0, true", idx, ok)
		}
		if p, _, _ := store.FindByID([]byte("home")); p.Enabled {
			t.Error("restored profile is enabled before it was reconnected")
		}
		if c := syncer.Connected(); len(c) != 1 || !bytes.Equal(c[0], []byte("home")) {
			t.Errorf("Connected() = %q, want [home]", c)
		}

		idx, err := store.AddOrUpdateWiFi([]byte("office"), []byte("letmein1"))
		if err != nil {
			t.Fatal(err)
		}
		if idx != 1 {
			t.Errorf("AddOrUpdateWiFi() index = %d, want 1", idx)
		}
		if err := syncer.Err(); err != nil {
			t.Fatalf("Err() = %v", err)
		}

		got, err := backend.Load()
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 3 {
			t.Fatalf("persisted %d records, want 3", len(got))
		}
		if !bytes.Equal(got[1].Credentials, []byte("letmein1")) {
			t.Errorf("persisted credentials = %q, want letmein1", got[1].Credentials)
		}

		if _, err := store.Remove([]byte("home")); err != nil {
			t.Fatal(err)
		}
		got, _ = backend.Load()
		if len(got) != 2 {
			t.Errorf("persisted %d records after remove, want 2", len(got))
		}
	})

	t.Run("BadRecordLeavesStoreEmpty", func(t *testing.T) {
		backend := NewFileStore(filepath.Join(t.TempDir(), "state.json"), nil)
		records := testRecords(t)
		records[0].Index = 9
		if err := backend.Save(records); err != nil {
			t.Fatal(err)
		}

		store := netcommissioning.NewStore(4, netcommissioning.AllFeatures)
		_, err := Attach(store, backend, nil)
		if !errors.Is(err, netcommissioning.ErrInvalidRecord) {
			t.Errorf("Attach() error = %v, want ErrInvalidRecord", err)
		}
		if store.Len() != 0 {
			t.Errorf("Len() = %d, want 0", store.Len())
		}
	})
}
