package netcommissioning

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestStoreCapacity(t *testing.T) {
	s := NewStore(4, AllFeatures)

	for i := 0; i < 4; i++ {
		idx, err := s.AddOrUpdateWiFi([]byte(fmt.Sprintf("net-%d", i)), []byte("secret123"))
		if err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		if int(idx) != i {
			t.Errorf("add %d landed in slot %d", i, idx)
		}
	}

	before := s.Snapshot()
	if _, err := s.AddOrUpdateWiFi([]byte("net-4"), []byte("secret123")); !errors.Is(err, ErrBoundsExceeded) {
		t.Fatalf("fifth add = %v, want ErrBoundsExceeded", err)
	}
	after := s.Snapshot()
	if len(before) != len(after) {
		t.Fatalf("table changed on full add: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if !bytes.Equal(before[i].NetworkID, after[i].NetworkID) {
			t.Errorf("slot %d changed on full add", i)
		}
	}
}

func TestStoreDuplicateIDsOccupySeparateSlots(t *testing.T) {
	s := NewStore(4, AllFeatures)

	i0, err := s.AddOrUpdateWiFi([]byte("home"), []byte("secret123"))
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	i1, err := s.AddOrUpdateWiFi([]byte("home"), []byte("secret123"))
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if i0 != 0 || i1 != 1 {
		t.Errorf("slots = %d,%d, want 0,1", i0, i1)
	}

	profiles := s.Profiles()
	if len(profiles) != 2 {
		t.Fatalf("Profiles() returned %d entries, want 2", len(profiles))
	}
	if !profiles[0].NetworkID.Equal(profiles[1].NetworkID.Bytes()) {
		t.Error("duplicate adds should yield equal network ids")
	}

	// Two more distinct adds fill the table.
	if _, err := s.AddOrUpdateWiFi([]byte("office"), []byte("pw")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddOrUpdateWiFi([]byte("garage"), []byte("pw")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddOrUpdateWiFi([]byte("attic"), []byte("pw")); !errors.Is(err, ErrBoundsExceeded) {
		t.Errorf("fifth add = %v, want ErrBoundsExceeded", err)
	}
}

func TestStoreSSIDBounds(t *testing.T) {
	s := NewStore(4, AllFeatures)

	if _, err := s.AddOrUpdateWiFi(bytes.Repeat([]byte("a"), 32), []byte("pw")); err != nil {
		t.Errorf("32-byte SSID: %v", err)
	}
	if _, err := s.AddOrUpdateWiFi(bytes.Repeat([]byte("b"), 33), []byte("pw")); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("33-byte SSID = %v, want ErrOutOfRange", err)
	}
	if _, err := s.AddOrUpdateWiFi([]byte("c"), bytes.Repeat([]byte("x"), 65)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("65-byte credentials = %v, want ErrOutOfRange", err)
	}
	if n := s.Len(); n != 1 {
		t.Errorf("Len() = %d, want 1 (rejected adds must not consume a slot)", n)
	}
}

func TestStoreFullTableReportsBoundsFirst(t *testing.T) {
	s := NewStore(1, AllFeatures)
	if _, err := s.AddOrUpdateWiFi([]byte("home"), []byte("pw")); err != nil {
		t.Fatalf("first add: %v", err)
	}

	if _, err := s.AddOrUpdateWiFi(bytes.Repeat([]byte("a"), 33), []byte("pw")); !errors.Is(err, ErrBoundsExceeded) {
		t.Errorf("full table + 33-byte SSID = %v, want ErrBoundsExceeded", err)
	}
	if _, err := s.AddOrUpdateThread([]byte{0xff}); !errors.Is(err, ErrBoundsExceeded) {
		t.Errorf("full table + bad dataset = %v, want ErrBoundsExceeded", err)
	}

	if _, err := s.Remove([]byte("home")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.AddOrUpdateWiFi(bytes.Repeat([]byte("a"), 33), []byte("pw")); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("free slot + 33-byte SSID = %v, want ErrOutOfRange", err)
	}
	if _, err := s.AddOrUpdateThread([]byte{0xff}); errors.Is(err, ErrBoundsExceeded) || err == nil {
		t.Errorf("free slot + bad dataset = %v, want a dataset error", err)
	}
	if n := s.Len(); n != 0 {
		t.Errorf("Len() = %d, want 0", n)
	}
}

func TestStoreThread(t *testing.T) {
	s := NewStore(4, AllFeatures)

	idx, err := s.AddOrUpdateThread(testDataset(t, testXPANID))
	if err != nil {
		t.Fatalf("AddOrUpdateThread: %v", err)
	}
	p, found, ok := s.FindByID(testXPANID[:])
	if !ok {
		t.Fatal("thread profile not found by extended pan id")
	}
	if found != idx || p.Type != NetworkTypeThread || p.Enabled {
		t.Errorf("profile = %+v at %d", p, found)
	}
	if p.NetworkID.Len() != ExtendedPANIDLength {
		t.Errorf("network id length = %d, want 8", p.NetworkID.Len())
	}

	if _, err := s.AddOrUpdateThread([]byte{0x02, 0x08, 0x01}); !errors.Is(err, ErrInvalidDataset) {
		t.Errorf("malformed dataset = %v, want ErrInvalidDataset", err)
	}
	if _, err := s.AddOrUpdateThread(make([]byte, MaxDatasetLength+1)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("oversize dataset = %v, want ErrOutOfRange", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestStoreFeatureSet(t *testing.T) {
	s := NewStore(4, FeatureThread)

	if _, err := s.AddOrUpdateWiFi([]byte("home"), []byte("pw")); !errors.Is(err, ErrUnsupportedNetworkType) {
		t.Errorf("wifi on thread-only store = %v, want ErrUnsupportedNetworkType", err)
	}
	if _, err := s.AddEthernet([]byte("eth0")); !errors.Is(err, ErrUnsupportedNetworkType) {
		t.Errorf("ethernet on thread-only store = %v, want ErrUnsupportedNetworkType", err)
	}
	if _, err := s.AddOrUpdateThread(testDataset(t, testXPANID)); err != nil {
		t.Errorf("thread on thread-only store: %v", err)
	}
}

func TestStoreFindByIDIgnoresEmptySlots(t *testing.T) {
	s := NewStore(2, AllFeatures)

	if _, _, ok := s.FindByID(nil); ok {
		t.Error("empty id matched an empty slot")
	}
	if _, err := s.AddOrUpdateWiFi([]byte("home"), []byte("pw")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Remove([]byte("home")); err != nil {
		t.Fatal(err)
	}
	if _, _, ok := s.FindByID([]byte("home")); ok {
		t.Error("removed profile still found")
	}
	if _, _, ok := s.FindByID([]byte("hom")); ok {
		t.Error("prefix matched")
	}
}

func TestStoreRemoveZeroesSlot(t *testing.T) {
	s := NewStore(2, AllFeatures)
	if _, err := s.AddOrUpdateWiFi([]byte("home"), []byte("secret123")); err != nil {
		t.Fatal(err)
	}

	pl := s.slots[0].profile.Payload.(WiFiPayload)
	ssid, creds := pl.SSID.b, pl.Credentials.b
	id := s.slots[0].profile.NetworkID.b

	idx, err := s.Remove([]byte("home"))
	if err != nil || idx != 0 {
		t.Fatalf("Remove() = %d, %v", idx, err)
	}
	for name, b := range map[string][]byte{"ssid": ssid, "credentials": creds, "network id": id} {
		if !bytes.Equal(b, make([]byte, len(b))) {
			t.Errorf("%s not zeroed: %q", name, b)
		}
	}
	if s.slots[0].profile.Type != NetworkTypeUndefined {
		t.Errorf("slot type = %v, want UNDEFINED", s.slots[0].profile.Type)
	}

	if _, err := s.Remove([]byte("home")); !errors.Is(err, ErrNetworkIDNotFound) {
		t.Errorf("second Remove() = %v, want ErrNetworkIDNotFound", err)
	}

	// Slot is reused first-fit.
	idx, err = s.AddEthernet([]byte("eth0"))
	if err != nil || idx != 0 {
		t.Errorf("AddEthernet() = %d, %v, want slot 0", idx, err)
	}
}

func TestStoreEnableDisable(t *testing.T) {
	s := NewStore(2, AllFeatures)
	idx, _ := s.AddOrUpdateWiFi([]byte("home"), []byte("pw"))

	_, _, gen, _ := s.lookup([]byte("home"))
	if err := s.markEnabled(idx, gen); err != nil {
		t.Fatalf("markEnabled: %v", err)
	}
	if p, _, _ := s.FindByID([]byte("home")); !p.Enabled {
		t.Error("profile not enabled")
	}

	if _, err := s.Disable([]byte("home")); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if p, _, _ := s.FindByID([]byte("home")); p.Enabled {
		t.Error("profile still enabled after Disable")
	}
}

func TestStoreMarkEnabledStaleGeneration(t *testing.T) {
	s := NewStore(1, AllFeatures)
	idx, _ := s.AddOrUpdateWiFi([]byte("home"), []byte("pw"))
	_, _, gen, _ := s.lookup([]byte("home"))

	// Slot is replaced while a connect would be in flight.
	s.Remove([]byte("home"))
	s.AddOrUpdateWiFi([]byte("home"), []byte("other"))

	if err := s.markEnabled(idx, gen); !errors.Is(err, ErrProfileChanged) {
		t.Errorf("markEnabled() = %v, want ErrProfileChanged", err)
	}
	if p, _, _ := s.FindByID([]byte("home")); p.Enabled {
		t.Error("replacement profile was enabled by a stale connect")
	}
}

func TestStoreOnChange(t *testing.T) {
	s := NewStore(2, AllFeatures)

	var mu sync.Mutex
	var kinds []ChangeKind
	s.OnChange(func(c Change) {
		// Callbacks run outside the lock, so reading the store is safe.
		_ = s.Len()
		mu.Lock()
		kinds = append(kinds, c.Kind)
		mu.Unlock()
	})

	idx, _ := s.AddOrUpdateWiFi([]byte("home"), []byte("pw"))
	_, _, gen, _ := s.lookup([]byte("home"))
	s.markEnabled(idx, gen)
	s.Disable([]byte("home"))
	s.Remove([]byte("home"))

	want := []ChangeKind{ChangeAdded, ChangeEnabled, ChangeDisabled, ChangeRemoved}
	if len(kinds) != len(want) {
		t.Fatalf("changes = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("change %d = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestStoreSnapshotRestore(t *testing.T) {
	src := NewStore(4, AllFeatures)
	src.AddOrUpdateWiFi([]byte("home"), []byte("secret123"))
	src.AddOrUpdateThread(testDataset(t, testXPANID))
	src.AddEthernet([]byte("eth0"))
	src.Remove([]byte("home"))

	records := src.Snapshot()
	if len(records) != 2 || records[0].Index != 1 || records[1].Index != 2 {
		t.Fatalf("Snapshot() = %+v", records)
	}

	dst := NewStore(4, AllFeatures)
	if err := dst.Restore(records); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if _, idx, ok := dst.FindByID(testXPANID[:]); !ok || idx != 1 {
		t.Errorf("thread profile at %d, %v, want slot 1", idx, ok)
	}
	if idx, _ := dst.AddOrUpdateWiFi([]byte("new"), nil); idx != 0 {
		t.Errorf("first-fit after restore used slot %d, want 0", idx)
	}
}

func TestStoreRestoreComesBackProvisioned(t *testing.T) {
	s := NewStore(2, AllFeatures)
	err := s.Restore([]Record{{
		Index: 0, Type: NetworkTypeWiFi, NetworkID: []byte("home"), Enabled: true,
		SSID: []byte("home"), Credentials: []byte("pw"),
	}})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	p, _, ok := s.FindByID([]byte("home"))
	if !ok || p.Enabled {
		t.Errorf("restored profile = %+v, %v, want Provisioned", p, ok)
	}
	if got := s.Profiles()[0].State(); got != "PROVISIONED" {
		t.Errorf("State() = %s, want PROVISIONED", got)
	}
}

func TestStoreRestoreRejectsInvalid(t *testing.T) {
	s := NewStore(2, AllFeatures)
	s.AddOrUpdateWiFi([]byte("keep"), []byte("pw"))

	tests := []struct {
		name    string
		records []Record
	}{
		{"index beyond capacity", []Record{{Index: 2, Type: NetworkTypeEthernet, NetworkID: []byte("e")}}},
		{"duplicate index", []Record{
			{Index: 0, Type: NetworkTypeEthernet, NetworkID: []byte("a")},
			{Index: 0, Type: NetworkTypeEthernet, NetworkID: []byte("b")},
		}},
		{"oversize credentials", []Record{{Index: 0, Type: NetworkTypeWiFi, NetworkID: []byte("x"), SSID: []byte("x"), Credentials: make([]byte, 65)}}},
		{"id mismatch", []Record{{Index: 0, Type: NetworkTypeWiFi, NetworkID: []byte("x"), SSID: []byte("y")}}},
		{"undefined type", []Record{{Index: 0, Type: NetworkTypeUndefined}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Restore(tt.records); !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("Restore() = %v, want ErrInvalidRecord", err)
			}
			if _, _, ok := s.FindByID([]byte("keep")); !ok {
				t.Error("failed restore modified the table")
			}
		})
	}
}

func TestStoreConcurrentAdds(t *testing.T) {
	s := NewStore(8, AllFeatures)

	var wg sync.WaitGroup
	results := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AddOrUpdateWiFi([]byte(fmt.Sprintf("n%d", i)), nil)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	ok, full := 0, 0
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrBoundsExceeded):
			full++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 8 || full != 8 {
		t.Errorf("ok=%d full=%d, want 8/8", ok, full)
	}
}
