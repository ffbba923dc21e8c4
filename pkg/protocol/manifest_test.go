package protocol

import (
	"testing"
)

// ---------------------------------------------------------------------------
// Loading tests
// ---------------------------------------------------------------------------

func TestSupportedVersions(t *testing.T) {
	versions, err := SupportedVersions()
	if err != nil {
		t.Fatalf("SupportedVersions() error: %v", err)
	}
	want := []int32{763, 764, 765, 766, 767, 769}
	if len(versions) != len(want) {
		t.Fatalf("SupportedVersions() = %v, want %v", versions, want)
	}
	for i := range want {
		if versions[i] != want[i] {
			t.Errorf("versions[%d] = %d, want %d", i, versions[i], want[i])
		}
	}
}

func TestLoadManifest_AllValid(t *testing.T) {
	versions, err := SupportedVersions()
	if err != nil {
		t.Fatalf("SupportedVersions() error: %v", err)
	}
	for _, v := range versions {
		m, err := LoadManifest(v)
		if err != nil {
			t.Errorf("LoadManifest(%d) error: %v", v, err)
			continue
		}
		if m.Release == "" {
			t.Errorf("manifest %d has no release", v)
		}
		if m.Entities.Shulker <= 0 {
			t.Errorf("manifest %d has no shulker type", v)
		}
	}
}

func TestLoadManifest_NotFound(t *testing.T) {
	if _, err := LoadManifest(47); err == nil {
		t.Fatal("LoadManifest(47) should return error")
	}
}

func TestLoadManifest_TextEncoding(t *testing.T) {
	tests := []struct {
		version int32
		want    TextEncoding
	}{
		{763, TextJSON},
		{764, TextJSON},
		{765, TextNBT},
		{769, TextNBT},
	}
	for _, tt := range tests {
		m, err := LoadManifest(tt.version)
		if err != nil {
			t.Fatalf("LoadManifest(%d) error: %v", tt.version, err)
		}
		if m.TextComponents != tt.want {
			t.Errorf("manifest %d text = %q, want %q", tt.version, m.TextComponents, tt.want)
		}
	}
}

func TestLoadManifest_SpawnPlayerOnlyOn763(t *testing.T) {
	m, err := LoadManifest(763)
	if err != nil {
		t.Fatalf("LoadManifest(763) error: %v", err)
	}
	if m.Packets.SpawnPlayer == 0 {
		t.Error("763 should declare spawn_player")
	}
	m, err = LoadManifest(764)
	if err != nil {
		t.Fatalf("LoadManifest(764) error: %v", err)
	}
	if m.Packets.SpawnPlayer != 0 {
		t.Errorf("764 spawn_player = 0x%02X, want absent", m.Packets.SpawnPlayer)
	}
}

// ---------------------------------------------------------------------------
// Validation tests
// ---------------------------------------------------------------------------

func validManifest() Manifest {
	return Manifest{
		Protocol:       767,
		Release:        "1.21",
		TextComponents: TextNBT,
		Packets: PacketIDs{
			AddEntity:      0x01,
			RemoveEntities: 0x42,
			SetEntityData:  0x58,
			SetPlayerTeam:  0x60,
		},
	}
}

func TestManifestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *Manifest)
		wantErr bool
	}{
		{"valid", func(m *Manifest) {}, false},
		{"missing protocol", func(m *Manifest) { m.Protocol = 0 }, true},
		{"unknown text", func(m *Manifest) { m.TextComponents = "xml" }, true},
		{"missing team packet", func(m *Manifest) { m.Packets.SetPlayerTeam = 0 }, true},
		{"duplicate id", func(m *Manifest) { m.Packets.SetPlayerTeam = m.Packets.SetEntityData }, true},
		{"spawn player collides", func(m *Manifest) { m.Packets.SpawnPlayer = m.Packets.AddEntity }, true},
		{"spawn player distinct", func(m *Manifest) { m.Packets.SpawnPlayer = 0x03 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validManifest()
			tt.mutate(&m)
			err := m.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
