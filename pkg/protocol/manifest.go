package protocol

import (
	"embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed manifests/*.yaml
var manifestFS embed.FS

// TextEncoding is how text components are serialized by a protocol version.
type TextEncoding string

const (
	// TextJSON encodes text components as JSON in a String field.
	TextJSON TextEncoding = "json"

	// TextNBT encodes text components as nameless network NBT.
	TextNBT TextEncoding = "nbt"
)

// Manifest describes the version-specific protocol surface the engine uses.
type Manifest struct {
	Protocol       int32          `yaml:"protocol"`
	Release        string         `yaml:"release"`
	TextComponents TextEncoding   `yaml:"text_components"`
	Packets        PacketIDs      `yaml:"packets"`
	Metadata       MetadataLayout `yaml:"metadata"`
	Entities       EntityTypes    `yaml:"entities"`
}

// PacketIDs lists the clientbound play packet IDs.
// ID 0 is the bundle delimiter in every supported version, so 0 means absent.
type PacketIDs struct {
	AddEntity      int32 `yaml:"add_entity"`
	SpawnPlayer    int32 `yaml:"spawn_player"`
	RemoveEntities int32 `yaml:"remove_entities"`
	SetEntityData  int32 `yaml:"set_entity_data"`
	SetPlayerTeam  int32 `yaml:"set_player_team"`
}

// MetadataLayout locates the shared-flags entry.
type MetadataLayout struct {
	FlagsIndex uint8 `yaml:"flags_index"`
	ByteType   int32 `yaml:"byte_type"`
}

// EntityTypes lists entity type IDs. Zero means the type is not declared.
type EntityTypes struct {
	Shulker int32 `yaml:"shulker"`
}

// Validate checks that every packet the engine needs is declared and that
// no two kinds share an ID.
func (m *Manifest) Validate() error {
	if m.Protocol <= 0 {
		return errors.New("missing protocol number")
	}
	switch m.TextComponents {
	case TextJSON, TextNBT:
	default:
		return fmt.Errorf("unknown text_components %q", m.TextComponents)
	}

	required := map[string]int32{
		"add_entity":      m.Packets.AddEntity,
		"remove_entities": m.Packets.RemoveEntities,
		"set_entity_data": m.Packets.SetEntityData,
		"set_player_team": m.Packets.SetPlayerTeam,
	}
	seen := make(map[int32]string)
	for _, name := range sortedKeys(required) {
		id := required[name]
		if id <= 0 {
			return fmt.Errorf("missing packet id for %s", name)
		}
		if other, dup := seen[id]; dup {
			return fmt.Errorf("packet id 0x%02X used by both %s and %s", id, other, name)
		}
		seen[id] = name
	}
	if id := m.Packets.SpawnPlayer; id > 0 {
		if other, dup := seen[id]; dup {
			return fmt.Errorf("packet id 0x%02X used by both %s and spawn_player", id, other)
		}
	}
	return nil
}

func sortedKeys(m map[string]int32) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadManifest reads and validates the embedded manifest for a protocol number.
func LoadManifest(version int32) (*Manifest, error) {
	data, err := manifestFS.ReadFile(fmt.Sprintf("manifests/%d.yaml", version))
	if err != nil {
		return nil, fmt.Errorf("no manifest for protocol %d: %w", version, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %d: %w", version, err)
	}
	if m.Protocol != version {
		return nil, fmt.Errorf("manifest %d declares protocol %d", version, m.Protocol)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %d: %w", version, err)
	}
	return &m, nil
}

// SupportedVersions returns the protocol numbers of all embedded manifests,
// in ascending order.
func SupportedVersions() ([]int32, error) {
	entries, err := manifestFS.ReadDir("manifests")
	if err != nil {
		return nil, fmt.Errorf("reading manifests directory: %w", err)
	}

	var versions []int32
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".yaml")
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(name, 10, 32)
		if err != nil {
			continue
		}
		versions = append(versions, int32(v))
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}
