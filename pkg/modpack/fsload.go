package modpack

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// ManifestName is the per-mod manifest file each mod directory carries.
const ManifestName = "modinfo.yml"

// manifest is the on-disk mod manifest shape.
type manifest struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name,omitempty"`
	Dependencies []string `yaml:"dependencies,omitempty"`
}

// LoadCatalogDir builds a Catalog from disk: every JSON record file
// under corpusDir (recursively, lexical order) forms the core source,
// and each subdirectory of modsDir holding a modinfo.yml manifest
// becomes one mod source. modsDir may be empty when no mods are
// installed.
func LoadCatalogDir(corpusDir, modsDir string) (*Catalog, error) {
	coreRecords, err := loadRecordFiles(corpusDir)
	if err != nil {
		return nil, fmt.Errorf("modpack: loading core corpus: %w", err)
	}

	catalog := NewCatalog(Source{ID: CoreID, Records: coreRecords})
	if modsDir == "" {
		return catalog, nil
	}

	entries, err := os.ReadDir(modsDir)
	if err != nil {
		return nil, fmt.Errorf("modpack: reading mods dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		modDir := filepath.Join(modsDir, entry.Name())
		src, err := loadModDir(modDir)
		if err != nil {
			return nil, fmt.Errorf("modpack: loading mod %s: %w", entry.Name(), err)
		}
		if src != nil {
			catalog.AddMod(*src)
		}
	}

	return catalog, nil
}

// loadModDir reads one mod directory. A directory without a manifest is
// skipped silently — it is not a mod.
func loadModDir(dir string) (*Source, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("manifest has no id")
	}

	records, err := loadRecordFiles(dir)
	if err != nil {
		return nil, err
	}

	return &Source{ID: m.ID, Dependencies: m.Dependencies, Records: records}, nil
}

// loadRecordFiles walks dir for .json files in lexical order and
// decodes each as either an array of records or a single record.
// Within-file order is preserved, so a mod's own record order survives
// loading.
func loadRecordFiles(dir string) ([]RawRecord, error) {
	var out []RawRecord

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		records, err := decodeRecords(data)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		out = append(out, records...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func decodeRecords(data []byte) ([]RawRecord, error) {
	var objects []map[string]any
	if err := json.Unmarshal(data, &objects); err != nil {
		// A file may hold one bare object instead of an array.
		var single map[string]any
		if serr := json.Unmarshal(data, &single); serr != nil {
			return nil, err
		}
		objects = []map[string]any{single}
	}

	out := make([]RawRecord, 0, len(objects))
	for _, obj := range objects {
		rawType, _ := obj["type"].(string)
		if rawType == "" {
			continue
		}
		out = append(out, RawRecord{Type: rawType, Fields: obj})
	}
	return out, nil
}
