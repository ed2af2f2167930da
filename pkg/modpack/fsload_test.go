package modpack

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestLoadCatalogDir(t *testing.T) {
	root := t.TempDir()
	corpusDir := filepath.Join(root, "data")
	modsDir := filepath.Join(root, "mods")

	writeFile(t, filepath.Join(corpusDir, "items.json"), `[
		{"type": "item", "id": "rock", "weight": "1 kg"},
		{"type": "item", "id": "stick"}
	]`)
	writeFile(t, filepath.Join(modsDir, "heavy", ManifestName), "id: heavy_rocks\ndependencies: [tools]\n")
	writeFile(t, filepath.Join(modsDir, "heavy", "override.json"), `[
		{"type": "item", "id": "rock", "copy-from": "rock", "relative": {"weight": 500}}
	]`)
	writeFile(t, filepath.Join(modsDir, "tools", ManifestName), "id: tools\n")
	writeFile(t, filepath.Join(modsDir, "tools", "tools.json"), `{"type": "item", "id": "hammer"}`)

	catalog, err := LoadCatalogDir(corpusDir, modsDir)
	if err != nil {
		t.Fatalf("LoadCatalogDir failed: %v", err)
	}

	st, prov, err := Load(catalog, []string{"heavy_rocks"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// The dependency came in even though only heavy_rocks was selected,
	// and its tools.json, a single bare object, decoded as one record.
	if _, err := st.ById("item", "hammer"); err != nil {
		t.Errorf("dependency mod's record missing: %v", err)
	}

	direct := prov.Direct("item", "rock")
	if len(direct) != 2 || direct[1] != "heavy_rocks" {
		t.Errorf("Expected rock touched by [core heavy_rocks], got %v", direct)
	}

	// Every element of the core array file is registered.
	if _, err := st.ById("item", "stick"); err != nil {
		t.Errorf("core record missing: %v", err)
	}
}

func TestLoadCatalogDir_NoModsDir(t *testing.T) {
	root := t.TempDir()
	corpusDir := filepath.Join(root, "data")
	writeFile(t, filepath.Join(corpusDir, "items.json"), `[{"type": "item", "id": "rock"}]`)

	catalog, err := LoadCatalogDir(corpusDir, "")
	if err != nil {
		t.Fatalf("LoadCatalogDir failed: %v", err)
	}
	st, _, err := Load(catalog, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := st.ById("item", "rock"); err != nil {
		t.Errorf("core record missing: %v", err)
	}
}

func TestLoadCatalogDir_SkipsManifestlessDirs(t *testing.T) {
	root := t.TempDir()
	corpusDir := filepath.Join(root, "data")
	modsDir := filepath.Join(root, "mods")
	writeFile(t, filepath.Join(corpusDir, "items.json"), `[]`)
	writeFile(t, filepath.Join(modsDir, "notamod", "readme.txt"), "not a mod")

	catalog, err := LoadCatalogDir(corpusDir, modsDir)
	if err != nil {
		t.Fatalf("LoadCatalogDir failed: %v", err)
	}
	if _, err := catalog.LoadOrder([]string{"notamod"}); err == nil {
		t.Error("manifestless directory should not register as a mod")
	}
}

func TestDecodeRecords_SkipsUntyped(t *testing.T) {
	records, err := decodeRecords([]byte(`[{"id": "no_type"}, {"type": "item", "id": "ok"}]`))
	if err != nil {
		t.Fatalf("decodeRecords failed: %v", err)
	}
	if len(records) != 1 || records[0].Fields["id"] != "ok" {
		t.Errorf("Expected only the typed record, got %v", records)
	}
}
