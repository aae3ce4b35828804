package repository

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"cpu_throttle/internal/models"

	"github.com/spf13/afero"
)

func intp(v int) *int { return &v }

func TestProfileFiles_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := NewProfileFiles(fs, "/home/u/.config/cpu_throttle/profiles")

	in := models.Profile{Name: "balanced", SafeMin: intp(2000000), SafeMax: intp(3000000), TempMax: intp(90)}
	if err := r.Write(in.Name, FormatProfile(in)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	content, err := r.Read("balanced")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	got := ParseProfile("balanced", content)
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("round trip: got %+v, want %+v", got, in)
	}
}

func TestProfileFiles_ListReadFallbackDelete(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/profiles"
	r := NewProfileFiles(fs, dir)

	if names, err := r.List(); err != nil || len(names) != 0 {
		t.Fatalf("missing dir should list empty: %v %v", names, err)
	}

	_ = afero.WriteFile(fs, filepath.Join(dir, "quiet.config"), []byte("temp_max=80\n"), 0o644)
	_ = afero.WriteFile(fs, filepath.Join(dir, "demo"), []byte("hello world"), 0o644)
	_ = afero.WriteFile(fs, filepath.Join(dir, ".hidden"), []byte("x"), 0o644)

	names, err := r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"demo", "quiet"}) {
		t.Fatalf("names = %v", names)
	}

	content, err := r.Read("quiet")
	if err != nil || content != "temp_max=80\n" {
		t.Fatalf("fallback read: %q %v", content, err)
	}

	if err := r.Delete("quiet"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.Read("quiet"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := r.Delete("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParseProfile_IgnoresNoise(t *testing.T) {
	p := ParseProfile("x", "# comment\nsafe_min = 1200000\nbogus=1\ntemp_max=abc\n\n")
	if p.SafeMin == nil || *p.SafeMin != 1200000 {
		t.Fatalf("safe_min: %+v", p)
	}
	if p.SafeMax != nil || p.TempMax != nil {
		t.Fatalf("unexpected values: %+v", p)
	}
}

func TestValidateProfileName(t *testing.T) {
	for _, bad := range []string{"", "../etc/passwd", "a/b", "..", "x..y"} {
		if err := ValidateProfileName(bad); !errors.Is(err, ErrInvalidName) {
			t.Errorf("%q should be rejected", bad)
		}
	}
	if err := ValidateProfileName("gaming"); err != nil {
		t.Errorf("gaming rejected: %v", err)
	}
}

func TestSkinFiles_ListDedupesAndReadsManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/skins"
	_ = afero.WriteFile(fs, filepath.Join(root, "Neon", ManifestFile), []byte(`{"id":"neon","name":"Neon Glow","allow_extra_js":true}`), 0o644)
	_ = afero.WriteFile(fs, filepath.Join(root, "neon ", "index.html"), []byte("dup"), 0o644)
	_ = afero.WriteFile(fs, filepath.Join(root, "plain", "styles.css"), []byte("body{}"), 0o644)

	r := NewSkinFiles(fs, root)
	if err := r.SetActive("plain"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	skins, err := r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(skins) != 2 {
		t.Fatalf("want 2 skins, got %+v", skins)
	}
	if skins[0].ID != "Neon" || skins[0].Name != "Neon Glow" || !skins[0].AllowExtraJS || skins[0].Active {
		t.Fatalf("neon: %+v", skins[0])
	}
	if skins[1].ID != "plain" || skins[1].Name != "plain" || !skins[1].Active {
		t.Fatalf("plain: %+v", skins[1])
	}
}

func TestSkinFiles_RemoveClearsActive(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/skins"
	_ = afero.WriteFile(fs, filepath.Join(root, "retro", "css", "a.css"), []byte("x"), 0o644)
	_ = afero.WriteFile(fs, filepath.Join(root, "retro", ManifestFile), []byte(`{"id":"retro"}`), 0o644)

	r := NewSkinFiles(fs, root)
	_ = r.SetActive("retro")
	if err := r.Remove("retro"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if ok, _ := afero.DirExists(fs, filepath.Join(root, "retro")); ok {
		t.Fatalf("skin dir still present")
	}
	if r.Active() != "" {
		t.Fatalf("active marker not cleared: %q", r.Active())
	}
	if err := r.Remove("retro"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := r.Remove("../etc"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestRemoveTree_MissingPathIsNotAnError(t *testing.T) {
	if err := RemoveTree(afero.NewMemMapFs(), "/nowhere"); err != nil {
		t.Fatalf("RemoveTree: %v", err)
	}
}

func TestParseManifest(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Manifest
		err  bool
	}{
		{"json", `{"id":"w","name":"Widget","allow_extra_js":false}`, Manifest{ID: "w", Name: "Widget"}, false},
		{"trailing_comma", "{\n \"id\": \"w2\",\n \"allow_extra_js\": true,\n}", Manifest{ID: "w2", AllowExtraJS: true}, false},
		{"quoted_bool", `{"id":"w3","allow_extra_js":"true"}`, Manifest{ID: "w3", AllowExtraJS: true}, false},
		{"quoted_false", "{\"id\":\"w4\", \"allow_extra_js\": \"false\",}", Manifest{ID: "w4"}, false},
		{"empty_id", `{"name":"Only Name"}`, Manifest{Name: "Only Name"}, false},
		{"garbage", `not a manifest`, Manifest{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseManifest([]byte(tc.in))
			if (err != nil) != tc.err {
				t.Fatalf("err = %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestValidateSkinID(t *testing.T) {
	for _, bad := range []string{"", ".", "..", ".active", "a/b", "a b", "x..y"} {
		if err := ValidateSkinID(bad); err == nil {
			t.Errorf("%q should be rejected", bad)
		}
	}
	for _, ok := range []string{"widget", "Neon-2", "dark_mode.v1"} {
		if err := ValidateSkinID(ok); err != nil {
			t.Errorf("%q rejected: %v", ok, err)
		}
	}
}
