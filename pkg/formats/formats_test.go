package formats

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDetect(t *testing.T) {
	dir := t.TempDir()

	glbNoExt := filepath.Join(dir, "model.bin")
	if err := os.WriteFile(glbNoExt, []byte("glTF\x02\x00\x00\x00\x00\x00\x00\x00"), 0644); err != nil {
		t.Fatal(err)
	}
	textNoExt := filepath.Join(dir, "notes.dat")
	if err := os.WriteFile(textNoExt, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		want    Format
		wantErr error
	}{
		{"obj extension", "/assets/model.obj", FormatOBJ, nil},
		{"upper case extension", "/assets/MODEL.OBJ", FormatOBJ, nil},
		{"gltf extension", "scene.gltf", FormatGLTF, nil},
		{"glb extension", "scene.glb", FormatGLB, nil},
		{"glb by magic", glbNoExt, FormatGLB, nil},
		{"unknown content", textNoExt, FormatUnknown, ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Detect(%s) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestDetectMissingFile(t *testing.T) {
	if _, err := Detect(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file without extension")
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.obj"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestFormatString(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatOBJ, "obj"},
		{FormatGLTF, "gltf"},
		{FormatGLB, "glb"},
		{FormatUnknown, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.format.String(); got != tt.want {
			t.Errorf("Format(%d).String() = %s, want %s", tt.format, got, tt.want)
		}
	}
}
