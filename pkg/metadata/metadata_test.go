package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeArtifact(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "wdi_data.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestCalculateHash(t *testing.T) {
	got, err := CalculateHash(strings.NewReader("abc"))
	if err != nil {
		t.Fatal(err)
	}

	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("CalculateHash = %s, want %s", got, want)
	}
}

func TestSignVerify(t *testing.T) {
	path := writeArtifact(t, "year,temp_anomaly\n2020,1.02\n")

	meta, err := Sign(path, 1, "run-1")
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	read, err := Read(path)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}

	if read.Hash != meta.Hash || read.Rows != 1 || read.RunID != "run-1" || read.Version != Version {
		t.Errorf("Read = %+v, want %+v", read, meta)
	}

	if !read.LastModify.Equal(meta.LastModify) {
		t.Errorf("LastModify = %v, want %v", read.LastModify, meta.LastModify)
	}

	ok, err := Verify(path)
	if !ok || err != nil {
		t.Errorf("Verify = %v, %v; want true, nil", ok, err)
	}
}

func TestVerify_Errors(t *testing.T) {
	t.Run("No sidecar", func(t *testing.T) {
		path := writeArtifact(t, "x")
		if _, err := Verify(path); !errors.Is(err, ErrNoMetadataBlock) {
			t.Errorf("error = %v, want ErrNoMetadataBlock", err)
		}
	})

	t.Run("Modified artifact", func(t *testing.T) {
		path := writeArtifact(t, "x")
		if _, err := Sign(path, 0, ""); err != nil {
			t.Fatal(err)
		}

		if err := os.WriteFile(path, []byte("y"), 0644); err != nil {
			t.Fatal(err)
		}

		ok, err := Verify(path)
		if ok || !errors.Is(err, ErrHashMismatch) {
			t.Errorf("Verify = %v, %v; want false, ErrHashMismatch", ok, err)
		}
	})

	t.Run("Empty hash", func(t *testing.T) {
		path := writeArtifact(t, "x")
		if err := os.WriteFile(SidecarPath(path), []byte(TagStart+"\nVERSION: 1\n"+TagEnd+"\n"), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := Verify(path); !errors.Is(err, ErrNoHashFound) {
			t.Errorf("error = %v, want ErrNoHashFound", err)
		}
	})
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		want    Metadata
	}{
		{
			name:    "Full block",
			content: "METADATA_START\nVERSION: 1\nHASH: abc\nROWS: 12\nRUN_ID: r\nOTHER: ignored\nMETADATA_END\n",
			want:    Metadata{Version: "1", Hash: "abc", Rows: 12, RunID: "r"},
		},
		{
			name:    "Bad rows ignored",
			content: "METADATA_START\nHASH: abc\nROWS: many\nMETADATA_END",
			want:    Metadata{Hash: "abc"},
		},
		{name: "No block", content: "HASH: abc\n", wantErr: true},
		{name: "Reversed tags", content: "METADATA_END\nMETADATA_START\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				return
			}

			if *got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}
