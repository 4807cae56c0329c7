package photobak_test

import (
	"testing"

	"photobak/internal/photobak"
)

func TestManifestBuilder_Finalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      photobak.Identity
		records []photobak.ManifestRecord
		want    string
	}{
		{
			name: "empty",
			id:   "42",
			want: "{\n  \"id\": 42,\n  \"photos\": []\n}",
		},
		{
			name: "ordered records",
			id:   "42",
			records: []photobak.ManifestRecord{
				{FileName: "3.jpg", Size: "w"},
				{FileName: "7.jpg", Size: "z"},
			},
			want: "{\n  \"id\": 42,\n  \"photos\": [\n    {\n      \"file_name\": \"3.jpg\",\n      \"size\": \"w\"\n    },\n    {\n      \"file_name\": \"7.jpg\",\n      \"size\": \"z\"\n    }\n  ]\n}",
		},
		{
			name:    "non-ascii kept as utf-8",
			id:      "u1",
			records: []photobak.ManifestRecord{{FileName: "фото<1>.jpg", Size: "y"}},
			want:    "{\n  \"id\": \"u1\",\n  \"photos\": [\n    {\n      \"file_name\": \"фото<1>.jpg\",\n      \"size\": \"y\"\n    }\n  ]\n}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := photobak.NewManifestBuilder(tt.id)
			for _, r := range tt.records {
				b.Record(r.FileName, r.Size)
			}
			if b.Len() != len(tt.records) {
				t.Errorf("Len() = %d, want %d", b.Len(), len(tt.records))
			}
			got, err := b.Finalize()
			if err != nil {
				t.Fatalf("Finalize() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Finalize() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestManifestBuilder_ManifestIsCopy(t *testing.T) {
	t.Parallel()

	b := photobak.NewManifestBuilder("1")
	b.Record("1.jpg", "w")
	m := b.Manifest()
	m.Photos[0].FileName = "changed"

	if got := b.Manifest().Photos[0].FileName; got != "1.jpg" {
		t.Errorf("builder record changed through copy: %q", got)
	}
}

func TestManifestName(t *testing.T) {
	t.Parallel()
	if got := photobak.ManifestName("552934290"); got != "552934290.json.txt" {
		t.Errorf("ManifestName() = %q", got)
	}
}
