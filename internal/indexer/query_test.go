package indexer

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestQuery(t *testing.T) {
	root := t.TempDir()
	writePNG(t, root, "a.png", baseTime.Add(5*time.Minute))
	writePNG(t, root, "grid_root.png", baseTime.Add(4*time.Minute))
	writePNG(t, root, "2024-01/b.png", baseTime.Add(3*time.Minute))
	writePNG(t, root, "2024-01/grid_c.png", baseTime.Add(2*time.Minute))
	writePNG(t, root, "2024-01/night/d.png", baseTime.Add(time.Minute))
	writeFile(t, root, "2024-02/e.jpg", encode(t, "jpeg"), baseTime)
	idx := scannedIndex(t, root)

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{
			name: "everything",
			opts: ListOptions{},
			want: []string{"a.png", "grid_root.png", "2024-01/b.png", "2024-01/grid_c.png", "2024-01/night/d.png", "2024-02/e.jpg"},
		},
		{
			name: "root only",
			opts: ListOptions{Dir: "."},
			want: []string{"a.png", "grid_root.png"},
		},
		{
			name: "one directory",
			opts: ListOptions{Dir: "2024-01"},
			want: []string{"2024-01/b.png", "2024-01/grid_c.png"},
		},
		{
			name: "directory subtree",
			opts: ListOptions{Dir: "2024-01/", Recursive: true},
			want: []string{"2024-01/b.png", "2024-01/grid_c.png", "2024-01/night/d.png"},
		},
		{
			name: "grids anywhere",
			opts: ListOptions{Category: CategoryGrid},
			want: []string{"grid_root.png", "2024-01/grid_c.png"},
		},
		{
			name: "glob",
			opts: ListOptions{Glob: "**/*.png", Dir: "2024-01", Recursive: true, Category: CategoryImage},
			want: []string{"2024-01/b.png", "2024-01/night/d.png"},
		},
		{
			name: "glob jpg",
			opts: ListOptions{Glob: "**/*.jpg"},
			want: []string{"2024-02/e.jpg"},
		},
		{
			name: "no match",
			opts: ListOptions{Dir: "missing"},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.Query(tt.opts)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if p := paths(got); !reflect.DeepEqual(p, tt.want) {
				t.Errorf("Query() = %v, want %v", p, tt.want)
			}
		})
	}
}

func TestQuery_InvalidOptions(t *testing.T) {
	idx := newTestIndex(t, t.TempDir())

	if _, err := idx.Query(ListOptions{Glob: "[unclosed"}); !errors.Is(err, ErrBadPattern) {
		t.Errorf("bad glob error = %v, want ErrBadPattern", err)
	}
	if _, err := idx.Query(ListOptions{Category: "images"}); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestNeighborsIn_Directory(t *testing.T) {
	root := t.TempDir()
	writePNG(t, root, "x/1.png", baseTime.Add(3*time.Minute))
	writePNG(t, root, "y/2.png", baseTime.Add(2*time.Minute))
	writePNG(t, root, "x/3.png", baseTime.Add(time.Minute))
	idx := scannedIndex(t, root)

	n, err := idx.NeighborsIn("x/1.png", ListOptions{Dir: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if n.Previous != nil || n.Next == nil || n.Next.RelativePath != "x/3.png" {
		t.Errorf("NeighborsIn() = %+v", n)
	}
}

func TestDirectories(t *testing.T) {
	root := t.TempDir()
	writePNG(t, root, "top.png", baseTime)
	writePNG(t, root, "b/one.png", baseTime)
	writePNG(t, root, "a/one.png", baseTime)
	writePNG(t, root, "a/two.png", baseTime)
	writePNG(t, root, "a/deep/three.png", baseTime)
	writeFile(t, root, "empty/readme.txt", []byte("x"), baseTime)
	idx := scannedIndex(t, root)

	got := idx.Directories("")
	want := []DirectoryEntry{
		{Name: "a", Path: "a", Count: 3},
		{Name: "b", Path: "b", Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Directories(\"\") = %+v, want %+v", got, want)
	}

	got = idx.Directories("a")
	want = []DirectoryEntry{{Name: "deep", Path: "a/deep", Count: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Directories(a) = %+v, want %+v", got, want)
	}

	if got := idx.Directories("b"); len(got) != 0 {
		t.Errorf("Directories(b) = %+v, want none", got)
	}
}
