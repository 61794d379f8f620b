package inspect

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"labelconv/indexed"
	"labelconv/store"

	"github.com/google/go-cmp/cmp"
)

func writeBitmap(t *testing.T, dir, name string, w, h, depth int) {
	t.Helper()
	src := indexed.NewPixelBuffer(w, h)
	for x := range w {
		src.Set(x, 0, indexed.RGB{R: uint8(x)})
	}
	img, err := indexed.Encode(src, depth, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), img.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSortList(t *testing.T) {
	dir := t.TempDir()
	writeBitmap(t, dir, "a.bmp", 3, 2, 1)
	writeBitmap(t, dir, "b.BMP", 5, 5, 4)
	writeBitmap(t, dir, "c.bmp", 9, 1, 8)
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatal(err)
	}

	stats, err := Sort(ScanParams{Scan: dir}, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	want := Stats{Depths: map[int]int{1: 1, 4: 1, 8: 1}}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}
	if stats.Total() != 3 {
		t.Errorf("total = %d", stats.Total())
	}
}

func TestSortCopyAndMove(t *testing.T) {
	dir := t.TempDir()
	writeBitmap(t, dir, "one.bmp", 2, 2, 1)
	writeBitmap(t, dir, "eight.bmp", 2, 2, 8)
	dest := filepath.Join(dir, "sorted")

	if _, err := Sort(ScanParams{Scan: dir}, dest, copyFile); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"1bpp/one.bmp", "8bpp/eight.bmp"} {
		if _, err := os.Stat(filepath.Join(dest, p)); err != nil {
			t.Errorf("%s: %v", p, err)
		}
	}

	stats, err := Sort(ScanParams{Scan: dir}, dest, copyFile)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Errors != 2 {
		t.Errorf("copy over existing files: %d errors, want 2", stats.Errors)
	}

	other := filepath.Join(dir, "moved")
	if _, err := Sort(ScanParams{Scan: dir}, other, moveFile); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "one.bmp")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("source still present after move: %v", err)
	}
}

func TestSortBadHeaders(t *testing.T) {
	dir := t.TempDir()
	writeBitmap(t, dir, "good.bmp", 4, 4, 4)
	if err := os.WriteFile(filepath.Join(dir, "short.bmp"), []byte("BM"), 0o644); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "good.bmp"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "cut.bmp"), data[:len(data)-1], 0o644); err != nil {
		t.Fatal(err)
	}

	stats, err := Sort(ScanParams{Scan: dir}, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Errors != 2 || stats.Total() != 1 {
		t.Errorf("stats = %+v", stats)
	}

	if _, err := Sort(ScanParams{Scan: filepath.Join(dir, "missing")}, "", nil); err == nil {
		t.Error("missing folder accepted")
	}
}

func TestSortRecursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "labels")
	dest := filepath.Join(dir, "sorted")
	for _, d := range []string{sub, filepath.Join(dest, "4bpp")} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeBitmap(t, dir, "top.bmp", 2, 2, 1)
	writeBitmap(t, sub, "nested.bmp", 2, 2, 4)
	writeBitmap(t, filepath.Join(dest, "4bpp"), "old.bmp", 2, 2, 4)

	flat, err := Sort(ScanParams{Scan: dir}, dest, nil)
	if err != nil {
		t.Fatal(err)
	}
	if flat.Total() != 1 {
		t.Errorf("top folder only: %d bitmaps", flat.Total())
	}

	deep, err := Sort(ScanParams{Scan: dir, Recursive: true}, dest, copyFile)
	if err != nil {
		t.Fatal(err)
	}
	want := Stats{Depths: map[int]int{1: 1, 4: 1}}
	if diff := cmp.Diff(want, deep); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(dest, "4bpp", "nested.bmp")); err != nil {
		t.Error(err)
	}
}

func TestMoveFileRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	src, dest := filepath.Join(dir, "a.bmp"), filepath.Join(dir, "b.bmp")
	for _, p := range []string{src, dest} {
		if err := os.WriteFile(p, []byte(p), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := moveFile(src, dest); !errors.Is(err, store.ErrExists) {
		t.Errorf("moveFile: err = %v, want ErrExists", err)
	}
	if err := copyFile(src, dest); !errors.Is(err, store.ErrExists) {
		t.Errorf("copyFile: err = %v, want ErrExists", err)
	}
	if got, _ := os.ReadFile(dest); string(got) != dest {
		t.Errorf("destination overwritten: %q", got)
	}
	if err := copyFile(filepath.Join(dir, "missing.bmp"), filepath.Join(dir, "c.bmp")); err == nil {
		t.Error("missing source accepted")
	}
}
