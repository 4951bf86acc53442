package uploads

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newTestCoordinator(t *testing.T) (*Coordinator, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	c, err := NewCoordinator(store, Config{
		Bucket:        "media",
		Root:          "stories",
		PublicBaseURL: "https://cdn.example.com/storage/v1/object/public",
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	return c, store
}

func file(name, contentType string, size int64) File {
	return File{Name: name, ContentType: contentType, Size: size, Body: bytes.NewReader(make([]byte, size))}
}

// declared reports size without carrying the bytes; limits are checked
// before the body is read.
func declared(name, contentType string, size int64) File {
	return File{Name: name, ContentType: contentType, Size: size, Body: strings.NewReader("")}
}

func TestUploadCoverImage(t *testing.T) {
	c, store := newTestCoordinator(t)
	url, err := c.Upload(context.Background(), file("cover.png", "image/png", MiB), RoleCoverImage)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.Contains(url, "/stories/covers/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("url=%s", url)
	}
	if !strings.HasPrefix(url, "https://cdn.example.com/storage/v1/object/public/media/") {
		t.Fatalf("url=%s not under the public base", url)
	}
	paths := store.Paths()
	if len(paths) != 1 || !strings.HasPrefix(paths[0], "stories/covers/") {
		t.Fatalf("paths=%v", paths)
	}
	obj, _ := store.Get(paths[0])
	if obj.ContentType != "image/png" || len(obj.Data) != MiB {
		t.Fatalf("stored %s with %d bytes", obj.ContentType, len(obj.Data))
	}
}

func TestUploadRejectsLargeImage(t *testing.T) {
	c, store := newTestCoordinator(t)
	_, err := c.Upload(context.Background(), declared("big.png", "image/png", 11*MiB), RoleCoverImage)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("err=%v want ErrFileTooLarge", err)
	}
	if len(store.Paths()) != 0 {
		t.Fatalf("rejected upload was stored")
	}
}

func TestUploadRejectsWrongType(t *testing.T) {
	c, _ := newTestCoordinator(t)
	_, err := c.Upload(context.Background(), file("clip.mp4", "video/mp4", MiB), RoleBannerImage)
	if !errors.Is(err, ErrInvalidFileType) {
		t.Fatalf("err=%v want ErrInvalidFileType", err)
	}
	_, err = c.Upload(context.Background(), file("tile.png", "image/png", MiB), RoleAudio)
	if !errors.Is(err, ErrInvalidFileType) {
		t.Fatalf("image as audio err=%v want ErrInvalidFileType", err)
	}
}

func TestUploadAudioLimits(t *testing.T) {
	c, _ := newTestCoordinator(t)
	url, err := c.Upload(context.Background(), file("ep1.mp3", "audio/mpeg", 20*MiB), RoleAudio)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.Contains(url, "/stories/audio/") || !strings.HasSuffix(url, ".mp3") {
		t.Fatalf("url=%s", url)
	}
	_, err = c.Upload(context.Background(), declared("long.mp3", "audio/mpeg", 101*MiB), RoleAudio)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("err=%v want ErrFileTooLarge", err)
	}
}

func TestUploadSniffsUndeclaredType(t *testing.T) {
	c, store := newTestCoordinator(t)
	body := append(append([]byte{}, pngHeader...), make([]byte, 4096)...)
	f := File{Name: "slide", Size: int64(len(body)), Body: bytes.NewReader(body)}
	url, err := c.Upload(context.Background(), f, RoleSlideImage)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.Contains(url, "/stories/slides/") {
		t.Fatalf("url=%s", url)
	}
	obj, _ := store.Get(store.Paths()[0])
	if obj.ContentType != "image/png" {
		t.Fatalf("content type=%s want image/png", obj.ContentType)
	}
	if !bytes.Equal(obj.Data, body) {
		t.Fatalf("sniffing dropped bytes: got %d want %d", len(obj.Data), len(body))
	}

	text := File{Name: "notes.bin", ContentType: "application/octet-stream", Size: 5, Body: strings.NewReader("hello")}
	if _, err := c.Upload(context.Background(), text, RoleTileImage); !errors.Is(err, ErrInvalidFileType) {
		t.Fatalf("err=%v want ErrInvalidFileType", err)
	}
}

func TestUploadFreshNames(t *testing.T) {
	c, store := newTestCoordinator(t)
	a, err := c.Upload(context.Background(), file("same.png", "image/png", 10), RoleTileImage)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	b, err := c.Upload(context.Background(), file("same.png", "image/png", 10), RoleTileImage)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if a == b {
		t.Fatalf("two uploads share a url: %s", a)
	}
	if len(store.Paths()) != 2 {
		t.Fatalf("paths=%v", store.Paths())
	}
}

func TestMemoryStoreNoOverwrite(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if err := store.Put(ctx, "k", strings.NewReader("a"), 1, "text/plain"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, "k", strings.NewReader("b"), 1, "text/plain"); !errors.Is(err, ErrObjectExists) {
		t.Fatalf("err=%v want ErrObjectExists", err)
	}
	obj, _ := store.Get("k")
	if string(obj.Data) != "a" {
		t.Fatalf("object replaced: %q", obj.Data)
	}
}

func TestDeleteRoundTrip(t *testing.T) {
	c, store := newTestCoordinator(t)
	url, err := c.Upload(context.Background(), file("b.jpg", "image/jpeg", 100), RoleBannerImage)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := c.Delete(context.Background(), url); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(store.Paths()) != 0 {
		t.Fatalf("object still stored: %v", store.Paths())
	}
	if err := c.Delete(context.Background(), url); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("second delete err=%v want ErrObjectNotFound", err)
	}
}

func TestResolveRejectsForeignURLs(t *testing.T) {
	c, _ := newTestCoordinator(t)
	bad := []string{
		"https://evil.example.com/storage/v1/object/public/media/stories/covers/a.png",
		"https://cdn.example.com/storage/v1/object/public/other/stories/covers/a.png",
		"https://cdn.example.com/storage/v1/object/public/media/stories/secrets/a.png",
		"https://cdn.example.com/storage/v1/object/public/media/elsewhere/covers/a.png",
		"https://cdn.example.com/storage/v1/object/public/media/stories/covers/",
		"https://cdn.example.com/storage/v1/object/public/media/stories/covers/../x",
		"::not a url",
	}
	for _, u := range bad {
		if _, err := c.Resolve(u); !errors.Is(err, ErrInvalidReference) {
			t.Fatalf("Resolve(%q) err=%v want ErrInvalidReference", u, err)
		}
	}
	p, err := c.Resolve("https://cdn.example.com/storage/v1/object/public/media/stories/audio/x.mp3")
	if err != nil || p != "stories/audio/x.mp3" {
		t.Fatalf("Resolve=%q,%v", p, err)
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range []Role{RoleCoverImage, RoleBannerImage, RoleTileImage, RoleSlideImage, RoleAudio} {
		got, err := ParseRole(string(r))
		if err != nil || got != r {
			t.Fatalf("ParseRole(%s)=%s,%v", r, got, err)
		}
	}
	if _, err := ParseRole("avatar"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("err=%v want ErrInvalidRole", err)
	}
}
