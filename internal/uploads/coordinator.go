// Package uploads validates media files, stores them under role-specific
// prefixes and hands back public URLs for the owning record.
package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	MiB = 1 << 20

	MaxImageSize = 10 * MiB
	MaxAudioSize = 100 * MiB
)

var (
	ErrInvalidRole      = errors.New("unknown upload role")
	ErrInvalidFileType  = errors.New("invalid file type")
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidReference = errors.New("url does not reference an uploaded file")
)

// Role is what an uploaded file is for; it decides the accepted media type,
// the size limit and the storage folder.
type Role string

const (
	RoleCoverImage  Role = "cover-image"
	RoleBannerImage Role = "banner-image"
	RoleTileImage   Role = "tile-image"
	RoleSlideImage  Role = "slide-image"
	RoleAudio       Role = "audio"
)

type rule struct {
	folder    string
	mediaType string // required media type prefix
	maxSize   int64
}

var rules = map[Role]rule{
	RoleCoverImage:  {folder: "covers", mediaType: "image/", maxSize: MaxImageSize},
	RoleBannerImage: {folder: "banners", mediaType: "image/", maxSize: MaxImageSize},
	RoleTileImage:   {folder: "tiles", mediaType: "image/", maxSize: MaxImageSize},
	RoleSlideImage:  {folder: "slides", mediaType: "image/", maxSize: MaxImageSize},
	RoleAudio:       {folder: "audio", mediaType: "audio/", maxSize: MaxAudioSize},
}

// ParseRole validates a role name taken from a request.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := rules[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Folder returns the storage folder of the role.
func (r Role) Folder() string {
	return rules[r].folder
}

// File is a raw upload as received from the client
type File struct {
	Name        string // client file name, used for its extension
	ContentType string // declared media type, may be empty
	Size        int64
	Body        io.Reader
}

// Config locates stored objects and their public URLs
type Config struct {
	Bucket        string // bucket name, also the first URL segment after the base
	Root          string // object key prefix, e.g. "stories"
	PublicBaseURL string // e.g. https://storage.googleapis.com
}

// Coordinator validates and stores uploads. It keeps no state between calls
// beyond the store handle.
type Coordinator struct {
	store  ObjectStore
	bucket string
	root   string
	base   *url.URL
}

func NewCoordinator(store ObjectStore, cfg Config) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("uploads: nil object store")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("uploads: bucket is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.PublicBaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("uploads: invalid public base url %q", cfg.PublicBaseURL)
	}
	return &Coordinator{
		store:  store,
		bucket: cfg.Bucket,
		root:   strings.Trim(cfg.Root, "/"),
		base:   base,
	}, nil
}

// Upload checks f against the limits of role, stores it under a fresh name
// and returns its public URL. Existing objects are never overwritten.
func (c *Coordinator) Upload(ctx context.Context, f File, role Role) (string, error) {
	rl, ok := rules[role]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	body := f.Body
	contentType := strings.ToLower(strings.TrimSpace(f.ContentType))
	if contentType == "" || contentType == "application/octet-stream" {
		var err error
		contentType, body, err = sniff(body)
		if err != nil {
			return "", fmt.Errorf("read upload: %w", err)
		}
	}
	if !strings.HasPrefix(contentType, rl.mediaType) {
		return "", fmt.Errorf("%w: %s expects %s*, got %q", ErrInvalidFileType, role, rl.mediaType, contentType)
	}
	if f.Size > rl.maxSize {
		return "", fmt.Errorf("%w: %d bytes exceeds %d MiB for %s", ErrFileTooLarge, f.Size, rl.maxSize/MiB, role)
	}

	p := c.objectPath(rl.folder, uuid.NewString()+filepath.Ext(f.Name))
	if err := c.store.Put(ctx, p, io.LimitReader(body, rl.maxSize+1), f.Size, contentType); err != nil {
		return "", fmt.Errorf("store %s: %w", p, err)
	}
	return c.PublicURL(p), nil
}

// Delete removes the object a previously returned URL points at.
func (c *Coordinator) Delete(ctx context.Context, rawURL string) error {
	p, err := c.Resolve(rawURL)
	if err != nil {
		return err
	}
	if err := c.store.Delete(ctx, p); err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}
	return nil
}

// PublicURL renders the public URL of an object path.
func (c *Coordinator) PublicURL(objectPath string) string {
	u := *c.base
	u.Path = u.Path + "/" + c.bucket + "/" + objectPath
	return u.String()
}

// Resolve maps a public URL back to its object path. Only URLs of the form
// <base>/<bucket>/<root>/<folder>/<name> are accepted.
func (c *Coordinator) Resolve(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	if !strings.EqualFold(u.Host, c.base.Host) {
		return "", fmt.Errorf("%w: host %q", ErrInvalidReference, u.Host)
	}
	prefix := c.base.Path + "/" + c.bucket + "/"
	if !strings.HasPrefix(u.Path, prefix) {
		return "", fmt.Errorf("%w: %s", ErrInvalidReference, rawURL)
	}
	p := strings.TrimPrefix(u.Path, prefix)

	parts := strings.Split(p, "/")
	if c.root != "" {
		if len(parts) == 0 || parts[0] != c.root {
			return "", fmt.Errorf("%w: %s", ErrInvalidReference, rawURL)
		}
		parts = parts[1:]
	}
	if len(parts) != 2 || !knownFolder(parts[0]) || parts[1] == "" || parts[1] == "." || parts[1] == ".." {
		return "", fmt.Errorf("%w: %s", ErrInvalidReference, rawURL)
	}
	return p, nil
}

func (c *Coordinator) objectPath(folder, name string) string {
	if c.root == "" {
		return folder + "/" + name
	}
	return c.root + "/" + folder + "/" + name
}

func knownFolder(folder string) bool {
	for _, r := range rules {
		if r.folder == folder {
			return true
		}
	}
	return false
}

// sniffLen covers the longest signature mimetype inspects by default.
const sniffLen = 3072

// sniff detects the media type from the head of body and returns a reader
// that still yields the whole content.
func sniff(body io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}
	head = head[:n]
	mt := mimetype.Detect(head)
	return strings.ToLower(mt.String()), io.MultiReader(bytes.NewReader(head), body), nil
}
