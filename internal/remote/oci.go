package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strconv"
	"sync"

	"github.com/aweris/hist/internal/compression"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
	"github.com/google/go-containerregistry/pkg/v1/types"
)

const objectsLabel = "dev.hist.objects"

// OCIBucket keeps a whole namespace as one image: a single zstd layer
// holding every object (see PackObjects). The image is fetched once per
// bucket and every mutation pushes a new image to the same tag.
type OCIBucket struct {
	ref         name.Reference
	auth        Authenticator
	codec       *compression.Codec
	concurrency int

	mu      sync.Mutex
	objects map[string][]byte
}

// NewOCIBucket creates a bucket from a standard image ref (e.g. "ghcr.io/me/notes:main").
func NewOCIBucket(imageRef string, cfg Config) (*OCIBucket, error) {
	ref, err := name.ParseReference(imageRef, name.WithDefaultTag("latest"))
	if err != nil {
		return nil, fmt.Errorf("invalid image ref %q: %w", imageRef, err)
	}
	codec, err := compression.NewCodec(cfg.Compression)
	if err != nil {
		return nil, fmt.Errorf("create codec: %w", err)
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &OCIBucket{ref: ref, auth: cfg.Auth, codec: codec, concurrency: concurrency}, nil
}

func (b *OCIBucket) String() string   { return "oci://" + b.ref.String() }
func (b *OCIBucket) Registry() string { return b.ref.Context().RegistryStr() }

// objectLayer implements v1.Layer over a zstd-compressed packed body.
type objectLayer struct {
	compressed   []byte
	uncompressed []byte
}

func (b *OCIBucket) newLayer(data []byte) *objectLayer {
	return &objectLayer{compressed: b.codec.Compress(data), uncompressed: data}
}

func (l *objectLayer) Digest() (v1.Hash, error) {
	h, _, err := v1.SHA256(bytes.NewReader(l.compressed))
	return h, err
}

func (l *objectLayer) DiffID() (v1.Hash, error) {
	h, _, err := v1.SHA256(bytes.NewReader(l.uncompressed))
	return h, err
}

func (l *objectLayer) Compressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.compressed)), nil
}
func (l *objectLayer) Uncompressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.uncompressed)), nil
}
func (l *objectLayer) Size() (int64, error)                { return int64(len(l.compressed)), nil }
func (l *objectLayer) MediaType() (types.MediaType, error) { return types.OCILayerZStd, nil }

func (b *OCIBucket) List(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.load(ctx); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	return keys, nil
}

func (b *OCIBucket) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.load(ctx); err != nil {
		return nil, err
	}
	data, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return data, nil
}

func (b *OCIBucket) Put(ctx context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.load(ctx); err != nil {
		return err
	}
	next := maps.Clone(b.objects)
	next[key] = data
	return b.write(ctx, next)
}

func (b *OCIBucket) Delete(ctx context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.load(ctx); err != nil {
		return err
	}
	next := maps.Clone(b.objects)
	for _, k := range keys {
		delete(next, k)
	}
	return b.write(ctx, next)
}

// Mirror replaces the namespace with objects in a single image push.
func (b *OCIBucket) Mirror(ctx context.Context, objects map[string][]byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.write(ctx, maps.Clone(objects))
}

func (b *OCIBucket) load(ctx context.Context) error {
	if b.objects != nil {
		return nil
	}

	options, err := b.remoteOptions(ctx)
	if err != nil {
		return err
	}
	img, err := remote.Image(b.ref, options...)
	if err != nil {
		var terr *transport.Error
		if errors.As(err, &terr) && terr.StatusCode == http.StatusNotFound {
			b.objects = make(map[string][]byte)
			return nil
		}
		return fmt.Errorf("fetch image %s: %w", b.ref, err)
	}

	layers, err := img.Layers()
	if err != nil {
		return fmt.Errorf("get layers: %w", err)
	}

	objects := make(map[string][]byte)
	for _, layer := range layers {
		blobs, err := b.readLayer(layer)
		if err != nil {
			return err
		}
		maps.Copy(objects, blobs)
	}
	b.objects = objects
	return nil
}

func (b *OCIBucket) readLayer(layer v1.Layer) (map[string][]byte, error) {
	mt, err := layer.MediaType()
	if err != nil {
		return nil, fmt.Errorf("layer media type: %w", err)
	}
	if mt != types.OCILayerZStd {
		return nil, fmt.Errorf("unsupported layer media type %s", mt)
	}

	rc, err := layer.Compressed()
	if err != nil {
		return nil, fmt.Errorf("read layer: %w", err)
	}
	data, err := io.ReadAll(rc)
	if cerr := rc.Close(); cerr != nil {
		return nil, fmt.Errorf("close layer: %w", cerr)
	}
	if err != nil {
		return nil, fmt.Errorf("read layer: %w", err)
	}

	raw, err := b.codec.Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("decompress layer: %w", err)
	}
	blobs, err := UnpackObjects(raw)
	if err != nil {
		return nil, fmt.Errorf("unpack layer: %w", err)
	}
	return blobs, nil
}

func (b *OCIBucket) write(ctx context.Context, objects map[string][]byte) error {
	img, err := b.buildImage(objects)
	if err != nil {
		return fmt.Errorf("build image: %w", err)
	}

	options, err := b.remoteOptions(ctx)
	if err != nil {
		return err
	}
	options = append(options, remote.WithJobs(b.concurrency))
	if err := remote.Write(b.ref, img, options...); err != nil {
		return fmt.Errorf("push image %s: %w", b.ref, err)
	}
	b.objects = objects
	return nil
}

func (b *OCIBucket) buildImage(objects map[string][]byte) (v1.Image, error) {
	img := mutate.MediaType(empty.Image, types.OCIManifestSchema1)
	img = mutate.ConfigMediaType(img, types.OCIConfigJSON)

	if len(objects) > 0 {
		body, err := PackObjects(objects)
		if err != nil {
			return nil, err
		}
		img, err = mutate.AppendLayers(img, b.newLayer(body))
		if err != nil {
			return nil, err
		}
	}

	cfg, err := img.ConfigFile()
	if err != nil {
		return nil, err
	}
	cfg = cfg.DeepCopy()
	cfg.Config.Labels = map[string]string{
		objectsLabel: strconv.Itoa(len(objects)),
	}

	return mutate.ConfigFile(img, cfg)
}

func (b *OCIBucket) remoteOptions(ctx context.Context) ([]remote.Option, error) {
	options := []remote.Option{remote.WithContext(ctx)}
	if b.auth != nil {
		username, password, err := b.auth.Authenticate(b.Registry())
		if err != nil {
			return nil, fmt.Errorf("authenticate %s: %w", b.Registry(), err)
		}
		if username != "" {
			return append(options, remote.WithAuth(&authn.Basic{
				Username: username,
				Password: password,
			})), nil
		}
	}
	return append(options, remote.WithAuthFromKeychain(authn.DefaultKeychain)), nil
}
