package qrcode

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ponchocards/ponchocards/pkg/cache"
	perrors "github.com/ponchocards/ponchocards/pkg/errors"
)

func TestOptionsDefaults(t *testing.T) {
	var o Options
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if o.Level != LevelHigh || o.Size != 256 {
		t.Errorf("defaults = %+v", o)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"low", Options{Level: "low"}, false},
		{"mixed case", Options{Level: "Highest"}, false},
		{"unknown level", Options{Level: "ultra"}, true},
		{"tiny", Options{Size: 10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !perrors.Is(err, perrors.ErrCodeInvalidInput) {
				t.Errorf("want INVALID_INPUT, got %v", err)
			}
		})
	}
}

func TestEncoderProducesPNG(t *testing.T) {
	enc, err := NewEncoder(Options{})
	if err != nil {
		t.Fatal(err)
	}
	data, err := enc.Generate(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 256 || b.Dy() != 256 {
		t.Errorf("image is %dx%d, want 256x256", b.Dx(), b.Dy())
	}
}

func TestEncoderRejectsEmpty(t *testing.T) {
	enc, _ := NewEncoder(Options{})
	if _, err := enc.Generate(context.Background(), "   "); err == nil {
		t.Error("expected error for blank text")
	}
}

func TestEncoderCancelled(t *testing.T) {
	enc, _ := NewEncoder(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := enc.Generate(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// stubPNG is a 1x1 PNG with text appended, so every text gets distinct
// bytes that still decode.
func stubPNG(text string) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		panic(err)
	}
	return append(buf.Bytes(), text...)
}

func TestCheckImage(t *testing.T) {
	if err := CheckImage(stubPNG("x")); err != nil {
		t.Errorf("valid png rejected: %v", err)
	}
	for _, bad := range [][]byte{nil, []byte("junk"), stubPNG("x")[:12]} {
		if err := CheckImage(bad); err == nil {
			t.Errorf("CheckImage(%q) = nil, want error", bad)
		}
	}
}

func TestCachedGenerator(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	inner := GeneratorFunc(func(ctx context.Context, text string) ([]byte, error) {
		calls.Add(1)
		return stubPNG(text), nil
	})

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	g := NewCached(inner, fc, nil, Options{Level: LevelHigh, Size: 256}, nil)

	for i := 0; i < 3; i++ {
		data, err := g.Generate(ctx, "link-a")
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(data, stubPNG("link-a")) {
			t.Errorf("data = %q", data)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("inner called %d times, want 1", calls.Load())
	}

	if _, err := g.Generate(ctx, "link-b"); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("inner called %d times, want 2", calls.Load())
	}
}

func TestCachedPropagatesGeneratorError(t *testing.T) {
	boom := errors.New("boom")
	g := NewCached(GeneratorFunc(func(context.Context, string) ([]byte, error) {
		return nil, boom
	}), nil, nil, Options{}, nil)

	if _, err := g.Generate(context.Background(), "x"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

type failingCache struct{ cache.NullCache }

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("read failed")
}

func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("write failed")
}

func TestCachedIgnoresCacheFailures(t *testing.T) {
	g := NewCached(GeneratorFunc(func(_ context.Context, text string) ([]byte, error) {
		return []byte(text), nil
	}), &failingCache{}, nil, Options{}, nil)

	data, err := g.Generate(context.Background(), "x")
	if err != nil || string(data) != "x" {
		t.Errorf("Generate = %q, %v", data, err)
	}
}

func TestCachedRegeneratesCorruptEntries(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{Level: LevelHigh, Size: 256}
	key := cache.NewDefaultKeyer().QRKey("link", cache.QRKeyOpts{Level: opts.Level, Size: opts.Size})
	if err := fc.Set(ctx, key, []byte("truncated"), time.Hour); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	g := NewCached(GeneratorFunc(func(_ context.Context, text string) ([]byte, error) {
		calls.Add(1)
		return stubPNG(text), nil
	}), fc, nil, opts, nil)

	data, err := g.Generate(ctx, "link")
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 || CheckImage(data) != nil {
		t.Errorf("corrupt entry served: calls=%d data=%q", calls.Load(), data)
	}
	if stored, hit, _ := fc.Get(ctx, key); !hit || !bytes.Equal(stored, data) {
		t.Error("regenerated image should replace the corrupt entry")
	}
}
