package capture

import (
	"context"
	"errors"
	"image"
	"testing"
)

func TestPatternSourceLimit(t *testing.T) {
	src, err := NewPatternSource(8, 4, 0, 3)
	if err != nil {
		t.Fatalf("NewPatternSource: %v", err)
	}
	defer src.Close()

	ctx := context.Background()
	for i := uint64(1); i <= 3; i++ {
		f, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Next %d: %v", i, err)
		}
		if f.Seq != i {
			t.Errorf("seq = %d, want %d", f.Seq, i)
		}
		if err := f.Validate(); err != nil {
			t.Errorf("frame %d invalid: %v", i, err)
		}
	}
	if _, err := src.Next(ctx); !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
}

func TestPatternSourceClosedIsExhausted(t *testing.T) {
	src, err := NewPatternSource(2, 2, 30, 0)
	if err != nil {
		t.Fatalf("NewPatternSource: %v", err)
	}
	src.Close()
	if _, err := src.Next(context.Background()); !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
}

func TestPatternSourceHonoursContext(t *testing.T) {
	src, err := NewPatternSource(2, 2, 1, 0)
	if err != nil {
		t.Fatalf("NewPatternSource: %v", err)
	}
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		f    *Frame
		ok   bool
	}{
		{"rgb", &Frame{Height: 2, Width: 2, Channels: 3, Pix: make([]byte, 12)}, true},
		{"gray", &Frame{Height: 1, Width: 5, Channels: 1, Pix: make([]byte, 5)}, true},
		{"nil", nil, false},
		{"zero height", &Frame{Height: 0, Width: 2, Channels: 3}, false},
		{"two channels", &Frame{Height: 1, Width: 1, Channels: 2, Pix: make([]byte, 2)}, false},
		{"short pix", &Frame{Height: 2, Width: 2, Channels: 4, Pix: make([]byte, 15)}, false},
		{"huge", &Frame{Height: MaxDimension + 1, Width: 1, Channels: 1}, false},
	}
	for _, tc := range cases {
		err := tc.f.Validate()
		if (err == nil) != tc.ok {
			t.Errorf("%s: err = %v", tc.name, err)
		}
		if err != nil && !errors.Is(err, ErrInvalidFrame) {
			t.Errorf("%s: err %v does not wrap ErrInvalidFrame", tc.name, err)
		}
	}
}

func TestRGBAConversion(t *testing.T) {
	f := &Frame{Height: 1, Width: 2, Channels: 3, Pix: []byte{1, 2, 3, 4, 5, 6}}
	img := f.RGBA()
	want := []byte{1, 2, 3, 0xff, 4, 5, 6, 0xff}
	if string(img.Pix) != string(want) {
		t.Fatalf("pix = %v, want %v", img.Pix, want)
	}

	back := FromRGBA(img, 7)
	if back.Channels != 4 || back.Width != 2 || back.Height != 1 || back.Seq != 7 {
		t.Fatalf("unexpected frame %+v", back)
	}
}

func TestFromRGBASubImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = byte(i)
	}
	sub := img.SubImage(image.Rect(1, 1, 3, 3)).(*image.RGBA)
	f := FromRGBA(sub, 1)
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if f.Pix[0] != img.Pix[img.PixOffset(1, 1)] {
		t.Fatalf("first pixel = %d, want %d", f.Pix[0], img.Pix[img.PixOffset(1, 1)])
	}
}

func TestOpenUnknownKind(t *testing.T) {
	if _, err := Open(Options{Kind: "fax"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
