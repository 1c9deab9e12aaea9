package capture

import (
	"context"
	"testing"
	"time"
)

func TestOptionsNormalize(t *testing.T) {
	testCases := []struct {
		name    string
		opts    Options
		wantErr bool
		want    Options
	}{
		{name: "missing url", opts: Options{OutputPath: "out.png"}, wantErr: true},
		{name: "missing output", opts: Options{URL: "http://127.0.0.1:8080/"}, wantErr: true},
		{
			name: "defaults filled in",
			opts: Options{URL: "http://127.0.0.1:8080/", OutputPath: "out.png"},
			want: Options{URL: "http://127.0.0.1:8080/", OutputPath: "out.png", Width: DefaultWidth, Height: DefaultHeight, Timeout: 30 * time.Second},
		},
		{
			name: "explicit values kept",
			opts: Options{URL: "u", OutputPath: "o", Width: 800, Height: 480, Timeout: time.Second},
			want: Options{URL: "u", OutputPath: "o", Width: 800, Height: 480, Timeout: time.Second},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := tc.opts
			err := opts.normalize()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("normalize() error = %v", err)
			}
			if opts != tc.want {
				t.Errorf("normalize() = %+v, want %+v", opts, tc.want)
			}
		})
	}
}

func TestAuthHeader(t *testing.T) {
	if h := (&Options{}).authHeader(); h != nil {
		t.Errorf("authHeader() without credentials = %v", h)
	}
	h := (&Options{Username: "family", Password: "hunter2"}).authHeader()
	if got := h["Authorization"]; got != "Basic ZmFtaWx5Omh1bnRlcjI=" {
		t.Errorf("Authorization = %v", got)
	}
}

func TestCaptureValidatesBeforeLaunching(t *testing.T) {
	if err := CaptureDashboardPNG(context.Background(), Options{}); err == nil {
		t.Fatal("expected validation error")
	}
}
