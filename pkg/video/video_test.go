package video

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

func TestFrameIndices(t *testing.T) {
	tests := []struct {
		name  string
		total int
		n     int
		want  []int
	}{
		{"typical", 100, 8, []int{0, 14, 28, 42, 56, 70, 84, 99}},
		{"exact", 8, 8, []int{0, 1, 2, 3, 4, 5, 6, 7}},
		{"short clip", 3, 8, []int{0, 0, 0, 0, 1, 1, 1, 2}},
		{"single frame", 1, 8, []int{0, 0, 0, 0, 0, 0, 0, 0}},
		{"one sample", 50, 1, []int{0}},
		{"no frames", 0, 8, nil},
		{"no samples", 10, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FrameIndices(tt.total, tt.n)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FrameIndices(%d, %d) = %v, want %v", tt.total, tt.n, got, tt.want)
			}
		})
	}
}

func TestParseFrameCount(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    int
		wantErr error
	}{
		{
			name: "nb_frames",
			json: `{"streams":[{"codec_type":"video","nb_frames":"240","avg_frame_rate":"24/1"}]}`,
			want: 240,
		},
		{
			name: "estimated from stream duration",
			json: `{"streams":[{"codec_type":"video","avg_frame_rate":"30000/1001","duration":"10.0"}]}`,
			want: 300,
		},
		{
			name: "estimated from format duration",
			json: `{"streams":[{"codec_type":"video","nb_frames":"N/A","avg_frame_rate":"0/0","r_frame_rate":"25/1"}],"format":{"duration":"4.0"}}`,
			want: 100,
		},
		{
			name: "unknown",
			json: `{"streams":[{"codec_type":"video"}]}`,
			want: 0,
		},
		{
			name:    "no stream",
			json:    `{"streams":[]}`,
			wantErr: ErrNoVideoStream,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFrameCount([]byte(tt.json))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}

	if _, err := parseFrameCount([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestFindVideoFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.MP4", "a.mov", "notes.txt", "c.webm", "d.mkv", "e.avi", "f.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.mp4"), 0755); err != nil {
		t.Fatal(err)
	}

	got, err := FindVideoFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(dir, "a.mov"),
		filepath.Join(dir, "b.MP4"),
		filepath.Join(dir, "c.webm"),
		filepath.Join(dir, "d.mkv"),
		filepath.Join(dir, "e.avi"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := FindVideoFiles(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing dir")
	}
}

// writeScript creates an executable shell script standing in for ffprobe or ffmpeg.
func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFFmpegWithStubBinaries(t *testing.T) {
	probe := writeScript(t, "ffprobe", `echo '{"streams":[{"codec_type":"video","nb_frames":"48"}]}'`+"\n")
	mpeg := writeScript(t, "ffmpeg", `printf 'JPEGDATA'`+"\n")
	f := &FFmpeg{FFprobePath: probe, FFmpegPath: mpeg}

	n, err := f.FrameCount(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if n != 48 {
		t.Errorf("frame count = %d, want 48", n)
	}

	img, err := f.Frame(context.Background(), "clip.mp4", 3)
	if err != nil {
		t.Fatal(err)
	}
	if string(img) != "JPEGDATA" {
		t.Errorf("frame = %q", img)
	}
}

func TestFFmpegFailureCarriesStderr(t *testing.T) {
	probe := writeScript(t, "ffprobe", "echo 'moov atom not found' >&2\nexit 1\n")
	f := &FFmpeg{FFprobePath: probe}

	_, err := f.FrameCount(context.Background(), "broken.mp4")
	if err == nil {
		t.Fatal("expected error")
	}
	if want := "ffprobe broken.mp4: moov atom not found"; err.Error() != want {
		t.Errorf("err = %q, want %q", err.Error(), want)
	}
}

func TestFrameRejectsNegativeIndex(t *testing.T) {
	f := &FFmpeg{}
	if _, err := f.Frame(context.Background(), "x.mp4", -1); err == nil {
		t.Error("expected error")
	}
}
