// Package video probes local video files and decodes single frames with the
// ffprobe and ffmpeg binaries.
package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Extensions lists the containers considered videos, lower case.
var Extensions = []string{".mp4", ".mov", ".webm", ".avi", ".mkv"}

// ErrNoVideoStream is returned when a file has no decodable video stream.
var ErrNoVideoStream = errors.New("no video stream")

// FFmpeg runs the ffprobe/ffmpeg pair found at the given paths.
type FFmpeg struct {
	FFprobePath string
	FFmpegPath  string
}

// LookupFFmpeg resolves ffprobe and ffmpeg from PATH.
func LookupFFmpeg() (*FFmpeg, error) {
	probe, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}
	mpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	return &FFmpeg{FFprobePath: probe, FFmpegPath: mpeg}, nil
}

// FrameCount returns the number of frames in the first video stream. When the
// container does not record nb_frames it is estimated from duration and rate.
func (f *FFmpeg) FrameCount(ctx context.Context, path string) (int, error) {
	out, err := run(ctx, f.FFprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_type,nb_frames,avg_frame_rate,r_frame_rate,duration:format=duration",
		"-of", "json",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}
	return parseFrameCount(out)
}

// Frame decodes the frame at index and returns it as a JPEG.
func (f *FFmpeg) Frame(ctx context.Context, path string, index int) ([]byte, error) {
	if index < 0 {
		return nil, fmt.Errorf("negative frame index %d", index)
	}
	out, err := run(ctx, f.FFmpegPath,
		"-v", "error",
		"-i", path,
		"-vf", fmt.Sprintf(`select=eq(n\,%d)`, index),
		"-frames:v", "1",
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"pipe:1",
	)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg frame %d of %s: %w", index, filepath.Base(path), err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("frame %d of %s: empty output", index, filepath.Base(path))
	}
	return out, nil
}

func run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(err.Error())
		}
		return nil, errors.New(detail)
	}
	return out.Bytes(), nil
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	NbFrames     string `json:"nb_frames"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
	Duration     string `json:"duration"`
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseFrameCount(data []byte) (int, error) {
	var parsed probeResult
	if err := json.Unmarshal(data, &parsed); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	var stream *probeStream
	for i := range parsed.Streams {
		if ct := parsed.Streams[i].CodecType; ct == "" || ct == "video" {
			stream = &parsed.Streams[i]
			break
		}
	}
	if stream == nil {
		return 0, ErrNoVideoStream
	}

	if n, err := strconv.Atoi(strings.TrimSpace(stream.NbFrames)); err == nil && n > 0 {
		return n, nil
	}

	duration := parseFloat(stream.Duration)
	if duration <= 0 {
		duration = parseFloat(parsed.Format.Duration)
	}
	fps := parseRate(stream.AvgFrameRate)
	if fps <= 0 {
		fps = parseRate(stream.RFrameRate)
	}
	if duration <= 0 || fps <= 0 {
		return 0, nil
	}
	return int(math.Round(duration * fps)), nil
}

func parseFloat(v string) float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseRate(v string) float64 {
	v = strings.TrimSpace(v)
	if v == "" || v == "0/0" {
		return 0
	}
	num, den, ok := strings.Cut(v, "/")
	if !ok {
		return parseFloat(v)
	}
	a, b := parseFloat(num), parseFloat(den)
	if b == 0 {
		return 0
	}
	return a / b
}

// FrameIndices returns n evenly spaced frame indices over [0, total-1],
// truncated toward zero. Repeated indices are kept for short clips.
func FrameIndices(total, n int) []int {
	if total <= 0 || n <= 0 {
		return nil
	}
	if n == 1 {
		return []int{0}
	}
	out := make([]int, n)
	step := float64(total-1) / float64(n-1)
	for i := range out {
		out[i] = int(float64(i) * step)
	}
	out[n-1] = total - 1
	return out
}

// IsVideo reports whether name has one of Extensions.
func IsVideo(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FindVideoFiles lists the video files directly inside dir, sorted by name.
func FindVideoFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsVideo(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
