// livedance-feed streams frames to a livedance server at a fixed rate and
// prints the interpolated result stream once a second. Frames come from a
// directory of JPEGs (looped), a record log written by the server's -record
// flag, or a generated test pattern when neither is given.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fxamacker/cbor/v2"

	"livedance-go/internal/client"
	"livedance-go/internal/record"
	"livedance-go/internal/types"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8000/ws", "Server websocket URL")
		fps      = flag.Float64("fps", 30, "Frame send rate")
		dir      = flag.String("dir", "", "Directory of JPEG frames to loop")
		replay   = flag.String("replay", "", "Record log to replay instead of a frame directory")
		mode     = flag.String("mode", types.Mode3D, "Capture mode flag sent with each frame (\"3d\" or empty)")
		interval = flag.Duration("expected-interval", 50*time.Millisecond, "Expected inter-result interval seeding the interpolator")
		duration = flag.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	frames, err := loadFrames(*dir, *replay)
	if err != nil {
		log.Fatalf("failed to load frames: %v", err)
	}
	log.Printf("streaming %d frame(s) at %.1f fps to %s", len(frames), *fps, *url)

	c, err := client.Dial(ctx, *url, *interval)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer c.Close()

	go report(ctx, c)

	ticker := time.NewTicker(time.Duration(float64(time.Second) / *fps))
	defer ticker.Stop()
	idx := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.Done():
			log.Printf("connection closed by server")
			return
		case <-ticker.C:
			if _, err := c.SendFrame(frames[idx], *mode); err != nil {
				log.Printf("send failed: %v", err)
				return
			}
			idx = (idx + 1) % len(frames)
		}
	}
}

func report(ctx context.Context, c *client.Client) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, ok := c.History().Interpolated(time.Now())
			if !ok {
				log.Printf("no results yet")
				continue
			}
			line := fmt.Sprintf("seq=%d body=%d", result.Sequence, len(result.Body))
			for _, lm := range result.Body {
				if lm.Name == "nose" {
					line += fmt.Sprintf(" nose=(%.1f,%.1f)", lm.X, lm.Y)
				}
			}
			if rtt, ok := c.LastRTT(); ok {
				line += fmt.Sprintf(" rtt=%s", rtt.Round(time.Millisecond))
			}
			line += fmt.Sprintf(" interval=%s", c.History().Interval().Round(time.Millisecond))
			log.Print(line)
		}
	}
}

func loadFrames(dir, replay string) ([][]byte, error) {
	switch {
	case replay != "":
		return loadRecordLog(replay)
	case dir != "":
		return loadJPEGDir(dir)
	default:
		pattern, err := testPattern()
		if err != nil {
			return nil, err
		}
		return [][]byte{pattern}, nil
	}
}

func loadJPEGDir(dir string) ([][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		name := strings.ToLower(entry.Name())
		if !entry.IsDir() && (strings.HasSuffix(name, ".jpg") || strings.HasSuffix(name, ".jpeg")) {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no JPEG files in %s", dir)
	}
	sort.Strings(names)
	frames := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		frames = append(frames, data)
	}
	return frames, nil
}

// loadRecordLog extracts the image payloads from a server record log.
func loadRecordLog(path string) ([][]byte, error) {
	reader, err := record.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var frames [][]byte
	for {
		payload, _, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		var msg types.FrameMessage
		if err := cbor.Unmarshal(payload, &msg); err != nil {
			log.Printf("skipping undecodable record: %v", err)
			continue
		}
		if msg.Type == types.MessageFrame && len(msg.Image) > 0 {
			frames = append(frames, msg.Image)
		}
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frame records in %s", path)
	}
	return frames, nil
}

func testPattern() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x / 3), G: uint8(y / 2), B: 96, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
