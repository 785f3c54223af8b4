package progress

import (
	"context"
	"fmt"
	"io"
	"time"

	pb "github.com/schollz/progressbar/v3"
)

type pbVal struct {
	w io.Writer
}

type pbKey struct{}

func Open(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, pbKey{}, pbVal{w})
}

type Progress struct {
	bar    *pb.ProgressBar
	prefix string
}

func (t *Progress) Add(cnt int64) {
	if t.bar == nil {
		return
	}

	t.bar.Add64(cnt)
}

func (t *Progress) Tick() {
	t.Add(1)
}

func (t *Progress) Close() {
	if t.bar == nil {
		return
	}

	t.bar.Close()
}

func (t *Progress) On(step string) {
	if t.bar == nil {
		return
	}

	t.bar.Describe(t.prefix + ": " + step)
}

// Writer returns an io.Writer that advances the bar as data flows
// through it, for use with io.TeeReader and friends.
func (t *Progress) Writer() io.Writer {
	if t.bar == nil {
		return io.Discard
	}

	return t.bar
}

func newBar(val pbVal, total int64, desc string, opts ...pb.Option) *pb.ProgressBar {
	base := []pb.Option{
		pb.OptionSetDescription(desc),
		pb.OptionSetWriter(val.w),
		pb.OptionSetWidth(20),
		pb.OptionThrottle(65 * time.Millisecond),
		pb.OptionSetTheme(
			pb.Theme{Saucer: "=", SaucerPadding: " ", BarStart: "[", BarEnd: "]"},
		),
		pb.OptionOnCompletion(func() {
			fmt.Fprint(val.w, "\n")
		}),
		pb.OptionSpinnerType(14),
		pb.OptionFullWidth(),
	}

	bar := pb.NewOptions64(total, append(base, opts...)...)
	bar.RenderBlank()

	return bar
}

// Count reports progress over a known number of steps.
func Count(ctx context.Context, total int64, desc string) *Progress {
	h := ctx.Value(pbKey{})
	if h == nil {
		return &Progress{}
	}

	val := h.(pbVal)

	bar := newBar(val, total, desc,
		pb.OptionShowCount(),
		pb.OptionShowIts(),
	)

	return &Progress{prefix: desc, bar: bar}
}

// Bytes reports progress over a byte stream. total may be -1 when the
// size is not known up front.
func Bytes(ctx context.Context, total int64, desc string) *Progress {
	h := ctx.Value(pbKey{})
	if h == nil {
		return &Progress{}
	}

	val := h.(pbVal)

	bar := newBar(val, total, desc,
		pb.OptionShowBytes(true),
	)

	return &Progress{prefix: desc, bar: bar}
}
