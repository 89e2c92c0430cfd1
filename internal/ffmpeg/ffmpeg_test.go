package ffmpeg

import (
	"errors"
	"strings"
	"testing"
)

func TestConcatWithFadesRejectsEmptyInput(t *testing.T) {
	err := ConcatWithFades(nil, "out.mp4")
	if !errors.Is(err, ErrNoInput) {
		t.Fatalf("expected ErrNoInput, got %v", err)
	}
	// An EncodeError would mean a subprocess actually ran.
	var encodeErr *EncodeError
	if errors.As(err, &encodeErr) {
		t.Fatal("no subprocess may be started for empty input")
	}
}

func TestFadeConcatFilterSingleInput(t *testing.T) {
	got := fadeConcatFilter(1)
	want := "[0:v]fade=t=in:st=0:d=1:alpha=1,fade=t=out:st=4:d=1:alpha=1[v0];" +
		"[v0]concat=n=1:v=1:a=0[outv];" +
		"[0:a]concat=n=1:v=0:a=1[outa]"
	if got != want {
		t.Errorf("filter = %q\nwant %q", got, want)
	}
}

func TestFadeConcatFilterThreeInputs(t *testing.T) {
	got := fadeConcatFilter(3)

	for i := 0; i < 3; i++ {
		fade := "[" + string(rune('0'+i)) + ":v]fade=t=in:st=0:d=1:alpha=1,fade=t=out:st=4:d=1:alpha=1"
		if !strings.Contains(got, fade) {
			t.Errorf("missing fade chain for input %d in %q", i, got)
		}
	}
	if !strings.Contains(got, "[v0][v1][v2]concat=n=3:v=1:a=0[outv]") {
		t.Errorf("missing video concat in %q", got)
	}
	if !strings.Contains(got, "[0:a][1:a][2:a]concat=n=3:v=0:a=1[outa]") {
		t.Errorf("missing audio concat in %q", got)
	}
}

func TestConcatArgs(t *testing.T) {
	args := concatArgs([]string{"a.mp4", "b.mp4"}, "final.mp4")

	joined := strings.Join(args, " ")
	for _, fragment := range []string{
		"-y",
		"-i a.mp4 -i b.mp4",
		"-map [outv] -map [outa]",
		"-c:v libx264 -c:a aac",
		"-preset medium -crf 23",
		"-movflags +faststart",
	} {
		if !strings.Contains(joined, fragment) {
			t.Errorf("args missing %q: %s", fragment, joined)
		}
	}
	if args[len(args)-1] != "final.mp4" {
		t.Errorf("output must be the last argument, got %s", args[len(args)-1])
	}
}

func TestTail(t *testing.T) {
	if got := tail("short", 10); got != "short" {
		t.Errorf("tail = %q", got)
	}
	if got := tail("0123456789", 4); got != "6789" {
		t.Errorf("tail = %q", got)
	}
}
