package bus

import (
	"math"
	"testing"
)

func fillRamp(ch []float64, base float64) {
	for i := range ch {
		ch[i] = base + float64(i)
	}
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name     string
		channels int
		frames   int
		wantErr  bool
	}{
		{"valid", 2, 128, false},
		{"zero channels", 0, 128, true},
		{"negative channels", -1, 128, true},
		{"zero frames", 2, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.channels, tc.frames)
			if (err != nil) != tc.wantErr {
				t.Fatalf("New(%d, %d) error = %v, wantErr %v", tc.channels, tc.frames, err, tc.wantErr)
			}
		})
	}
}

func TestSetChannelCountPreservesStorage(t *testing.T) {
	b := MustNew(4, 8)
	fillRamp(b.Channel(2), 100)

	b.SetChannelCount(1)
	if got := b.ChannelCount(); got != 1 {
		t.Fatalf("ChannelCount() = %d, want 1", got)
	}

	// Reactivating the channel must expose the old samples unchanged.
	b.SetChannelCount(4)
	if got := b.Channel(2)[5]; got != 105 {
		t.Fatalf("channel 2 sample 5 = %v, want 105", got)
	}
}

func TestSetChannelCountPanicsOutOfRange(t *testing.T) {
	b := MustNew(2, 4)
	for _, n := range []int{0, -1, 3} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("SetChannelCount(%d) did not panic", n)
				}
			}()
			b.SetChannelCount(n)
		}()
	}
}

func TestZeroClearsOnlyActive(t *testing.T) {
	b := MustNew(3, 4)
	fillRamp(b.Channel(0), 1)
	fillRamp(b.Channel(2), 9)

	b.SetChannelCount(1)
	b.Zero()
	b.SetChannelCount(3)

	for i, v := range b.Channel(0) {
		if v != 0 {
			t.Fatalf("channel 0 sample %d = %v after Zero", i, v)
		}
	}
	if b.Channel(2)[0] != 9 {
		t.Fatalf("inactive channel was cleared")
	}
}

func TestSilent(t *testing.T) {
	b := MustNew(2, 16)
	if !b.Silent() {
		t.Fatal("fresh bus not silent")
	}
	b.Channel(1)[15] = 1e-12
	if b.Silent() {
		t.Fatal("non-zero bus reported silent")
	}
}

func TestCopyFrom(t *testing.T) {
	src := MustNew(2, 8)
	fillRamp(src.Channel(0), 0)
	fillRamp(src.Channel(1), 50)

	dst := MustNew(4, 8)
	if err := dst.CopyFrom(src); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	if dst.ChannelCount() != 2 {
		t.Fatalf("ChannelCount() = %d, want 2", dst.ChannelCount())
	}
	if dst.Channel(1)[3] != 53 {
		t.Fatalf("sample mismatch after copy")
	}

	short := MustNew(2, 4)
	if err := dst.CopyFrom(short); err == nil {
		t.Fatal("CopyFrom with frame mismatch succeeded")
	}
}

func TestSumIntoMonoUpmix(t *testing.T) {
	src := MustNew(1, 4)
	fillRamp(src.Channel(0), 1)

	dst := MustNew(2, 4)
	dst.Channel(0)[0] = 10
	SumInto(dst, src)

	if got := dst.Channel(0)[0]; got != 11 {
		t.Fatalf("left[0] = %v, want 11", got)
	}
	if got := dst.Channel(1)[3]; got != 4 {
		t.Fatalf("right[3] = %v, want 4", got)
	}
}

func TestSumIntoStereoDownmix(t *testing.T) {
	src := MustNew(2, 4)
	fillRamp(src.Channel(0), 0)
	fillRamp(src.Channel(1), 10)

	dst := MustNew(1, 4)
	SumInto(dst, src)

	// 0.5*(l+r): sample 2 is 0.5*(2+12) = 7.
	if got := dst.Channel(0)[2]; math.Abs(got-7) > 1e-15 {
		t.Fatalf("mono[2] = %v, want 7", got)
	}
}

func TestSumIntoFoldsExcessChannels(t *testing.T) {
	src := MustNew(4, 4)
	src.SetChannelCount(4)
	fillRamp(src.Channel(0), 1)
	fillRamp(src.Channel(1), 10)
	fillRamp(src.Channel(2), 100)
	fillRamp(src.Channel(3), 1000)

	dst := MustNew(2, 4)
	SumInto(dst, src)

	if got := dst.Channel(0)[0]; got != 1 {
		t.Fatalf("left[0] = %v, want 1", got)
	}
	// Channels beyond the destination width accumulate into the last
	// channel: right gets ch1 + ch2 + ch3.
	if got := dst.Channel(1)[0]; got != 10+100+1000 {
		t.Fatalf("right[0] = %v, want %v", got, 10+100+1000)
	}
	if got := dst.Channel(1)[3]; got != 13+103+1003 {
		t.Fatalf("right[3] = %v, want %v", got, 13+103+1003)
	}
}

func TestMixIntoComputedChannelCount(t *testing.T) {
	mono := MustNew(1, 4)
	fillRamp(mono.Channel(0), 1)
	stereo := MustNew(2, 4)
	fillRamp(stereo.Channel(1), 100)

	dst := MustNew(4, 4)
	MixInto(dst, []*Bus{mono, stereo, nil})

	if got := dst.ChannelCount(); got != 2 {
		t.Fatalf("mixed channel count = %d, want 2", got)
	}
	// Right channel: mono upmix + stereo right.
	if got := dst.Channel(1)[0]; got != 101 {
		t.Fatalf("right[0] = %v, want 101", got)
	}
}

func TestMixIntoClampsToCapacity(t *testing.T) {
	wide := MustNew(6, 4)
	wide.SetChannelCount(6)
	dst := MustNew(2, 4)
	MixInto(dst, []*Bus{wide})
	if got := dst.ChannelCount(); got != 2 {
		t.Fatalf("channel count = %d, want clamp to 2", got)
	}
}

func TestMixIntoEmptySources(t *testing.T) {
	dst := MustNew(2, 4)
	fillRamp(dst.Channel(0), 5)
	MixInto(dst, nil)
	if dst.ChannelCount() != 1 || !dst.Silent() {
		t.Fatal("empty mix must leave one silent channel")
	}
}
