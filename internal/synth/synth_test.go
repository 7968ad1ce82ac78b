package synth

import (
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"

	"github.com/hundredGrand/Singer/internal/phoneme"
	"github.com/hundredGrand/Singer/internal/pitch"
	"github.com/hundredGrand/Singer/internal/song"
	"github.com/hundredGrand/Singer/internal/soundtable"
	"github.com/hundredGrand/Singer/internal/timeline"
)

const rate = DefaultSampleRate

var (
	c4 = pitch.MustParse("C4")
	g4 = pitch.MustParse("G4")
)

// clipSamples 生成覆盖 [0, 0.18) 的片段，按 44100Hz 采样共 7938 个点。
func clipSamples(amp float64) []timeline.Sample {
	n := 7938
	out := make([]timeline.Sample, n)
	for i := range out {
		out[i] = timeline.Sample{Time: float64(i) / rate, Amplitude: amp}
	}
	return out
}

func newTestSynth(t *testing.T) *Synthesizer {
	t.Helper()
	vowels, err := soundtable.NewVowelTable(map[soundtable.Key]float64{
		{Symbol: phoneme.VowelCat, Pitch: c4}:    0.25,
		{Symbol: phoneme.VowelCat, Pitch: g4}:    0.75,
		{Symbol: phoneme.VowelBee, Pitch: c4}:    -0.5,
		{Symbol: phoneme.VowelFather, Pitch: c4}: 0.1,
	})
	if err != nil {
		t.Fatalf("NewVowelTable failed: %v", err)
	}
	consonants, err := soundtable.NewConsonantTable(map[soundtable.Key][]timeline.Sample{
		soundtable.KeyFor(phoneme.K, pitch.None): clipSamples(0.01),
		soundtable.KeyFor(phoneme.S, pitch.None): clipSamples(0.02),
		soundtable.KeyFor(phoneme.M, c4):         clipSamples(0.03),
		soundtable.KeyFor(phoneme.M, g4):         clipSamples(0.04),
	}, DefaultConsonantDuration)
	if err != nil {
		t.Fatalf("NewConsonantTable failed: %v", err)
	}

	s, err := New(soundtable.Tables{Vowels: vowels, Consonants: consonants})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func note(t *testing.T, dur float64, phonemes string, p pitch.Pitch) song.Note {
	t.Helper()
	return song.Note{Duration: dur, Phonemes: mustSymbols(t, phonemes), Pitch: p}
}

func TestRender_KaExample(t *testing.T) {
	s := newTestSynth(t)
	samples, st, err := s.Collect([]song.Note{note(t, 0.5, "ka", c4)})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	const consSamples, vowelSamples = 7938, 14112
	if len(samples) != consSamples+vowelSamples {
		t.Fatalf("expected %d samples, got %d", consSamples+vowelSamples, len(samples))
	}
	if st.Samples != len(samples) || st.Notes != 1 {
		t.Errorf("unexpected stats %+v", st)
	}
	if math.Abs(st.Duration-0.5) > 1e-12 {
		t.Errorf("Duration: got %v, want 0.5", st.Duration)
	}

	for i, smp := range samples[:consSamples] {
		if smp.Time < 0 || smp.Time >= 0.18 {
			t.Fatalf("consonant sample %d at %v outside [0, 0.18)", i, smp.Time)
		}
		if smp.Amplitude != 0.01 {
			t.Fatalf("consonant sample %d: amplitude %v", i, smp.Amplitude)
		}
	}
	for i, smp := range samples[consSamples:] {
		if smp.Time < 0.18-1e-12 || smp.Time >= 0.5 {
			t.Fatalf("vowel sample %d at %v outside [0.18, 0.5)", i, smp.Time)
		}
		if smp.Amplitude != 0.25 {
			t.Fatalf("vowel sample %d: amplitude %v, want 0.25", i, smp.Amplitude)
		}
	}
	if first := samples[consSamples].Time; math.Abs(first-0.18) > 1e-12 {
		t.Errorf("first vowel sample at %v, want 0.18", first)
	}
}

func TestRender_RejectsConsonantOnlyNote(t *testing.T) {
	s := newTestSynth(t)
	emitted := 0
	_, err := s.Render([]song.Note{note(t, 0.1, "kk", c4)}, func(timeline.Sample) error {
		emitted++
		return nil
	})
	if !errors.Is(err, ErrNoVowels) {
		t.Fatalf("expected ErrNoVowels, got %v", err)
	}
	var ne *NoteError
	if !errors.As(err, &ne) || ne.Index != 0 {
		t.Errorf("expected NoteError for note 0, got %v", err)
	}
	if emitted != 0 {
		t.Errorf("no samples should be emitted for a rejected note, got %d", emitted)
	}
}

func TestRender_RejectsConsonantBudget(t *testing.T) {
	s := newTestSynth(t)
	_, err := s.Render([]song.Note{note(t, 0.3, "kas", c4)}, func(timeline.Sample) error { return nil })
	if !errors.Is(err, ErrConsonantBudget) {
		t.Fatalf("expected ErrConsonantBudget, got %v", err)
	}
}

func TestRender_VowelOnlyDuration(t *testing.T) {
	s := newTestSynth(t)
	for _, dur := range []float64{0.1, 0.25, 0.333, 1.0, 2.7} {
		samples, st, err := s.Collect([]song.Note{note(t, dur, "ai", c4)})
		if err != nil {
			t.Fatalf("Collect(%v) failed: %v", dur, err)
		}
		emitted := float64(len(samples)) / rate
		if math.Abs(emitted-dur) > 2.0/rate {
			t.Errorf("dur %v: emitted %v seconds of samples", dur, emitted)
		}
		if math.Abs(st.Duration-dur) > 1e-12 {
			t.Errorf("dur %v: cursor ended at %v", dur, st.Duration)
		}
		want := 2 * SampleCount(dur/2, rate)
		if len(samples) != want {
			t.Errorf("dur %v: got %d samples, want %d", dur, len(samples), want)
		}
	}
}

func TestRender_VoicedConsonantUsesPitch(t *testing.T) {
	s := newTestSynth(t)
	samples, _, err := s.Collect([]song.Note{note(t, 0.5, "ma", g4)})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if samples[0].Amplitude != 0.04 {
		t.Errorf("expected G4 clip for voiced m, got amplitude %v", samples[0].Amplitude)
	}
	if samples[len(samples)-1].Amplitude != 0.75 {
		t.Errorf("expected a_G4 amplitude 0.75, got %v", samples[len(samples)-1].Amplitude)
	}

	_, _, err = s.Collect([]song.Note{note(t, 0.5, "ma", pitch.MustParse("D4"))})
	if !errors.Is(err, soundtable.ErrMissingConsonant) {
		t.Errorf("expected ErrMissingConsonant for m_D4, got %v", err)
	}
}

func TestRender_UnvoicedConsonantIgnoresPitch(t *testing.T) {
	s := newTestSynth(t)
	samples, _, err := s.Collect([]song.Note{note(t, 0.5, "ka", g4)})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if samples[0].Amplitude != 0.01 {
		t.Errorf("expected pitch-independent k clip, got amplitude %v", samples[0].Amplitude)
	}
}

func TestRender_ContinuousTimeline(t *testing.T) {
	s := newTestSynth(t)
	notes := []song.Note{
		note(t, 0.5, "ka", c4),
		note(t, 0.75, "mis", c4),
		note(t, 0.4, "A", c4),
	}

	var samples []timeline.Sample
	st, err := s.Render(notes, func(smp timeline.Sample) error {
		samples = append(samples, smp)
		return nil
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if err := timeline.Monotonic(samples); err != nil {
		t.Fatalf("timeline not monotonic: %v", err)
	}
	if math.Abs(st.Duration-1.65) > 1e-9 {
		t.Errorf("cursor should not reset between notes: got %v, want 1.65", st.Duration)
	}

	// 第二个音符的辅音片段从游标 0.5 开始，偏移与片段完全一致
	clip := clipSamples(0.03)
	idx := 7938 + 14112
	start := samples[idx].Time
	if math.Abs(start-0.5) > 1e-12 {
		t.Fatalf("second note starts at %v, want 0.5", start)
	}
	for i, c := range clip {
		got := samples[idx+i]
		if got.Time != start+c.Time {
			t.Fatalf("clip sample %d: time %v, want %v", i, got.Time, start+c.Time)
		}
		if got.Amplitude != c.Amplitude {
			t.Fatalf("clip sample %d: amplitude %v, want %v", i, got.Amplitude, c.Amplitude)
		}
	}

	// 最后一个音符从 0.5+0.75 开始
	last := samples[len(samples)-SampleCount(0.4, rate)]
	if math.Abs(last.Time-1.25) > 1e-9 {
		t.Errorf("last note starts at %v, want 1.25", last.Time)
	}
}

func TestRender_Idempotent(t *testing.T) {
	s := newTestSynth(t)
	notes := []song.Note{note(t, 0.5, "ka", c4), note(t, 0.6, "si", c4)}

	a, _, err := s.Collect(notes)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	b, _, err := s.Collect(notes)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("rendering the same notes twice should produce identical timelines")
	}
}

func TestRender_ConcurrentSongsShareTables(t *testing.T) {
	s := newTestSynth(t)
	notes := []song.Note{note(t, 0.5, "ka", c4), note(t, 0.5, "ma", g4)}
	want, _, err := s.Collect(notes)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	var wg sync.WaitGroup
	results := make([][]timeline.Sample, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, _ = s.Collect(notes)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if !reflect.DeepEqual(got, want) {
			t.Errorf("goroutine %d produced a different timeline", i)
		}
	}
}

func TestRender_EmitErrorStops(t *testing.T) {
	s := newTestSynth(t)
	stop := errors.New("disk full")
	count := 0
	st, err := s.Render([]song.Note{note(t, 0.5, "ka", c4)}, func(timeline.Sample) error {
		count++
		if count == 10 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected emit error, got %v", err)
	}
	var ne *NoteError
	if errors.As(err, &ne) {
		t.Errorf("emit failures should not be reported as note errors: %v", err)
	}
	if st.Samples != 9 {
		t.Errorf("expected 9 samples before failure, got %d", st.Samples)
	}
}

func TestValidate(t *testing.T) {
	s := newTestSynth(t)
	good := []song.Note{note(t, 0.5, "ka", c4)}
	if err := s.Validate(good); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	bad := []song.Note{
		note(t, 0.5, "ka", c4),
		note(t, 0.5, "ko", c4),
	}
	err := s.Validate(bad)
	if !errors.Is(err, soundtable.ErrMissingVowel) {
		t.Fatalf("expected ErrMissingVowel, got %v", err)
	}
	var ne *NoteError
	if !errors.As(err, &ne) || ne.Index != 1 {
		t.Errorf("expected NoteError for note 1, got %v", err)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(soundtable.Tables{}); err == nil {
		t.Error("expected error for missing tables")
	}
	s := newTestSynth(t)
	if _, err := New(s.tables, WithSampleRate(0)); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestSampleCount(t *testing.T) {
	if n := SampleCount(0.32, rate); n != 14112 {
		t.Errorf("SampleCount(0.32): got %d, want 14112", n)
	}
	if n := SampleCount(0.5-0.18, rate); n != 14112 {
		t.Errorf("SampleCount(0.5-0.18): got %d, want 14112", n)
	}
	if n := SampleCount(0, rate); n != 0 {
		t.Errorf("SampleCount(0): got %d", n)
	}
	if n := SampleCount(math.NaN(), rate); n != 0 {
		t.Errorf("SampleCount(NaN): got %d", n)
	}
	if n := SampleCount(math.Inf(1), rate); n != math.MaxInt {
		t.Errorf("SampleCount(+Inf): got %d, want saturation at MaxInt", n)
	}
	if n := SampleCount(1e300, rate); n != math.MaxInt {
		t.Errorf("SampleCount(1e300): got %d, want saturation at MaxInt", n)
	}
}

func TestValidate_RejectsNonFiniteAndHugeDurations(t *testing.T) {
	s := newTestSynth(t)
	for _, dur := range []float64{math.Inf(1), 1e15} {
		notes := []song.Note{
			note(t, dur, "ka", c4),
			note(t, 0.5, "ka", c4),
		}
		err := s.Validate(notes)
		if !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("duration %g: expected ErrInvalidDuration, got %v", dur, err)
		}
		var ne *NoteError
		if !errors.As(err, &ne) || ne.Index != 0 {
			t.Errorf("duration %g: expected NoteError for note 0, got %v", dur, err)
		}

		emitted := 0
		st, err := s.Render(notes, func(timeline.Sample) error {
			emitted++
			return nil
		})
		if !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("duration %g: Render expected ErrInvalidDuration, got %v", dur, err)
		}
		if emitted != 0 || st.Notes != 0 {
			t.Errorf("duration %g: expected nothing rendered, got %d samples, stats %+v", dur, emitted, st)
		}
	}
}
