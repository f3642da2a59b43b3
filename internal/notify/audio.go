package notify

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/vorbis"

	"clockwidget/internal/core/model"
)

// SampleRate is the rate the speaker is initialised with.
const SampleRate = beep.SampleRate(44100)

// ErrNoAudio indicates the audio device could not be opened.
var ErrNoAudio = errors.New("audio output unavailable")

var speakerOnce struct {
	sync.Once
	err error
}

// AudioSink plays an alert sound through the speaker.
type AudioSink struct {
	mu     sync.Mutex
	buffer *beep.Buffer
	play   func(beep.Streamer)
}

// NewAudioSink opens the speaker and prepares the alert sound: the
// configured Ogg Vorbis file, or a generated tone when no file is set or
// it cannot be decoded.
func NewAudioSink(config model.AlertConfig, logger *slog.Logger) (*AudioSink, error) {
	speakerOnce.Do(func() {
		speakerOnce.err = speaker.Init(SampleRate, SampleRate.N(time.Second/10))
	})
	if speakerOnce.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAudio, speakerOnce.err)
	}
	return newAudioSink(config, func(streamer beep.Streamer) {
		speaker.Play(streamer)
	}, logger)
}

func newAudioSink(config model.AlertConfig, play func(beep.Streamer), logger *slog.Logger) (*AudioSink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var buffer *beep.Buffer
	if config.SoundFile != "" {
		loaded, err := loadSoundFile(config.SoundFile)
		if err != nil {
			logger.Warn("alert sound unavailable, using tone", "file", config.SoundFile, "error", err)
		} else {
			buffer = loaded
		}
	}
	if buffer == nil {
		tone, err := toneBuffer(config.ToneHz, config.ToneDuration)
		if err != nil {
			return nil, err
		}
		buffer = tone
	}

	return &AudioSink{buffer: buffer, play: play}, nil
}

// OnCountdownCompleted plays the alert sound once.
func (sink *AudioSink) OnCountdownCompleted() {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.play(sink.buffer.Streamer(0, sink.buffer.Len()))
}

// Length returns the alert duration.
func (sink *AudioSink) Length() time.Duration {
	return sink.buffer.Format().SampleRate.D(sink.buffer.Len())
}

func loadSoundFile(path string) (*beep.Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sound file: %w", err)
	}

	streamer, format, err := vorbis.Decode(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("decode sound file: %w", err)
	}
	defer streamer.Close()

	var source beep.Streamer = streamer
	if format.SampleRate != SampleRate {
		source = beep.Resample(4, format.SampleRate, SampleRate, streamer)
		format.SampleRate = SampleRate
	}

	buffer := beep.NewBuffer(format)
	buffer.Append(source)
	return buffer, nil
}

func toneBuffer(hz float64, duration time.Duration) (*beep.Buffer, error) {
	if hz <= 0 {
		hz = 880
	}
	if duration <= 0 {
		duration = 600 * time.Millisecond
	}

	tone, err := generators.SineTone(SampleRate, hz)
	if err != nil {
		return nil, fmt.Errorf("generate alert tone: %w", err)
	}

	buffer := beep.NewBuffer(beep.Format{SampleRate: SampleRate, NumChannels: 2, Precision: 2})
	buffer.Append(&effects.Gain{
		Streamer: beep.Take(SampleRate.N(duration), tone),
		Gain:     -0.6,
	})
	return buffer, nil
}
